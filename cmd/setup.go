package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/davidschrooten/index-bootstrap/config"
	"github.com/davidschrooten/index-bootstrap/internal/api"
	"github.com/davidschrooten/index-bootstrap/internal/document"
	"github.com/davidschrooten/index-bootstrap/internal/engine"
	"github.com/davidschrooten/index-bootstrap/internal/indexer"
	"github.com/davidschrooten/index-bootstrap/internal/mongodb"
	"github.com/davidschrooten/index-bootstrap/internal/schema"
	"github.com/davidschrooten/index-bootstrap/internal/search"
	"github.com/davidschrooten/index-bootstrap/internal/solr"
	"github.com/davidschrooten/index-bootstrap/internal/source"
	"github.com/davidschrooten/index-bootstrap/internal/state"
)

// openEngine connects to the configured search engine.
func openEngine(cfg *config.Config, logger *slog.Logger) (engine.Engine, error) {
	switch cfg.Engine.Type {
	case config.EngineBleve:
		eng, err := search.NewEngine(cfg.Bleve, cfg.Engine.Core, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize bleve engine: %w", err)
		}
		return eng, nil
	case config.EngineSolr:
		client, err := solr.NewClient(cfg.Solr, cfg.Engine.Core, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize solr client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown engine type %q", cfg.Engine.Type)
	}
}

// documentLoader returns a function that reads the configured document source.
func documentLoader(cfg *config.Config, logger *slog.Logger) api.Loader {
	return func(ctx context.Context) (*document.Collection, error) {
		switch cfg.Source.Type {
		case config.SourceMongoDB:
			client, err := mongodb.NewClient(ctx, cfg.MongoDB)
			if err != nil {
				return nil, err
			}
			defer client.Disconnect()

			logger.Info("loading documents from MongoDB", "database", cfg.MongoDB.Database, "collection", cfg.MongoDB.Collection)
			return client.LoadCollection(ctx, cfg.MongoDB.Collection, cfg.MongoDB.IDField)
		default:
			logger.Info("loading documents from file", "path", cfg.Source.Path)
			return source.LoadFile(cfg.Source.Path)
		}
	}
}

// definitions returns the desired schema: the configured YAML file, or the
// built-in definitions for the normalization mode.
func definitions(cfg *config.Config) (schema.Definitions, error) {
	var defs schema.Definitions
	switch {
	case cfg.Schema.Path != "":
		loaded, err := schema.LoadDefinitions(cfg.Schema.Path)
		if err != nil {
			return schema.Definitions{}, err
		}
		defs = loaded
	case cfg.Normalize.Nested:
		defs = schema.DefaultNestedDefinitions()
	default:
		defs = schema.DefaultDefinitions()
	}

	if !cfg.Schema.Suggester {
		defs.Suggester = nil
	}
	return defs, nil
}

// newService wires the bootstrap service for cfg.
func newService(cfg *config.Config, eng engine.Engine, logger *slog.Logger) (*indexer.Service, error) {
	defs, err := definitions(cfg)
	if err != nil {
		return nil, err
	}

	var states *state.Manager
	if cfg.Indexing.StatePath != "" {
		states = state.NewManager(cfg.Indexing.StatePath, logger)
		if err := states.Load(); err != nil {
			return nil, fmt.Errorf("failed to load run state: %w", err)
		}
	}

	return indexer.NewService(eng, indexer.Options{
		Core:        cfg.Engine.Core,
		ConfigSet:   cfg.Engine.ConfigSet,
		BatchSize:   cfg.Indexing.BatchSize,
		Definitions: defs,
		Normalize:   cfg.Normalize.Options(),
	}, states, logger)
}
