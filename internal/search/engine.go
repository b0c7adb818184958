// Package search emulates a search core on local disk with Bleve. A core is a
// directory holding its live schema and, once documents arrive, a Bleve index
// built from that schema.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"

	"github.com/davidschrooten/index-bootstrap/config"
	"github.com/davidschrooten/index-bootstrap/internal/engine"
	"github.com/davidschrooten/index-bootstrap/internal/schema"
)

const (
	schemaFile = "schema.json"
	indexDir   = "index"
)

// Engine manages cores under a directory and serves one of them.
type Engine struct {
	indexPath string
	core      string
	logger    *slog.Logger

	mutex   sync.RWMutex
	indexes map[string]bleve.Index // open indexes by core
	pending map[string]*bleve.Batch
}

var _ engine.Engine = (*Engine)(nil)

// NewEngine creates an embedded engine bound to core.
func NewEngine(cfg config.BleveConfig, core string, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(cfg.IndexPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	return &Engine{
		indexPath: cfg.IndexPath,
		core:      core,
		logger:    logger,
		indexes:   make(map[string]bleve.Index),
		pending:   make(map[string]*bleve.Batch),
	}, nil
}

// Core returns the name of the core the engine is bound to.
func (e *Engine) Core() string {
	return e.core
}

func (e *Engine) coreDir(core string) string {
	return filepath.Join(e.indexPath, core)
}

// CoreStatus reports whether the core exists on disk and how long ago it was
// created.
func (e *Engine) CoreStatus(ctx context.Context, core string) (engine.CoreStatus, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	status := engine.CoreStatus{Name: core}
	s, err := loadSchema(e.coreDir(core))
	if err != nil {
		if engine.IsNotFound(err) {
			return status, nil
		}
		return status, err
	}
	status.Present = true
	status.Uptime = time.Since(s.CreatedAt)
	return status, nil
}

// UnloadCore closes the core and deletes its directory.
func (e *Engine) UnloadCore(ctx context.Context, core string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	dir := e.coreDir(core)
	if _, err := os.Stat(filepath.Join(dir, schemaFile)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return engine.NotFound("unload core", "Cannot unload non-existent core [%s]", core)
		}
		return fmt.Errorf("failed to stat core %s: %w", core, err)
	}

	if index, ok := e.indexes[core]; ok {
		if err := index.Close(); err != nil {
			return fmt.Errorf("failed to close index %s: %w", core, err)
		}
		delete(e.indexes, core)
	}
	delete(e.pending, core)

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove core directory %s: %w", dir, err)
	}
	return nil
}

// CreateCore creates an empty core seeded from configSet.
func (e *Engine) CreateCore(ctx context.Context, core, configSet string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	dir := e.coreDir(core)
	if _, err := os.Stat(filepath.Join(dir, schemaFile)); err == nil {
		return &engine.Error{Op: "create core", Message: fmt.Sprintf("Core with name '%s' already exists.", core)}
	}

	s, err := seedSchema(configSet)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create core directory %s: %w", dir, err)
	}
	return s.save(dir)
}

// Schema returns the live schema of the bound core.
func (e *Engine) Schema(ctx context.Context) (schema.Snapshot, error) {
	e.mutex.RLock()
	defer e.mutex.RUnlock()

	s, err := loadSchema(e.coreDir(e.core))
	if err != nil {
		return schema.Snapshot{}, err
	}
	return s.snapshot(), nil
}

// ApplySchema applies one schema command. The command is applied as a whole
// or not at all.
func (e *Engine) ApplySchema(ctx context.Context, cmd schema.Command) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	if _, open := e.indexes[e.core]; open {
		return &engine.Error{Op: cmd.Op, Message: "schema cannot change once documents have been submitted"}
	}

	dir := e.coreDir(e.core)
	s, err := loadSchema(dir)
	if err != nil {
		return err
	}
	if err := s.applySchema(cmd); err != nil {
		return err
	}
	return s.save(dir)
}

// ApplyConfig applies one config command to the bound core.
func (e *Engine) ApplyConfig(ctx context.Context, cmd schema.Command) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	dir := e.coreDir(e.core)
	s, err := loadSchema(dir)
	if err != nil {
		return err
	}
	if err := s.applyConfig(cmd); err != nil {
		return err
	}
	return s.save(dir)
}

// Close closes all open indexes. Uncommitted documents are discarded.
func (e *Engine) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()

	var errs []error
	for name, index := range e.indexes {
		if err := index.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close index %s: %w", name, err))
		}
	}
	e.indexes = make(map[string]bleve.Index)
	e.pending = make(map[string]*bleve.Batch)

	return errors.Join(errs...)
}

// openIndex returns the index of the bound core, creating it from the live
// schema on first use. Callers hold the write lock.
func (e *Engine) openIndex() (bleve.Index, error) {
	if index, ok := e.indexes[e.core]; ok {
		return index, nil
	}

	dir := e.coreDir(e.core)
	s, err := loadSchema(dir)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, indexDir)
	index, err := bleve.Open(path)
	if err != nil {
		indexMapping, err := buildMapping(s)
		if err != nil {
			return nil, fmt.Errorf("failed to build mapping for core %s: %w", e.core, err)
		}
		index, err = bleve.New(path, indexMapping)
		if err != nil {
			return nil, fmt.Errorf("failed to create index %s: %w", e.core, err)
		}
		e.logger.Debug("created index", "core", e.core, "path", path)
	}

	e.indexes[e.core] = index
	return index, nil
}
