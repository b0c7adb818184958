package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidschrooten/index-bootstrap/config"
	"github.com/davidschrooten/index-bootstrap/internal/search"
	"github.com/davidschrooten/index-bootstrap/internal/solr"
)

func TestDefinitions(t *testing.T) {
	cfg := &config.Config{Schema: config.SchemaConfig{Suggester: true}}
	defs, err := definitions(cfg)
	require.NoError(t, err)
	assert.NotNil(t, defs.Suggester)
	assert.NotEmpty(t, defs.CopyFields)

	cfg.Schema.Suggester = false
	defs, err = definitions(cfg)
	require.NoError(t, err)
	assert.Nil(t, defs.Suggester)

	cfg.Normalize.Nested = true
	defs, err = definitions(cfg)
	require.NoError(t, err)
	assert.Empty(t, defs.CopyFields)
	assert.NotEmpty(t, defs.Fields)
}

func TestDefinitions_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.yaml")
	content := `
fields:
  - name: title
    type: text_en
copyFields:
  - source: title
    dest: text_all
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	defs, err := definitions(&config.Config{Schema: config.SchemaConfig{Path: path, Suggester: true}})
	require.NoError(t, err)
	assert.Len(t, defs.Fields, 1)
	assert.Len(t, defs.CopyFields, 1)
	assert.Nil(t, defs.Suggester)

	_, err = definitions(&config.Config{Schema: config.SchemaConfig{Path: filepath.Join(t.TempDir(), "missing.yaml")}})
	assert.Error(t, err)
}

func TestOpenEngine(t *testing.T) {
	logger := slog.Default()

	cfg := &config.Config{
		Engine: config.EngineConfig{Type: config.EngineBleve, Core: "tmdb"},
		Bleve:  config.BleveConfig{IndexPath: t.TempDir()},
	}
	eng, err := openEngine(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &search.Engine{}, eng)
	require.NoError(t, eng.Close())

	cfg.Engine.Type = config.EngineSolr
	cfg.Solr = config.SolrConfig{URL: "http://localhost:8983/solr", Timeout: 5}
	eng, err = openEngine(cfg, logger)
	require.NoError(t, err)
	assert.IsType(t, &solr.Client{}, eng)

	cfg.Engine.Type = "elastic"
	_, err = openEngine(cfg, logger)
	assert.Error(t, err)
}

func TestDocumentLoader_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docs.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"2": {"title": "Rocky"}, "1": {"title": "Rambo"}}`), 0o644))

	cfg := &config.Config{Source: config.SourceConfig{Type: config.SourceFile, Path: path}}
	docs, err := documentLoader(cfg, slog.Default())(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1"}, docs.IDs())
}

func TestNewService(t *testing.T) {
	cfg := &config.Config{
		Engine:   config.EngineConfig{Type: config.EngineBleve, Core: "tmdb", ConfigSet: "_default"},
		Bleve:    config.BleveConfig{IndexPath: t.TempDir()},
		Schema:   config.SchemaConfig{Suggester: true},
		Indexing: config.IndexingConfig{BatchSize: 10, StatePath: filepath.Join(t.TempDir(), "state.json")},
	}
	eng, err := openEngine(cfg, slog.Default())
	require.NoError(t, err)
	defer eng.Close()

	service, err := newService(cfg, eng, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "tmdb", service.Core())
	assert.NotNil(t, service.States())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.level), tt.level)
	}
}
