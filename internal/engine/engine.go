// Package engine defines the operations the bootstrap needs from a search
// engine. Implementations live in the solr (HTTP) and search (embedded bleve)
// packages.
package engine

import (
	"context"
	"time"

	"github.com/davidschrooten/index-bootstrap/internal/schema"
)

// CoreStatus describes a core as reported by the engine's admin API.
type CoreStatus struct {
	Name    string        `json:"name"`
	Present bool          `json:"present"`
	Uptime  time.Duration `json:"uptime,omitempty"`
}

// CoreAdmin manages the lifecycle of cores.
type CoreAdmin interface {
	CoreStatus(ctx context.Context, core string) (CoreStatus, error)
	UnloadCore(ctx context.Context, core string) error
	CreateCore(ctx context.Context, core, configSet string) error
}

// SchemaClient reads and changes the schema of the configured core.
type SchemaClient interface {
	Schema(ctx context.Context) (schema.Snapshot, error)
	ApplySchema(ctx context.Context, cmd schema.Command) error
}

// ConfigClient changes the request handler and component configuration of
// the configured core.
type ConfigClient interface {
	ApplyConfig(ctx context.Context, cmd schema.Command) error
}

// DocumentWriter submits documents to the configured core.
type DocumentWriter interface {
	Submit(ctx context.Context, docs []map[string]any) error
	Commit(ctx context.Context) error
}

// Engine is everything a bootstrap run needs.
type Engine interface {
	CoreAdmin
	SchemaClient
	ConfigClient
	DocumentWriter
	Close() error
}
