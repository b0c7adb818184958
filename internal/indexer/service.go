// Package indexer bootstraps a search core: it resets the core, reconciles
// its schema and indexes a document collection.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/davidschrooten/index-bootstrap/internal/document"
	"github.com/davidschrooten/index-bootstrap/internal/engine"
	"github.com/davidschrooten/index-bootstrap/internal/schema"
	"github.com/davidschrooten/index-bootstrap/internal/state"
)

// Options configures a bootstrap run.
type Options struct {
	Core        string
	ConfigSet   string
	BatchSize   int // documents per submit request, 0 for a single request
	Definitions schema.Definitions
	Normalize   document.Options
}

// Report summarizes a finished run.
type Report struct {
	RunID     string    `json:"runId"`
	Core      string    `json:"core"`
	Documents int       `json:"documents"`
	Batches   int       `json:"batches"`
	Commands  []string  `json:"commands"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// Service runs bootstraps against one engine.
type Service struct {
	engine     engine.Engine
	opts       Options
	normalizer *document.Normalizer
	states     *state.Manager
	logger     *slog.Logger
}

// NewService creates a new bootstrap service. states may be nil when runs
// need not be recorded.
func NewService(eng engine.Engine, opts Options, states *state.Manager, logger *slog.Logger) (*Service, error) {
	if opts.Core == "" {
		return nil, errors.New("core name is required")
	}
	if opts.BatchSize < 0 {
		return nil, fmt.Errorf("invalid batch size %d", opts.BatchSize)
	}
	if err := opts.Definitions.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema definitions: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		engine:     eng,
		opts:       opts,
		normalizer: document.NewNormalizer(opts.Normalize),
		states:     states,
		logger:     logger.With("core", opts.Core),
	}, nil
}

// Core returns the name of the core the service bootstraps.
func (s *Service) Core() string {
	return s.opts.Core
}

// States returns the run state manager, which may be nil.
func (s *Service) States() *state.Manager {
	return s.states
}

// CoreStatus reports whether the core currently exists on the engine.
func (s *Service) CoreStatus(ctx context.Context) (engine.CoreStatus, error) {
	return s.engine.CoreStatus(ctx, s.opts.Core)
}

// Run bootstraps the core with docs. The steps are strictly sequential and
// any failure aborts the run:
//
//  1. normalize every document
//  2. reset the core (unload if present, create)
//  3. delete and recreate the suggester, if configured
//  4. reconcile field types, fields and copy fields against the live schema
//  5. submit the documents in input order and commit
//
// Normalization happens before the reset, so invalid input leaves the
// existing core untouched.
func (s *Service) Run(ctx context.Context, docs *document.Collection) (report *Report, err error) {
	report = &Report{Core: s.opts.Core, Started: time.Now()}

	if s.states != nil {
		run, beginErr := s.states.Begin(s.opts.Core)
		if beginErr != nil {
			return nil, beginErr
		}
		report.RunID = run.RunID
		defer func() {
			s.states.Finish(s.opts.Core, run.RunID, report.Documents, report.Commands, err)
			if saveErr := s.states.Save(); saveErr != nil {
				s.logger.Error("failed to save run state", "error", saveErr)
			}
		}()
	}

	s.logger.Info("starting bootstrap", "run_id", report.RunID, "documents", docs.Len(), "nested", s.normalizer.Nested())

	normalized, err := s.normalizer.NormalizeAll(docs)
	if err != nil {
		return report, fmt.Errorf("failed to normalize documents: %w", err)
	}

	if err := engine.ResetCore(ctx, s.engine, s.opts.Core, s.opts.ConfigSet, s.logger); err != nil {
		return report, err
	}

	if err := s.configureSuggester(ctx, report); err != nil {
		return report, err
	}

	if err := s.reconcileSchema(ctx, report); err != nil {
		return report, err
	}

	if err := s.submit(ctx, normalized, report); err != nil {
		return report, err
	}

	s.logger.Info("committing", "documents", report.Documents)
	if err := s.engine.Commit(ctx); err != nil {
		return report, fmt.Errorf("failed to commit: %w", err)
	}

	report.Finished = time.Now()
	s.logger.Info("bootstrap completed", "documents", report.Documents, "commands", len(report.Commands), "duration", report.Duration())
	return report, nil
}

// Plan returns the schema commands a run would issue against the live
// schema of the core, without changing anything.
func (s *Service) Plan(ctx context.Context) (schema.Plan, error) {
	snap, err := s.engine.Schema(ctx)
	if err != nil {
		return schema.Plan{}, fmt.Errorf("failed to fetch schema: %w", err)
	}
	return schema.ReconcileAll(s.opts.Definitions, snap), nil
}

// configureSuggester deletes the suggester's handler and component, treating
// "not found" as already deleted, and creates them again.
func (s *Service) configureSuggester(ctx context.Context, report *Report) error {
	suggester := s.opts.Definitions.Suggester
	if suggester == nil {
		return nil
	}

	for _, cmd := range suggester.DeleteCommands() {
		if err := s.engine.ApplyConfig(ctx, cmd); err != nil {
			if !engine.IsNotFound(err) {
				return fmt.Errorf("failed to apply %s: %w", cmd.Op, err)
			}
			s.logger.Debug("nothing to delete", "op", cmd.Op, "name", cmd.Items)
			continue
		}
		report.Commands = append(report.Commands, cmd.String())
	}

	for _, cmd := range suggester.CreateCommands() {
		if err := s.engine.ApplyConfig(ctx, cmd); err != nil {
			return fmt.Errorf("failed to apply %s: %w", cmd.Op, err)
		}
		report.Commands = append(report.Commands, cmd.String())
	}

	s.logger.Info("configured suggester", "component", suggester.ComponentName(), "handler", suggester.HandlerName())
	return nil
}

// reconcileSchema fetches the live schema once and applies the plan in
// dependency order. Empty batches issue no request.
func (s *Service) reconcileSchema(ctx context.Context, report *Report) error {
	plan, err := s.Plan(ctx)
	if err != nil {
		return err
	}

	for _, cmd := range plan.Commands() {
		s.logger.Info("applying schema command", "op", cmd.Op, "items", cmd.Len())
		if err := s.engine.ApplySchema(ctx, cmd); err != nil {
			return fmt.Errorf("failed to apply %s: %w", cmd.Op, err)
		}
		report.Commands = append(report.Commands, cmd.String())
	}
	return nil
}

// submit sends the documents in input order, BatchSize at a time.
func (s *Service) submit(ctx context.Context, docs []document.Document, report *Report) error {
	size := s.opts.BatchSize
	if size <= 0 || size > len(docs) {
		size = len(docs)
	}

	for start := 0; start < len(docs); start += size {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+size, len(docs))
		batch := make([]map[string]any, 0, end-start)
		for _, doc := range docs[start:end] {
			batch = append(batch, doc.Map())
		}

		if err := s.engine.Submit(ctx, batch); err != nil {
			return fmt.Errorf("failed to submit documents %d-%d: %w", start, end-1, err)
		}
		report.Documents += len(batch)
		report.Batches++
		s.logger.Debug("submitted batch", "from", start, "to", end-1)
	}

	s.logger.Info("submitted documents", "documents", report.Documents, "batches", report.Batches)
	return nil
}
