package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/davidschrooten/index-bootstrap/internal/document"
	"github.com/davidschrooten/index-bootstrap/internal/indexer"
	"github.com/davidschrooten/index-bootstrap/internal/schema"
	"github.com/davidschrooten/index-bootstrap/internal/state"
)

// Loader reads the documents a bootstrap run indexes.
type Loader func(ctx context.Context) (*document.Collection, error)

// Server represents the admin API server
type Server struct {
	indexerService *indexer.Service
	load           Loader
	logger         *slog.Logger

	// running serializes bootstraps started through the API
	running sync.Mutex
}

// NewServer creates a new API server
func NewServer(indexerService *indexer.Service, load Loader, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		indexerService: indexerService,
		load:           load,
		logger:         logger,
	}
}

// Router setups the API routes
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/status", s.handleStatus)
	r.Get("/cores/{core}/plan", s.handlePlan)
	r.Post("/bootstrap", s.handleBootstrap)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.indexerService == nil {
		http.Error(w, "indexer service not initialized", http.StatusServiceUnavailable)
		return
	}
	if s.load == nil {
		http.Error(w, "document source not initialized", http.StatusServiceUnavailable)
		return
	}

	// The engine must answer a status request for the core
	if _, err := s.indexerService.CoreStatus(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		http.Error(w, "search engine not ready", http.StatusServiceUnavailable)
		return
	}

	response(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": map[string]string{
			"engine":         "ok",
			"indexerService": "ok",
			"source":         "ok",
		},
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.indexerService == nil {
		http.Error(w, "indexer service not initialized", http.StatusServiceUnavailable)
		return
	}

	core, err := s.indexerService.CoreStatus(r.Context())
	if err != nil {
		s.logger.Error("status error", "error", err)
		http.Error(w, "failed to get core status", http.StatusBadGateway)
		return
	}

	status := map[string]interface{}{
		"service": "index-bootstrap",
		"core":    core,
		"running": s.isRunning(),
	}
	if states := s.indexerService.States(); states != nil {
		if last, ok := states.Get(s.indexerService.Core()); ok {
			status["lastRun"] = last
		}
	}

	response(w, http.StatusOK, status)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	core := chi.URLParam(r, "core")
	if s.indexerService == nil || core != s.indexerService.Core() {
		http.Error(w, "core not found", http.StatusNotFound)
		return
	}

	plan, err := s.indexerService.Plan(r.Context())
	if err != nil {
		s.logger.Error("plan error", "core", core, "error", err)
		http.Error(w, "failed to plan schema changes", http.StatusBadGateway)
		return
	}

	commands := plan.Commands()
	if commands == nil {
		commands = []schema.Command{}
	}
	response(w, http.StatusOK, map[string]interface{}{
		"core":     core,
		"plan":     plan,
		"commands": commands,
	})
}

func (s *Server) handleBootstrap(w http.ResponseWriter, r *http.Request) {
	if s.indexerService == nil || s.load == nil {
		http.Error(w, "indexer service not initialized", http.StatusServiceUnavailable)
		return
	}
	if s.isRunning() || !s.running.TryLock() {
		http.Error(w, "bootstrap already in progress", http.StatusConflict)
		return
	}
	defer s.running.Unlock()

	// A client going away must not abort a run halfway through the reset
	ctx := context.WithoutCancel(r.Context())

	docs, err := s.load(ctx)
	if err != nil {
		s.logger.Error("failed to load documents", "error", err)
		http.Error(w, "failed to load documents", http.StatusBadGateway)
		return
	}

	report, err := s.indexerService.Run(ctx, docs)
	if err != nil {
		if errors.Is(err, state.ErrRunInProgress) {
			http.Error(w, "bootstrap already in progress", http.StatusConflict)
			return
		}
		s.logger.Error("bootstrap failed", "error", err)
		response(w, http.StatusInternalServerError, map[string]interface{}{
			"error":  err.Error(),
			"report": report,
		})
		return
	}

	response(w, http.StatusOK, report)
}

func (s *Server) isRunning() bool {
	if states := s.indexerService.States(); states != nil && states.Running(s.indexerService.Core()) {
		return true
	}
	if s.running.TryLock() {
		s.running.Unlock()
		return false
	}
	return true
}

func response(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("unable to encode response", "error", err)
	}
}
