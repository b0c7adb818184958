// Package state records the outcome of bootstrap runs per core.
package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned when a core is already being bootstrapped.
var ErrRunInProgress = errors.New("bootstrap already in progress")

// Status of a run
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// RunState describes the latest run for a core
type RunState struct {
	RunID     string    `json:"runId"`
	Core      string    `json:"core"`
	Status    Status    `json:"status"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished,omitzero"`
	Documents int       `json:"documents"`
	Commands  []string  `json:"commands,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// State is the persisted state of all cores
type State struct {
	Cores     map[string]*RunState `json:"cores"`
	LastSaved time.Time            `json:"lastSaved"`
}

// Manager handles loading and saving run state
type Manager struct {
	filePath string
	state    *State
	active   map[string]string // core -> run id of runs started by this process
	mutex    sync.RWMutex
	logger   *slog.Logger
}

// NewManager creates a new run state manager
func NewManager(filePath string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		filePath: filePath,
		state: &State{
			Cores: make(map[string]*RunState),
		},
		active: make(map[string]string),
		logger: logger,
	}
}

// Load loads the run state from disk. A missing file is not an error.
func (m *Manager) Load() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, err := os.Stat(m.filePath); os.IsNotExist(err) {
		m.logger.Debug("state file not found, starting fresh", "path", m.filePath)
		return nil
	}

	data, err := os.ReadFile(m.filePath)
	if err != nil {
		return fmt.Errorf("failed to read state file: %w", err)
	}

	if err := json.Unmarshal(data, m.state); err != nil {
		return fmt.Errorf("failed to parse state file: %w", err)
	}
	if m.state.Cores == nil {
		m.state.Cores = make(map[string]*RunState)
	}

	m.logger.Debug("loaded run state", "cores", len(m.state.Cores), "path", m.filePath)
	return nil
}

// Save saves the current run state to disk
func (m *Manager) Save() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.state.LastSaved = time.Now()

	data, err := json.MarshalIndent(m.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	// Write to temporary file first
	tempFile := m.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}

	// Atomic move
	if err := os.Rename(tempFile, m.filePath); err != nil {
		return fmt.Errorf("failed to move state file: %w", err)
	}

	return nil
}

// Begin starts a run for core. It fails with ErrRunInProgress while another
// run for the same core started by this process has not finished.
func (m *Manager) Begin(core string) (RunState, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if runID, busy := m.active[core]; busy {
		return RunState{}, fmt.Errorf("%w: core %s, run %s", ErrRunInProgress, core, runID)
	}

	run := &RunState{
		RunID:   uuid.NewString(),
		Core:    core,
		Status:  StatusRunning,
		Started: time.Now(),
	}
	m.state.Cores[core] = run
	m.active[core] = run.RunID
	return *run, nil
}

// Finish records the outcome of the run started by Begin.
func (m *Manager) Finish(core, runID string, documents int, commands []string, runErr error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.active[core] == runID {
		delete(m.active, core)
	}

	run, exists := m.state.Cores[core]
	if !exists || run.RunID != runID {
		m.logger.Warn("finishing unknown run", "core", core, "run_id", runID)
		return
	}

	run.Finished = time.Now()
	run.Documents = documents
	run.Commands = append([]string(nil), commands...)
	if runErr != nil {
		run.Status = StatusFailed
		run.Error = runErr.Error()
	} else {
		run.Status = StatusSucceeded
		run.Error = ""
	}
}

// Running reports whether this process is bootstrapping core.
func (m *Manager) Running(core string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	_, busy := m.active[core]
	return busy
}

// Get returns a copy of the latest run for core.
func (m *Manager) Get(core string) (RunState, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	run, exists := m.state.Cores[core]
	if !exists {
		return RunState{}, false
	}
	return *run, true
}

// All returns copies of the latest run of every core
func (m *Manager) All() map[string]RunState {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	result := make(map[string]RunState, len(m.state.Cores))
	for core, run := range m.state.Cores {
		result[core] = *run
	}
	return result
}
