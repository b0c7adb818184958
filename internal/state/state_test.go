package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestNewManager(t *testing.T) {
	m := NewManager("/tmp/test_state.json", nil)
	if m == nil {
		t.Fatal("NewManager returned nil")
	}
	if m.filePath != "/tmp/test_state.json" {
		t.Errorf("Expected filePath to be '/tmp/test_state.json', got '%s'", m.filePath)
	}
	if m.state == nil || m.state.Cores == nil {
		t.Error("Expected state to be initialized")
	}
}

func TestManager_BeginFinish(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "state.json"), nil)

	run, err := m.Begin("tmdb")
	if err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}
	if run.RunID == "" {
		t.Error("Expected a run id")
	}
	if run.Status != StatusRunning {
		t.Errorf("Expected status running, got %s", run.Status)
	}
	if !m.Running("tmdb") {
		t.Error("Expected core to be running")
	}

	m.Finish("tmdb", run.RunID, 42, []string{"add-field(3)"}, nil)

	if m.Running("tmdb") {
		t.Error("Expected core not to be running")
	}
	got, ok := m.Get("tmdb")
	if !ok {
		t.Fatal("Expected run state to exist")
	}
	if got.Status != StatusSucceeded {
		t.Errorf("Expected status succeeded, got %s", got.Status)
	}
	if got.Documents != 42 {
		t.Errorf("Expected 42 documents, got %d", got.Documents)
	}
	if got.Finished.IsZero() {
		t.Error("Expected finish time to be set")
	}
	if len(got.Commands) != 1 || got.Commands[0] != "add-field(3)" {
		t.Errorf("Unexpected commands: %v", got.Commands)
	}
}

func TestManager_FinishWithError(t *testing.T) {
	m := NewManager("/tmp/test.json", nil)

	run, err := m.Begin("tmdb")
	if err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}
	m.Finish("tmdb", run.RunID, 0, nil, errors.New("solr unavailable"))

	got, _ := m.Get("tmdb")
	if got.Status != StatusFailed {
		t.Errorf("Expected status failed, got %s", got.Status)
	}
	if got.Error != "solr unavailable" {
		t.Errorf("Expected error message, got '%s'", got.Error)
	}
}

func TestManager_RunInProgress(t *testing.T) {
	m := NewManager("/tmp/test.json", nil)

	first, err := m.Begin("tmdb")
	if err != nil {
		t.Fatalf("Failed to begin run: %v", err)
	}

	if _, err := m.Begin("tmdb"); !errors.Is(err, ErrRunInProgress) {
		t.Errorf("Expected ErrRunInProgress, got %v", err)
	}

	// Other cores are independent
	if _, err := m.Begin("other"); err != nil {
		t.Errorf("Expected run for another core to start, got %v", err)
	}

	m.Finish("tmdb", first.RunID, 0, nil, nil)
	if _, err := m.Begin("tmdb"); err != nil {
		t.Errorf("Expected new run after finish, got %v", err)
	}
}

func TestManager_FinishUnknownRun(t *testing.T) {
	m := NewManager("/tmp/test.json", nil)

	run, _ := m.Begin("tmdb")
	m.Finish("tmdb", "other-run", 10, nil, nil)

	got, _ := m.Get("tmdb")
	if got.RunID != run.RunID || got.Status != StatusRunning {
		t.Errorf("Expected run to be unchanged, got %+v", got)
	}
}

func TestManager_SaveAndLoad(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "test_state.json")
	m := NewManager(tempFile, nil)

	run, _ := m.Begin("tmdb")
	m.Finish("tmdb", run.RunID, 1234, []string{"add-field-type(3)", "add-field(17)"}, nil)

	if err := m.Save(); err != nil {
		t.Fatalf("Failed to save state: %v", err)
	}
	if _, err := os.Stat(tempFile); os.IsNotExist(err) {
		t.Fatal("State file was not created")
	}
	if _, err := os.Stat(tempFile + ".tmp"); !os.IsNotExist(err) {
		t.Error("Temporary file should not exist after successful save")
	}

	m2 := NewManager(tempFile, nil)
	if err := m2.Load(); err != nil {
		t.Fatalf("Failed to load state: %v", err)
	}

	loaded, ok := m2.Get("tmdb")
	if !ok {
		t.Fatal("Failed to load core state")
	}
	if loaded.RunID != run.RunID {
		t.Errorf("Expected RunID %s, got %s", run.RunID, loaded.RunID)
	}
	if loaded.Documents != 1234 {
		t.Errorf("Expected 1234 documents, got %d", loaded.Documents)
	}
	if len(loaded.Commands) != 2 {
		t.Errorf("Expected 2 commands, got %d", len(loaded.Commands))
	}

	// A loaded run does not block new runs
	if m2.Running("tmdb") {
		t.Error("Expected loaded state not to mark the core as running")
	}
}

func TestManager_LoadNonExistentFile(t *testing.T) {
	m := NewManager("/tmp/non_existent_state_file.json", nil)
	if err := m.Load(); err != nil {
		t.Errorf("Expected no error when loading non-existent file, got: %v", err)
	}
}

func TestManager_LoadInvalidFile(t *testing.T) {
	tempFile := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(tempFile, []byte("{not json"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	m := NewManager(tempFile, nil)
	if err := m.Load(); err == nil {
		t.Error("Expected error when loading invalid file")
	}
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := NewManager("/tmp/test.json", nil)
	const numGoroutines = 10

	var wg sync.WaitGroup
	wg.Add(numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			core := fmt.Sprintf("core%d", id)

			run, err := m.Begin(core)
			if err != nil {
				t.Errorf("Failed to begin run for %s: %v", core, err)
				return
			}
			m.Get(core)
			m.Finish(core, run.RunID, id, nil, nil)
		}(i)
	}

	wg.Wait()

	states := m.All()
	if len(states) != numGoroutines {
		t.Errorf("Expected %d cores, got %d", numGoroutines, len(states))
	}
	for i := 0; i < numGoroutines; i++ {
		core := fmt.Sprintf("core%d", i)
		if states[core].Documents != i {
			t.Errorf("Expected core %s to have %d documents, got %d", core, i, states[core].Documents)
		}
	}
}
