package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("not found"), false},
		{"explicit kind", NotFound("unload", "core %s", "tmdb"), true},
		{"wrapped kind", fmt.Errorf("reset: %w", NotFound("unload", "x")), true},
		{"400 no such handler", &Error{Op: "config", Status: http.StatusBadRequest, Message: "No such requestHandler: /suggest"}, true},
		{"400 component", &Error{Op: "config", Status: http.StatusBadRequest, Message: "searchComponent suggest not found"}, true},
		{"400 non-existent core", &Error{Op: "unload", Status: http.StatusBadRequest, Message: "Cannot unload non-existent core [tmdb]"}, true},
		{"404", &Error{Op: "status", Status: http.StatusNotFound, Message: "Core does not exist"}, true},
		{"400 other", &Error{Op: "schema", Status: http.StatusBadRequest, Message: "Field 'title' already exists."}, false},
		{"500 not found text", &Error{Op: "schema", Status: http.StatusInternalServerError, Message: "class not found"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsNotFound(tt.err))
		})
	}
}

type fakeAdmin struct {
	present   bool
	statusErr error
	unloadErr error
	createErr error
	calls     []string
}

func (f *fakeAdmin) CoreStatus(ctx context.Context, core string) (CoreStatus, error) {
	f.calls = append(f.calls, "status")
	return CoreStatus{Name: core, Present: f.present}, f.statusErr
}

func (f *fakeAdmin) UnloadCore(ctx context.Context, core string) error {
	f.calls = append(f.calls, "unload")
	if f.unloadErr != nil {
		return f.unloadErr
	}
	f.present = false
	return nil
}

func (f *fakeAdmin) CreateCore(ctx context.Context, core, configSet string) error {
	f.calls = append(f.calls, "create")
	if f.createErr != nil {
		return f.createErr
	}
	f.present = true
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestResetCore_Absent(t *testing.T) {
	admin := &fakeAdmin{}

	require.NoError(t, ResetCore(context.Background(), admin, "tmdb", "_default", discard()))

	assert.Equal(t, []string{"status", "create"}, admin.calls)
	assert.True(t, admin.present)
}

func TestResetCore_Present(t *testing.T) {
	admin := &fakeAdmin{present: true}

	require.NoError(t, ResetCore(context.Background(), admin, "tmdb", "_default", discard()))

	assert.Equal(t, []string{"status", "unload", "create"}, admin.calls)
	assert.True(t, admin.present)
}

func TestResetCore_UnloadNotFoundTolerated(t *testing.T) {
	admin := &fakeAdmin{present: true, unloadErr: &Error{Op: "unload", Status: 400, Message: "Cannot unload non-existent core [tmdb]"}}

	require.NoError(t, ResetCore(context.Background(), admin, "tmdb", "_default", discard()))

	assert.Equal(t, []string{"status", "unload", "create"}, admin.calls)
}

func TestResetCore_UnloadFailure(t *testing.T) {
	boom := &Error{Op: "unload", Status: 500, Message: "disk full"}
	admin := &fakeAdmin{present: true, unloadErr: boom}

	err := ResetCore(context.Background(), admin, "tmdb", "_default", discard())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"status", "unload"}, admin.calls)
}

func TestResetCore_StatusAndCreateFailures(t *testing.T) {
	admin := &fakeAdmin{statusErr: errors.New("connection refused")}
	assert.Error(t, ResetCore(context.Background(), admin, "tmdb", "_default", discard()))
	assert.Equal(t, []string{"status"}, admin.calls)

	admin = &fakeAdmin{createErr: errors.New("config set missing")}
	assert.Error(t, ResetCore(context.Background(), admin, "tmdb", "_default", discard()))
}
