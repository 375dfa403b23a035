package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/scratchpad/internal/config"
	"github.com/runnerr0/scratchpad/internal/scratchpad"
	"github.com/runnerr0/scratchpad/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// testSettings returns settings rooted in a temp dir with synchronous
// debounces.
func testSettings(t *testing.T) *config.Settings {
	t.Helper()
	s := config.DefaultSettings()
	s.Storage.Dir = t.TempDir()
	s.Storage.FlushDebounceMs = 0
	s.History.DebounceMs = 0
	return s
}

// openTestSession opens a file-backed session for settings.
func openTestSession(t *testing.T, settings *config.Settings) *scratchpad.Session {
	t.Helper()
	backend, err := storage.Open(context.Background(), settings.Storage)
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	sess, err := scratchpad.Open(context.Background(), backend, settings, scratchpad.WithBoardSize(8, 8, 1))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return sess
}

// writeSettingsFile saves settings to a temp file and returns its path.
func writeSettingsFile(t *testing.T, settings *config.Settings) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, config.Save(path, settings))
	return path
}
