package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/muesli/reflow/truncate"

	"github.com/runnerr0/scratchpad/internal/config"
	"github.com/runnerr0/scratchpad/internal/scratchpad"
	"github.com/runnerr0/scratchpad/internal/stash"
	"github.com/runnerr0/scratchpad/internal/storage"
)

// resolveSettingsPath returns the settings file path.
// Priority: --config flag > default path.
func resolveSettingsPath(globals *GlobalFlags) (string, error) {
	path := config.DefaultSettingsPath
	if globals != nil && globals.Config != "" {
		path = globals.Config
	}
	return config.ExpandPath(path)
}

// loadSettings reads the settings file, creating it with defaults when
// missing.
func loadSettings(globals *GlobalFlags) (*config.Settings, string, error) {
	path, err := resolveSettingsPath(globals)
	if err != nil {
		return nil, "", fmt.Errorf("resolve settings path: %w", err)
	}
	settings, err := config.LoadOrCreateAt(path)
	if err != nil {
		return nil, path, fmt.Errorf("load settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		return nil, path, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return settings, path, nil
}

// newLogger builds the stderr logger. --verbose forces debug level.
func newLogger(w io.Writer, level string, verbose bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	if verbose {
		lvl = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// withSession opens the configured scratchpad, runs fn, and flushes
// pending edits before closing the backend.
func withSession(globals *GlobalFlags, fn func(ctx context.Context, sess *scratchpad.Session) error) error {
	settings, _, err := loadSettings(globals)
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, settings.Logging.Level, globals != nil && globals.Verbose)
	slog.SetDefault(log)

	ctx := context.Background()
	backend, err := storage.Open(ctx, settings.Storage, storage.WithLogger(log))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer backend.Close()

	sess, err := scratchpad.Open(ctx, backend, settings, scratchpad.WithLogger(log))
	if err != nil {
		return err
	}

	runErr := fn(ctx, sess)
	if closeErr := sess.Close(ctx); closeErr != nil {
		return errors.Join(runErr, fmt.Errorf("flush scratchpad: %w", closeErr))
	}
	return runErr
}

// readBody resolves note text from --body, --body-file or positional args.
// Returns ok=false when none was given.
func readBody(body, bodyFile string, args []string) (string, bool, error) {
	// Body and body-file are mutually exclusive
	if body != "" && bodyFile != "" {
		return "", false, fmt.Errorf("--body and --body-file are mutually exclusive")
	}

	switch {
	case bodyFile == "-":
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), true, nil
	case bodyFile != "":
		data, err := os.ReadFile(bodyFile)
		if err != nil {
			return "", false, fmt.Errorf("reading body file: %w", err)
		}
		return string(data), true, nil
	case body != "":
		return body, true, nil
	case len(args) > 0:
		return strings.Join(args, " "), true, nil
	default:
		return "", false, nil
	}
}

// isNotice reports whether err is a refused request rather than a fault.
func isNotice(err error) bool {
	return errors.Is(err, stash.ErrEmptyContent) ||
		errors.Is(err, stash.ErrNoteTooLarge) ||
		errors.Is(err, stash.ErrStashLimitReached) ||
		errors.Is(err, stash.ErrStashNotFound)
}

type noteJSON struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Preview   string `json:"preview"`
	Content   string `json:"content,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
	Current   bool   `json:"current,omitempty"`
}

func toNoteJSON(n stash.Note, withContent, current bool) noteJSON {
	out := noteJSON{
		ID:        n.ID,
		Title:     n.Title,
		Preview:   n.Preview,
		CreatedAt: n.Created().UTC().Format(time.RFC3339),
		UpdatedAt: n.Updated().UTC().Format(time.RFC3339),
		Current:   current,
	}
	if withContent {
		out.Content = n.Content
	}
	return out
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatTimestamp formats a note time for human output.
func formatTimestamp(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// headline is the one-line label of a note: its title, else its preview,
// cut to width columns.
func headline(n stash.Note, width int) string {
	label := n.Preview
	if n.Title != "" {
		label = n.Title
	}
	return headlineText(label, width)
}

func headlineText(s string, width int) string {
	if width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(width), "…")
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
