package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/runnerr0/scratchpad/internal/config"
	"github.com/runnerr0/scratchpad/internal/scratchpad"
	"github.com/runnerr0/scratchpad/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version      string        `json:"version"`
	SettingsPath string        `json:"settings_path,omitempty"`
	Backend      string        `json:"backend"`
	Location     string        `json:"location"`
	Schema       int           `json:"schema_version,omitempty"`
	Stashes      int           `json:"stashes"`
	MaxStashes   int           `json:"max_stashes"`
	Current      *noteJSON     `json:"current,omitempty"`
	Counts       *countsJSON   `json:"counts,omitempty"`
	DataBlob     *blobInfoJSON `json:"data_blob,omitempty"`
	DrawingBlank bool          `json:"drawing_blank"`
	Unsaved      bool          `json:"unsaved"`
}

type countsJSON struct {
	Words *int `json:"words,omitempty"`
	Chars *int `json:"chars,omitempty"`
	Lines *int `json:"lines,omitempty"`
}

type blobInfoJSON struct {
	SizeBytes int64  `json:"size_bytes"`
	UpdatedAt string `json:"updated_at"`
	Writes    *int64 `json:"writes,omitempty"`
}

// writeCounter is implemented by backends that keep a write log.
type writeCounter interface {
	WriteCount(ctx context.Context, path string) (int64, error)
}

// schemaVersioner is implemented by backends with a migrated schema.
type schemaVersioner interface {
	SchemaVersion(ctx context.Context) (int, error)
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess)
	})
}

// executeWithSession reports status for a provided session (for testing).
func (c *StatusCommand) executeWithSession(ctx context.Context, sess *scratchpad.Session) error {
	settings := sess.Settings()
	settingsPath, _ := resolveSettingsPath(c.globals)

	out := statusJSON{
		Version:      c.version,
		SettingsPath: settingsPath,
		Backend:      settings.Storage.Backend,
		Location:     backendLocation(settings.Storage),
		Stashes:      sess.Store().Count(),
		MaxStashes:   sess.Store().Limits().MaxStashes,
		DrawingBlank: sess.Board().IsBlank(),
		Unsaved:      sess.Dirty(),
	}
	if cur := sess.Store().Current(); cur != nil {
		n := toNoteJSON(*cur, false, true)
		out.Current = &n
	}

	stats := sess.Stats()
	if stats.ShowWords || stats.ShowChars || stats.ShowLines {
		counts := &countsJSON{}
		if stats.ShowWords {
			counts.Words = &stats.Words
		}
		if stats.ShowChars {
			counts.Chars = &stats.Chars
		}
		if stats.ShowLines {
			counts.Lines = &stats.Lines
		}
		out.Counts = counts
	}

	info, err := dataBlobInfo(ctx, sess.Blobs(), settings.Storage.DataFile)
	if err != nil {
		return err
	}
	out.DataBlob = info

	if sv, ok := sess.Blobs().(schemaVersioner); ok {
		v, err := sv.SchemaVersion(ctx)
		if err != nil {
			return fmt.Errorf("read schema version: %w", err)
		}
		out.Schema = v
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(out)
	}
	c.printStatusHuman(out, stats)
	return nil
}

func (c *StatusCommand) printStatusHuman(out statusJSON, stats scratchpad.Stats) {
	fmt.Println("Scratchpad Status")
	fmt.Println("=================")
	fmt.Printf("Version:       %s\n", out.Version)
	if out.SettingsPath != "" {
		fmt.Printf("Settings:      %s\n", out.SettingsPath)
	}
	fmt.Printf("Storage:       %s (%s)\n", out.Backend, out.Location)
	if out.Schema > 0 {
		fmt.Printf("Schema:        v%d\n", out.Schema)
	}
	if out.DataBlob != nil {
		line := fmt.Sprintf("%s, updated %s", formatBytes(out.DataBlob.SizeBytes), out.DataBlob.UpdatedAt)
		if out.DataBlob.Writes != nil {
			line += fmt.Sprintf(", %d writes", *out.DataBlob.Writes)
		}
		fmt.Printf("Data:          %s\n", line)
	}
	fmt.Printf("Stashed:       %d of %d\n", out.Stashes, out.MaxStashes)

	fmt.Println()
	if out.Current == nil {
		fmt.Println("Current:       none")
	} else {
		fmt.Printf("Current:       %s\n", out.Current.ID)
		fmt.Printf("Preview:       %s\n", headlineText(out.Current.Preview, 60))
	}
	if line := stats.String(); line != "" {
		fmt.Printf("Counts:        %s\n", line)
	}
	if out.Unsaved {
		fmt.Println("Unsaved:       yes")
	}
	if out.DrawingBlank {
		fmt.Println("Drawing:       blank")
	} else {
		fmt.Println("Drawing:       saved")
	}
}

// dataBlobInfo describes the data blob when the backend can. A missing
// blob is not an error.
func dataBlobInfo(ctx context.Context, blobs storage.Adapter, path string) (*blobInfoJSON, error) {
	inspector, ok := blobs.(storage.Inspector)
	if !ok {
		return nil, nil
	}
	info, err := inspector.Stat(ctx, path)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat data blob: %w", err)
	}

	out := &blobInfoJSON{
		SizeBytes: info.Size,
		UpdatedAt: time.UnixMilli(info.UpdatedAt).UTC().Format(time.RFC3339),
	}
	if wc, ok := blobs.(writeCounter); ok {
		n, err := wc.WriteCount(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("count writes: %w", err)
		}
		out.Writes = &n
	}
	return out, nil
}

func backendLocation(cfg config.StorageConfig) string {
	dir, err := config.ExpandPath(cfg.Dir)
	if err != nil {
		dir = cfg.Dir
	}
	if cfg.Backend == config.BackendSQLite {
		return filepath.Join(dir, cfg.SQLiteFile)
	}
	return dir
}
