package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/scratchpad/internal/config"
)

// Backend is an Adapter that owns resources which must be released.
type Backend interface {
	Adapter
	Close() error
}

// Close is a no-op; FileAdapter holds no open handles.
func (a *FileAdapter) Close() error { return nil }

// OpenOption configures Open and OpenSQLite.
type OpenOption func(*openOptions)

type openOptions struct {
	log *slog.Logger
}

// WithLogger sets the logger used while opening a backend.
func WithLogger(l *slog.Logger) OpenOption {
	return func(o *openOptions) { o.log = l }
}

func buildOpenOptions(opts []OpenOption) openOptions {
	o := openOptions{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	return o
}

type sqliteBackend struct {
	*SQLiteAdapter
	db     *sql.DB
	runner *MigrationRunner
}

// SchemaVersion reports the highest migration applied to the database.
func (b *sqliteBackend) SchemaVersion(ctx context.Context) (int, error) {
	return b.runner.Version(ctx)
}

func (b *sqliteBackend) Close() error {
	b.SQLiteAdapter.Close()
	return b.db.Close()
}

// Open builds the backend selected by cfg.Backend.
func Open(ctx context.Context, cfg config.StorageConfig, opts ...OpenOption) (Backend, error) {
	dir, err := config.ExpandPath(cfg.Dir)
	if err != nil {
		return nil, err
	}

	switch cfg.Backend {
	case "", config.BackendFile:
		return &FileAdapter{Root: dir}, nil
	case config.BackendSQLite:
		return OpenSQLite(ctx, filepath.Join(dir, cfg.SQLiteFile), opts...)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// OpenSQLite opens (creating if needed) the database at dbPath, runs
// migrations and returns a ready-to-use backend.
func OpenSQLite(ctx context.Context, dbPath string, opts ...OpenOption) (Backend, error) {
	o := buildOpenOptions(opts)

	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	runner := NewMigrationRunner(db, WithRunnerLogger(o.log))
	if _, err := runner.Run(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	adapter, err := NewSQLiteAdapter(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create adapter: %w", err)
	}

	o.log.Debug("storage: opened sqlite backend", "path", dbPath)
	return &sqliteBackend{SQLiteAdapter: adapter, db: db, runner: runner}, nil
}
