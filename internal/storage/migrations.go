package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one versioned schema step, applied inside a transaction.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, tx *sql.Tx) error
}

// schema lists every blob-store migration in version order.
var schema = []migration{
	{version: 1, name: "blob_schema", apply: migrateV001},
	{version: 2, name: "blob_write_log", apply: migrateV002},
}

// RunnerOption configures a MigrationRunner.
type RunnerOption func(*MigrationRunner)

// WithRunnerLogger sets the logger that reports applied migrations.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *MigrationRunner) { r.log = l }
}

// MigrationRunner brings a SQLite database up to the blob schema.
type MigrationRunner struct {
	db         *sql.DB
	log        *slog.Logger
	migrations []migration
}

// NewMigrationRunner returns a runner over db with the blob schema.
func NewMigrationRunner(db *sql.DB, opts ...RunnerOption) *MigrationRunner {
	r := &MigrationRunner{db: db, migrations: schema}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = slog.Default()
	}
	return r
}

// Run applies every migration not yet recorded in schema_migrations and
// returns how many it applied. WAL is enabled first so a blob rewrite never
// blocks readers.
func (r *MigrationRunner) Run(ctx context.Context) (int, error) {
	if err := checkOrder(r.migrations); err != nil {
		return 0, err
	}
	if _, err := r.db.ExecContext(ctx, "PRAGMA journal_mode = WAL"); err != nil {
		return 0, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return 0, fmt.Errorf("create schema_migrations table: %w", err)
	}

	done, err := r.applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("read applied migrations: %w", err)
	}

	n := 0
	for _, m := range r.migrations {
		if done[m.version] {
			continue
		}
		if err := r.apply(ctx, m); err != nil {
			return n, fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		r.log.Info("storage: applied migration", "version", m.version, "name", m.name)
		n++
	}
	if n == 0 {
		r.log.Debug("storage: schema up to date", "version", r.latest())
	}
	return n, nil
}

// Version returns the highest applied migration, or 0 for a database the
// runner has never touched.
func (r *MigrationRunner) Version(ctx context.Context) (int, error) {
	var exists int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_migrations'",
	).Scan(&exists)
	if err != nil || exists == 0 {
		return 0, err
	}

	var v sql.NullInt64
	if err := r.db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return int(v.Int64), nil
}

func (r *MigrationRunner) latest() int {
	if len(r.migrations) == 0 {
		return 0
	}
	return r.migrations[len(r.migrations)-1].version
}

func (r *MigrationRunner) applied(ctx context.Context) (map[int]bool, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	done := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		done[v] = true
	}
	return done, rows.Err()
}

func (r *MigrationRunner) apply(ctx context.Context, m migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := m.apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.version, m.name,
	); err != nil {
		return fmt.Errorf("record migration: %w", err)
	}
	return tx.Commit()
}

// checkOrder rejects a migration list whose versions are not strictly
// increasing from 1.
func checkOrder(ms []migration) error {
	prev := 0
	for _, m := range ms {
		if m.version <= prev {
			return fmt.Errorf("migration %d (%s) is out of order after %d", m.version, m.name, prev)
		}
		prev = m.version
	}
	return nil
}

// execAll runs stmts in order inside tx.
func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
