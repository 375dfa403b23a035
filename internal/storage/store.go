package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteAdapter implements Adapter with one row per blob in a SQLite
// database. The database must already be migrated (see MigrationRunner).
type SQLiteAdapter struct {
	db *sql.DB

	// Prepared statements
	readBlob   *sql.Stmt
	upsertBlob *sql.Stmt
	existsBlob *sql.Stmt
	logWrite   *sql.Stmt
}

// NewSQLiteAdapter creates a SQLiteAdapter from an already-opened and migrated database.
func NewSQLiteAdapter(db *sql.DB) (*SQLiteAdapter, error) {
	a := &SQLiteAdapter{db: db}

	if err := a.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return a, nil
}

func (a *SQLiteAdapter) prepareStatements() error {
	var err error

	a.readBlob, err = a.db.Prepare(`SELECT data FROM blobs WHERE path = ?`)
	if err != nil {
		return err
	}

	a.upsertBlob, err = a.db.Prepare(`
		INSERT INTO blobs (path, data, byte_size, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			data = excluded.data,
			byte_size = excluded.byte_size,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return err
	}

	a.existsBlob, err = a.db.Prepare(`SELECT COUNT(*) FROM blobs WHERE path = ?`)
	if err != nil {
		return err
	}

	a.logWrite, err = a.db.Prepare(`
		INSERT INTO blob_writes (path, byte_size, written_at) VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// Read returns the blob stored at path, or ErrNotFound.
func (a *SQLiteAdapter) Read(ctx context.Context, path string) ([]byte, error) {
	var data []byte
	err := a.readBlob.QueryRowContext(ctx, path).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	return data, nil
}

// Write replaces the blob at path and records the write in a single transaction.
func (a *SQLiteAdapter) Write(ctx context.Context, path string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	now := time.Now().UnixMilli()

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.StmtContext(ctx, a.upsertBlob).ExecContext(ctx, path, data, len(data), now); err != nil {
		return fmt.Errorf("upsert blob: %w", err)
	}
	if _, err := tx.StmtContext(ctx, a.logWrite).ExecContext(ctx, path, len(data), now); err != nil {
		return fmt.Errorf("log blob write: %w", err)
	}

	return tx.Commit()
}

// Exists reports whether a blob is stored at path.
func (a *SQLiteAdapter) Exists(ctx context.Context, path string) (bool, error) {
	var n int
	if err := a.existsBlob.QueryRowContext(ctx, path).Scan(&n); err != nil {
		return false, fmt.Errorf("check blob: %w", err)
	}
	return n > 0, nil
}

// Stat returns size and last update of the blob at path, or ErrNotFound.
func (a *SQLiteAdapter) Stat(ctx context.Context, path string) (*BlobInfo, error) {
	info := &BlobInfo{Path: path}
	err := a.db.QueryRowContext(ctx,
		"SELECT byte_size, updated_at FROM blobs WHERE path = ?", path,
	).Scan(&info.Size, &info.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat blob: %w", err)
	}
	return info, nil
}

// WriteCount returns how many writes have been recorded for path.
func (a *SQLiteAdapter) WriteCount(ctx context.Context, path string) (int64, error) {
	var n int64
	err := a.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM blob_writes WHERE path = ?", path,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count blob writes: %w", err)
	}
	return n, nil
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (a *SQLiteAdapter) Close() error {
	stmts := []*sql.Stmt{a.readBlob, a.upsertBlob, a.existsBlob, a.logWrite}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
