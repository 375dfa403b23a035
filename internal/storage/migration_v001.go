package storage

import (
	"context"
	"database/sql"
)

// migrateV001 creates the blob table. One row per persisted blob path;
// every write replaces the whole row.
func migrateV001(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS blobs (
			path       TEXT PRIMARY KEY,
			data       BLOB NOT NULL,
			byte_size  INTEGER NOT NULL DEFAULT 0,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blobs_updated_at ON blobs(updated_at)`,
	)
}
