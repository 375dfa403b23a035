package storage

import (
	"context"
	"database/sql"
)

// migrateV002 adds an append-only log of blob writes, used to answer
// "when was this blob last flushed" without loading payloads.
func migrateV002(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx,
		`CREATE TABLE IF NOT EXISTS blob_writes (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			path       TEXT NOT NULL,
			byte_size  INTEGER NOT NULL,
			written_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_blob_writes_path ON blob_writes(path, written_at)`,
	)
}
