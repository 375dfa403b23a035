package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Adapter.Read when no blob exists at path.
var ErrNotFound = errors.New("blob not found")

// Adapter is the whole-blob persistence contract the scratchpad core relies
// on. Implementations replace a blob in a single Write; partial writes are
// not part of the contract.
type Adapter interface {
	Read(ctx context.Context, path string) ([]byte, error)
	Write(ctx context.Context, path string, data []byte) error
	Exists(ctx context.Context, path string) (bool, error)
}

// Inspector is implemented by adapters that can describe a blob without
// reading it.
type Inspector interface {
	Stat(ctx context.Context, path string) (*BlobInfo, error)
}

// BlobInfo describes a stored blob without its payload.
type BlobInfo struct {
	Path      string
	Size      int64
	UpdatedAt int64 // unix millis
}
