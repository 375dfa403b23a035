package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/runnerr0/scratchpad/internal/config"
)

// FileAdapter stores each blob as a file below Root.
type FileAdapter struct {
	Root string
}

// NewFileAdapter returns a FileAdapter rooted at dir, expanding a leading ~.
func NewFileAdapter(dir string) (*FileAdapter, error) {
	root, err := config.ExpandPath(dir)
	if err != nil {
		return nil, err
	}
	return &FileAdapter{Root: root}, nil
}

func (a *FileAdapter) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if clean == "/" {
		return "", fmt.Errorf("invalid blob path %q", path)
	}
	return filepath.Join(a.Root, strings.TrimPrefix(clean, "/")), nil
}

// Read returns the blob at path, or ErrNotFound.
func (a *FileAdapter) Read(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := a.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the blob at path. Uses an atomic temp file + rename so a
// crash never leaves a truncated blob behind.
func (a *FileAdapter) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	full, err := a.resolve(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create blob directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(full)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, full); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a blob is stored at path.
func (a *FileAdapter) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	full, err := a.resolve(path)
	if err != nil {
		return false, err
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// Stat returns size and modification time of the blob at path, or
// ErrNotFound.
func (a *FileAdapter) Stat(ctx context.Context, path string) (*BlobInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := a.resolve(path)
	if err != nil {
		return nil, err
	}
	fi, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	return &BlobInfo{Path: path, Size: fi.Size(), UpdatedAt: fi.ModTime().UnixMilli()}, nil
}
