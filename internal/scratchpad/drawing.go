package scratchpad

import (
	"context"
	"errors"
	"fmt"

	"github.com/runnerr0/scratchpad/internal/raster"
	"github.com/runnerr0/scratchpad/internal/storage"
)

// DrawingPath returns the blob path of the drawing.
func (s *Session) DrawingPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Storage.DrawingFile
}

// Draw runs fn on the drawing surface, records the result in raster
// history and schedules a save.
func (s *Session) Draw(fn func(surface *raster.Surface)) {
	s.board.Draw(fn)
	s.board.Commit()
	s.markDrawingDirty()
}

// UndoDrawing steps the drawing back. Past the oldest retained entry the
// drawing is blanked.
func (s *Session) UndoDrawing() bool {
	if !s.board.Undo() {
		return false
	}
	s.markDrawingDirty()
	return true
}

// RedoDrawing steps the drawing forward.
func (s *Session) RedoDrawing() bool {
	if !s.board.Redo() {
		return false
	}
	s.markDrawingDirty()
	return true
}

// ClearDrawing blanks the drawing.
func (s *Session) ClearDrawing() {
	s.board.Clear()
	s.markDrawingDirty()
}

func (s *Session) markDrawingDirty() {
	s.mu.Lock()
	s.drawDirty = true
	s.mu.Unlock()
	s.drawDebounce.Schedule(func() {
		if err := s.saveDrawing(s.ctx); err != nil {
			s.log.Warn("scratchpad: drawing autosave failed", "error", err)
		}
	})
}

// LoadDrawing restores the saved drawing and waits for it to decode. A
// missing blob leaves the board blank. A blob that cannot be read or
// decoded also leaves it blank, and the error is returned.
func (s *Session) LoadDrawing(ctx context.Context) error {
	raw, err := s.blobs.Read(ctx, s.DrawingPath())
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		s.log.Warn("scratchpad: drawing read failed", "path", s.DrawingPath(), "error", err)
		return fmt.Errorf("read drawing: %w", err)
	}

	select {
	case err := <-s.board.Load(ctx, string(raw)):
		if err != nil {
			return fmt.Errorf("load drawing: %w", err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}

	s.mu.Lock()
	s.drawDirty = false
	s.mu.Unlock()
	return nil
}

// saveDrawing writes the board as a PNG data URI when it has unsaved
// changes.
func (s *Session) saveDrawing(ctx context.Context) error {
	s.mu.Lock()
	dirty := s.drawDirty
	s.mu.Unlock()
	if !dirty {
		return nil
	}

	uri, err := s.board.Export()
	if err != nil {
		return fmt.Errorf("encode drawing: %w", err)
	}
	if err := s.blobs.Write(ctx, s.DrawingPath(), []byte(uri)); err != nil {
		return fmt.Errorf("write drawing: %w", err)
	}

	s.mu.Lock()
	s.drawDirty = false
	s.mu.Unlock()
	return nil
}

// saveLegacyCanvas seeds the drawing blob from a migrated legacy note.
// An existing drawing is never overwritten.
func saveLegacyCanvas(blobs storage.Adapter, path string) func(ctx context.Context, uri string) error {
	return func(ctx context.Context, uri string) error {
		exists, err := blobs.Exists(ctx, path)
		if err != nil {
			return fmt.Errorf("check drawing: %w", err)
		}
		if exists {
			return nil
		}
		if _, err := raster.DecodeDataURI(uri); err != nil {
			return fmt.Errorf("legacy canvas: %w", err)
		}
		return blobs.Write(ctx, path, []byte(uri))
	}
}
