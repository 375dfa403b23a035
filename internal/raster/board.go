package raster

import (
	"context"
	"log/slog"
	"sync"

	"github.com/runnerr0/scratchpad/internal/history"
)

// Board binds a Surface to its raster history.
//
// The history is bounded and pixel-only. Once an entry is evicted it is
// gone: Undo at the oldest retained entry clears the history and blanks
// the surface, because no earlier state exists to return to. Callers that
// need older states must keep them themselves.
//
// Board is safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	surface *Surface
	hist    *history.Stack[Snapshot]
	log     *slog.Logger
	loadGen uint64
	loading bool
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithBoardLogger sets the logger for decode failures.
func WithBoardLogger(l *slog.Logger) BoardOption {
	return func(b *Board) { b.log = l }
}

// NewBoard wraps surface with a history of the given capacity. If
// capacity is 0 or negative, history.RasterCapacity is used.
func NewBoard(surface *Surface, capacity int, opts ...BoardOption) *Board {
	if capacity <= 0 {
		capacity = history.RasterCapacity
	}
	b := &Board{
		surface: surface,
		hist:    history.New(capacity, Snapshot.Equal),
	}
	for _, o := range opts {
		o(b)
	}
	if b.log == nil {
		b.log = slog.Default()
	}
	return b
}

// Draw runs fn against the surface under the board lock. Call Commit
// afterwards to record the result.
func (b *Board) Draw(fn func(s *Surface)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b.surface)
}

// Commit records the current pixels as a history entry. Identical
// consecutive commits are collapsed.
func (b *Board) Commit() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hist.Push(b.surface.Capture())
}

// Undo restores the previous entry. At the oldest retained entry it
// clears history and blanks the surface instead. Reports whether the
// surface or history changed.
func (b *Board) Undo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if snap, ok := b.hist.Undo(); ok {
		b.restore(snap)
		return true
	}
	if b.hist.Len() == 0 && b.surface.IsBlank() {
		return false
	}
	b.hist.Clear()
	b.surface.Clear()
	return true
}

// Redo restores the next entry, if any.
func (b *Board) Redo() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap, ok := b.hist.Redo()
	if !ok {
		return false
	}
	b.restore(snap)
	return true
}

func (b *Board) restore(snap Snapshot) {
	bw, bh := b.surface.BackingSize()
	if err := b.surface.Restore(snap, bw, bh); err != nil {
		b.log.Warn("raster: restore failed, clearing surface", "error", err)
		b.surface.Clear()
	}
}

// Resize changes the surface size and device pixel ratio, rescaling the
// current pixels. History entries keep their capture size and are
// rescaled when restored.
func (b *Board) Resize(width, height int, dpr float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Resize(width, height, dpr)
}

// Clear blanks the surface and records the blank state.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.surface.Clear()
	if b.hist.Len() > 0 {
		b.hist.Push(b.surface.Capture())
	}
}

// Load replaces the surface content with a decoded data URI. Decoding runs
// in the background; the surface is blank until it completes. On failure
// the surface stays blank and history is cleared: the error is logged and
// sent on the returned channel, never escalated. A later Load supersedes
// an earlier one that has not finished.
func (b *Board) Load(ctx context.Context, uri string) <-chan error {
	done := make(chan error, 1)

	b.mu.Lock()
	b.loadGen++
	gen := b.loadGen
	b.loading = true
	b.surface.Clear()
	b.hist.Clear()
	b.mu.Unlock()

	go func() {
		defer close(done)
		snap, err := DecodeDataURI(uri)

		b.mu.Lock()
		defer b.mu.Unlock()
		if gen != b.loadGen {
			done <- context.Canceled
			return
		}
		b.loading = false
		if ctxErr := ctx.Err(); ctxErr != nil {
			done <- ctxErr
			return
		}
		if err != nil {
			b.log.Warn("raster: decode failed, resetting surface", "error", err)
			b.surface.Clear()
			b.hist.Clear()
			done <- err
			return
		}
		b.restore(snap)
		b.hist.Push(b.surface.Capture())
		done <- nil
	}()

	return done
}

// Loading reports whether a Load is still decoding.
func (b *Board) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}

// Export encodes the current pixels as a PNG data URI.
func (b *Board) Export() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return EncodeDataURI(b.surface.Capture())
}

// Snapshot returns a copy of the current pixels.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.Capture()
}

// HistoryLen returns the number of retained raster entries.
func (b *Board) HistoryLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hist.Len()
}

// IsBlank reports whether the surface has no painted pixels.
func (b *Board) IsBlank() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.surface.IsBlank()
}
