// Package scratchpad binds an editable text buffer and a drawing board to
// the stash store. Edits are coalesced into undo history and flushed to
// storage on separate quiet periods.
package scratchpad

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/runnerr0/scratchpad/internal/config"
	"github.com/runnerr0/scratchpad/internal/debounce"
	"github.com/runnerr0/scratchpad/internal/history"
	"github.com/runnerr0/scratchpad/internal/raster"
	"github.com/runnerr0/scratchpad/internal/stash"
	"github.com/runnerr0/scratchpad/internal/storage"
)

// Board defaults used when no size is configured.
const (
	DefaultBoardWidth  = 800
	DefaultBoardHeight = 600
)

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger. It is passed on to the debouncers
// and the drawing board.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithBoardSize sets the logical drawing size and device pixel ratio.
func WithBoardSize(width, height int, dpr float64) Option {
	return func(s *Session) {
		s.boardW, s.boardH, s.boardDPR = width, height, dpr
	}
}

// Session is one open scratchpad: the text buffer of the current note,
// its undo history, and the drawing board. It is safe for concurrent use.
type Session struct {
	ctx      context.Context
	store    *stash.Store
	blobs    storage.Adapter
	settings config.Settings
	log      *slog.Logger

	mu        sync.Mutex
	text      string
	dirty     bool
	drawDirty bool
	textHist  *history.Stack[string]
	lastErr   error

	applying debounce.Guard

	histDebounce    *debounce.Debouncer
	persistDebounce *debounce.Debouncer
	drawDebounce    *debounce.Debouncer

	board          *raster.Board
	boardW, boardH int
	boardDPR       float64
}

// New creates a session over an open store. The buffer starts with the
// current note's content. ctx is used for debounced writes that have no
// caller of their own.
func New(ctx context.Context, store *stash.Store, blobs storage.Adapter, settings *config.Settings, opts ...Option) *Session {
	s := &Session{
		ctx:      ctx,
		store:    store,
		blobs:    blobs,
		settings: *settings,
		boardW:   DefaultBoardWidth,
		boardH:   DefaultBoardHeight,
		boardDPR: 1,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}

	s.textHist = history.New(settings.History.TextCapacity, func(a, b string) bool { return a == b })
	s.histDebounce = debounce.New(settings.HistoryDebounce(),
		debounce.WithName("history"), debounce.WithLogger(s.log))
	s.persistDebounce = debounce.New(settings.FlushDebounce(),
		debounce.WithName("persist"), debounce.WithLogger(s.log))
	s.drawDebounce = debounce.New(settings.FlushDebounce(),
		debounce.WithName("drawing"), debounce.WithLogger(s.log))
	s.board = raster.NewBoard(raster.NewSurface(s.boardW, s.boardH, s.boardDPR),
		settings.History.RasterCapacity, raster.WithBoardLogger(s.log))

	if cur := store.Current(); cur != nil {
		s.text = cur.Content
	}
	s.textHist.Push(s.text)
	return s
}

// Store returns the underlying stash store.
func (s *Session) Store() *stash.Store { return s.store }

// Blobs returns the storage adapter the session writes through.
func (s *Session) Blobs() storage.Adapter { return s.blobs }

// Board returns the drawing board.
func (s *Session) Board() *raster.Board { return s.board }

// Settings returns a copy of the active settings.
func (s *Session) Settings() config.Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// ApplySettings swaps in new settings. Store limits take effect at the
// next mutation; debounce intervals and capacities are fixed at New.
func (s *Session) ApplySettings(settings *config.Settings) {
	s.mu.Lock()
	s.settings = *settings
	s.mu.Unlock()
	s.store.ApplySettings(settings)
}

// Text returns the buffer.
func (s *Session) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.text
}

// Dirty reports whether the buffer has edits not yet saved.
func (s *Session) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// LastError returns the most recent background save failure, cleared by
// the next successful save.
func (s *Session) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// SetText replaces the buffer. A history entry is recorded once edits
// pause for the history interval, and the note is saved once they pause
// for the persist interval.
func (s *Session) SetText(text string) {
	s.mu.Lock()
	if text == s.text {
		s.mu.Unlock()
		return
	}
	s.text = text
	s.dirty = true
	s.mu.Unlock()

	if !s.applying.Active() {
		s.histDebounce.Schedule(s.commitHistory)
	}
	s.persistDebounce.Schedule(s.persistInBackground)
}

// AppendLine adds line to the end of the buffer on a new line.
func (s *Session) AppendLine(line string) {
	text := s.Text()
	if text != "" {
		text += "\n"
	}
	s.SetText(text + line)
}

func (s *Session) commitHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.textHist.Push(s.text)
}

// Undo steps the buffer back one history entry. Pending edits are
// committed first so they can be undone as a unit.
func (s *Session) Undo() (string, bool) {
	return s.step((*history.Stack[string]).Undo)
}

// Redo steps the buffer forward one history entry.
func (s *Session) Redo() (string, bool) {
	return s.step((*history.Stack[string]).Redo)
}

func (s *Session) step(move func(*history.Stack[string]) (string, bool)) (string, bool) {
	s.histDebounce.Flush()

	if !s.applying.TryEnter() {
		return s.Text(), false
	}
	defer s.applying.Leave()

	s.mu.Lock()
	text, ok := move(s.textHist)
	s.mu.Unlock()
	if !ok {
		return s.Text(), false
	}
	s.SetText(text)
	return text, true
}

// CanUndo reports whether Undo would change the buffer, counting edits
// not yet committed to history.
func (s *Session) CanUndo() bool {
	if s.histDebounce.Pending() {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textHist.CanUndo()
}

// CanRedo reports whether Redo would change the buffer.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textHist.CanRedo()
}

// Stats counts the buffer.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CountText(s.text, &s.settings)
}

func (s *Session) persistInBackground() {
	if err := s.saveText(s.ctx); err != nil {
		s.log.Warn("scratchpad: autosave failed, will retry on next edit", "error", err)
	}
}

// saveText writes the buffer into the current note. On failure the buffer
// stays dirty.
func (s *Session) saveText(ctx context.Context) error {
	s.mu.Lock()
	text, dirty := s.text, s.dirty
	s.mu.Unlock()
	if !dirty {
		return nil
	}

	_, err := s.store.SaveCurrent(ctx, text)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastErr = err
	if err != nil {
		return fmt.Errorf("save current note: %w", err)
	}
	if s.text == text {
		s.dirty = false
	}
	return nil
}

// Flush commits pending history and writes any unsaved text and drawing
// immediately.
func (s *Session) Flush(ctx context.Context) error {
	s.histDebounce.Flush()
	s.persistDebounce.Stop()
	s.drawDebounce.Stop()
	return errors.Join(s.saveText(ctx), s.saveDrawing(ctx))
}

// Close flushes and stops all timers. The session must not be used
// afterwards.
func (s *Session) Close(ctx context.Context) error {
	err := s.Flush(ctx)
	s.histDebounce.Stop()
	s.persistDebounce.Stop()
	s.drawDebounce.Stop()
	return err
}

// reset loads content as a fresh buffer with a single history entry.
func (s *Session) reset(content string) {
	s.histDebounce.Stop()
	s.persistDebounce.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.text = content
	s.dirty = false
	s.textHist.Clear()
	s.textHist.Push(content)
}

// NewNote saves the buffer, moves the current note into the stash list
// and starts a new current note holding content.
func (s *Session) NewNote(ctx context.Context, content string) (*stash.Note, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	n, err := s.store.CreateNewStash(ctx, content)
	if err != nil {
		return nil, err
	}
	s.reset(n.Content)
	return n, nil
}

// Stash copies the buffer into a new stashed note. The buffer and the
// current note are unchanged.
func (s *Session) Stash(ctx context.Context) (*stash.Note, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	return s.store.StashContent(ctx, s.Text())
}

// FetchStash loads the stashed note with id into the buffer. When
// auto_stash_on_fetch is set the buffer is stashed first, and that write
// completes before the fetch starts. An unknown id returns nil, nil.
func (s *Session) FetchStash(ctx context.Context, id string) (*stash.Note, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}
	if cur := s.store.Current(); cur != nil && cur.ID == id {
		return cur, nil
	}
	if _, ok := s.store.Lookup(id); !ok {
		return nil, nil
	}

	if s.Settings().AutoStashOnFetch {
		_, err := s.store.StashContent(ctx, s.Text())
		if err != nil && !errors.Is(err, stash.ErrEmptyContent) {
			return nil, fmt.Errorf("stash buffer before fetch: %w", err)
		}
	}

	n, err := s.store.FetchStash(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == nil {
		// Eviction by the auto-stash above removed it.
		return nil, fmt.Errorf("fetch %s: %w", id, stash.ErrStashNotFound)
	}
	s.reset(n.Content)
	s.log.Debug("scratchpad: fetched note", "id", n.ID)
	return n, nil
}
