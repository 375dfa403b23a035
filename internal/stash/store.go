package stash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/runnerr0/scratchpad/internal/config"
	"github.com/runnerr0/scratchpad/internal/debounce"
	"github.com/runnerr0/scratchpad/internal/storage"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// WithClock replaces time.Now for note timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the UUIDv7 note id generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// WithLegacyCanvas registers a hook that receives the drawing data URI
// found in a legacy single-note blob. A hook error is logged, not fatal.
func WithLegacyCanvas(fn func(ctx context.Context, uri string) error) Option {
	return func(s *Store) { s.onLegacyCanvas = fn }
}

// Store owns the in-memory scratchpad data and its backing blob. Every
// mutation is applied to a copy, written through the adapter, and only
// then made visible. The mutex is held across the write, so writes never
// interleave.
type Store struct {
	mu      sync.Mutex
	adapter storage.Adapter
	path    string
	limits  Limits
	data    Data

	loading debounce.Guard

	now            func() time.Time
	newID          func() string
	onLegacyCanvas func(ctx context.Context, uri string) error
	log            *slog.Logger
}

// NewID returns a time-ordered UUIDv7 string.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Open loads the blob at path, migrating a legacy blob and writing the
// migrated form back so the migration runs once. A missing or malformed
// blob yields an empty store.
func Open(ctx context.Context, adapter storage.Adapter, path string, limits Limits, opts ...Option) (*Store, error) {
	s := &Store{
		adapter: adapter,
		path:    path,
		limits:  limits.withDefaults(),
		data:    Data{Stashes: []Note{}},
		now:     time.Now,
		newID:   NewID,
	}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the backing blob. A Reload that overlaps another one
// returns immediately.
func (s *Store) Reload(ctx context.Context) error {
	if !s.loading.TryEnter() {
		s.log.Debug("stash: reload already running")
		return nil
	}
	defer s.loading.Leave()

	raw, err := s.adapter.Read(ctx, s.path)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		raw = nil
	case err != nil:
		s.log.Warn("stash: read failed, starting empty", "path", s.path, "error", err)
		raw = nil
	}

	b, err := decodeBlob(raw)
	if err != nil {
		s.log.Warn("stash: ignoring unreadable blob", "path", s.path, "error", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, canvas := migrate(b, s.newNote)
	if b.kind != blobLegacy {
		s.data = data
		return nil
	}

	s.log.Info("stash: migrating legacy blob", "path", s.path, "has_text", data.CurrentStash != nil, "has_canvas", canvas != "")
	if err := s.write(ctx, data); err != nil {
		return fmt.Errorf("write migrated blob: %w", err)
	}
	s.data = data

	if canvas != "" && s.onLegacyCanvas != nil {
		if err := s.onLegacyCanvas(ctx, canvas); err != nil {
			s.log.Warn("stash: legacy canvas not restored", "error", err)
		}
	}
	return nil
}

// ApplySettings updates the store limits. Existing notes are not evicted
// until the next growing mutation.
func (s *Store) ApplySettings(settings *config.Settings) {
	s.mu.Lock()
	s.limits = LimitsFrom(settings).withDefaults()
	s.mu.Unlock()
}

// Limits returns the active limits.
func (s *Store) Limits() Limits {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.limits
}

// CreateNewStash demotes a non-blank current note into the stash list and
// installs a new current note holding content.
func (s *Store) CreateNewStash(ctx context.Context, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(content); err != nil {
		return nil, err
	}

	var created Note
	err := s.commit(ctx, func(d *Data) error {
		if cur := d.CurrentStash; cur != nil && strings.TrimSpace(cur.Content) != "" {
			d.Stashes = append([]Note{*cur}, without(d.Stashes, cur.ID)...)
		}
		if err := s.enforceLimit(d); err != nil {
			return err
		}
		created = s.newNote(content)
		d.CurrentStash = &created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("stash: new current note", "id", created.ID, "stashes", len(s.data.Stashes))
	return &created, nil
}

// StashContent stores content as a new note at the front of the stash
// list. The current note is left alone.
func (s *Store) StashContent(ctx context.Context, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.validate(content); err != nil {
		return nil, err
	}

	var created Note
	err := s.commit(ctx, func(d *Data) error {
		created = s.newNote(content)
		d.Stashes = append([]Note{created}, d.Stashes...)
		return s.enforceLimit(d)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("stash: stashed content", "id", created.ID, "stashes", len(s.data.Stashes))
	return &created, nil
}

// FetchStash makes the note with id current. The previous current note is
// discarded; callers that want to keep it stash it first. Fetching the
// current note returns it unchanged. An unknown id returns nil, nil.
func (s *Store) FetchStash(ctx context.Context, id string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur := s.data.CurrentStash; cur != nil && cur.ID == id {
		n := *cur
		return &n, nil
	}
	idx := indexOf(s.data.Stashes, id)
	if idx < 0 {
		return nil, nil
	}

	var fetched Note
	err := s.commit(ctx, func(d *Data) error {
		fetched = d.Stashes[idx]
		fetched.UpdatedAt = s.now().UnixMilli()
		d.Stashes = without(d.Stashes, id)
		d.CurrentStash = &fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &fetched, nil
}

// DeleteStash removes the note with id. When it is the current note the
// store is left without one; otherwise it is dropped from the stash list.
// Unknown ids are a no-op and cause no write.
func (s *Store) DeleteStash(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	isCurrent := s.data.CurrentStash != nil && s.data.CurrentStash.ID == id
	if !isCurrent && indexOf(s.data.Stashes, id) < 0 {
		return nil
	}
	return s.commit(ctx, func(d *Data) error {
		if isCurrent {
			d.CurrentStash = nil
			return nil
		}
		d.Stashes = without(d.Stashes, id)
		return nil
	})
}

// ClearAllStashes empties the stash list. The current note survives.
func (s *Store) ClearAllStashes(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.data.Stashes) == 0 {
		return nil
	}
	return s.commit(ctx, func(d *Data) error {
		d.Stashes = []Note{}
		return nil
	})
}

// GetStashes returns a page of stashed notes, most recently updated first.
// A limit of 0 or less returns everything after offset.
func (s *Store) GetStashes(limit, offset int) []Note {
	s.mu.Lock()
	notes := make([]Note, len(s.data.Stashes))
	copy(notes, s.data.Stashes)
	s.mu.Unlock()

	sort.SliceStable(notes, func(i, j int) bool {
		a, b := notes[i], notes[j]
		if a.UpdatedAt != b.UpdatedAt {
			return a.UpdatedAt > b.UpdatedAt
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt > b.CreatedAt
		}
		return a.ID > b.ID
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(notes) {
		return []Note{}
	}
	notes = notes[offset:]
	if limit > 0 && limit < len(notes) {
		notes = notes[:limit]
	}
	return notes
}

// SaveCurrent writes content into the current note, creating one when
// there is none. Blank content with no current note is a no-op. Saving
// unchanged content does not write.
func (s *Store) SaveCurrent(ctx context.Context, content string) (*Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkLength(content); err != nil {
		return nil, err
	}

	cur := s.data.CurrentStash
	if cur == nil && strings.TrimSpace(content) == "" {
		return nil, nil
	}
	if cur != nil && cur.Content == content {
		n := *cur
		return &n, nil
	}

	var saved Note
	err := s.commit(ctx, func(d *Data) error {
		if d.CurrentStash == nil {
			saved = s.newNote(content)
		} else {
			saved = *d.CurrentStash
			saved.Content = content
			saved.Preview = GeneratePreview(content)
			saved.UpdatedAt = s.now().UnixMilli()
		}
		d.CurrentStash = &saved
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

// SetTitle sets or clears (blank title) the title of a current or stashed
// note.
func (s *Store) SetTitle(ctx context.Context, id, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	title = strings.TrimSpace(title)
	isCurrent := s.data.CurrentStash != nil && s.data.CurrentStash.ID == id
	idx := indexOf(s.data.Stashes, id)
	if !isCurrent && idx < 0 {
		return fmt.Errorf("set title %q: %w", id, ErrStashNotFound)
	}

	return s.commit(ctx, func(d *Data) error {
		if isCurrent {
			d.CurrentStash.Title = title
			return nil
		}
		d.Stashes[idx].Title = title
		return nil
	})
}

// Current returns a copy of the current note, or nil.
func (s *Store) Current() *Note {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.CurrentStash == nil {
		return nil
	}
	n := *s.data.CurrentStash
	return &n
}

// Lookup finds a note by id in the current slot or the stash list.
func (s *Store) Lookup(id string) (Note, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur := s.data.CurrentStash; cur != nil && cur.ID == id {
		return *cur, true
	}
	if idx := indexOf(s.data.Stashes, id); idx >= 0 {
		return s.data.Stashes[idx], true
	}
	return Note{}, false
}

// Count returns the number of stashed notes, excluding the current one.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.Stashes)
}

// Snapshot returns a deep copy of the store contents.
func (s *Store) Snapshot() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}

// Path returns the blob path the store persists to.
func (s *Store) Path() string { return s.path }

// commit stages fn on a copy of the data, persists the result, and swaps
// it in. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, fn func(d *Data) error) error {
	next := s.data.clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := s.write(ctx, next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *Store) write(ctx context.Context, d Data) error {
	if d.Stashes == nil {
		d.Stashes = []Note{}
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrPersist, err)
	}
	if err := s.adapter.Write(ctx, s.path, raw); err != nil {
		s.log.Error("stash: write failed", "path", s.path, "error", err)
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

func (s *Store) validate(content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}
	return s.checkLength(content)
}

func (s *Store) checkLength(content string) error {
	if n := utf8.RuneCountInString(content); n > s.limits.MaxNoteLength {
		return fmt.Errorf("%w: %d characters exceeds the %d character limit", ErrNoteTooLarge, n, s.limits.MaxNoteLength)
	}
	return nil
}

// enforceLimit trims d.Stashes to MaxStashes by dropping entries from the
// tail, or refuses when eviction is disabled. New and demoted notes are
// prepended, so the tail holds the notes stashed longest ago.
func (s *Store) enforceLimit(d *Data) error {
	if len(d.Stashes) <= s.limits.MaxStashes {
		return nil
	}
	if !s.limits.AutoEvictOldest {
		return fmt.Errorf("%w: at most %d notes can be stashed", ErrStashLimitReached, s.limits.MaxStashes)
	}
	for _, n := range d.Stashes[s.limits.MaxStashes:] {
		s.log.Debug("stash: evicting oldest note", "id", n.ID)
	}
	d.Stashes = d.Stashes[:s.limits.MaxStashes:s.limits.MaxStashes]
	return nil
}

func (s *Store) newNote(content string) Note {
	now := s.now().UnixMilli()
	return Note{
		ID:        s.newID(),
		CreatedAt: now,
		UpdatedAt: now,
		Preview:   GeneratePreview(content),
		Content:   content,
	}
}

func indexOf(notes []Note, id string) int {
	for i, n := range notes {
		if n.ID == id {
			return i
		}
	}
	return -1
}

func without(notes []Note, id string) []Note {
	out := make([]Note, 0, len(notes))
	for _, n := range notes {
		if n.ID != id {
			out = append(out, n)
		}
	}
	return out
}
