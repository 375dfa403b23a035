package stash

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/scratchpad/internal/storage"
)

const dataPath = "data.json"

// memAdapter is an in-memory storage.Adapter with failure injection.
type memAdapter struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	writes    int
	reads     int
	failRead  error
	failWrite error
}

func newMemAdapter() *memAdapter {
	return &memAdapter{blobs: map[string][]byte{}}
}

func (m *memAdapter) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.failRead != nil {
		return nil, m.failRead
	}
	b, ok := m.blobs[path]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *memAdapter) Write(_ context.Context, path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite != nil {
		return m.failWrite
	}
	m.writes++
	m.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (m *memAdapter) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[path]
	return ok, nil
}

func (m *memAdapter) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// tickingClock advances one millisecond per call so every note gets a
// distinct timestamp.
func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.UnixMilli(1_700_000_000_000)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("note-%02d", n)
	}
}

func openTestStore(t *testing.T, a storage.Adapter, limits Limits, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(tickingClock()), WithIDGenerator(sequentialIDs())}, opts...)
	s, err := Open(context.Background(), a, dataPath, limits, opts...)
	require.NoError(t, err)
	return s
}

func ids(notes []Note) []string {
	out := make([]string, len(notes))
	for i, n := range notes {
		out[i] = n.ID
	}
	return out
}

func TestCreateNewStashDemotesCurrent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, newMemAdapter(), DefaultLimits())

	a, err := s.CreateNewStash(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())

	b, err := s.CreateNewStash(ctx, "B")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, b.ID, cur.ID)
	assert.Equal(t, []string{a.ID}, ids(s.Snapshot().Stashes))
}

func TestCreateNewStashSkipsBlankCurrent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, newMemAdapter(), DefaultLimits())

	_, err := s.SaveCurrent(ctx, "draft")
	require.NoError(t, err)
	_, err = s.SaveCurrent(ctx, "   ")
	require.NoError(t, err)

	_, err = s.CreateNewStash(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 0, s.Count())
}

func TestCreateNewStashEvictsOldest(t *testing.T) {
	ctx := context.Background()
	limits := Limits{MaxStashes: 2, AutoEvictOldest: true, MaxNoteLength: 100}
	s := openTestStore(t, newMemAdapter(), limits)

	for _, body := range []string{"A", "B", "C", "D"} {
		_, err := s.CreateNewStash(ctx, body)
		require.NoError(t, err)
	}

	d := s.Snapshot()
	require.NotNil(t, d.CurrentStash)
	assert.Equal(t, "D", d.CurrentStash.Content)
	require.Len(t, d.Stashes, 2)
	assert.Equal(t, "C", d.Stashes[0].Content)
	assert.Equal(t, "B", d.Stashes[1].Content)
}

func TestCreateNewStashKeepsDemotedNoteOverOlderStashes(t *testing.T) {
	ctx := context.Background()
	limits := Limits{MaxStashes: 1, AutoEvictOldest: true, MaxNoteLength: 100}
	s := openTestStore(t, newMemAdapter(), limits)

	a, err := s.CreateNewStash(ctx, "A")
	require.NoError(t, err)
	_, err = s.StashContent(ctx, "X")
	require.NoError(t, err)
	_, err = s.CreateNewStash(ctx, "B")
	require.NoError(t, err)

	d := s.Snapshot()
	require.Len(t, d.Stashes, 1)
	assert.Equal(t, a.ID, d.Stashes[0].ID)
	assert.Equal(t, "A", d.Stashes[0].Content)
	require.NotNil(t, d.CurrentStash)
	assert.Equal(t, "B", d.CurrentStash.Content)
}

func TestStashLimitReachedLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	limits := Limits{MaxStashes: 2, AutoEvictOldest: false, MaxNoteLength: 100}
	s := openTestStore(t, a, limits)

	for _, body := range []string{"A", "B", "C"} {
		_, err := s.CreateNewStash(ctx, body)
		require.NoError(t, err)
	}
	before := s.Snapshot()
	writes := a.writeCount()

	_, err := s.CreateNewStash(ctx, "D")
	require.ErrorIs(t, err, ErrStashLimitReached)
	_, err = s.StashContent(ctx, "E")
	require.ErrorIs(t, err, ErrStashLimitReached)

	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, writes, a.writeCount())
}

func TestNoteLengthLimit(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, newMemAdapter(), Limits{MaxStashes: 5, MaxNoteLength: 10})

	_, err := s.StashContent(ctx, strings.Repeat("x", 10))
	require.NoError(t, err)

	_, err = s.StashContent(ctx, strings.Repeat("x", 11))
	require.ErrorIs(t, err, ErrNoteTooLarge)
	_, err = s.CreateNewStash(ctx, strings.Repeat("x", 11))
	require.ErrorIs(t, err, ErrNoteTooLarge)
	_, err = s.SaveCurrent(ctx, strings.Repeat("x", 11))
	require.ErrorIs(t, err, ErrNoteTooLarge)

	assert.Equal(t, 1, s.Count())
	assert.Nil(t, s.Current())
}

func TestEmptyContentRejected(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())

	for _, body := range []string{"", "   ", "\n\t \r\n"} {
		_, err := s.StashContent(ctx, body)
		assert.ErrorIs(t, err, ErrEmptyContent)
		_, err = s.CreateNewStash(ctx, body)
		assert.ErrorIs(t, err, ErrEmptyContent)
	}
	assert.Equal(t, 0, a.writeCount())
}

func TestFetchStash(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, newMemAdapter(), DefaultLimits())

	_, err := s.SaveCurrent(ctx, "scratch")
	require.NoError(t, err)
	stashed, err := s.StashContent(ctx, "kept for later")
	require.NoError(t, err)

	fetched, err := s.FetchStash(ctx, stashed.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "kept for later", fetched.Content)
	assert.Greater(t, fetched.UpdatedAt, stashed.UpdatedAt)
	assert.Equal(t, stashed.CreatedAt, fetched.CreatedAt)

	d := s.Snapshot()
	assert.Equal(t, stashed.ID, d.CurrentStash.ID)
	assert.Empty(t, d.Stashes, "previous current is discarded, fetched note leaves the list")

	again, err := s.FetchStash(ctx, stashed.ID)
	require.NoError(t, err)
	assert.Equal(t, fetched, again)
}

func TestFetchUnknownStash(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())
	_, err := s.StashContent(ctx, "one")
	require.NoError(t, err)
	before := s.Snapshot()
	writes := a.writeCount()

	n, err := s.FetchStash(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, writes, a.writeCount())
}

func TestGetStashesPaging(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, newMemAdapter(), DefaultLimits())
	for i := 1; i <= 5; i++ {
		_, err := s.StashContent(ctx, fmt.Sprintf("note %d", i))
		require.NoError(t, err)
	}

	all := s.GetStashes(0, 0)
	require.Len(t, all, 5)
	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i-1].UpdatedAt, all[i].UpdatedAt)
	}
	assert.Equal(t, "note 5", all[0].Content)

	first := s.GetStashes(2, 0)
	second := s.GetStashes(2, 2)
	third := s.GetStashes(2, 4)
	assert.Equal(t, ids(all[0:2]), ids(first))
	assert.Equal(t, ids(all[2:4]), ids(second))
	assert.Equal(t, ids(all[4:5]), ids(third))
	assert.Empty(t, s.GetStashes(2, 5))
	assert.Equal(t, ids(all[3:]), ids(s.GetStashes(0, 3)))
	assert.Equal(t, ids(all[:2]), ids(s.GetStashes(2, -1)))
}

func TestGetStashesTieBreak(t *testing.T) {
	ctx := context.Background()
	fixed := time.UnixMilli(1_700_000_000_000)
	s := openTestStore(t, newMemAdapter(), DefaultLimits(), WithClock(func() time.Time { return fixed }))
	for _, body := range []string{"x", "y", "z"} {
		_, err := s.StashContent(ctx, body)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"note-03", "note-02", "note-01"}, ids(s.GetStashes(0, 0)))
}

func TestDeleteStash(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())
	n, err := s.StashContent(ctx, "doomed")
	require.NoError(t, err)

	require.NoError(t, s.DeleteStash(ctx, n.ID))
	assert.Equal(t, 0, s.Count())

	writes := a.writeCount()
	require.NoError(t, s.DeleteStash(ctx, n.ID))
	assert.Equal(t, writes, a.writeCount())
}

func TestDeleteCurrentNote(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())
	kept, err := s.StashContent(ctx, "kept")
	require.NoError(t, err)
	cur, err := s.CreateNewStash(ctx, "current")
	require.NoError(t, err)

	require.NoError(t, s.DeleteStash(ctx, cur.ID))
	assert.Nil(t, s.Current())
	assert.Equal(t, []string{kept.ID}, ids(s.Snapshot().Stashes))

	reopened := openTestStore(t, a, DefaultLimits())
	assert.Nil(t, reopened.Current())
	assert.Equal(t, 1, reopened.Count())
}

func TestClearAllStashesKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, newMemAdapter(), DefaultLimits())
	_, err := s.SaveCurrent(ctx, "working")
	require.NoError(t, err)
	for _, body := range []string{"a", "b"} {
		_, err := s.StashContent(ctx, body)
		require.NoError(t, err)
	}

	require.NoError(t, s.ClearAllStashes(ctx))
	assert.Equal(t, 0, s.Count())
	require.NotNil(t, s.Current())
	assert.Equal(t, "working", s.Current().Content)
}

func TestSaveCurrent(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())

	n, err := s.SaveCurrent(ctx, "  ")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, 0, a.writeCount())

	first, err := s.SaveCurrent(ctx, "hello")
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := s.SaveCurrent(ctx, "hello\nworld")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "hello world", second.Preview)
	assert.Greater(t, second.UpdatedAt, first.UpdatedAt)

	writes := a.writeCount()
	_, err = s.SaveCurrent(ctx, "hello\nworld")
	require.NoError(t, err)
	assert.Equal(t, writes, a.writeCount())
}

func TestSetTitle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, newMemAdapter(), DefaultLimits())
	cur, err := s.CreateNewStash(ctx, "current")
	require.NoError(t, err)
	st, err := s.StashContent(ctx, "stashed")
	require.NoError(t, err)

	require.NoError(t, s.SetTitle(ctx, cur.ID, "  Today  "))
	require.NoError(t, s.SetTitle(ctx, st.ID, "Later"))
	assert.Equal(t, "Today", s.Current().Title)
	got, ok := s.Lookup(st.ID)
	require.True(t, ok)
	assert.Equal(t, "Later", got.Title)

	err = s.SetTitle(ctx, "nope", "x")
	assert.ErrorIs(t, err, ErrStashNotFound)
}

func TestWriteFailureLeavesMemoryUnchanged(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())
	n, err := s.StashContent(ctx, "safe")
	require.NoError(t, err)
	before := s.Snapshot()

	a.failWrite = errors.New("disk full")

	_, err = s.StashContent(ctx, "lost")
	require.ErrorIs(t, err, ErrPersist)
	_, err = s.CreateNewStash(ctx, "lost")
	require.ErrorIs(t, err, ErrPersist)
	_, err = s.FetchStash(ctx, n.ID)
	require.ErrorIs(t, err, ErrPersist)
	require.ErrorIs(t, s.DeleteStash(ctx, n.ID), ErrPersist)
	require.ErrorIs(t, s.ClearAllStashes(ctx), ErrPersist)
	_, err = s.SaveCurrent(ctx, "lost")
	require.ErrorIs(t, err, ErrPersist)

	assert.Equal(t, before, s.Snapshot())
}

func TestOpenPersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())
	_, err := s.CreateNewStash(ctx, "first")
	require.NoError(t, err)
	_, err = s.CreateNewStash(ctx, "second")
	require.NoError(t, err)

	reopened, err := Open(ctx, a, dataPath, DefaultLimits())
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), reopened.Snapshot())
}

func TestOpenWithFileAdapter(t *testing.T) {
	ctx := context.Background()
	fa, err := storage.NewFileAdapter(t.TempDir())
	require.NoError(t, err)

	s, err := Open(ctx, fa, dataPath, DefaultLimits())
	require.NoError(t, err)
	_, err = s.StashContent(ctx, "on disk")
	require.NoError(t, err)

	reopened, err := Open(ctx, fa, dataPath, DefaultLimits())
	require.NoError(t, err)
	require.Equal(t, 1, reopened.Count())
	assert.Equal(t, "on disk", reopened.GetStashes(1, 0)[0].Content)
}

func TestOpenMigratesLegacyBlobOnce(t *testing.T) {
	a := newMemAdapter()
	a.blobs[dataPath] = []byte(`{"text":"hello","canvas":"data:image/png;base64,AAAA"}`)

	var canvas string
	hook := WithLegacyCanvas(func(_ context.Context, uri string) error {
		canvas = uri
		return nil
	})
	s := openTestStore(t, a, DefaultLimits(), hook)

	cur := s.Current()
	require.NotNil(t, cur)
	assert.Equal(t, "hello", cur.Content)
	assert.Equal(t, 0, s.Count())
	assert.Equal(t, "data:image/png;base64,AAAA", canvas)
	assert.Equal(t, 1, a.writeCount())

	var onDisk map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(a.blobs[dataPath], &onDisk))
	assert.Contains(t, onDisk, "stashes")
	assert.NotContains(t, onDisk, "text")

	reopened := openTestStore(t, a, DefaultLimits())
	assert.Equal(t, 1, a.writeCount(), "migrated blob is not rewritten")
	assert.Equal(t, cur.ID, reopened.Current().ID)
}

func TestOpenLegacyWriteFailure(t *testing.T) {
	a := newMemAdapter()
	a.blobs[dataPath] = []byte(`{"text":"hello"}`)
	a.failWrite = errors.New("read-only")

	_, err := Open(context.Background(), a, dataPath, DefaultLimits())
	require.ErrorIs(t, err, ErrPersist)
}

func TestOpenFailsOpenOnBadInput(t *testing.T) {
	tests := []struct {
		name  string
		setup func(a *memAdapter)
	}{
		{"missing blob", func(*memAdapter) {}},
		{"malformed json", func(a *memAdapter) { a.blobs[dataPath] = []byte(`{"stashes": [`) }},
		{"wrong shape", func(a *memAdapter) { a.blobs[dataPath] = []byte(`{"stashes": "nope"}`) }},
		{"read error", func(a *memAdapter) { a.failRead = errors.New("permission denied") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newMemAdapter()
			tt.setup(a)
			s := openTestStore(t, a, DefaultLimits())
			assert.Nil(t, s.Current())
			assert.Equal(t, 0, s.Count())
			assert.Equal(t, 0, a.writeCount())
		})
	}
}

func TestReloadShortCircuitsWhileLoading(t *testing.T) {
	a := newMemAdapter()
	s := openTestStore(t, a, DefaultLimits())
	reads := a.reads

	require.True(t, s.loading.TryEnter())
	require.NoError(t, s.Reload(context.Background()))
	s.loading.Leave()
	assert.Equal(t, reads, a.reads)

	require.NoError(t, s.Reload(context.Background()))
	assert.Equal(t, reads+1, a.reads)
}

func TestApplySettings(t *testing.T) {
	s := openTestStore(t, newMemAdapter(), DefaultLimits())
	settings := *defaultSettingsForTest()
	settings.MaxStashes = 3
	settings.AutoEvictOldest = false
	s.ApplySettings(&settings)

	assert.Equal(t, Limits{MaxStashes: 3, AutoEvictOldest: false, MaxNoteLength: settings.MaxNoteLength}, s.Limits())
}
