package scratchpad

import (
	"context"
	"errors"
	"image/color"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/scratchpad/internal/config"
	"github.com/runnerr0/scratchpad/internal/raster"
	"github.com/runnerr0/scratchpad/internal/stash"
	"github.com/runnerr0/scratchpad/internal/storage"
)

type memAdapter struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	failWrite error
}

func newMemAdapter() *memAdapter {
	return &memAdapter{blobs: map[string][]byte{}}
}

func (m *memAdapter) Read(_ context.Context, path string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
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
	m.blobs[path] = append([]byte(nil), data...)
	return nil
}

func (m *memAdapter) Exists(_ context.Context, path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.blobs[path]
	return ok, nil
}

func (m *memAdapter) setFailWrite(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrite = err
}

func (m *memAdapter) has(path string) bool {
	ok, _ := m.Exists(context.Background(), path)
	return ok
}

// testSettings returns defaults with both quiet periods set to ms. Zero
// makes every debounced call synchronous.
func testSettings(ms int) *config.Settings {
	s := config.DefaultSettings()
	s.History.DebounceMs = ms
	s.Storage.FlushDebounceMs = ms
	return s
}

func openTestSession(t *testing.T, a storage.Adapter, settings *config.Settings, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithBoardSize(16, 16, 1)}, opts...)
	s, err := Open(context.Background(), a, settings, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func historyLen(s *Session) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.textHist.Len()
}

func TestSetTextCoalescesHistory(t *testing.T) {
	s := openTestSession(t, newMemAdapter(), testSettings(30))

	s.SetText("a")
	s.SetText("ab")
	s.SetText("abc")

	assert.Eventually(t, func() bool { return historyLen(s) == 2 }, time.Second, 5*time.Millisecond)

	text, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "", text)

	text, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, "abc", text)
}

func TestUndoCommitsPendingEdits(t *testing.T) {
	settings := testSettings(0)
	settings.History.DebounceMs = int(time.Hour / time.Millisecond)
	s := openTestSession(t, newMemAdapter(), settings)

	s.SetText("hello")
	assert.True(t, s.CanUndo())

	text, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "", text)
	assert.Equal(t, "", s.Text())

	text, ok = s.Redo()
	require.True(t, ok)
	assert.Equal(t, "hello", text)
}

func TestUndoDoesNotRecordHistory(t *testing.T) {
	s := openTestSession(t, newMemAdapter(), testSettings(0))

	s.SetText("one")
	s.SetText("two")
	require.Equal(t, 3, historyLen(s))

	text, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "one", text)
	assert.Equal(t, 3, historyLen(s))
	assert.True(t, s.CanRedo())

	_, ok = s.Undo()
	require.True(t, ok)
	_, ok = s.Undo()
	assert.False(t, ok, "nothing before the initial buffer")
}

func TestEditAfterUndoDropsRedo(t *testing.T) {
	s := openTestSession(t, newMemAdapter(), testSettings(0))
	s.SetText("one")
	s.SetText("two")
	_, ok := s.Undo()
	require.True(t, ok)

	s.SetText("three")
	assert.False(t, s.CanRedo())
	text, ok := s.Undo()
	require.True(t, ok)
	assert.Equal(t, "one", text)
}

func TestTextAutosaves(t *testing.T) {
	a := newMemAdapter()
	s := openTestSession(t, a, testSettings(20))

	s.SetText("draft")
	assert.True(t, s.Dirty())

	assert.Eventually(t, func() bool {
		cur := s.Store().Current()
		return cur != nil && cur.Content == "draft"
	}, time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return !s.Dirty() }, time.Second, 5*time.Millisecond)
}

func TestSaveFailureKeepsBufferDirty(t *testing.T) {
	ctx := context.Background()
	a := newMemAdapter()
	settings := testSettings(int(time.Hour / time.Millisecond))
	s := openTestSession(t, a, settings)

	a.setFailWrite(errors.New("disk full"))
	s.SetText("precious")

	err := s.Flush(ctx)
	require.ErrorIs(t, err, stash.ErrPersist)
	assert.True(t, s.Dirty())
	assert.Error(t, s.LastError())
	assert.Equal(t, "precious", s.Text())

	a.setFailWrite(nil)
	require.NoError(t, s.Flush(ctx))
	assert.False(t, s.Dirty())
	assert.NoError(t, s.LastError())
	assert.Equal(t, "precious", s.Store().Current().Content)
}

func TestCloseFlushesPendingEdits(t *testing.T) {
	a := newMemAdapter()
	settings := testSettings(int(time.Hour / time.Millisecond))
	s, err := Open(context.Background(), a, settings, WithBoardSize(8, 8, 1))
	require.NoError(t, err)

	s.SetText("last words")
	require.NoError(t, s.Close(context.Background()))

	reopened := openTestSession(t, a, settings)
	assert.Equal(t, "last words", reopened.Text())
}

func TestNewNoteDemotesBuffer(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, newMemAdapter(), testSettings(0))

	s.SetText("first")
	n, err := s.NewNote(ctx, "second")
	require.NoError(t, err)

	assert.Equal(t, "second", s.Text())
	assert.Equal(t, n.ID, s.Store().Current().ID)
	assert.False(t, s.CanUndo())

	stashed := s.Store().GetStashes(0, 0)
	require.Len(t, stashed, 1)
	assert.Equal(t, "first", stashed[0].Content)
}

func TestStashKeepsBuffer(t *testing.T) {
	ctx := context.Background()
	s := openTestSession(t, newMemAdapter(), testSettings(0))
	s.SetText("copy me")

	n, err := s.Stash(ctx)
	require.NoError(t, err)
	assert.Equal(t, "copy me", n.Content)
	assert.Equal(t, "copy me", s.Text())
	assert.Equal(t, 1, s.Store().Count())

	s.SetText("   ")
	_, err = s.Stash(ctx)
	assert.ErrorIs(t, err, stash.ErrEmptyContent)
}

func TestFetchStashAutoStashesBuffer(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(0)
	settings.AutoStashOnFetch = true
	s := openTestSession(t, newMemAdapter(), settings)

	saved, err := s.Store().StashContent(ctx, "saved earlier")
	require.NoError(t, err)
	s.SetText("work in progress")

	n, err := s.FetchStash(ctx, saved.ID)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, "saved earlier", s.Text())
	assert.Equal(t, saved.ID, s.Store().Current().ID)

	stashed := s.Store().GetStashes(0, 0)
	require.Len(t, stashed, 1)
	assert.Equal(t, "work in progress", stashed[0].Content)
}

func TestFetchStashWithoutAutoStash(t *testing.T) {
	ctx := context.Background()
	settings := testSettings(0)
	settings.AutoStashOnFetch = false
	s := openTestSession(t, newMemAdapter(), settings)

	saved, err := s.Store().StashContent(ctx, "saved earlier")
	require.NoError(t, err)
	s.SetText("scratch")

	_, err = s.FetchStash(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "saved earlier", s.Text())
	assert.Equal(t, 0, s.Store().Count())
}

func TestFetchUnknownStashKeepsBuffer(t *testing.T) {
	s := openTestSession(t, newMemAdapter(), testSettings(0))
	s.SetText("stay")

	n, err := s.FetchStash(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Equal(t, "stay", s.Text())
	assert.Equal(t, 0, s.Store().Count())
}

func TestCountText(t *testing.T) {
	settings := config.DefaultSettings()
	st := CountText("hello world\nbye 👋🏽", settings)
	assert.Equal(t, 4, st.Words)
	assert.Equal(t, 17, st.Chars)
	assert.Equal(t, 2, st.Lines)
	assert.Equal(t, "4 words, 17 chars, 2 lines", st.String())

	settings.ShowCharCount = false
	settings.ShowLineCount = false
	assert.Equal(t, "1 word", CountText("solo", settings).String())

	empty := CountText("", config.DefaultSettings())
	assert.Equal(t, 0, empty.Lines)
	assert.Equal(t, "0 words, 0 chars, 0 lines", empty.String())
}

var ink = color.RGBA{R: 20, G: 20, B: 20, A: 255}

func TestDrawingPersistsAcrossSessions(t *testing.T) {
	a := newMemAdapter()
	settings := testSettings(0)
	s := openTestSession(t, a, settings)

	s.Draw(func(surface *raster.Surface) {
		surface.Dot(raster.Point{X: 8, Y: 8}, 4, ink)
	})
	require.True(t, a.has(settings.Storage.DrawingFile))

	reopened := openTestSession(t, a, settings)
	assert.False(t, reopened.Board().IsBlank())
	assert.Equal(t, s.Board().Snapshot(), reopened.Board().Snapshot())
}

func TestUndoDrawingPastOldestBlanks(t *testing.T) {
	s := openTestSession(t, newMemAdapter(), testSettings(0))
	s.Draw(func(surface *raster.Surface) {
		surface.Dot(raster.Point{X: 4, Y: 4}, 2, ink)
	})

	assert.True(t, s.UndoDrawing())
	assert.True(t, s.Board().IsBlank())
	assert.False(t, s.UndoDrawing())
}

func TestOpenMigratesLegacyCanvas(t *testing.T) {
	surface := raster.NewSurface(16, 16, 1)
	surface.Dot(raster.Point{X: 8, Y: 8}, 6, ink)
	uri, err := raster.EncodeDataURI(surface.Capture())
	require.NoError(t, err)

	a := newMemAdapter()
	settings := testSettings(0)
	a.blobs[settings.Storage.DataFile] = []byte(`{"text":"from the old days","canvas":"` + uri + `"}`)

	s := openTestSession(t, a, settings)
	assert.Equal(t, "from the old days", s.Text())
	assert.True(t, a.has(settings.Storage.DrawingFile))
	assert.False(t, s.Board().IsBlank())
}

func TestOpenWithUnreadableDrawing(t *testing.T) {
	a := newMemAdapter()
	settings := testSettings(0)
	a.blobs[settings.Storage.DrawingFile] = []byte("not a data uri")

	s := openTestSession(t, a, settings)
	assert.True(t, s.Board().IsBlank())
	assert.Equal(t, 0, s.Board().HistoryLen())
}
