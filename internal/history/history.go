// Package history provides a bounded undo/redo stack over immutable
// snapshots. One Stack tracks one editable surface; snapshots are never
// shared between stacks.
package history

const (
	// TextCapacity is the number of text snapshots kept per buffer.
	TextCapacity = 50
	// RasterCapacity is the number of raster snapshots kept per surface.
	// Raster snapshots are far larger than text, hence the smaller bound.
	RasterCapacity = 20
)

// Stack is a bounded linear undo/redo history.
//
// entries are ordered oldest to newest and cursor points at the state the
// surface is showing; cursor is -1 only when the stack is empty. Pushing
// discards the redo branch (entries after cursor). When capacity is
// exceeded the oldest entry is evicted and can no longer be reached by Undo.
//
// Stack is not safe for concurrent use; callers serialize access.
type Stack[T any] struct {
	entries  []T
	cursor   int
	capacity int
	equal    func(a, b T) bool
}

// New creates a Stack holding at most capacity entries. equal decides
// whether a pushed value duplicates the entry at the cursor; a nil equal
// disables duplicate suppression. If capacity is 0 or negative,
// TextCapacity is used.
func New[T any](capacity int, equal func(a, b T) bool) *Stack[T] {
	if capacity <= 0 {
		capacity = TextCapacity
	}
	return &Stack[T]{
		entries:  make([]T, 0, capacity),
		cursor:   -1,
		capacity: capacity,
		equal:    equal,
	}
}

// NewText creates a Stack for text snapshots with TextCapacity entries.
func NewText() *Stack[string] {
	return New(TextCapacity, func(a, b string) bool { return a == b })
}

// Push records v as the newest state. Pushing a value equal to the entry
// at the cursor is a no-op, so redundant commits never create duplicates.
func (s *Stack[T]) Push(v T) {
	if s.cursor >= 0 && s.equal != nil && s.equal(s.entries[s.cursor], v) {
		return
	}

	// Drop the redo branch.
	var zero T
	for i := s.cursor + 1; i < len(s.entries); i++ {
		s.entries[i] = zero
	}
	s.entries = append(s.entries[:s.cursor+1], v)
	s.cursor = len(s.entries) - 1

	if len(s.entries) > s.capacity {
		copy(s.entries, s.entries[1:])
		s.entries[len(s.entries)-1] = zero
		s.entries = s.entries[:len(s.entries)-1]
		s.cursor--
	}
}

// Undo moves the cursor one step back and returns the entry now current.
// At the oldest retained entry (or when empty) it does nothing and
// returns false.
func (s *Stack[T]) Undo() (T, bool) {
	if s.cursor <= 0 {
		var zero T
		return zero, false
	}
	s.cursor--
	return s.entries[s.cursor], true
}

// Redo moves the cursor one step forward and returns the entry now
// current. At the newest entry it does nothing and returns false.
func (s *Stack[T]) Redo() (T, bool) {
	if s.cursor >= len(s.entries)-1 {
		var zero T
		return zero, false
	}
	s.cursor++
	return s.entries[s.cursor], true
}

// Current returns the entry at the cursor.
func (s *Stack[T]) Current() (T, bool) {
	if s.cursor < 0 {
		var zero T
		return zero, false
	}
	return s.entries[s.cursor], true
}

// CanUndo reports whether Undo would move the cursor.
func (s *Stack[T]) CanUndo() bool { return s.cursor > 0 }

// CanRedo reports whether Redo would move the cursor.
func (s *Stack[T]) CanRedo() bool { return s.cursor < len(s.entries)-1 }

// Len returns the number of retained entries.
func (s *Stack[T]) Len() int { return len(s.entries) }

// Cursor returns the index of the current entry, -1 when empty.
func (s *Stack[T]) Cursor() int { return s.cursor }

// Cap returns the maximum number of retained entries.
func (s *Stack[T]) Cap() int { return s.capacity }

// Clear drops every entry.
func (s *Stack[T]) Clear() {
	s.entries = make([]T, 0, s.capacity)
	s.cursor = -1
}

// Entries returns a copy of all entries, oldest to newest.
func (s *Stack[T]) Entries() []T {
	result := make([]T, len(s.entries))
	copy(result, s.entries)
	return result
}
