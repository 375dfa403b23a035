// Package stash keeps many scratch notes in one persisted blob: one
// current note bound to the editor plus a bounded list of stashed notes.
package stash

import (
	"errors"
	"time"

	"github.com/runnerr0/scratchpad/internal/config"
)

// Validation errors. They describe a refused request, not a system fault:
// the store is left unchanged.
var (
	ErrEmptyContent      = errors.New("nothing to stash")
	ErrNoteTooLarge      = errors.New("note too large")
	ErrStashLimitReached = errors.New("stash limit reached")
)

// ErrPersist wraps adapter write failures. The in-memory state is left as
// it was before the failed operation.
var ErrPersist = errors.New("persist scratchpad data")

// ErrStashNotFound is returned by operations that require an existing note.
var ErrStashNotFound = errors.New("stash not found")

// Note is one stashed (or current) note. Timestamps are unix milliseconds.
type Note struct {
	ID        string `json:"id"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	Preview   string `json:"preview"`
	Title     string `json:"title,omitempty"`
	Content   string `json:"content"`
}

// Created returns CreatedAt as a time.
func (n Note) Created() time.Time { return time.UnixMilli(n.CreatedAt) }

// Updated returns UpdatedAt as a time.
func (n Note) Updated() time.Time { return time.UnixMilli(n.UpdatedAt) }

// Data is the persisted scratchpad state. A note id appears in at most one
// of CurrentStash and Stashes.
type Data struct {
	CurrentStash *Note  `json:"currentStash,omitempty"`
	Stashes      []Note `json:"stashes"`
}

func (d Data) clone() Data {
	out := Data{Stashes: make([]Note, len(d.Stashes))}
	copy(out.Stashes, d.Stashes)
	if d.CurrentStash != nil {
		cur := *d.CurrentStash
		out.CurrentStash = &cur
	}
	return out
}

// Limits bound what the store accepts.
type Limits struct {
	MaxStashes      int
	AutoEvictOldest bool
	MaxNoteLength   int
}

// LimitsFrom extracts the store limits from settings.
func LimitsFrom(s *config.Settings) Limits {
	return Limits{
		MaxStashes:      s.MaxStashes,
		AutoEvictOldest: s.AutoEvictOldest,
		MaxNoteLength:   s.MaxNoteLength,
	}
}

// DefaultLimits mirrors config.DefaultSettings.
func DefaultLimits() Limits {
	return LimitsFrom(config.DefaultSettings())
}

// withDefaults fills unset limits from DefaultLimits.
func (l Limits) withDefaults() Limits {
	def := DefaultLimits()
	if l.MaxStashes <= 0 {
		l.MaxStashes = def.MaxStashes
	}
	if l.MaxNoteLength <= 0 {
		l.MaxNoteLength = def.MaxNoteLength
	}
	return l
}
