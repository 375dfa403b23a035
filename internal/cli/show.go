package cli

import (
	"context"
	"fmt"

	"github.com/muesli/reflow/wordwrap"

	"github.com/runnerr0/scratchpad/internal/scratchpad"
	"github.com/runnerr0/scratchpad/internal/stash"
)

const previewWrap = 76

// Execute implements the go-flags Commander interface for ShowCommand.
func (c *ShowCommand) Execute(args []string) error {
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess)
	})
}

// executeWithSession prints a note from a provided session (for testing).
func (c *ShowCommand) executeWithSession(_ context.Context, sess *scratchpad.Session) error {
	var (
		note    stash.Note
		current bool
	)
	if c.ID == "" {
		cur := sess.Store().Current()
		if cur == nil {
			if c.globals != nil && c.globals.JSON {
				return writeJSON(map[string]any{"note": nil})
			}
			fmt.Println("No current note")
			return nil
		}
		note, current = *cur, true
	} else {
		n, ok := sess.Store().Lookup(c.ID)
		if !ok {
			return fmt.Errorf("note not found: %s", c.ID)
		}
		cur := sess.Store().Current()
		note, current = n, cur != nil && cur.ID == n.ID
	}

	// JSON output (--json global flag)
	if c.globals != nil && c.globals.JSON {
		return writeJSON(toNoteJSON(note, true, current))
	}

	switch c.Format {
	case "preview":
		fmt.Println(wordwrap.String(note.Preview, previewWrap))
	case "json":
		return writeJSON(toNoteJSON(note, true, current))
	case "content", "":
		fmt.Println(note.Content)
	default:
		return fmt.Errorf("unknown --format %q (use content, preview or json)", c.Format)
	}
	return nil
}
