package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/scratchpad/internal/scratchpad"
	"github.com/runnerr0/scratchpad/internal/stash"
)

// Execute implements the go-flags Commander interface for ListCommand.
func (c *ListCommand) Execute(args []string) error {
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess)
	})
}

// executeWithSession runs the listing against a provided session (for testing).
func (c *ListCommand) executeWithSession(_ context.Context, sess *scratchpad.Session) error {
	if c.Offset < 0 {
		return fmt.Errorf("invalid --offset value %d", c.Offset)
	}

	total := sess.Store().Count()
	notes := sess.Store().GetStashes(c.Limit, c.Offset)

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(notes, total)
	}
	return c.printHuman(notes, total)
}

func (c *ListCommand) printHuman(notes []stash.Note, total int) error {
	if len(notes) == 0 {
		if total == 0 {
			fmt.Println("No stashed notes")
		} else {
			fmt.Printf("No stashed notes after offset %d (%d total)\n", c.Offset, total)
		}
		return nil
	}

	noteWord := "notes"
	if total == 1 {
		noteWord = "note"
	}
	fmt.Printf("Showing %d-%d of %d stashed %s\n\n", c.Offset+1, c.Offset+len(notes), total, noteWord)

	for i, n := range notes {
		fmt.Printf("%d. %s\n", i+1+c.Offset, headline(n, c.Width))
		fmt.Printf("   %s · %s\n", n.ID, formatTimestamp(n.Updated()))

		if i < len(notes)-1 {
			fmt.Println()
		}
	}

	return nil
}

type jsonListOutput struct {
	Count  int        `json:"count"`
	Total  int        `json:"total"`
	Offset int        `json:"offset"`
	Notes  []noteJSON `json:"notes"`
}

func (c *ListCommand) printJSON(notes []stash.Note, total int) error {
	out := jsonListOutput{
		Count:  len(notes),
		Total:  total,
		Offset: c.Offset,
		Notes:  make([]noteJSON, len(notes)),
	}
	for i, n := range notes {
		out.Notes[i] = toNoteJSON(n, false, false)
	}
	return writeJSON(out)
}
