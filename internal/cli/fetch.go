package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/scratchpad/internal/scratchpad"
)

// Execute implements the go-flags Commander interface for FetchCommand.
func (c *FetchCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for fetch command")
	}
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess)
	})
}

// executeWithSession runs fetch against a provided session (for testing).
func (c *FetchCommand) executeWithSession(ctx context.Context, sess *scratchpad.Session) error {
	before := sess.Store().Count()
	cur := sess.Store().Current()
	alreadyCurrent := cur != nil && cur.ID == c.ID

	note, err := sess.FetchStash(ctx, c.ID)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	if note == nil {
		return fmt.Errorf("note not found: %s", c.ID)
	}
	autoStashed := !alreadyCurrent && sess.Store().Count() >= before

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{
			"note":         toNoteJSON(*note, true, true),
			"auto_stashed": autoStashed,
		})
	}

	fmt.Printf("Fetched note %s\n", note.ID)
	if autoStashed {
		fmt.Println("  Previous note moved to stash.")
	}
	fmt.Printf("  Preview: %s\n", headline(*note, 72))
	return nil
}
