package cli

import (
	"context"
	"fmt"

	"github.com/runnerr0/scratchpad/internal/scratchpad"
)

// Execute implements the go-flags Commander interface for DeleteCommand.
func (c *DeleteCommand) Execute(args []string) error {
	if c.ID == "" {
		return fmt.Errorf("--id is required for delete command")
	}
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess)
	})
}

// executeWithSession deletes a note through a provided session (for testing).
func (c *DeleteCommand) executeWithSession(ctx context.Context, sess *scratchpad.Session) error {
	if cur := sess.Store().Current(); cur != nil && cur.ID == c.ID {
		return fmt.Errorf("%s is the current note; start a new note instead of deleting it", c.ID)
	}

	_, existed := sess.Store().Lookup(c.ID)
	if err := sess.Store().DeleteStash(ctx, c.ID); err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{
			"id":      c.ID,
			"deleted": existed,
			"stashes": sess.Store().Count(),
		})
	}

	if !existed {
		fmt.Printf("No stashed note %s. Nothing deleted.\n", c.ID)
		return nil
	}
	fmt.Printf("Deleted note %s. %d stashed notes remain.\n", c.ID, sess.Store().Count())
	return nil
}
