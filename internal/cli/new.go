package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/runnerr0/scratchpad/internal/scratchpad"
	"github.com/runnerr0/scratchpad/internal/stash"
)

// Execute implements the go-flags Commander interface for NewCommand.
func (c *NewCommand) Execute(args []string) error {
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess, args)
	})
}

// executeWithSession runs the new logic against a provided session (used by tests).
func (c *NewCommand) executeWithSession(ctx context.Context, sess *scratchpad.Session, args []string) error {
	body, ok, err := readBody(c.Body, c.BodyFile, args)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("--body or --body-file is required for new command")
	}

	demoted := strings.TrimSpace(sess.Text()) != ""
	note, err := sess.NewNote(ctx, body)
	if err != nil {
		return fmt.Errorf("new note: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{
			"note":    toNoteJSON(*note, false, true),
			"stashed": demoted,
			"stashes": sess.Store().Count(),
		})
	}

	fmt.Printf("Started note %s (%s)\n", note.ID, formatTimestamp(note.Created()))
	if demoted {
		fmt.Println("  Previous note moved to stash.")
	}
	fmt.Printf("  Preview: %s\n", headline(*note, 72))
	return nil
}

// Execute implements the go-flags Commander interface for StashCommand.
func (c *StashCommand) Execute(args []string) error {
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess, args)
	})
}

// executeWithSession runs the stash logic against a provided session (used by tests).
func (c *StashCommand) executeWithSession(ctx context.Context, sess *scratchpad.Session, args []string) error {
	body, ok, err := readBody(c.Body, c.BodyFile, args)
	if err != nil {
		return err
	}

	var (
		note     *stash.Note
		stashErr error
	)
	if ok {
		note, stashErr = sess.Store().StashContent(ctx, body)
	} else {
		note, stashErr = sess.Stash(ctx)
	}
	if stashErr != nil {
		return fmt.Errorf("stash: %w", stashErr)
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{
			"note":    toNoteJSON(*note, false, false),
			"stashes": sess.Store().Count(),
		})
	}

	fmt.Printf("Stashed note %s (%d of %d)\n", note.ID, sess.Store().Count(), sess.Store().Limits().MaxStashes)
	fmt.Printf("  Preview: %s\n", headline(*note, 72))
	return nil
}
