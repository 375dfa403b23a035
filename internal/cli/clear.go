package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/runnerr0/scratchpad/internal/scratchpad"
)

// Execute implements the go-flags Commander interface for ClearCommand.
func (c *ClearCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("clear requires --all flag for safety")
	}
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess, os.Stdin)
	})
}

// executeWithSession clears the stash of a provided session, reading the
// confirmation from in (for testing).
func (c *ClearCommand) executeWithSession(ctx context.Context, sess *scratchpad.Session, in io.Reader) error {
	if !c.All {
		return fmt.Errorf("clear requires --all flag for safety")
	}

	count := sess.Store().Count()

	// Confirmation prompt unless --force
	if !c.Force {
		fmt.Printf("⚠ WARNING: This will permanently delete all %d stashed notes.\n", count)
		fmt.Println("  The current note is kept.")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		fmt.Print(`Type "CLEAR" to confirm: `)

		scanner := bufio.NewScanner(in)
		if !scanner.Scan() {
			return fmt.Errorf("aborted: no input received")
		}
		input := strings.TrimSpace(scanner.Text())
		if input != "CLEAR" {
			return fmt.Errorf("aborted: confirmation text did not match")
		}
	}

	if err := sess.Store().ClearAllStashes(ctx); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	// Output
	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{
			"cleared": count,
			"message": "all stashed notes deleted",
		})
	}

	fmt.Printf("Cleared %d stashed notes. The stash is empty.\n", count)
	return nil
}
