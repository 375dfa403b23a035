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

const editHelp = `Plain lines are appended to the current note. Commands:
  :undo         undo the last burst of edits
  :redo         redo
  :stash        copy the note into the stash
  :new <text>   stash the note and start a new one holding <text>
  :fetch <id>   load a stashed note
  :show         print the note
  :stats        print word, character and line counts
  :quit         save and exit (also on end of input)`

// Execute implements the go-flags Commander interface for EditCommand.
func (c *EditCommand) Execute(args []string) error {
	return withSession(c.globals, func(ctx context.Context, sess *scratchpad.Session) error {
		return c.executeWithSession(ctx, sess, os.Stdin)
	})
}

// executeWithSession runs the edit loop over in (for testing). Refused
// requests are reported and the loop continues; storage failures end it.
func (c *EditCommand) executeWithSession(ctx context.Context, sess *scratchpad.Session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, ":") {
			sess.AppendLine(line)
			continue
		}

		quit, err := c.command(ctx, sess, line)
		if err != nil {
			if !isNotice(err) {
				return err
			}
			fmt.Printf("! %v\n", err)
		}
		if quit {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}
	return sess.Flush(ctx)
}

func (c *EditCommand) command(ctx context.Context, sess *scratchpad.Session, line string) (bool, error) {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "q", "quit":
		return true, nil
	case "help":
		fmt.Println(editHelp)
	case "undo":
		if _, ok := sess.Undo(); !ok {
			fmt.Println("nothing to undo")
			return false, nil
		}
		fmt.Println("undone")
	case "redo":
		if _, ok := sess.Redo(); !ok {
			fmt.Println("nothing to redo")
			return false, nil
		}
		fmt.Println("redone")
	case "stash":
		n, err := sess.Stash(ctx)
		if err != nil {
			return false, err
		}
		fmt.Printf("stashed %s\n", n.ID)
	case "new":
		n, err := sess.NewNote(ctx, arg)
		if err != nil {
			return false, err
		}
		fmt.Printf("new note %s\n", n.ID)
	case "fetch":
		if arg == "" {
			fmt.Println("usage: :fetch <id>")
			return false, nil
		}
		n, err := sess.FetchStash(ctx, arg)
		if err != nil {
			return false, err
		}
		if n == nil {
			fmt.Printf("no stashed note %s\n", arg)
			return false, nil
		}
		fmt.Printf("fetched %s\n", n.ID)
	case "show":
		fmt.Println(sess.Text())
	case "stats":
		fmt.Println(sess.Stats().String())
	default:
		fmt.Printf("unknown command :%s (try :help)\n", name)
	}
	return false, nil
}
