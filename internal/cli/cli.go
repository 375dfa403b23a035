package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	New      *NewCommand
	Stash    *StashCommand
	List     *ListCommand
	Fetch    *FetchCommand
	Show     *ShowCommand
	Delete   *DeleteCommand
	Clear    *ClearCommand
	Status   *StatusCommand
	Settings *SettingsCommand
	Edit     *EditCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "scratchpad"
	parser.LongDescription = "A local scratchpad with undo history and a stash of saved notes."

	cmds := &commands{
		New:      &NewCommand{globals: &globals, version: version},
		Stash:    &StashCommand{globals: &globals, version: version},
		List:     &ListCommand{globals: &globals, version: version},
		Fetch:    &FetchCommand{globals: &globals, version: version},
		Show:     &ShowCommand{globals: &globals, version: version},
		Delete:   &DeleteCommand{globals: &globals, version: version},
		Clear:    &ClearCommand{globals: &globals, version: version},
		Status:   &StatusCommand{globals: &globals, version: version},
		Settings: &SettingsCommand{globals: &globals, version: version},
		Edit:     &EditCommand{globals: &globals, version: version},
	}

	parser.AddCommand("new", "Start a new note", "Move the current note into the stash list and start a new current note.", cmds.New)
	parser.AddCommand("stash", "Stash text as a new note", "Store text (or the current note) as a new stashed note. The current note is unchanged.", cmds.Stash)
	parser.AddCommand("list", "List stashed notes", "List stashed notes, most recently updated first.", cmds.List)
	parser.AddCommand("fetch", "Make a stashed note current", "Make a stashed note current. With auto_stash_on_fetch the current note is stashed first.", cmds.Fetch)
	parser.AddCommand("show", "Print a note", "Print the current note, or a stashed note by ID.", cmds.Show)
	parser.AddCommand("delete", "Delete a stashed note", "Delete one stashed note by ID.", cmds.Delete)
	parser.AddCommand("clear", "Delete ALL stashed notes", "Delete every stashed note. The current note is kept. Destructive operation with safety prompt.", cmds.Clear)
	parser.AddCommand("status", "Show scratchpad statistics", "Show counts for the current note, the stash, and the storage backend.", cmds.Status)
	parser.AddCommand("settings", "Print or change settings", "Print settings, or change them with --set key=value.", cmds.Settings)
	parser.AddCommand("edit", "Edit the current note on stdin", "Append lines from stdin to the current note. Lines starting with ':' are commands (:help).", cmds.Edit)

	return parser, &globals, cmds
}

// Run is the main entry point for the scratchpad CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("scratchpad %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
