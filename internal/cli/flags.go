package cli

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to settings file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging on stderr"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// NewCommand: move the current note into the stash list and start a new one.
type NewCommand struct {
	Body     string `long:"body" description:"Inline note text"`
	BodyFile string `long:"body-file" description:"Path to file containing note text ('-' for stdin)"`

	globals *GlobalFlags
	version string
}

// StashCommand: store text as a stashed note without touching the current one.
type StashCommand struct {
	Body     string `long:"body" description:"Inline note text (defaults to the current note)"`
	BodyFile string `long:"body-file" description:"Path to file containing note text ('-' for stdin)"`

	globals *GlobalFlags
	version string
}

// ListCommand: list stashed notes, most recently updated first.
type ListCommand struct {
	Limit  int `long:"limit" description:"Maximum notes (0 for all)" default:"20"`
	Offset int `long:"offset" description:"Skip first N notes" default:"0"`
	Width  int `long:"width" description:"Preview width in columns" default:"72"`

	globals *GlobalFlags
	version string
}

// FetchCommand: make a stashed note current.
type FetchCommand struct {
	ID string `long:"id" description:"Note ID (required)"`

	globals *GlobalFlags
	version string
}

// ShowCommand: print the current note or a stashed one.
type ShowCommand struct {
	ID     string `long:"id" description:"Note ID (defaults to the current note)"`
	Format string `long:"format" description:"Output format: content | preview | json" default:"content"`

	globals *GlobalFlags
	version string
}

// DeleteCommand: delete one stashed note.
type DeleteCommand struct {
	ID string `long:"id" description:"Note ID (required)"`

	globals *GlobalFlags
	version string
}

// ClearCommand: delete every stashed note with safety confirmation.
type ClearCommand struct {
	All   bool `long:"all" description:"Required flag to confirm clear intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
}

// StatusCommand: show counts for the current note and the stash.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// SettingsCommand: print or change settings.
type SettingsCommand struct {
	Set []string `long:"set" description:"Change a setting, key=value (repeatable)"`

	globals *GlobalFlags
	version string
}

// EditCommand: line-oriented editing session on stdin.
type EditCommand struct {
	globals *GlobalFlags
	version string
}
