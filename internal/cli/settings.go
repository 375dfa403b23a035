package cli

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/scratchpad/internal/config"
)

// Execute implements the go-flags Commander interface for SettingsCommand.
func (c *SettingsCommand) Execute(args []string) error {
	path, err := resolveSettingsPath(c.globals)
	if err != nil {
		return fmt.Errorf("resolve settings path: %w", err)
	}
	return c.executeWithPath(context.Background(), path)
}

// executeWithPath prints or updates the settings file at path (for testing).
func (c *SettingsCommand) executeWithPath(_ context.Context, path string) error {
	var (
		settings *config.Settings
		err      error
	)
	if len(c.Set) == 0 {
		settings, err = config.LoadOrCreateAt(path)
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
	} else {
		settings, err = c.apply(path)
		if err != nil {
			return err
		}
	}

	if c.globals != nil && c.globals.JSON {
		return writeJSON(map[string]any{
			"path":     path,
			"updated":  len(c.Set) > 0,
			"settings": settings,
		})
	}

	if len(c.Set) > 0 {
		fmt.Printf("Updated %d setting(s) in %s\n\n", len(c.Set), path)
	} else {
		fmt.Printf("# %s\n", path)
	}
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	if err := enc.Encode(settings); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	return enc.Close()
}

// apply checks every assignment before touching the file, so one bad
// key=value leaves the file unchanged.
func (c *SettingsCommand) apply(path string) (*config.Settings, error) {
	type assignment struct{ key, value string }
	assignments := make([]assignment, 0, len(c.Set))
	scratch := config.DefaultSettings()
	for _, arg := range c.Set {
		key, value, err := config.ParseAssignment(arg)
		if err != nil {
			return nil, err
		}
		if err := scratch.Set(key, value); err != nil {
			return nil, err
		}
		assignments = append(assignments, assignment{key, value})
	}

	settings, err := config.Update(path, func(s *config.Settings) {
		for _, a := range assignments {
			// Already checked against scratch settings.
			_ = s.Set(a.key, a.value)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("update settings: %w", err)
	}
	return settings, nil
}
