package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

type setter func(s *Settings, value string) error

func intField(field func(s *Settings) *int) setter {
	return func(s *Settings, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("not an integer: %q", value)
		}
		*field(s) = n
		return nil
	}
}

func boolField(field func(s *Settings) *bool) setter {
	return func(s *Settings, value string) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("not a boolean: %q", value)
		}
		*field(s) = b
		return nil
	}
}

func stringField(field func(s *Settings) *string) setter {
	return func(s *Settings, value string) error {
		*field(s) = value
		return nil
	}
}

// setters maps the yaml key path of every editable setting.
var setters = map[string]setter{
	"max_stashes":         intField(func(s *Settings) *int { return &s.MaxStashes }),
	"auto_evict_oldest":   boolField(func(s *Settings) *bool { return &s.AutoEvictOldest }),
	"max_note_length":     intField(func(s *Settings) *int { return &s.MaxNoteLength }),
	"show_word_count":     boolField(func(s *Settings) *bool { return &s.ShowWordCount }),
	"show_char_count":     boolField(func(s *Settings) *bool { return &s.ShowCharCount }),
	"show_line_count":     boolField(func(s *Settings) *bool { return &s.ShowLineCount }),
	"auto_stash_on_fetch": boolField(func(s *Settings) *bool { return &s.AutoStashOnFetch }),

	"storage.backend":           stringField(func(s *Settings) *string { return &s.Storage.Backend }),
	"storage.dir":               stringField(func(s *Settings) *string { return &s.Storage.Dir }),
	"storage.data_file":         stringField(func(s *Settings) *string { return &s.Storage.DataFile }),
	"storage.drawing_file":      stringField(func(s *Settings) *string { return &s.Storage.DrawingFile }),
	"storage.sqlite_file":       stringField(func(s *Settings) *string { return &s.Storage.SQLiteFile }),
	"storage.flush_debounce_ms": intField(func(s *Settings) *int { return &s.Storage.FlushDebounceMs }),

	"history.text_capacity":   intField(func(s *Settings) *int { return &s.History.TextCapacity }),
	"history.raster_capacity": intField(func(s *Settings) *int { return &s.History.RasterCapacity }),
	"history.debounce_ms":     intField(func(s *Settings) *int { return &s.History.DebounceMs }),

	"logging.level": stringField(func(s *Settings) *string { return &s.Logging.Level }),
}

// Keys returns every key accepted by Set, sorted.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns one setting from its string form. Nested settings use a
// dotted path such as "storage.backend". The result is not validated.
func (s *Settings) Set(key, value string) error {
	fn, ok := setters[strings.ToLower(strings.TrimSpace(key))]
	if !ok {
		return fmt.Errorf("unknown setting %q", key)
	}
	if err := fn(s, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// ParseAssignment splits "key=value".
func ParseAssignment(arg string) (key, value string, err error) {
	key, value, ok := strings.Cut(arg, "=")
	if !ok || strings.TrimSpace(key) == "" {
		return "", "", fmt.Errorf("expected key=value, got %q", arg)
	}
	return key, value, nil
}
