package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Default settings file path.
const DefaultSettingsPath = "~/.config/scratchpad/settings.yaml"

// Storage backends understood by storage.Open.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Settings holds process-wide scratchpad settings. It is loaded once at
// startup and only changed through Update.
type Settings struct {
	MaxStashes       int  `yaml:"max_stashes" json:"max_stashes"`
	AutoEvictOldest  bool `yaml:"auto_evict_oldest" json:"auto_evict_oldest"`
	MaxNoteLength    int  `yaml:"max_note_length" json:"max_note_length"`
	ShowWordCount    bool `yaml:"show_word_count" json:"show_word_count"`
	ShowCharCount    bool `yaml:"show_char_count" json:"show_char_count"`
	ShowLineCount    bool `yaml:"show_line_count" json:"show_line_count"`
	AutoStashOnFetch bool `yaml:"auto_stash_on_fetch" json:"auto_stash_on_fetch"`

	Storage StorageConfig `yaml:"storage" json:"storage"`
	History HistoryConfig `yaml:"history" json:"history"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

type StorageConfig struct {
	Backend         string `yaml:"backend" json:"backend"`
	Dir             string `yaml:"dir" json:"dir"`
	DataFile        string `yaml:"data_file" json:"data_file"`
	DrawingFile     string `yaml:"drawing_file" json:"drawing_file"`
	SQLiteFile      string `yaml:"sqlite_file" json:"sqlite_file"`
	FlushDebounceMs int    `yaml:"flush_debounce_ms" json:"flush_debounce_ms"`
}

type HistoryConfig struct {
	TextCapacity   int `yaml:"text_capacity" json:"text_capacity"`
	RasterCapacity int `yaml:"raster_capacity" json:"raster_capacity"`
	DebounceMs     int `yaml:"debounce_ms" json:"debounce_ms"`
}

type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
}

// FlushDebounce is the quiet period before the current note is written.
func (s *Settings) FlushDebounce() time.Duration {
	return time.Duration(s.Storage.FlushDebounceMs) * time.Millisecond
}

// HistoryDebounce is the quiet period before an edit burst becomes one
// history entry.
func (s *Settings) HistoryDebounce() time.Duration {
	return time.Duration(s.History.DebounceMs) * time.Millisecond
}

// Validate reports every setting that cannot be used.
func (s *Settings) Validate() error {
	var errs []error
	if s.MaxStashes < 1 {
		errs = append(errs, fmt.Errorf("max_stashes must be at least 1, got %d", s.MaxStashes))
	}
	if s.MaxNoteLength < 1 {
		errs = append(errs, fmt.Errorf("max_note_length must be at least 1, got %d", s.MaxNoteLength))
	}
	if s.Storage.FlushDebounceMs < 0 {
		errs = append(errs, fmt.Errorf("storage.flush_debounce_ms must not be negative"))
	}
	if s.History.DebounceMs < 0 {
		errs = append(errs, fmt.Errorf("history.debounce_ms must not be negative"))
	}
	switch s.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage.backend %q", s.Storage.Backend))
	}
	return errors.Join(errs...)
}

// Load reads a YAML settings file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return s, nil
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the settings from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Settings, error) {
	path, err := ExpandPath(DefaultSettingsPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the settings from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		s := DefaultSettings()
		if err := Save(path, s); err != nil {
			return nil, err
		}
		return s, nil
	}

	return Load(path)
}

// Save writes s to path as YAML, replacing the file atomically.
func Save(path string, s *Settings) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating settings directory: %w", err)
	}

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling settings: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("writing settings: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing settings: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("writing settings: %w", err)
	}
	return nil
}

// Update is the only mutation path for persisted settings: it loads (or
// creates) the file at path, applies mutate, validates and saves the result.
// The file is left untouched when validation fails.
func Update(path string, mutate func(*Settings)) (*Settings, error) {
	s, err := LoadOrCreateAt(path)
	if err != nil {
		return nil, err
	}

	mutate(s)

	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	if err := Save(path, s); err != nil {
		return nil, err
	}
	return s, nil
}
