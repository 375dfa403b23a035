package config

// DefaultSettings returns Settings populated with all default values.
func DefaultSettings() *Settings {
	return &Settings{
		MaxStashes:       20,
		AutoEvictOldest:  true,
		MaxNoteLength:    50000,
		ShowWordCount:    true,
		ShowCharCount:    true,
		ShowLineCount:    true,
		AutoStashOnFetch: true,
		Storage: StorageConfig{
			Backend:         BackendFile,
			Dir:             "~/.config/scratchpad",
			DataFile:        "data.json",
			DrawingFile:     "drawing.png.txt",
			SQLiteFile:      "scratchpad.db",
			FlushDebounceMs: 500,
		},
		History: HistoryConfig{
			TextCapacity:   50,
			RasterCapacity: 20,
			DebounceMs:     600,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
