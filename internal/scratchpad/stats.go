package scratchpad

import (
	"fmt"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/runnerr0/scratchpad/internal/config"
)

// Stats holds buffer counts and which of them the settings ask to show.
type Stats struct {
	Words int
	Chars int
	Lines int

	ShowWords bool
	ShowChars bool
	ShowLines bool
}

// CountText computes word, character and line counts for text. Characters
// are grapheme clusters; an empty buffer has zero lines.
func CountText(text string, settings *config.Settings) Stats {
	st := Stats{
		Words: len(strings.Fields(text)),
		Chars: uniseg.GraphemeClusterCount(text),
	}
	if text != "" {
		st.Lines = strings.Count(text, "\n") + 1
	}
	if settings != nil {
		st.ShowWords = settings.ShowWordCount
		st.ShowChars = settings.ShowCharCount
		st.ShowLines = settings.ShowLineCount
	}
	return st
}

// String renders the enabled counts, e.g. "3 words, 17 chars, 2 lines".
func (st Stats) String() string {
	var parts []string
	if st.ShowWords {
		parts = append(parts, plural(st.Words, "word"))
	}
	if st.ShowChars {
		parts = append(parts, plural(st.Chars, "char"))
	}
	if st.ShowLines {
		parts = append(parts, plural(st.Lines, "line"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
