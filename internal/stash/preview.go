package stash

import (
	"regexp"
	"strings"

	"github.com/rivo/uniseg"
)

const (
	previewLength = 100
	emptyPreview  = "Empty note"
)

var newlineRun = regexp.MustCompile(`[\r\n]+`)

// GeneratePreview returns the first 100 characters of the trimmed content
// with newline runs collapsed to single spaces, or "Empty note".
func GeneratePreview(content string) string {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return emptyPreview
	}
	flat := newlineRun.ReplaceAllString(trimmed, " ")
	return truncateGraphemes(flat, previewLength)
}

// truncateGraphemes cuts s after n user-perceived characters so combined
// emoji and accents are never split.
func truncateGraphemes(s string, n int) string {
	g := uniseg.NewGraphemes(s)
	count := 0
	for g.Next() {
		count++
		if count == n {
			_, end := g.Positions()
			return s[:end]
		}
	}
	return s
}
