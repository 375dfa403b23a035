package stash

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// blobKind tags the persisted shapes the store understands.
type blobKind int

const (
	blobEmpty blobKind = iota
	blobLegacy
	blobCurrent
)

func (k blobKind) String() string {
	switch k {
	case blobLegacy:
		return "legacy"
	case blobCurrent:
		return "current"
	default:
		return "empty"
	}
}

// legacyBlob is the single-note shape written before stashes existed.
type legacyBlob struct {
	Text   string `json:"text"`
	Canvas string `json:"canvas,omitempty"`
}

// blob is the decoded persisted value: exactly one of legacy/current is
// meaningful, selected by kind.
type blob struct {
	kind    blobKind
	legacy  legacyBlob
	current Data
}

// decodeBlob classifies raw bytes. Malformed input yields an empty blob
// together with the parse error, so callers can log it and carry on.
func decodeBlob(raw []byte) (blob, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return blob{kind: blobEmpty}, nil
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return blob{kind: blobEmpty}, fmt.Errorf("malformed scratchpad blob: %w", err)
	}

	_, hasStashes := fields["stashes"]
	_, hasCurrent := fields["currentStash"]
	if hasStashes || hasCurrent {
		var d Data
		if err := json.Unmarshal(raw, &d); err != nil {
			return blob{kind: blobEmpty}, fmt.Errorf("malformed scratchpad blob: %w", err)
		}
		return blob{kind: blobCurrent, current: d}, nil
	}

	_, hasText := fields["text"]
	_, hasCanvas := fields["canvas"]
	if hasText || hasCanvas {
		var l legacyBlob
		if err := json.Unmarshal(raw, &l); err != nil {
			return blob{kind: blobEmpty}, fmt.Errorf("malformed legacy blob: %w", err)
		}
		return blob{kind: blobLegacy, legacy: l}, nil
	}

	return blob{kind: blobEmpty}, nil
}

// migrate turns any decoded blob into current-schema data. It is total:
// every input produces a valid Data. The legacy canvas, if any, is
// returned separately because the current schema has no place for it.
func migrate(b blob, newNote func(content string) Note) (Data, string) {
	switch b.kind {
	case blobCurrent:
		return normalize(b.current), ""
	case blobLegacy:
		d := Data{Stashes: []Note{}}
		if strings.TrimSpace(b.legacy.Text) != "" {
			n := newNote(b.legacy.Text)
			d.CurrentStash = &n
		}
		return d, b.legacy.Canvas
	default:
		return Data{Stashes: []Note{}}, ""
	}
}

// normalize repairs data written by older or foreign writers: notes
// without ids are dropped, duplicate ids keep their first occurrence, and
// the current note never also appears in the list.
func normalize(d Data) Data {
	out := Data{Stashes: make([]Note, 0, len(d.Stashes))}
	seen := make(map[string]bool, len(d.Stashes)+1)
	if d.CurrentStash != nil && d.CurrentStash.ID != "" {
		cur := *d.CurrentStash
		if cur.Preview == "" {
			cur.Preview = GeneratePreview(cur.Content)
		}
		out.CurrentStash = &cur
		seen[cur.ID] = true
	}
	for _, n := range d.Stashes {
		if n.ID == "" || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		if n.Preview == "" {
			n.Preview = GeneratePreview(n.Content)
		}
		out.Stashes = append(out.Stashes, n)
	}
	return out
}
