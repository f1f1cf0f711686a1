package core

import "strings"

const defaultTranscriptMax = 1000

// transcriptEntry is one line of session history. kind '>' marks player
// commands, ':' marks game prose.
type transcriptEntry struct {
	kind byte
	text string
}

type transcriptBuffer struct {
	entries []transcriptEntry
	max     int
}

func newTranscript(max int) *transcriptBuffer {
	if max <= 0 {
		max = defaultTranscriptMax
	}
	return &transcriptBuffer{max: max}
}

func (t *transcriptBuffer) Append(kind byte, text string) bool {
	if t == nil {
		return false
	}
	if strings.TrimSpace(text) == "" {
		return false
	}
	t.entries = append(t.entries, transcriptEntry{kind: kind, text: text})
	if len(t.entries) > t.max {
		t.entries = t.entries[len(t.entries)-t.max:]
	}
	return true
}

// Render flows the history the way a paper transcript reads: each command
// on its own line behind a prompt, prose as printed.
func (t *transcriptBuffer) Render() string {
	if t == nil {
		return ""
	}
	lines := make([]string, 0, len(t.entries))
	for _, entry := range t.entries {
		if entry.kind == '>' {
			lines = append(lines, "\n>"+entry.text)
		} else {
			lines = append(lines, entry.text)
		}
	}
	return strings.Join(lines, "\n")
}

func (t *transcriptBuffer) Entries() []transcriptEntry {
	if t == nil {
		return nil
	}
	return append([]transcriptEntry(nil), t.entries...)
}
