package format

import (
	"fmt"
	"sort"
	"strings"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/schema"
)

// PlainRenderer formats session events as plain text lines.
type PlainRenderer struct {
	// Width wraps paragraph lines at word boundaries; zero disables
	// wrapping.
	Width int
	// ShowTags prints graphics tags and mode changes instead of
	// dropping them.
	ShowTags bool
	// ShowFields prints extracted banner fields when a turn completes.
	ShowFields bool
}

// NewPlainRenderer returns a default plain-text renderer.
func NewPlainRenderer() *PlainRenderer {
	return &PlainRenderer{}
}

// FormatEvent converts a SessionEvent into user-facing lines. Paragraphs
// end with a blank separator line so consecutive events read like game
// output.
func (p *PlainRenderer) FormatEvent(event schema.SessionEvent) ([]string, error) {
	switch event.Kind {
	case schema.EventParagraph:
		lines := wrapLines(splitLines(event.Text), p.Width)
		if len(lines) == 0 {
			return nil, nil
		}
		return append(lines, ""), nil
	case schema.EventGraphics:
		if !p.ShowTags || event.Tag == nil {
			return nil, nil
		}
		return []string{event.Tag.String()}, nil
	case schema.EventModeChange:
		if !p.ShowTags {
			return nil, nil
		}
		return []string{fmt.Sprintf("(input mode: %s)", event.Mode)}, nil
	case schema.EventTurnComplete:
		return p.formatFields(event.Fields), nil
	case schema.EventTurnIncomplete:
		lines := p.formatFields(event.Fields)
		return append(lines, "(output ended before a prompt)"), nil
	default:
		return nil, nil
	}
}

// FormatTurn renders an assembled turn: paragraphs in order, graphics
// and mode per ShowTags, fields per ShowFields, and a notice when the
// turn ended without a prompt.
func (p *PlainRenderer) FormatTurn(turn *core.Turn) []string {
	if turn == nil {
		return nil
	}
	var lines []string
	for _, paragraph := range turn.Paragraphs {
		wrapped := wrapLines(splitLines(paragraph), p.Width)
		if len(wrapped) == 0 {
			continue
		}
		lines = append(lines, wrapped...)
		lines = append(lines, "")
	}
	if p.ShowTags {
		for _, tag := range turn.Graphics {
			lines = append(lines, tag.String())
		}
		if turn.Mode != schema.ModeUnset {
			lines = append(lines, fmt.Sprintf("(input mode: %s)", turn.Mode))
		}
	}
	lines = append(lines, p.formatFields(turn.Fields)...)
	if !turn.Complete {
		lines = append(lines, "(output ended before a prompt)")
	}
	return lines
}

func (p *PlainRenderer) formatFields(fields map[string]string) []string {
	if !p.ShowFields || len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("%s: %s", name, fields[name]))
	}
	return lines
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func wrapLines(lines []string, width int) []string {
	if width <= 0 {
		return lines
	}
	wrapped := make([]string, 0, len(lines))
	for _, line := range lines {
		wrapped = append(wrapped, wrapLine(line, width)...)
	}
	return wrapped
}

// wrapLine breaks at the last space before width, or mid-word when a
// single word exceeds it.
func wrapLine(line string, width int) []string {
	if len(line) <= width {
		return []string{line}
	}
	var out []string
	for len(line) > width {
		cut := strings.LastIndex(line[:width+1], " ")
		if cut <= 0 {
			cut = width
		}
		out = append(out, strings.TrimRight(line[:cut], " "))
		line = strings.TrimLeft(line[cut:], " ")
	}
	if line != "" {
		out = append(out, line)
	}
	return out
}
