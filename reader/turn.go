package reader

import (
	"regexp"
	"strings"

	"pkt.systems/loquax/schema"
)

var tagPattern = regexp.MustCompile(`#\[[^\]\n]*\]`)

// processTurn converts the raw text of one turn into ordered events: tag
// events and paragraph events interleaved by their position in the
// stream, followed by a single turn-complete or turn-incomplete event
// carrying any extracted fields.
func (r *Reader) processTurn(raw string, complete bool) []schema.SessionEvent {
	type tagItem struct {
		line  int
		event schema.SessionEvent
	}
	var tags []tagItem

	lines := strings.Split(raw, "\n")
	stripped := make([]string, len(lines))
	vanished := make([]bool, len(lines))
	for i, line := range lines {
		spans := tagPattern.FindAllString(line, -1)
		for _, span := range spans {
			tag, err := schema.ParseTag(span)
			if err != nil {
				if r.log != nil {
					r.log.Warn("unparseable tag dropped", "turn", r.turn, "tag", span, "err", err)
				}
				continue
			}
			event := schema.SessionEvent{Turn: r.turn}
			if mode, ok := schema.InputModeForTag(tag.Kind); ok {
				event.Kind = schema.EventModeChange
				event.Mode = mode
			} else {
				event.Kind = schema.EventGraphics
				event.Tag = &tag
			}
			tags = append(tags, tagItem{line: i, event: event})
		}
		bare := line
		if len(spans) > 0 {
			bare = tagPattern.ReplaceAllString(line, "")
		}
		bare = strings.TrimSpace(bare)
		stripped[i] = bare
		// A line that held only tags disappears entirely instead of
		// leaving a blank that would split the surrounding paragraph.
		vanished[i] = bare == "" && len(spans) > 0
	}

	blocks := r.buildBlocks(lines, stripped, vanished)
	blocks = dropRepeatedTitle(blocks)
	fields := r.extractFields(blocks)
	blocks = r.dropCruft(blocks)

	events := make([]schema.SessionEvent, 0, len(tags)+len(blocks)+1)
	ti, bi := 0, 0
	for ti < len(tags) || bi < len(blocks) {
		if bi >= len(blocks) || (ti < len(tags) && tags[ti].line <= blocks[bi].line) {
			events = append(events, tags[ti].event)
			ti++
			continue
		}
		events = append(events, schema.SessionEvent{
			Kind: schema.EventParagraph,
			Turn: r.turn,
			Text: blocks[bi].text,
		})
		bi++
	}

	kind := schema.EventTurnComplete
	if !complete {
		kind = schema.EventTurnIncomplete
	}
	if len(fields) == 0 {
		fields = nil
	}
	events = append(events, schema.SessionEvent{Kind: kind, Turn: r.turn, Fields: fields})
	return events
}

// paraBlock is one blank-line delimited run of prose. line is the index
// of its first line in the turn, used to interleave with tag events.
type paraBlock struct {
	line int
	text string
}

func (r *Reader) buildBlocks(lines, stripped []string, vanished []bool) []paraBlock {
	column := r.cfg.unwrapColumn()
	var blocks []paraBlock
	var run []string
	start := -1
	flush := func() {
		if len(run) == 0 {
			return
		}
		blocks = append(blocks, paraBlock{
			line: start,
			text: unwrapText(strings.Join(run, "\n"), column),
		})
		run = nil
		start = -1
	}
	for i := range lines {
		if vanished[i] {
			continue
		}
		if stripped[i] == "" {
			flush()
			continue
		}
		if start < 0 {
			start = i
		}
		run = append(run, stripped[i])
	}
	flush()
	return blocks
}

// dropRepeatedTitle removes a leading block that reappears as the first
// line of a later block. Some interpreters print the room name once on
// its own and again atop the full description.
func dropRepeatedTitle(blocks []paraBlock) []paraBlock {
	if len(blocks) <= 2 {
		return blocks
	}
	first := strings.TrimSpace(blocks[0].text)
	if first == "" {
		return blocks
	}
	for _, b := range blocks[1:] {
		if b.text == "" {
			continue
		}
		if strings.TrimSpace(firstLine(b.text)) == first {
			return blocks[1:]
		}
	}
	return blocks
}

// extractFields applies each extraction rule at most once across the
// blocks in order, removing the matched span from its block and storing
// the trimmed value under the rule name. A newline directly after the
// match is absorbed so the removal does not leave a double blank.
func (r *Reader) extractFields(blocks []paraBlock) map[string]string {
	fields := make(map[string]string)
	for _, rule := range r.extract {
		if rule.Pattern == nil {
			continue
		}
		for bi := range blocks {
			b := &blocks[bi]
			if b.text == "" {
				continue
			}
			loc := rule.Pattern.FindStringIndex(b.text)
			if loc == nil {
				continue
			}
			fields[rule.Name] = strings.TrimSpace(b.text[loc[0]:loc[1]])
			end := loc[1]
			if end < len(b.text) && b.text[end] == '\n' {
				end++
			}
			b.text = strings.TrimSpace(b.text[:loc[0]] + b.text[end:])
			break
		}
	}
	return fields
}

func (r *Reader) dropCruft(blocks []paraBlock) []paraBlock {
	kept := blocks[:0]
	for _, b := range blocks {
		if b.text == "" {
			continue
		}
		dropped := false
		for _, rule := range r.cfg.DropRules {
			if rule.Pattern != nil && rule.Pattern.MatchString(b.text) {
				if r.log != nil {
					r.log.Trace("paragraph dropped", "turn", r.turn, "rule", rule.Name)
				}
				dropped = true
				break
			}
		}
		if !dropped {
			kept = append(kept, b)
		}
	}
	return kept
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
