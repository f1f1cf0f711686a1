package schema

// EventKind is the kind of a host-side session event.
type EventKind string

const (
	// EventParagraph carries one block of game prose.
	EventParagraph EventKind = "paragraph"
	// EventGraphics carries one graphics tag.
	EventGraphics EventKind = "graphics"
	// EventModeChange announces an input-mode transition.
	EventModeChange EventKind = "mode_change"
	// EventTurnComplete ends a turn that reached the interpreter's prompt.
	EventTurnComplete EventKind = "turn_complete"
	// EventTurnIncomplete ends a turn cut short by interpreter exit.
	EventTurnIncomplete EventKind = "turn_incomplete"
)

// SessionEvent is one structured event reconstructed from the interpreter
// stream. Paragraph and graphics events preserve original stream order
// inside a turn; a turn_complete or turn_incomplete event closes each turn.
type SessionEvent struct {
	Kind   EventKind         `json:"kind"`
	Turn   int               `json:"turn,omitempty"`
	Text   string            `json:"text,omitempty"`
	Tag    *Tag              `json:"tag,omitempty"`
	Mode   InputMode         `json:"mode,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Terminal reports whether the event closes a turn.
func (e SessionEvent) Terminal() bool {
	return e.Kind == EventTurnComplete || e.Kind == EventTurnIncomplete
}
