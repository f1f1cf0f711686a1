package command

import (
	"strings"
)

// Command is a parsed slash command. Args are whitespace-split;
// Remainder is everything after the name with spacing inside kept, for
// arguments like file paths.
type Command struct {
	Name      string
	Args      []string
	Raw       string
	Remainder string
}

// Parse returns the Command when input starts with "/". Other lines are
// game input and pass through untouched.
func Parse(input string) (Command, bool) {
	trimmed := strings.TrimLeft(input, " \t")
	if !strings.HasPrefix(trimmed, "/") {
		return Command{}, false
	}
	raw := strings.TrimSpace(trimmed[1:])
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return Command{Raw: raw}, true
	}
	cmd := Command{
		Name:      strings.ToLower(fields[0]),
		Raw:       raw,
		Remainder: remainderAfterTokens(raw, 1),
	}
	if len(fields) > 1 {
		cmd.Args = fields[1:]
	}
	return cmd, true
}

// remainderAfterTokens drops count whitespace-separated tokens from the
// front of raw and returns the trimmed rest.
func remainderAfterTokens(raw string, count int) string {
	rest := raw
	for ; count > 0; count-- {
		rest = strings.TrimLeft(rest, " \t\r\n")
		cut := strings.IndexAny(rest, " \t\r\n")
		if cut < 0 {
			return ""
		}
		rest = rest[cut:]
	}
	return strings.TrimSpace(rest)
}
