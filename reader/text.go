package reader

import (
	"fmt"
	"regexp"
	"strings"
)

// ExtractRule captures boilerplate out of a turn. The first match across
// the turn's paragraphs is removed from the prose and surfaced as a named
// field on the turn-complete event.
type ExtractRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// DropRule discards any paragraph whose text matches.
type DropRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// CompileExtractRules builds extraction rules from name/pattern pairs.
// Patterns are compiled in multi-line mode so ^ and $ anchor per line.
func CompileExtractRules(rules map[string]string, order []string) ([]ExtractRule, error) {
	out := make([]ExtractRule, 0, len(order))
	for _, name := range order {
		pattern, ok := rules[name]
		if !ok {
			continue
		}
		re, err := regexp.Compile("(?m)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("extract rule %q: %w", name, err)
		}
		out = append(out, ExtractRule{Name: name, Pattern: re})
	}
	return out, nil
}

// CompileDropRules builds drop rules from name/pattern pairs in the given
// order.
func CompileDropRules(rules map[string]string, order []string) ([]DropRule, error) {
	out := make([]DropRule, 0, len(order))
	for _, name := range order {
		pattern, ok := rules[name]
		if !ok {
			continue
		}
		re, err := regexp.Compile("(?m)" + pattern)
		if err != nil {
			return nil, fmt.Errorf("drop rule %q: %w", name, err)
		}
		out = append(out, DropRule{Name: name, Pattern: re})
	}
	return out, nil
}

// DefaultExtractRules covers the banner and status noise the common
// interpreters print: a status bar with the room name and score, loader
// headers, release lines, and the input prompt itself.
func DefaultExtractRules() []ExtractRule {
	return []ExtractRule{
		{Name: "title", Pattern: regexp.MustCompile(`(?m)^(.*) {5,}(.*)$`)},
		{Name: "title2", Pattern: regexp.MustCompile(`(?m)^ {5,}(.*)\w$`)},
		{Name: "header", Pattern: regexp.MustCompile(`(?m)^Using normal.*\nLoading.*$`)},
		{Name: "trademark", Pattern: regexp.MustCompile(`(?m)^.*trademark.*nfocom.*$`)},
		{Name: "release", Pattern: regexp.MustCompile(`(?m)^Release.*Serial.*$`)},
		{Name: "warning", Pattern: regexp.MustCompile(`(?m)^Warning:.*$`)},
		{Name: "prompt", Pattern: regexp.MustCompile(`(?:\A|\n)>\s*\z`)},
		{Name: "copyright", Pattern: regexp.MustCompile(`(?m)^Copyright (.*)`)},
	}
}

var punctTail = regexp.MustCompile(`[.?!>:]$`)

// unwrapText joins hard-wrapped lines back into flowing text. A line
// longer than column that does not end in sentence punctuation is assumed
// to have been wrapped by the interpreter and is glued to its successor.
func unwrapText(text string, column int) string {
	var out []string
	carry := ""
	for _, line := range strings.Split(text, "\n") {
		if len(line) > column && !punctTail.MatchString(line) {
			if carry != "" {
				carry = carry + " " + line
			} else {
				carry = line
			}
			continue
		}
		if carry != "" {
			out = append(out, carry+" "+line)
			carry = ""
		} else {
			out = append(out, line)
		}
	}
	if carry != "" {
		out = append(out, carry)
	}
	return strings.Join(out, "\n")
}
