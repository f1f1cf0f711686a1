package main

import (
	"testing"

	"pkt.systems/loquax/schema"
)

func TestFormatGameListEmpty(t *testing.T) {
	lines := formatGameList("/srv/games", nil)
	if len(lines) != 1 {
		t.Fatalf("expected a single line, got %d", len(lines))
	}
	if lines[0] != "no games found in /srv/games" {
		t.Fatalf("unexpected line: %q", lines[0])
	}
}

func TestFormatGameListColumns(t *testing.T) {
	games := []schema.GameRef{
		{Name: "curses", Path: "/srv/games/curses.z5", Format: schema.FormatZcode},
		{Name: "pawn", Path: "/srv/games/pawn.mag", Format: schema.FormatMagnetic},
	}
	lines := formatGameList("/srv/games", games)
	want := []string{
		"games in /srv/games:",
		"  curses  zcode     /srv/games/curses.z5",
		"  pawn    magnetic  /srv/games/pawn.mag",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d: %v", len(want), len(lines), lines)
	}
	for i, line := range lines {
		if line != want[i] {
			t.Errorf("line %d = %q, want %q", i, line, want[i])
		}
	}
}
