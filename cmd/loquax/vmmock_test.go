package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func mockGameFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "demo.mock")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write game file: %v", err)
	}
	return path
}

func runMockScript(t *testing.T, content, input string) string {
	t.Helper()
	var out bytes.Buffer
	if err := runVMMock(mockGameFile(t, content), &out, strings.NewReader(input)); err != nil {
		t.Fatalf("runVMMock: %v", err)
	}
	return out.String()
}

func TestVMMockIntroAndQuit(t *testing.T) {
	out := runMockScript(t, "Test Signal\n", "quit\n")
	for _, want := range []string{
		"Test Signal",
		"Signal Hut",
		"#[gfx 1]",
		"#[imgsize 160 96]",
		"#[img 1 24 16 4]",
		"#[bitmap 1 12 8]",
		"\n> ",
		"The carrier drops and the world goes quiet.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	// Direct tag writes precede the buffered prose on the wire.
	if strings.Index(out, "#[gfx 1]") > strings.Index(out, "Test Signal") {
		t.Fatalf("graphics tag should precede buffered prose:\n%s", out)
	}
}

func TestVMMockMovesBetweenRooms(t *testing.T) {
	out := runMockScript(t, "Demo\n", "north\nsouth\nquit\n")
	for _, want := range []string{
		"Antenna Ridge",
		"lattice mast",
		"#[bitmap 2 12 8]",
		"You climb back down into the warm hut.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestVMMockBlocksExitsAtTheEdges(t *testing.T) {
	out := runMockScript(t, "Demo\n", "south\nquit\n")
	if !strings.Contains(out, "You can't go that way.") {
		t.Fatalf("expected blocked exit notice:\n%s", out)
	}
}

func TestVMMockMetaCommandDumpsBitmap(t *testing.T) {
	out := runMockScript(t, "Demo\n", "##img#2\nquit\n")
	if !strings.Contains(out, "#[img 2 24 16 4]") {
		t.Fatalf("meta-command should dump bitmap 2:\n%s", out)
	}
	if !strings.Contains(out, "#[pal 2 ") {
		t.Fatalf("dump should carry a palette:\n%s", out)
	}
	if strings.Contains(out, "#[bitmap 2 ") {
		t.Fatalf("a dump is not a show; no placement tag expected:\n%s", out)
	}
	if strings.Contains(out, "##img#2") {
		t.Fatalf("meta-command leaked into the stream:\n%s", out)
	}
	if got := strings.Count(out, "\n> "); got != 2 {
		t.Fatalf("expected a re-prompt after the swallowed meta-command, got %d prompts", got)
	}
}

func TestVMMockListenSwitchesInputModes(t *testing.T) {
	out := runMockScript(t, "Demo\n", "listen\nkquit\n")
	for _, want := range []string{
		"#[keymode]",
		"#[linemode]",
		"Morse fragments resolve themselves around 'k'.",
		"The carrier drops and the world goes quiet.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	// Mode tags bypass the prose buffer, so each one precedes the prose
	// written before it.
	if strings.Index(out, "#[keymode]") > strings.Index(out, "You press the headphone") {
		t.Fatalf("keymode tag should precede the buffered prose:\n%s", out)
	}
	if strings.Index(out, "#[linemode]") > strings.Index(out, "Morse fragments") {
		t.Fatalf("linemode tag should precede the buffered prose:\n%s", out)
	}
}

func TestVMMockUnknownVerb(t *testing.T) {
	out := runMockScript(t, "Demo\n", "dance\nquit\n")
	if !strings.Contains(out, "That verb means nothing out here.") {
		t.Fatalf("expected the unknown-verb reply:\n%s", out)
	}
}

func TestVMMockHostEOFEndsGame(t *testing.T) {
	var out bytes.Buffer
	if err := runVMMock(mockGameFile(t, "Demo\n"), &out, strings.NewReader("")); err != nil {
		t.Fatalf("host EOF should not be an error, got %v", err)
	}
	if !strings.Contains(out.String(), "Signal Hut") {
		t.Fatalf("intro should flush before the failed read:\n%s", out.String())
	}
}

func TestMockTitleFromFile(t *testing.T) {
	path := mockGameFile(t, "\n  Night Signal  \nrest of file\n")
	if got := mockTitle(path); got != "Night Signal" {
		t.Fatalf("mockTitle = %q, want %q", got, "Night Signal")
	}
}

func TestMockTitleFallsBackToFileName(t *testing.T) {
	if got := mockTitle("/nope/ghost.mock"); got != "ghost" {
		t.Fatalf("mockTitle = %q, want %q", got, "ghost")
	}
	path := mockGameFile(t, "  \n\n")
	if got := mockTitle(path); got != "demo" {
		t.Fatalf("mockTitle = %q, want %q", got, "demo")
	}
}

func TestMockBitmapsAreDeterministic(t *testing.T) {
	var src mockBitmaps
	first, err := src.DecodeBitmap(1)
	if err != nil {
		t.Fatalf("DecodeBitmap: %v", err)
	}
	second, err := src.DecodeBitmap(1)
	if err != nil {
		t.Fatalf("DecodeBitmap: %v", err)
	}
	if first.Width != 24 || first.Height != 16 || len(first.Palette) != 4 {
		t.Fatalf("unexpected geometry: %+v", first)
	}
	if len(first.Pixels) != first.Width*first.Height {
		t.Fatalf("pixel count %d does not cover %dx%d", len(first.Pixels), first.Width, first.Height)
	}
	if !bytes.Equal(first.Pixels, second.Pixels) {
		t.Fatal("repeated dumps should be identical")
	}
	if _, err := src.DecodeBitmap(3); err == nil {
		t.Fatal("expected an error for an unknown bitmap id")
	}
}
