package console

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveFileWritesExactBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "slot1.sav")
	state := bytes.Repeat([]byte{0xA5}, 37)
	var out bytes.Buffer
	c := New(&out, strings.NewReader(path+"\n"), Config{})
	if !c.SaveFile(state) {
		t.Fatalf("SaveFile failed")
	}
	if !strings.Contains(out.String(), PromptSave) {
		t.Fatalf("prompt missing from stream: %q", out.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if len(data) != 37 || !bytes.Equal(data, state) {
		t.Fatalf("saved %d bytes, want 37 identical bytes", len(data))
	}
}

func TestSaveFileUnwritablePathFails(t *testing.T) {
	var out bytes.Buffer
	c := New(&out, strings.NewReader(filepath.Join(t.TempDir(), "missing", "x.sav")+"\n"), Config{})
	if c.SaveFile([]byte("data")) {
		t.Fatalf("SaveFile into a missing directory succeeded")
	}
}

func TestLoadFileMissingFails(t *testing.T) {
	var out bytes.Buffer
	c := New(&out, strings.NewReader(filepath.Join(t.TempDir(), "nope.sav")+"\n"), Config{})
	data, ok := c.LoadFile(128)
	if ok || data != nil {
		t.Fatalf("LoadFile on a missing file = (%v, %t), want (nil, false)", data, ok)
	}
}

func TestLoadFileReadsAtMostMax(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.sav")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var out bytes.Buffer
	c := New(&out, strings.NewReader(path+"\n"), Config{})
	data, ok := c.LoadFile(4)
	if !ok || string(data) != "0123" {
		t.Fatalf("LoadFile = (%q, %t), want (%q, true)", data, ok, "0123")
	}
}

func TestNextGameFilePrompts(t *testing.T) {
	var out bytes.Buffer
	c := New(&out, strings.NewReader("gamedat2.dat\n"), Config{})
	name, ok := c.NextGameFile(64)
	if !ok || name != "gamedat2.dat" {
		t.Fatalf("NextGameFile = (%q, %t)", name, ok)
	}
	if !strings.Contains(out.String(), PromptNextGame) {
		t.Fatalf("prompt missing: %q", out.String())
	}
}

func TestOpenScriptFileReadsBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "walk.scr")
	if err := os.WriteFile(path, []byte("north\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	var out bytes.Buffer
	c := New(&out, strings.NewReader(path+"\n"), Config{})
	f, ok := c.OpenScriptFile()
	if !ok || f == nil {
		t.Fatalf("OpenScriptFile = (%v, %t)", f, ok)
	}
	defer f.Close()
	buf := make([]byte, 5)
	if _, err := f.Read(buf); err != nil || string(buf) != "north" {
		t.Fatalf("script content %q err %v", buf, err)
	}
}

func TestSetFileNumber(t *testing.T) {
	cases := []struct {
		name string
		n    int
		want string
		ok   bool
	}{
		{"/games/gamedat1.dat", 2, "/games/gamedat2.dat", true},
		{"gamedat1.dat", 3, "gamedat3.dat", true},
		{"/v2/gamedata.bin", 4, "/v2/gamedata.bin", false},
		{"part1side2.img", 5, "part1side5.img", true},
		{"nodigits", 1, "nodigits", false},
	}
	for _, tc := range cases {
		got, ok := SetFileNumber(tc.name, tc.n)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("SetFileNumber(%q, %d) = (%q, %t), want (%q, %t)",
				tc.name, tc.n, got, ok, tc.want, tc.ok)
		}
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "present")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !FileExists(path) {
		t.Fatalf("FileExists(%q) = false", path)
	}
	if FileExists(filepath.Join(dir, "absent")) {
		t.Fatalf("FileExists on a missing file = true")
	}
	if FileExists(dir) {
		t.Fatalf("FileExists on a directory = true")
	}
}
