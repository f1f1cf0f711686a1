package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"pkt.systems/loquax/schema"
)

func writeGame(t *testing.T, root, name string) string {
	t.Helper()
	path := filepath.Join(root, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("story data"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestListFindsKnownFormats(t *testing.T) {
	root := t.TempDir()
	manager, err := NewManager(root)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	writeGame(t, root, "zork1.z5")
	writeGame(t, root, "pawn.mag")
	writeGame(t, root, "level9/snowball.l9")
	writeGame(t, root, "notes.txt")

	games, err := manager.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(games) != 3 {
		t.Fatalf("expected 3 games, got %d: %+v", len(games), games)
	}
	// Sorted by name.
	if games[0].Name != "pawn" || games[1].Name != "snowball" || games[2].Name != "zork1" {
		t.Fatalf("unexpected order: %+v", games)
	}
	if games[0].Format != schema.FormatMagnetic || games[1].Format != schema.FormatLevel9 || games[2].Format != schema.FormatZcode {
		t.Fatalf("unexpected formats: %+v", games)
	}
}

func TestListSkipsHiddenDirectories(t *testing.T) {
	root := t.TempDir()
	manager, err := NewManager(root)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	writeGame(t, root, ".backup/zork2.z5")
	writeGame(t, root, "zork1.z5")

	games, err := manager.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(games) != 1 || games[0].Name != "zork1" {
		t.Fatalf("hidden directory not skipped: %+v", games)
	}
}

func TestFindByNameAndFilename(t *testing.T) {
	root := t.TempDir()
	manager, err := NewManager(root)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	path := writeGame(t, root, "zork1.z5")

	byName, err := manager.Find("zork1")
	if err != nil {
		t.Fatalf("Find by name: %v", err)
	}
	if byName.Path != path {
		t.Fatalf("unexpected path: %q", byName.Path)
	}

	byFile, err := manager.Find("zork1.z5")
	if err != nil {
		t.Fatalf("Find by filename: %v", err)
	}
	if byFile.Path != path {
		t.Fatalf("unexpected path: %q", byFile.Path)
	}
}

func TestFindUnknownGame(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if _, err := manager.Find("hobbit"); !errors.Is(err, schema.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestFindByPathOutsideLibrary(t *testing.T) {
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	outside := t.TempDir()
	path := writeGame(t, outside, "trinity.z4")

	game, err := manager.Find(path)
	if err != nil {
		t.Fatalf("Find by path: %v", err)
	}
	if game.Name != "trinity" || game.Format != schema.FormatZcode {
		t.Fatalf("unexpected game: %+v", game)
	}

	textPath := writeGame(t, outside, "notes.txt")
	if _, err := manager.Find(textPath); !errors.Is(err, schema.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestNewManagerRequiresRoot(t *testing.T) {
	if _, err := NewManager("  "); !errors.Is(err, schema.ErrInvalidLibrary) {
		t.Fatalf("expected ErrInvalidLibrary, got %v", err)
	}
}
