package filecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pkt.systems/loquax/schema"
)

func newTestCache(t *testing.T, max int) *Cache {
	t.Helper()
	c, err := New(Config{Dir: t.TempDir(), MaxFiles: max})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestAddGetRoundTrip(t *testing.T) {
	c := newTestCache(t, 10)
	if err := c.Add("greeting", []byte("hello"), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	data, ok := c.Get("greeting", nil)
	if !ok {
		t.Fatalf("expected hit")
	}
	if string(data) != "hello" {
		t.Fatalf("data = %q", data)
	}
	if _, ok := c.Get("missing", nil); ok {
		t.Fatalf("expected miss for unknown key")
	}
}

func TestMetaDistinguishesEntries(t *testing.T) {
	c := newTestCache(t, 10)
	if err := c.Add("pic", []byte("red"), map[string]string{"game": "zork1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add("pic", []byte("blue"), map[string]string{"game": "pawn"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	data, ok := c.Get("pic", map[string]string{"game": "zork1"})
	if !ok || string(data) != "red" {
		t.Fatalf("zork1 entry = %q ok=%v", data, ok)
	}
	data, ok = c.Get("pic", map[string]string{"game": "pawn"})
	if !ok || string(data) != "blue" {
		t.Fatalf("pawn entry = %q ok=%v", data, ok)
	}
	if _, ok := c.Get("pic", nil); ok {
		t.Fatalf("bare key should not see metadata entries")
	}
}

func TestEvictionRemovesOldest(t *testing.T) {
	c := newTestCache(t, 3)
	for _, key := range []string{"a", "b", "c"} {
		if err := c.Add(key, []byte(key), nil); err != nil {
			t.Fatalf("Add %s: %v", key, err)
		}
		time.Sleep(2 * time.Millisecond)
	}
	if err := c.Add("d", []byte("d"), nil); err != nil {
		t.Fatalf("Add d: %v", err)
	}
	if _, ok := c.Get("a", nil); ok {
		t.Fatalf("oldest entry should have been evicted")
	}
	for _, key := range []string{"b", "c", "d"} {
		if _, ok := c.Get(key, nil); !ok {
			t.Fatalf("entry %s missing", key)
		}
	}
}

func TestGetRefreshesRecency(t *testing.T) {
	c := newTestCache(t, 2)
	if err := c.Add("a", []byte("a"), nil); err != nil {
		t.Fatalf("Add a: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if err := c.Add("b", []byte("b"), nil); err != nil {
		t.Fatalf("Add b: %v", err)
	}
	time.Sleep(2 * time.Millisecond)
	if _, ok := c.Get("a", nil); !ok {
		t.Fatalf("a should be present")
	}
	time.Sleep(2 * time.Millisecond)
	if err := c.Add("c", []byte("c"), nil); err != nil {
		t.Fatalf("Add c: %v", err)
	}
	if _, ok := c.Get("a", nil); !ok {
		t.Fatalf("recently read entry should survive eviction")
	}
	if _, ok := c.Get("b", nil); ok {
		t.Fatalf("stale entry should have been evicted")
	}
}

func TestCorruptEntryMisses(t *testing.T) {
	dir := t.TempDir()
	c, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := c.Add("broken", []byte("payload"), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d", len(entries))
	}
	path := filepath.Join(dir, entries[0].Name())
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, ok := c.Get("broken", nil); ok {
		t.Fatalf("corrupt entry should read as a miss")
	}
}

func TestCachePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	first, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Add("sticky", []byte("kept"), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	second, err := New(Config{Dir: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	data, ok := second.Get("sticky", nil)
	if !ok || string(data) != "kept" {
		t.Fatalf("reopened entry = %q ok=%v", data, ok)
	}
	if got := second.Keys(); len(got) != 1 || got[0] != "sticky" {
		t.Fatalf("Keys = %v", got)
	}
}

func TestClearEmptiesCache(t *testing.T) {
	c := newTestCache(t, 10)
	if err := c.Add("one", []byte("1"), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add("two", []byte("22"), nil); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := c.Size(); got != 3 {
		t.Fatalf("Size = %d", got)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok := c.Get("one", nil); ok {
		t.Fatalf("cleared entry should be gone")
	}
	if got := c.Keys(); len(got) != 0 {
		t.Fatalf("Keys after clear = %v", got)
	}
}

func TestNewRequiresDirectory(t *testing.T) {
	if _, err := New(Config{Dir: "  "}); err == nil {
		t.Fatalf("expected error for blank directory")
	}
}

func TestBitmapStoreRoundTrip(t *testing.T) {
	store := NewBitmapStore(newTestCache(t, 10), nil)
	bitmap := &schema.Bitmap{
		ID:      7,
		Width:   2,
		Height:  1,
		Palette: []schema.RGB{0xFF0000, 0x00FF00},
		Pixels:  []byte{0, 1},
	}
	if err := store.Put("zork1", 7, bitmap); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok := store.Get("zork1", 7)
	if !ok {
		t.Fatalf("expected hit")
	}
	if got.Width != 2 || got.Height != 1 {
		t.Fatalf("dimensions = %dx%d", got.Width, got.Height)
	}
	if len(got.Palette) != 2 || got.Palette[0] != 0xFF0000 || got.Palette[1] != 0x00FF00 {
		t.Fatalf("palette = %v", got.Palette)
	}
	if len(got.Pixels) != 2 || got.Pixels[0] != 0 || got.Pixels[1] != 1 {
		t.Fatalf("pixels = %v", got.Pixels)
	}
}

func TestBitmapStoreSeparatesGames(t *testing.T) {
	store := NewBitmapStore(newTestCache(t, 10), nil)
	if err := store.Put("zork1", 1, &schema.Bitmap{ID: 1, Width: 1, Height: 1, Pixels: []byte{0}}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok := store.Get("pawn", 1); ok {
		t.Fatalf("bitmap should be scoped to its game")
	}
	if _, ok := store.Get("zork1", 2); ok {
		t.Fatalf("unknown bitmap id should miss")
	}
}
