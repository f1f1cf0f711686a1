package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

func TestWithGameAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	log := WithGame(logger, schema.GameRef{Name: "zork1"})
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["game"] != "zork1" {
		t.Fatalf("expected game field, got %+v", entry)
	}
	if _, ok := entry["game_path"]; ok {
		t.Fatalf("did not expect game_path for name-only game")
	}
}

func TestWithGameAddsPath(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	log := WithGame(logger, schema.GameRef{Name: "zork1", Path: "/games/zork1.z5"})
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["game_path"] != "/games/zork1.z5" {
		t.Fatalf("expected game_path field, got %+v", entry)
	}
}

func TestWithPlayerSessionAddsFields(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := pslog.ContextWithLogger(context.Background(), logger)
	log := WithPlayerSession(ctx, "alice", "sess1")
	log.Info("hello")

	entry := capture.firstEntry(t)
	if entry["player"] != "alice" {
		t.Fatalf("expected player field, got %+v", entry)
	}
	if entry["session"] != "sess1" {
		t.Fatalf("expected session field, got %+v", entry)
	}
}

func TestWithPlayerSkipsDuplicateMarker(t *testing.T) {
	capture := &logCapture{}
	logger := pslog.NewWithOptions(capture, pslog.Options{
		Mode:          pslog.ModeStructured,
		NoColor:       true,
		MinLevel:      pslog.InfoLevel,
		VerboseFields: true,
	})
	ctx := ContextWithPlayerLogger(context.Background(), logger.With("player", "alice"), "alice")
	log := WithPlayer(ctx, "alice")
	log.Info("hello")

	line := capture.firstLine(t)
	if n := bytes.Count(line, []byte(`"player"`)); n != 1 {
		t.Fatalf("expected one player field, got %d in %s", n, line)
	}
}

func TestCopyContextFieldsCarriesMarkers(t *testing.T) {
	src := ContextWithPlayerSession(context.Background(), "alice", "sess1")
	dst := CopyContextFields(context.Background(), src)

	if player, ok := dst.Value(playerKey).(string); !ok || player != "alice" {
		t.Fatalf("expected player marker copied, got %v", dst.Value(playerKey))
	}
	if session, ok := dst.Value(sessionKey).(schema.SessionID); !ok || session != "sess1" {
		t.Fatalf("expected session marker copied, got %v", dst.Value(sessionKey))
	}
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) firstLine(t *testing.T) []byte {
	t.Helper()
	data := c.buf.Bytes()
	idx := bytes.IndexByte(data, '\n')
	if idx == -1 {
		idx = len(data)
	}
	return bytes.TrimSpace(data[:idx])
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	entry := map[string]any{}
	if err := json.Unmarshal(c.firstLine(t), &entry); err != nil {
		t.Fatalf("parse log entry: %v", err)
	}
	return entry
}
