package loquax

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// eventFanout delivers each session event to every configured sink.
type eventFanout struct {
	sinks []core.EventSink
}

func (f eventFanout) OnSessionEvent(id schema.SessionID, event schema.SessionEvent) {
	for _, sink := range f.sinks {
		if sink == nil {
			continue
		}
		sink.OnSessionEvent(id, event)
	}
}

// transcriptLog appends game prose to one file per session. Files are
// opened per write so crashed sessions never strand handles; a failing
// directory disables the log after one warning.
type transcriptLog struct {
	dir string
	log pslog.Logger

	mu       sync.Mutex
	disabled bool
}

func newTranscriptLog(dir string, log pslog.Logger) (*transcriptLog, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &transcriptLog{dir: dir, log: log}, nil
}

func (t *transcriptLog) OnSessionEvent(id schema.SessionID, event schema.SessionEvent) {
	if event.Kind != schema.EventParagraph || event.Text == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabled {
		return
	}
	path := filepath.Join(t.dir, string(id)+".txt")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.disabled = true
		if t.log != nil {
			t.log.Warn("transcript log disabled", "path", path, "err", err)
		}
		return
	}
	_, err = f.WriteString(event.Text + "\n\n")
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil && t.log != nil {
		t.log.Warn("transcript write failed", "path", path, "err", err)
	}
}
