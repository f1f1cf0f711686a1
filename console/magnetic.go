package console

import (
	"bufio"
	"os"
	"strings"

	"pkt.systems/loquax/schema"
)

// Magnetic layers the Magnetic Scrolls engine's callback shape over a
// Console: a small output buffer that commits on newline or at a fill
// mark, and char-at-a-time input drained from an internally buffered
// line. Interpreter commands typed at the prompt ("#undo", "#logoff")
// are handled here and never reach the engine as text.
type Magnetic struct {
	c         *Console
	flushMark int

	line    []byte
	linePos int

	playback *bufio.Reader
	pbFile   *os.File
}

// NewMagnetic wraps c with the Magnetic callback surface. The console
// should be built with MagneticBufferSize for faithful flush behavior.
func NewMagnetic(c *Console) *Magnetic {
	return &Magnetic{c: c, flushMark: MagneticFlushMark}
}

// Console returns the wrapped console.
func (m *Magnetic) Console() *Console {
	return m.c
}

// PutChar buffers one character of engine prose. Backspace drops the last
// pending byte; a newline or a buffer filled to the flush mark commits.
func (m *Magnetic) PutChar(ch byte) {
	if ch == 0x08 {
		m.c.buf.unwrite()
		return
	}
	m.c.WriteChar(ch)
	if ch == '\n' || m.c.buf.pending() >= m.flushMark {
		m.c.Flush()
	}
}

// Flush commits pending prose.
func (m *Magnetic) Flush() {
	m.c.Flush()
}

// StatusChar receives status-line characters. The drawn status bar is
// redundant over this stream (the host strips title bars as cruft), so
// the bytes are dropped.
func (m *Magnetic) StatusChar(ch byte) {
}

// GetChar returns the next input character for the engine, reading a
// fresh line from the playback script or the host when the buffered line
// is spent. With interpret set, a line starting with '#' is an
// interpreter command: "#undo" returns 0 so the engine takes its undo
// path, "#logoff" stops transcript logging; any unrecognized command
// answers "[Nothing done]" and prompts again. Returns 0 once the host
// stream is gone.
func (m *Magnetic) GetChar(interpret bool) byte {
	for m.linePos >= len(m.line) {
		line, ok := m.nextLine()
		if !ok {
			if m.c.Err() != nil {
				return 0
			}
			// Meta-command consumed by the console; prompt again.
			continue
		}
		if interpret && strings.HasPrefix(line, "#") {
			if strings.TrimSpace(line) == "#undo" {
				return 0
			}
			if strings.TrimSpace(line) == "#logoff" {
				m.c.StopLogging()
			}
			m.c.WriteString("[Nothing done]\n")
			continue
		}
		m.line = append(append(m.line[:0], line...), '\n')
		m.linePos = 0
	}
	ch := m.line[m.linePos]
	m.linePos++
	return ch
}

// StartPlayback feeds input lines from a previously recorded script file
// until it is exhausted, then falls back to the host stream.
func (m *Magnetic) StartPlayback(f *os.File) {
	m.stopPlayback()
	if f != nil {
		m.pbFile = f
		m.playback = bufio.NewReader(f)
	}
}

// SaveFile writes engine state to name, prompting the host for a path
// when name is empty.
func (m *Magnetic) SaveFile(name string, data []byte) bool {
	if name == "" {
		return m.c.SaveFile(data)
	}
	if err := os.WriteFile(name, data, 0o644); err != nil {
		m.c.warnFile("save", name, err)
		return false
	}
	return true
}

// LoadFile reads at most max bytes of engine state from name, prompting
// the host for a path when name is empty.
func (m *Magnetic) LoadFile(name string, max int) ([]byte, bool) {
	if name == "" {
		return m.c.LoadFile(max)
	}
	data, err := os.ReadFile(name)
	if err != nil {
		m.c.warnFile("load", name, err)
		return nil, false
	}
	if len(data) > max {
		data = data[:max]
	}
	return data, true
}

// ShowPic routes engine picture requests through the shared codec: mode 0
// turns graphics off by clearing the surface, any other mode announces
// itself and displays the picture.
func (m *Magnetic) ShowPic(pic int, mode int) {
	if mode == 0 {
		m.c.ClearGraphics()
		return
	}
	m.c.GraphicsMode(mode)
	m.c.ShowBitmap(schema.BitmapID(pic), 0, 0)
}

func (m *Magnetic) nextLine() (string, bool) {
	if m.playback != nil {
		line, err := m.playback.ReadString('\n')
		if err == nil || line != "" {
			return strings.TrimRight(line, "\n"), true
		}
		m.stopPlayback()
	}
	return m.c.ReadLine(0)
}

func (m *Magnetic) stopPlayback() {
	if m.pbFile != nil {
		m.pbFile.Close()
	}
	m.pbFile = nil
	m.playback = nil
}
