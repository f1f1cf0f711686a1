package console

import (
	"io"
	"os"

	"pkt.systems/pslog"
)

// Sink is an append-only log file for one stream direction: a script sink
// records host commands, a transcript sink records interpreter prose.
// Logging is best-effort; an open or write failure disables the sink with
// one warning and play continues.
type Sink struct {
	f        *os.File
	retract  bool
	disabled bool
	path     string
	log      pslog.Logger
}

// NewSink opens path for writing. With retractBackspace set, a 0x08 byte
// pulls the write cursor back one byte instead of being written, so
// engine backspace output edits the file the way it edits the screen.
func NewSink(path string, retractBackspace bool, logger pslog.Logger) *Sink {
	s := &Sink{retract: retractBackspace, path: path, log: logger}
	f, err := os.Create(path)
	if err != nil {
		s.disable(err)
		return s
	}
	s.f = f
	return s
}

// WriteChar appends one byte, honoring backspace retraction. Safe on a
// nil or disabled sink.
func (s *Sink) WriteChar(c byte) {
	if s == nil || s.disabled {
		return
	}
	if c == 0x08 && s.retract {
		if pos, err := s.f.Seek(0, io.SeekCurrent); err == nil && pos > 0 {
			if _, err := s.f.Seek(-1, io.SeekCurrent); err != nil {
				s.disable(err)
			}
		}
		return
	}
	if _, err := s.f.Write([]byte{c}); err != nil {
		s.disable(err)
	}
}

// WriteString appends a string byte by byte.
func (s *Sink) WriteString(str string) {
	for i := 0; i < len(str); i++ {
		s.WriteChar(str[i])
	}
}

// Path returns the sink's file path.
func (s *Sink) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close flushes and closes the underlying file.
func (s *Sink) Close() error {
	if s == nil || s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	s.disabled = true
	return err
}

func (s *Sink) disable(err error) {
	s.disabled = true
	if s.log != nil {
		s.log.Warn("log sink disabled", "path", s.path, "err", err)
	}
	if s.f != nil {
		s.f.Close()
		s.f = nil
	}
}
