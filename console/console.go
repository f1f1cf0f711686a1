// Package console is the interpreter-side half of the stream bridge. A
// Console owns everything one interpreter session mutates: the bounded
// output buffer, the input mode and key-poll counter, the set of bitmaps
// already transmitted, and the optional transcript sinks. Interpreter
// ports call its methods from their single engine thread; nothing here is
// safe for concurrent use and nothing needs to be.
package console

import (
	"bufio"
	"errors"
	"io"

	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// Console adapts an interpreter's console and graphics callbacks onto a
// tagged byte stream. Prose is buffered; tags and prompts write straight
// through, so a mode tag emitted before a flush precedes the buffered
// prose on the wire.
type Console struct {
	cfg Config
	out io.Writer
	in  *bufio.Reader

	buf        *outputBuffer
	mode       schema.InputMode
	charCalls  int
	dumped     map[schema.BitmapID]bool
	transcript *Sink
	script     *Sink

	readErr  error
	writeErr error
	log      pslog.Logger
}

// New builds a Console writing the tagged stream to out and reading host
// input from in.
func New(out io.Writer, in io.Reader, cfg Config) *Console {
	return &Console{
		cfg:        cfg,
		out:        out,
		in:         bufio.NewReader(in),
		buf:        newOutputBuffer(out, cfg.bufferSize()),
		dumped:     make(map[schema.BitmapID]bool),
		transcript: cfg.Transcript,
		script:     cfg.Script,
		log:        cfg.Logger,
	}
}

// WriteChar appends one character of interpreter prose. A carriage return
// becomes a newline and commits the buffer; a full buffer flushes before
// accepting the byte.
func (c *Console) WriteChar(ch byte) {
	if c.transcript != nil {
		b := ch
		if b == '\r' {
			b = '\n'
		}
		c.transcript.WriteChar(b)
	}
	c.noteWrite(c.buf.write(ch))
}

// WriteString prints a string through the prose buffer.
func (c *Console) WriteString(s string) {
	for i := 0; i < len(s); i++ {
		c.WriteChar(s[i])
	}
}

// Flush commits all buffered prose downstream. Every read primitive
// flushes first; the resulting write is the only turn-boundary signal the
// host side ever sees.
func (c *Console) Flush() {
	c.noteWrite(c.buf.flush())
}

// Mode reports the input mode determined by the reads so far.
func (c *Console) Mode() schema.InputMode {
	return c.mode
}

// Err reports the first stream failure seen on either direction. The
// callback surface itself stays boolean; ports check Err to distinguish
// "no move" from a dead host.
func (c *Console) Err() error {
	if c.readErr != nil {
		return c.readErr
	}
	return c.writeErr
}

// StopLogging closes and detaches both transcript sinks.
func (c *Console) StopLogging() {
	if c.transcript != nil {
		c.transcript.Close()
		c.transcript = nil
	}
	if c.script != nil {
		c.script.Close()
		c.script = nil
	}
}

func (c *Console) writeTag(t schema.Tag) {
	_, err := io.WriteString(c.out, t.String()+"\n")
	c.noteWrite(err)
}

func (c *Console) writeDirect(s string) {
	_, err := io.WriteString(c.out, s)
	c.noteWrite(err)
}

func (c *Console) noteWrite(err error) {
	if err != nil && c.writeErr == nil {
		c.writeErr = err
		if c.log != nil {
			c.log.Warn("console downstream write failed", "err", err)
		}
	}
}

func (c *Console) noteRead(err error) {
	if err != nil && !errors.Is(err, io.EOF) && c.log != nil && c.readErr == nil {
		c.log.Warn("console host read failed", "err", err)
	}
	if c.readErr == nil {
		c.readErr = err
	}
}
