package console

import "io"

// outputBuffer is the bounded prose buffer between the interpreter's
// character prints and the downstream pipe. It never exceeds its capacity:
// a write that would overflow flushes first. A carriage return is the
// interpreter's "commit this line" signal; it is stored as a newline and
// flushed immediately.
type outputBuffer struct {
	out  io.Writer
	data []byte
	cap  int
}

func newOutputBuffer(out io.Writer, capacity int) *outputBuffer {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &outputBuffer{out: out, data: make([]byte, 0, capacity), cap: capacity}
}

func (b *outputBuffer) write(c byte) error {
	if c == '\r' {
		if err := b.append('\n'); err != nil {
			return err
		}
		return b.flush()
	}
	return b.append(c)
}

func (b *outputBuffer) append(c byte) error {
	var err error
	if len(b.data) >= b.cap {
		err = b.flush()
	}
	b.data = append(b.data, c)
	return err
}

// unwrite drops the last pending byte; used by adapters whose engines
// print destructive backspaces.
func (b *outputBuffer) unwrite() {
	if len(b.data) > 0 {
		b.data = b.data[:len(b.data)-1]
	}
}

func (b *outputBuffer) flush() error {
	if len(b.data) == 0 {
		return nil
	}
	_, err := b.out.Write(b.data)
	b.data = b.data[:0]
	return err
}

func (b *outputBuffer) pending() int {
	return len(b.data)
}
