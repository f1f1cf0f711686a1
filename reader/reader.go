// Package reader turns the raw output stream of an interpreter process
// into session events. It assembles turns by watching for the moment the
// process goes quiet waiting for input, classifies embedded control tags,
// and splits the remaining prose into paragraphs.
package reader

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

const (
	// DefaultQuietPeriod is how long the stream must stay silent after at
	// least one chunk before the turn is considered finished.
	DefaultQuietPeriod = 150 * time.Millisecond
	// DefaultPromptSuffix ends a turn immediately when it appears at the
	// tail of the stream on its own line.
	DefaultPromptSuffix = ">"
	// DefaultUnwrapColumn is the line length above which an unpunctuated
	// line is treated as hard-wrapped and joined with its successor.
	DefaultUnwrapColumn = 200

	readChunkSize    = 16384
	promptScanWindow = 64
)

// Config adjusts turn delimiting and prose cleanup. The zero value uses
// the defaults above with the standard extraction rules.
type Config struct {
	QuietPeriod  time.Duration
	PromptSuffix string
	UnwrapColumn int
	// ExtractRules capture and remove boilerplate from the turn text.
	// Nil means DefaultExtractRules.
	ExtractRules []ExtractRule
	// DropRules discard whole paragraphs that match.
	DropRules []DropRule
	Logger    pslog.Logger
}

func (c Config) quietPeriod() time.Duration {
	if c.QuietPeriod <= 0 {
		return DefaultQuietPeriod
	}
	return c.QuietPeriod
}

func (c Config) promptSuffix() string {
	if c.PromptSuffix == "" {
		return DefaultPromptSuffix
	}
	return c.PromptSuffix
}

func (c Config) unwrapColumn() int {
	if c.UnwrapColumn <= 0 {
		return DefaultUnwrapColumn
	}
	return c.UnwrapColumn
}

// Reader consumes one interpreter output stream. It is not safe for
// concurrent use; a session owns exactly one reader and calls Next from
// its own loop.
type Reader struct {
	cfg     Config
	extract []ExtractRule
	log     pslog.Logger

	chunks  chan []byte
	errMu   sync.Mutex
	err     error
	closed  bool
	partial []byte

	turn  int
	queue []schema.SessionEvent
}

// New starts pumping src and returns a reader ready for Next. The pump
// goroutine exits when src reaches EOF or fails, which is how process
// exit surfaces to the caller.
func New(ctx context.Context, src io.Reader, cfg Config) *Reader {
	r := &Reader{
		cfg:     cfg,
		extract: cfg.ExtractRules,
		log:     cfg.Logger,
		chunks:  make(chan []byte, 64),
	}
	if r.log == nil {
		r.log = pslog.Ctx(ctx)
	}
	if r.extract == nil {
		r.extract = DefaultExtractRules()
	}
	go r.pump(src)
	return r
}

func (r *Reader) pump(src io.Reader) {
	defer close(r.chunks)
	buf := make([]byte, readChunkSize)
	for {
		n, err := src.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			r.chunks <- chunk
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				if r.log != nil {
					r.log.Warn("interpreter stream read failed", "err", err)
				}
				r.setErr(err)
			}
			return
		}
	}
}

func (r *Reader) setErr(err error) {
	if err == nil {
		return
	}
	r.errMu.Lock()
	defer r.errMu.Unlock()
	if r.err == nil {
		r.err = err
	}
}

// Err reports the first stream failure, if any. EOF is not an error.
func (r *Reader) Err() error {
	r.errMu.Lock()
	defer r.errMu.Unlock()
	return r.err
}

// Next returns the next session event, assembling a fresh turn from the
// stream when the queue is empty. It blocks until the interpreter has
// produced a complete turn, the stream ends, or ctx is cancelled. After
// the final event of a finished stream it returns io.EOF, or the stream
// error when one occurred.
func (r *Reader) Next(ctx context.Context) (schema.SessionEvent, error) {
	for len(r.queue) == 0 {
		if r.closed {
			if err := r.Err(); err != nil {
				return schema.SessionEvent{}, err
			}
			return schema.SessionEvent{}, io.EOF
		}
		if err := r.collect(ctx); err != nil {
			return schema.SessionEvent{}, err
		}
	}
	event := r.queue[0]
	r.queue = r.queue[1:]
	return event, nil
}

// collect gathers the raw bytes of one turn and appends its events to the
// queue. The first chunk is awaited without a deadline since a game may
// legitimately think for a long time; after that the turn ends when the
// prompt suffix shows up at the tail, when the stream stays quiet for the
// configured period, or when it closes.
func (r *Reader) collect(ctx context.Context) error {
	raw := r.partial
	r.partial = nil
	if len(raw) == 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-r.chunks:
			if !ok {
				r.closed = true
				return nil
			}
			raw = append(raw, chunk...)
		}
	}
	complete := true
	if !r.promptAtTail(raw) {
		timer := time.NewTimer(r.cfg.quietPeriod())
		defer timer.Stop()
	assemble:
		for {
			select {
			case <-ctx.Done():
				r.partial = raw
				return ctx.Err()
			case chunk, ok := <-r.chunks:
				if !ok {
					r.closed = true
					complete = false
					break assemble
				}
				raw = append(raw, chunk...)
				if r.promptAtTail(raw) {
					break assemble
				}
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(r.cfg.quietPeriod())
			case <-timer.C:
				break assemble
			}
		}
	}
	r.turn++
	if r.log != nil {
		r.log.Trace("turn assembled", "turn", r.turn, "bytes", len(raw), "complete", complete)
	}
	r.queue = append(r.queue, r.processTurn(string(raw), complete)...)
	return nil
}

// Close releases nothing today; the pump goroutine exits when the source
// does.
func (r *Reader) Close() error {
	return nil
}

// promptAtTail reports whether the stream currently ends with the prompt
// suffix on its own line, ignoring trailing spaces. Only the tail window
// is inspected so large turns stay cheap.
func (r *Reader) promptAtTail(buf []byte) bool {
	suffix := r.cfg.promptSuffix()
	window := buf
	if len(window) > promptScanWindow {
		window = window[len(window)-promptScanWindow:]
	}
	tail := strings.TrimRight(string(window), " \t")
	if strings.HasSuffix(tail, "\n"+suffix) {
		return true
	}
	return len(window) == len(buf) && tail == suffix
}
