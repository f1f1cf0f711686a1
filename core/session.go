package core

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// Turn is one completed exchange: everything the game printed between two
// reads, already split into paragraphs and graphics.
type Turn struct {
	Number     int
	Paragraphs []string
	Graphics   []schema.Tag
	// Mode is the input mode the game expects next.
	Mode     schema.InputMode
	Fields   map[string]string
	Complete bool
}

type sessionDeps struct {
	cache         BitmapCache
	sink          EventSink
	transcriptMax int
	log           pslog.Logger
}

// Session bridges one player to one interpreter process. Turn consumption
// is single-threaded: exactly one goroutine calls NextTurn, Send, and
// RequestBitmap. Mode and transcript accessors are safe from other
// goroutines.
type Session struct {
	id     schema.SessionID
	game   schema.GameRef
	handle RunHandle
	cache  BitmapCache
	sink   EventSink
	log    pslog.Logger

	mu         sync.Mutex
	mode       schema.InputMode
	closed     bool
	transcript *transcriptBuffer
	partial    map[schema.BitmapID]*schema.Bitmap
	bitmaps    map[schema.BitmapID]*schema.Bitmap
}

func newSession(id schema.SessionID, game schema.GameRef, handle RunHandle, deps sessionDeps) *Session {
	return &Session{
		id:         id,
		game:       game,
		handle:     handle,
		cache:      deps.cache,
		sink:       deps.sink,
		log:        deps.log,
		transcript: newTranscript(deps.transcriptMax),
		partial:    make(map[schema.BitmapID]*schema.Bitmap),
		bitmaps:    make(map[schema.BitmapID]*schema.Bitmap),
	}
}

// ID returns the session identifier.
func (s *Session) ID() schema.SessionID {
	return s.id
}

// Game returns the game this session plays.
func (s *Session) Game() schema.GameRef {
	return s.game
}

// Mode reports the input mode the game expects.
func (s *Session) Mode() schema.InputMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

func (s *Session) setMode(mode schema.InputMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// NextTurn consumes events until the turn's terminal marker and returns
// the assembled turn. It returns io.EOF once the interpreter's stream has
// ended and every event has been delivered.
func (s *Session) NextTurn(ctx context.Context) (*Turn, error) {
	stream := s.handle.Events()
	turn := &Turn{Mode: s.Mode()}
	for {
		event, err := stream.Next(ctx)
		if err != nil {
			return nil, err
		}
		s.absorb(event)
		s.dispatch(event)
		switch event.Kind {
		case schema.EventParagraph:
			turn.Paragraphs = append(turn.Paragraphs, event.Text)
		case schema.EventModeChange:
			turn.Mode = event.Mode
		case schema.EventGraphics:
			if event.Tag != nil {
				turn.Graphics = append(turn.Graphics, *event.Tag)
			}
		case schema.EventTurnComplete, schema.EventTurnIncomplete:
			turn.Number = event.Turn
			turn.Complete = event.Kind == schema.EventTurnComplete
			turn.Fields = event.Fields
			return turn, nil
		}
	}
}

func (s *Session) absorb(event schema.SessionEvent) {
	switch event.Kind {
	case schema.EventParagraph:
		s.mu.Lock()
		s.transcript.Append(':', event.Text)
		s.mu.Unlock()
	case schema.EventModeChange:
		s.setMode(event.Mode)
	case schema.EventGraphics:
		s.absorbGraphics(event.Tag)
	}
}

// absorbGraphics assembles img/pal/pixels payload sequences into bitmaps
// and persists each completed one.
func (s *Session) absorbGraphics(tag *schema.Tag) {
	if tag == nil {
		return
	}
	switch tag.Kind {
	case schema.TagImage:
		s.partial[tag.Bitmap] = &schema.Bitmap{
			ID:     tag.Bitmap,
			Width:  tag.Width,
			Height: tag.Height,
		}
	case schema.TagPalette:
		if bitmap := s.partial[tag.Bitmap]; bitmap != nil {
			bitmap.Palette = tag.Palette
		}
	case schema.TagPixels:
		bitmap := s.partial[tag.Bitmap]
		if bitmap == nil {
			if s.log != nil {
				s.log.Warn("pixels without declaration", "session", s.id, "bitmap", tag.Bitmap)
			}
			return
		}
		bitmap.Pixels = tag.Pixels
		delete(s.partial, tag.Bitmap)
		if want := bitmap.Width * bitmap.Height; len(bitmap.Pixels) != want && s.log != nil {
			s.log.Warn("bitmap pixel count off", "session", s.id, "bitmap", tag.Bitmap, "want", want, "got", len(bitmap.Pixels))
		}
		s.mu.Lock()
		s.bitmaps[tag.Bitmap] = bitmap
		s.mu.Unlock()
		if s.cache != nil {
			if err := s.cache.Put(s.game.Name, tag.Bitmap, bitmap); err != nil && s.log != nil {
				s.log.Warn("bitmap cache write failed", "session", s.id, "bitmap", tag.Bitmap, "err", err)
			}
		}
	}
}

func (s *Session) dispatch(event schema.SessionEvent) {
	if s.sink == nil {
		return
	}
	s.sink.OnSessionEvent(s.id, event)
}

// Send submits one command line to the game.
func (s *Session) Send(text string) error {
	text = strings.TrimRight(text, "\r\n")
	s.mu.Lock()
	s.transcript.Append('>', text)
	s.mu.Unlock()
	return s.handle.Send(text + "\n")
}

// SendKey submits one key while the game reads in key mode.
func (s *Session) SendKey(key byte) error {
	return s.handle.Send(string(key))
}

// Bitmap returns a bitmap already assembled this session.
func (s *Session) Bitmap(id schema.BitmapID) (*schema.Bitmap, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bitmap, ok := s.bitmaps[id]
	return bitmap, ok
}

// RequestBitmap returns the bitmap for id, asking the interpreter to dump
// it when neither the session nor the cache can serve it. The dump
// request is consumed by the game side without advancing the story, so
// the caller still owes the game its pending command.
func (s *Session) RequestBitmap(ctx context.Context, id schema.BitmapID) (*schema.Bitmap, error) {
	if bitmap, ok := s.Bitmap(id); ok {
		return bitmap, nil
	}
	if s.cache != nil {
		if bitmap, ok := s.cache.Get(s.game.Name, id); ok {
			s.mu.Lock()
			s.bitmaps[id] = bitmap
			s.mu.Unlock()
			return bitmap, nil
		}
	}
	if s.Mode() == schema.ModeChar {
		return nil, fmt.Errorf("%w: key input pending", schema.ErrBitmapUnavailable)
	}
	if err := s.handle.Send(fmt.Sprintf("##img#%d\n", id)); err != nil {
		return nil, err
	}
	if _, err := s.NextTurn(ctx); err != nil {
		return nil, err
	}
	if bitmap, ok := s.Bitmap(id); ok {
		return bitmap, nil
	}
	return nil, fmt.Errorf("%w: bitmap %d", schema.ErrBitmapUnavailable, id)
}

// Transcript renders the session history: commands behind a prompt, prose
// as printed.
func (s *Session) Transcript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transcript.Render()
}

// Close stops the interpreter and reaps it. Safe to call twice.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	// Closing stdin is the polite stop; interpreters exit on EOF.
	_ = s.handle.Close()
	result, err := s.handle.Wait(ctx)
	if err != nil {
		return err
	}
	if s.log != nil {
		s.log.Info("session closed", "session", s.id, "game", s.game.Name, "exit_code", result.ExitCode)
	}
	return nil
}
