package core

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// GameSource lists and resolves playable games.
type GameSource interface {
	Games() []schema.GameRef
	Find(name string) (schema.GameRef, error)
}

// BitmapCache persists decoded bitmaps across sessions of a game.
type BitmapCache interface {
	Get(game string, id schema.BitmapID) (*schema.Bitmap, bool)
	Put(game string, id schema.BitmapID, bitmap *schema.Bitmap) error
}

// Config wires the service's collaborators. Runner is the only required
// dependency; everything else degrades to a quiet no-op.
type Config struct {
	Runner  Runner
	Library GameSource
	Cache   BitmapCache
	Sink    EventSink
	// TranscriptMax bounds per-session history; zero keeps the default.
	TranscriptMax int
	Logger        pslog.Logger
}

// Service opens and tracks interpreter sessions.
type Service struct {
	cfg Config
	log pslog.Logger

	mu       sync.Mutex
	sessions map[schema.SessionID]*Session
	closed   bool
}

// NewService constructs the session service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Runner == nil {
		return nil, errors.New("runner required")
	}
	log := cfg.Logger
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	return &Service{
		cfg:      cfg,
		log:      log,
		sessions: make(map[schema.SessionID]*Session),
	}, nil
}

// Games lists the library.
func (s *Service) Games() []schema.GameRef {
	if s.cfg.Library == nil {
		return nil
	}
	return s.cfg.Library.Games()
}

// Open starts a session for the named game.
func (s *Service) Open(ctx context.Context, name string) (*Session, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, schema.ErrServerClosed
	}
	s.mu.Unlock()

	game, err := s.resolve(name)
	if err != nil {
		return nil, err
	}
	handle, err := s.cfg.Runner.Run(ctx, RunRequest{Game: game})
	if err != nil {
		return nil, err
	}
	session := newSession(newID(), game, handle, sessionDeps{
		cache:         s.cfg.Cache,
		sink:          s.cfg.Sink,
		transcriptMax: s.cfg.TranscriptMax,
		log:           s.log,
	})
	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	if s.log != nil {
		s.log.Info("session opened", "session", session.ID(), "game", game.Name, "format", game.Format)
	}
	return session, nil
}

func (s *Service) resolve(name string) (schema.GameRef, error) {
	if s.cfg.Library == nil {
		return schema.GameRef{}, schema.ErrGameNotFound
	}
	return s.cfg.Library.Find(name)
}

// Get returns an open session by id.
func (s *Service) Get(id schema.SessionID) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[id]
	return session, ok
}

// Sessions lists the open sessions.
func (s *Service) Sessions() []*Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		out = append(out, session)
	}
	return out
}

// Release closes one session and forgets it. Releasing an unknown id is
// a no-op.
func (s *Service) Release(ctx context.Context, id schema.SessionID) error {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return session.Close(ctx)
}

// Close shuts every open session down and refuses new ones.
func (s *Service) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.sessions = make(map[schema.SessionID]*Session)
	s.mu.Unlock()

	var firstErr error
	for _, session := range sessions {
		if err := session.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
