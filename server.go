// Package loquax composes the session service and the SSH front end
// into one runnable server.
package loquax

import (
	"context"
	"errors"
	"sync"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/internal/appconfig"
	"pkt.systems/loquax/sshserver"
	"pkt.systems/pslog"
)

// Server composes the session service and its front ends.
type Server interface {
	Start(ctx context.Context) error
	Wait() error
	Stop(ctx context.Context) error
}

// ServerConfig configures the compositor.
type ServerConfig struct {
	SSH appconfig.SSHConfig
	// TranscriptDir enables the per-session transcript log when set.
	TranscriptDir string
	// TranscriptMax bounds the in-memory transcript per session.
	TranscriptMax int
}

// Deps captures the collaborators the server is built from. Runner is
// required; the rest degrade gracefully.
type Deps struct {
	Runner  core.Runner
	Library core.GameSource
	Cache   core.BitmapCache
	// Sink receives every session event alongside the built-in sinks.
	Sink   core.EventSink
	Logger pslog.Logger
}

// Option toggles compositor components.
type Option func(*serverOptions)

type serverOptions struct {
	enableSSH bool
	logger    pslog.Logger
}

// WithSSH enables the SSH play server.
func WithSSH() Option {
	return func(o *serverOptions) { o.enableSSH = true }
}

// WithLogger injects the server logger.
func WithLogger(log pslog.Logger) Option {
	return func(o *serverOptions) { o.logger = log }
}

// New constructs a composable loquax server.
func New(cfg ServerConfig, deps Deps, opts ...Option) (Server, error) {
	options := serverOptions{}
	for _, opt := range opts {
		opt(&options)
	}
	if !options.enableSSH {
		return nil, errors.New("no services enabled")
	}
	if deps.Runner == nil {
		return nil, errors.New("runner dependency is required")
	}
	logger := options.logger
	if logger == nil {
		logger = deps.Logger
	}

	sinks := make([]core.EventSink, 0, 2)
	if deps.Sink != nil {
		sinks = append(sinks, deps.Sink)
	}
	if cfg.TranscriptDir != "" {
		transcripts, err := newTranscriptLog(cfg.TranscriptDir, logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, transcripts)
	}
	var sink core.EventSink
	switch len(sinks) {
	case 0:
	case 1:
		sink = sinks[0]
	default:
		sink = eventFanout{sinks: sinks}
	}

	service, err := core.NewService(core.Config{
		Runner:        deps.Runner,
		Library:       deps.Library,
		Cache:         deps.Cache,
		Sink:          sink,
		TranscriptMax: cfg.TranscriptMax,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	sshSrv := &sshserver.Server{
		Addr:               cfg.SSH.Addr,
		HostKeyPath:        cfg.SSH.HostKeyPath,
		AuthorizedKeysPath: cfg.SSH.AuthorizedKeysPath,
		Banner:             cfg.SSH.Banner,
		Service:            service,
	}

	return &compositeServer{
		cfg:     cfg,
		options: options,
		service: service,
		sshSrv:  sshSrv,
		logger:  logger,
	}, nil
}

type compositeServer struct {
	cfg     ServerConfig
	options serverOptions
	service *core.Service
	sshSrv  *sshserver.Server
	logger  pslog.Logger

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	errCh   chan error
	started bool
}

func (s *compositeServer) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		pslog.Ctx(ctx).Warn("server start rejected", "reason", "already started")
		return errors.New("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.errCh = make(chan error, 1)
	s.started = true
	if s.logger == nil {
		s.logger = pslog.Ctx(s.ctx)
	}
	log := s.logger
	s.mu.Unlock()

	log.Info(
		"server start",
		"ssh", s.options.enableSSH,
		"ssh_addr", s.cfg.SSH.Addr,
		"transcripts", s.cfg.TranscriptDir != "",
	)
	go func() {
		if err := s.sshSrv.ListenAndServe(s.ctx); err != nil {
			log.Error("ssh server failed", "err", err)
			s.errCh <- err
		}
	}()
	return nil
}

func (s *compositeServer) Wait() error {
	s.mu.Lock()
	ctx := s.ctx
	errCh := s.errCh
	started := s.started
	s.mu.Unlock()
	if !started {
		return errors.New("server not started")
	}

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		if err != nil {
			pslog.Ctx(ctx).Error("server stopped", "err", err)
			_ = s.Stop(context.Background())
			return err
		}
		return nil
	}
}

func (s *compositeServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel := s.cancel
	started := s.started
	log := s.logger
	s.mu.Unlock()
	if !started {
		return nil
	}
	if log == nil {
		log = pslog.Ctx(context.Background())
	}
	log.Info("server stop requested")
	if cancel != nil {
		cancel()
	}
	if err := s.service.Close(ctx); err != nil {
		log.Warn("server session close failed", "err", err)
	} else {
		log.Info("server sessions closed")
	}
	log.Info("server stopped")
	return nil
}
