// Package sshserver exposes the game service to remote players over
// SSH. Sessions are line oriented: a menu, a prompt, and the turn loop.
package sshserver

import (
	"context"
	"errors"
	"io"
	"net"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/crypto/ssh"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/internal/logx"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// PlayService is the slice of the session service the SSH front end
// drives.
type PlayService interface {
	Games() []schema.GameRef
	Open(ctx context.Context, name string) (*core.Session, error)
	Release(ctx context.Context, id schema.SessionID) error
}

// Server exposes game sessions over SSH. With an authorized_keys file
// configured only matching public keys get in; without one every
// connection is accepted, the classic public IF server arrangement.
type Server struct {
	Addr               string
	HostKeyPath        string
	AuthorizedKeysPath string
	Banner             string
	Listener           net.Listener
	Service            PlayService
	logger             pslog.Logger

	authorized []gliderssh.PublicKey
}

// ListenAndServe starts the SSH server and shuts down on context
// cancellation.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.logger == nil {
		s.logger = pslog.Ctx(ctx)
	}
	if s.Service == nil {
		return errors.New("play service is required for SSH")
	}

	signer, err := EnsureHostKey(s.HostKeyPath)
	if err != nil {
		return err
	}

	server := &gliderssh.Server{
		Addr:    s.Addr,
		Handler: s.handleSession,
	}
	if s.AuthorizedKeysPath != "" {
		keys, err := LoadAuthorizedKeys(s.AuthorizedKeysPath)
		if err != nil {
			return err
		}
		if len(keys) == 0 {
			return errors.New("authorized keys file contains no keys")
		}
		s.authorized = keys
		server.PublicKeyHandler = s.handlePublicKey
		s.logger.Info("ssh auth enabled", "authorized_keys", s.AuthorizedKeysPath, "keys", len(keys))
	} else {
		s.logger.Info("ssh auth open", "reason", "no authorized_keys configured")
	}
	server.AddHostKey(signer)

	errCh := make(chan error, 1)
	go func() {
		if s.Listener != nil {
			errCh <- server.Serve(s.Listener)
			return
		}
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		_ = server.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handlePublicKey(ctx gliderssh.Context, key gliderssh.PublicKey) bool {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(ctx)
	}
	fingerprint := ssh.FingerprintSHA256(key)
	log = log.With("player", ctx.User(), "remote", remoteAddr(ctx), "fingerprint", fingerprint)
	for _, authorized := range s.authorized {
		if gliderssh.KeysEqual(key, authorized) {
			log.Info("ssh pubkey accepted")
			return true
		}
	}
	log.Warn("ssh pubkey rejected", "reason", "no matching key")
	return false
}

func remoteAddr(ctx gliderssh.Context) string {
	if ctx == nil || ctx.RemoteAddr() == nil {
		return ""
	}
	return ctx.RemoteAddr().String()
}

func (s *Server) handleSession(sess gliderssh.Session) {
	log := s.logger
	if log == nil {
		log = pslog.Ctx(sess.Context())
	}
	player := sess.User()
	if player == "" {
		player = "guest"
	}
	remote := sess.RemoteAddr().String()
	log = log.With("player", player, "remote", remote)
	if sshSession := sess.Context().SessionID(); sshSession != "" {
		log = log.With("ssh_session", sshSession)
	}
	ctx := logx.ContextWithPlayerLogger(sess.Context(), log, player)

	pty, winCh, ok := sess.Pty()
	if !ok {
		log.Info("ssh session rejected", "reason", "pty required")
		_, _ = io.WriteString(sess, "pty required\n")
		return
	}

	log.Info("ssh session opened", "term", pty.Term)
	ui := newPlaySession(sess, s.Service, s.Banner, log)
	ui.SetSize(pty.Window.Width, pty.Window.Height)
	if err := ui.Run(ctx, winCh); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, context.Canceled) {
		log.Warn("ssh session failed", "err", err)
	}
	log.Info("ssh session closed", "term", pty.Term)
}
