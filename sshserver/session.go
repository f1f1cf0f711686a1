package sshserver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	gliderssh "github.com/gliderlabs/ssh"
	"golang.org/x/term"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/internal/canvas"
	"pkt.systems/loquax/internal/command"
	"pkt.systems/loquax/internal/format"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// GameSession is the per-game surface the play loop drives. core.Session
// satisfies it.
type GameSession interface {
	ID() schema.SessionID
	Game() schema.GameRef
	Mode() schema.InputMode
	NextTurn(ctx context.Context) (*core.Turn, error)
	Send(text string) error
	SendKey(key byte) error
	RequestBitmap(ctx context.Context, id schema.BitmapID) (*schema.Bitmap, error)
	Transcript() string
}

// playSession drives one SSH connection: banner, game choice, then the
// output, prompt, input loop.
type playSession struct {
	command []string
	service PlayService
	banner  string
	term    *term.Terminal
	log     pslog.Logger
	width   atomic.Int32
}

func newPlaySession(sess gliderssh.Session, service PlayService, banner string, log pslog.Logger) *playSession {
	return newPlayUI(sess, sess.Command(), service, banner, log)
}

func newPlayUI(rw io.ReadWriter, command []string, service PlayService, banner string, log pslog.Logger) *playSession {
	p := &playSession{
		command: command,
		service: service,
		banner:  banner,
		term:    term.NewTerminal(rw, "> "),
		log:     log,
	}
	p.width.Store(80)
	return p
}

// SetSize applies the client's window geometry.
func (p *playSession) SetSize(width, height int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	p.width.Store(int32(width))
	_ = p.term.SetSize(width, height)
}

// Run walks the connection through banner and game choice, playing
// until the player hangs up. A game named on the ssh command line is
// played once; the menu otherwise reappears after every game.
func (p *playSession) Run(ctx context.Context, winCh <-chan gliderssh.Window) error {
	if winCh != nil {
		go func() {
			for win := range winCh {
				p.SetSize(win.Width, win.Height)
			}
		}()
	}

	if p.banner != "" {
		for _, line := range strings.Split(strings.TrimRight(p.banner, "\n"), "\n") {
			p.println(line)
		}
		p.println("")
	}

	direct := strings.TrimSpace(strings.Join(p.command, " "))
	name := direct
	for {
		if name == "" {
			chosen, err := p.chooseGame()
			if err != nil {
				return err
			}
			if chosen == "" {
				p.println("bye")
				return nil
			}
			name = chosen
		}
		if err := p.playGame(ctx, name); err != nil {
			return err
		}
		if direct != "" {
			return nil
		}
		name = ""
		p.println("")
	}
}

// chooseGame shows the library and reads a selection. An empty return
// with nil error means the player wants out.
func (p *playSession) chooseGame() (string, error) {
	games := p.service.Games()
	if len(games) == 0 {
		p.println("no games installed")
		return "", nil
	}
	p.println("games:")
	for i, game := range games {
		p.println(fmt.Sprintf("  %2d. %s (%s)", i+1, game.Name, game.Format))
	}
	for {
		p.term.SetPrompt("game> ")
		line, err := p.term.ReadLine()
		if err != nil {
			return "", nil
		}
		choice := strings.TrimSpace(line)
		switch choice {
		case "", "quit", "exit", "q":
			return "", nil
		}
		if n, convErr := strconv.Atoi(choice); convErr == nil {
			if n < 1 || n > len(games) {
				p.println("no such entry")
				continue
			}
			return games[n-1].Name, nil
		}
		return choice, nil
	}
}

func (p *playSession) playGame(ctx context.Context, name string) error {
	session, err := p.service.Open(ctx, name)
	if err != nil {
		p.println("cannot open " + name + ": " + err.Error())
		if p.log != nil {
			p.log.Warn("game open failed", "game", name, "err", err)
		}
		return nil
	}
	err = p.play(ctx, session)
	if releaseErr := p.service.Release(ctx, session.ID()); releaseErr != nil && p.log != nil {
		p.log.Warn("session release failed", "session", session.ID(), "err", releaseErr)
	}
	return err
}

// play runs the turn loop on an open session until the game ends, the
// player quits, or the connection drops.
func (p *playSession) play(ctx context.Context, session GameSession) error {
	scene := canvas.New(0, 0)
	renderer := format.NewPlainRenderer()
	turns := 0
	handler := command.NewHandler(command.HandlerConfig{
		Session: session,
		Canvas:  scene,
		Out:     p.term,
		Turns:   func() int { return turns },
		Logger:  p.log,
	})

	for {
		turn, err := session.NextTurn(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				p.println("(game over)")
				return nil
			}
			return err
		}
		if turn.Number > 0 {
			turns = turn.Number
		}
		if err := scene.ApplyAll(ctx, turn.Graphics, session); err != nil && p.log != nil {
			p.log.Warn("scene update incomplete", "err", err)
		}
		renderer.Width = int(p.width.Load())
		for _, line := range renderer.FormatTurn(turn) {
			p.println(line)
		}

		sent := false
		for !sent {
			line, err := p.readInput(turn.Mode)
			if err != nil {
				return nil
			}
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "/") {
				if _, err := handler.Handle(trimmed); err != nil {
					if errors.Is(err, command.ErrQuit) {
						return nil
					}
					p.println(err.Error())
				}
				continue
			}
			if turn.Mode == schema.ModeChar {
				key := byte('\n')
				if len(line) > 0 {
					key = line[0]
				}
				err = session.SendKey(key)
			} else {
				err = session.Send(line)
			}
			if err != nil {
				if p.log != nil {
					p.log.Warn("game input failed", "err", err)
				}
				return nil
			}
			sent = true
		}
	}
}

func (p *playSession) readInput(mode schema.InputMode) (string, error) {
	if mode == schema.ModeChar {
		p.term.SetPrompt("[key] ")
	} else {
		p.term.SetPrompt("> ")
	}
	return p.term.ReadLine()
}

func (p *playSession) println(line string) {
	fmt.Fprintln(p.term, line)
}
