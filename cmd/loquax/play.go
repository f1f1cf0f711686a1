package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/internal/appconfig"
	"pkt.systems/loquax/internal/canvas"
	"pkt.systems/loquax/internal/command"
	"pkt.systems/loquax/internal/format"
	"pkt.systems/loquax/internal/termio"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

func newPlayCmd() *cobra.Command {
	var cfgPath string
	var showTags bool
	cmd := &cobra.Command{
		Use:   "play <game>",
		Short: "Play a game from the library in this terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := pslog.Ctx(cmd.Context())
			cfg, err := appconfig.Load(cfgPath)
			if err != nil {
				return err
			}
			deps, err := buildServiceDeps(cfg, logger)
			if err != nil {
				return err
			}
			service, err := core.NewService(core.Config{
				Runner:        deps.Runner,
				Library:       deps.Library,
				Cache:         deps.Cache,
				TranscriptMax: cfg.Transcript.MaxEntries,
				Logger:        logger,
			})
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runPlay(ctx, service, args[0], playOptions{
				out:      cmd.OutOrStdout(),
				in:       cmd.InOrStdin(),
				showTags: showTags,
				logger:   logger,
			})
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.Flags().BoolVar(&showTags, "tags", false, "annotate graphics tags and input mode changes")
	return cmd
}

type playOptions struct {
	out      io.Writer
	in       io.Reader
	showTags bool
	logger   pslog.Logger
}

// runPlay opens one session and runs the turn loop until the game ends,
// the player quits, or the input stream closes. Cancelling ctx kills the
// interpreter; the session is released on the way out either way.
func runPlay(ctx context.Context, service *core.Service, name string, opts playOptions) error {
	session, err := service.Open(ctx, name)
	if err != nil {
		return err
	}
	defer func() {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := service.Release(releaseCtx, session.ID()); err != nil {
			opts.logger.Warn("session release failed", "session", session.ID(), "err", err)
		}
	}()

	scene := canvas.New(0, 0)
	renderer := format.NewPlainRenderer()
	renderer.ShowTags = opts.showTags
	input := newPlayInput(opts.in)
	turns := 0
	handler := command.NewHandler(command.HandlerConfig{
		Session: session,
		Canvas:  scene,
		Out:     opts.out,
		Turns:   func() int { return turns },
		Logger:  opts.logger,
	})

	for {
		turn, err := session.NextTurn(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(opts.out, "(game over)")
				return nil
			}
			if ctx.Err() != nil {
				fmt.Fprintln(opts.out)
				return nil
			}
			return err
		}
		if turn.Number > 0 {
			turns = turn.Number
		}
		if err := scene.ApplyAll(ctx, turn.Graphics, session); err != nil {
			opts.logger.Warn("scene update incomplete", "err", err)
		}
		renderer.Width = terminalWidth(opts.out)
		for _, line := range renderer.FormatTurn(turn) {
			fmt.Fprintln(opts.out, line)
		}

		sent := false
		for !sent {
			if turn.Mode == schema.ModeChar {
				key, err := input.ReadKey(opts.out)
				if err != nil {
					fmt.Fprintln(opts.out)
					return nil
				}
				if err := session.SendKey(key); err != nil {
					opts.logger.Warn("game input failed", "err", err)
					return nil
				}
				sent = true
				continue
			}
			fmt.Fprint(opts.out, "> ")
			line, err := input.ReadLine()
			if err != nil {
				fmt.Fprintln(opts.out)
				return nil
			}
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "/") {
				handled, err := handler.Handle(trimmed)
				if handled {
					if errors.Is(err, command.ErrQuit) {
						return nil
					}
					if err != nil {
						fmt.Fprintln(opts.out, err.Error())
					}
					continue
				}
			}
			if err := session.Send(line); err != nil {
				opts.logger.Warn("game input failed", "err", err)
				return nil
			}
			sent = true
		}
	}
}

// playInput reads player input. Line reads leave the terminal in
// canonical mode so editing belongs to the tty; key reads switch to raw
// mode for exactly one byte when the input is a terminal.
type playInput struct {
	file   *os.File
	reader *bufio.Reader
}

func newPlayInput(in io.Reader) *playInput {
	p := &playInput{reader: bufio.NewReader(in)}
	if f, ok := in.(*os.File); ok && termio.IsTerminal(int(f.Fd())) {
		p.file = f
	}
	return p
}

// ReadLine returns one line without its line ending. Content directly
// before EOF still counts as a line.
func (p *playInput) ReadLine() (string, error) {
	line, err := p.reader.ReadString('\n')
	if err != nil {
		if line != "" && errors.Is(err, io.EOF) {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// ReadKey returns one keypress. On a terminal the read is raw and the key
// is echoed; elsewhere the first byte of the next line serves as the key,
// with a bare newline standing for Enter.
func (p *playInput) ReadKey(out io.Writer) (byte, error) {
	if p.file == nil {
		return p.readKeyFromLine()
	}
	state, err := termio.MakeRaw(int(p.file.Fd()))
	if err != nil {
		return p.readKeyFromLine()
	}
	defer func() { _ = termio.Restore(state) }()
	key, err := p.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	if key == '\r' {
		// Raw mode delivers Enter as CR; interpreters read LF.
		key = '\n'
	}
	echoKey(out, key)
	return key, nil
}

func (p *playInput) readKeyFromLine() (byte, error) {
	line, err := p.ReadLine()
	if err != nil {
		return 0, err
	}
	if line == "" {
		return '\n', nil
	}
	return line[0], nil
}

func echoKey(out io.Writer, key byte) {
	if key >= 0x20 && key < 0x7f {
		fmt.Fprintf(out, "%c\n", key)
		return
	}
	fmt.Fprintln(out)
}

func terminalWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}
