// Package interp runs interpreter subprocesses and adapts their pipes to
// the core runner contract. One handle wraps one process: commands go in
// through stdin, turn events come out of the stream reader, stderr is
// relayed to the log.
package interp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"pkt.systems/loquax/core"
	"pkt.systems/loquax/reader"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// Config controls how interpreter processes are invoked.
type Config struct {
	// Interpreter binaries, overridable per format.
	ZcodePath    string
	Level9Path   string
	MagneticPath string
	// MockSelf is the binary re-executed for mock games. Empty means the
	// current executable.
	MockSelf string
	// ExtraArgs are appended before the game path for every format.
	ExtraArgs []string
	Env       []string
	// Reader adjusts turn delimiting and cruft rules for the stream.
	Reader reader.Config
}

func (c Config) zcodePath() string {
	if c.ZcodePath == "" {
		return "dfrotz"
	}
	return c.ZcodePath
}

func (c Config) level9Path() string {
	if c.Level9Path == "" {
		return "l9"
	}
	return c.Level9Path
}

func (c Config) magneticPath() string {
	if c.MagneticPath == "" {
		return "magnetic"
	}
	return c.MagneticPath
}

// Runner implements core.Runner on local subprocesses.
type Runner struct {
	cfg Config
}

// NewRunner constructs a subprocess runner.
func NewRunner(cfg Config) (*Runner, error) {
	return &Runner{cfg: cfg}, nil
}

// Run starts the interpreter for the requested game.
func (r *Runner) Run(ctx context.Context, req core.RunRequest) (core.RunHandle, error) {
	game := req.Game
	if game.Path == "" {
		return nil, schema.ErrInvalidGame
	}
	if game.Format == schema.FormatUnknown {
		game.Format = DetectFormat(game.Path)
	}
	bin, args, err := buildCommand(r.cfg, game)
	if err != nil {
		return nil, err
	}
	log := pslog.Ctx(ctx)
	if log != nil {
		log.Info(
			"interpreter start",
			"game", game.Name,
			"format", game.Format,
			"bin", bin,
			"args", args,
			"workdir", req.WorkingDir,
		)
	}

	cmd := exec.CommandContext(ctx, bin, args...)
	if req.WorkingDir != "" {
		cmd.Dir = req.WorkingDir
	}
	cmd.Env = append(os.Environ(), r.cfg.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		if log != nil {
			log.Error("interpreter stdout failed", "err", err)
		}
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		if log != nil {
			log.Error("interpreter stderr failed", "err", err)
		}
		return nil, err
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		if log != nil {
			log.Error("interpreter stdin failed", "err", err)
		}
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		if log != nil {
			log.Error("interpreter start failed", "bin", bin, "err", err)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", schema.ErrInterpreterNotFound, bin)
		}
		return nil, err
	}
	if log != nil && cmd.Process != nil {
		log.Info("interpreter started", "pid", cmd.Process.Pid)
	}

	go relayStderr(stderr, log)

	handle := &runHandle{
		cmd:     cmd,
		stream:  reader.New(ctx, stdout, r.cfg.Reader),
		stdin:   stdin,
		log:     log,
		started: time.Now(),
	}
	return handle, nil
}

// buildCommand resolves the binary and argv for a game. dfrotz runs with
// paging off and a wide line so the stream reader sees unwrapped prose.
func buildCommand(cfg Config, game schema.GameRef) (string, []string, error) {
	switch game.Format {
	case schema.FormatZcode:
		args := []string{"-m", "-w", "1000"}
		args = append(args, cfg.ExtraArgs...)
		args = append(args, game.Path)
		return cfg.zcodePath(), args, nil
	case schema.FormatLevel9:
		args := append([]string{}, cfg.ExtraArgs...)
		args = append(args, game.Path)
		return cfg.level9Path(), args, nil
	case schema.FormatMagnetic:
		args := append([]string{}, cfg.ExtraArgs...)
		args = append(args, game.Path)
		return cfg.magneticPath(), args, nil
	case schema.FormatMock:
		self := cfg.MockSelf
		if self == "" {
			exe, err := os.Executable()
			if err != nil {
				return "", nil, err
			}
			self = exe
		}
		args := []string{"vm-mock"}
		args = append(args, cfg.ExtraArgs...)
		args = append(args, game.Path)
		return self, args, nil
	}
	return "", nil, fmt.Errorf("%w: %q", schema.ErrUnsupportedFormat, game.Path)
}

// relayStderr forwards interpreter diagnostics to the log. They never
// join the prose stream.
func relayStderr(r io.Reader, log pslog.Logger) {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)
	count := 0
	for scanner.Scan() {
		text := scanner.Text()
		if text == "" {
			continue
		}
		count++
		if log != nil {
			log.Warn("interpreter stderr", "text", text)
		}
	}
	if err := scanner.Err(); err != nil {
		if log != nil {
			log.Warn("interpreter stderr read failed", "err", err)
		}
	}
	if count > 0 && log != nil {
		log.Debug("interpreter stderr closed", "lines", count)
	}
}

type runHandle struct {
	cmd     *exec.Cmd
	stream  *reader.Reader
	stdin   io.WriteCloser
	log     pslog.Logger
	started time.Time
}

func (h *runHandle) Events() core.EventStream {
	return h.stream
}

// Send writes text verbatim to the interpreter's stdin.
func (h *runHandle) Send(text string) error {
	if h.stdin == nil {
		return schema.ErrNotStarted
	}
	if h.log != nil {
		h.log.Debug("interpreter input", "text", text)
	}
	_, err := io.WriteString(h.stdin, text)
	return err
}

func (h *runHandle) Signal(ctx context.Context, sig core.ProcessSignal) error {
	_ = ctx
	if h.cmd == nil || h.cmd.Process == nil {
		return schema.ErrNotStarted
	}
	switch sig {
	case core.ProcessSignalHUP:
		return h.cmd.Process.Signal(syscall.SIGHUP)
	case core.ProcessSignalTERM:
		return h.cmd.Process.Signal(syscall.SIGTERM)
	case core.ProcessSignalKILL:
		return h.cmd.Process.Signal(syscall.SIGKILL)
	default:
		return fmt.Errorf("unsupported signal: %s", sig)
	}
}

func (h *runHandle) Wait(ctx context.Context) (core.RunResult, error) {
	_ = ctx
	if h.cmd == nil {
		return core.RunResult{}, schema.ErrNotStarted
	}
	err := h.cmd.Wait()
	signal := ""
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
			if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
				signal = status.Signal().String()
			}
		} else {
			if h.log != nil {
				h.log.Error("interpreter wait failed", "err", err)
			}
			return core.RunResult{}, err
		}
	}
	if h.log != nil {
		fields := []any{
			"exit_code", exitCode,
			"duration_ms", time.Since(h.started).Milliseconds(),
		}
		if signal != "" {
			fields = append(fields, "signal", signal)
		}
		if err != nil {
			fields = append(fields, "err", err)
		}
		h.log.Info("interpreter finished", fields...)
	}
	return core.RunResult{ExitCode: exitCode}, nil
}

func (h *runHandle) Close() error {
	if h.stdin != nil {
		_ = h.stdin.Close()
	}
	if h.stream != nil {
		_ = h.stream.Close()
	}
	return nil
}
