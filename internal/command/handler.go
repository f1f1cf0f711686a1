package command

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pkt.systems/loquax/internal/canvas"
	"pkt.systems/loquax/schema"
	"pkt.systems/pslog"
)

// ErrQuit is returned by Handle when the player asks to leave.
var ErrQuit = errors.New("quit requested")

// DefaultImagePath is where /image writes without an argument.
const DefaultImagePath = "scene.png"

// Player is the handler's view of a running session.
type Player interface {
	Game() schema.GameRef
	Mode() schema.InputMode
	Transcript() string
}

// HandlerConfig wires the handler to one play loop.
type HandlerConfig struct {
	Session Player
	Canvas  *canvas.Canvas
	Out     io.Writer
	// Turns reports the latest turn number for /info; nil reads as zero.
	Turns  func() int
	Logger pslog.Logger
}

// Handler executes slash commands against a session. Command lines never
// reach the game.
type Handler struct {
	session Player
	canvas  *canvas.Canvas
	out     io.Writer
	turns   func() int
	log     pslog.Logger
}

// NewHandler constructs a command handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		session: cfg.Session,
		canvas:  cfg.Canvas,
		out:     cfg.Out,
		turns:   cfg.Turns,
		log:     cfg.Logger,
	}
}

// Handle inspects input and executes it when it is a slash command. The
// boolean reports whether the line was consumed.
func (h *Handler) Handle(input string) (bool, error) {
	cmd, ok := Parse(input)
	if !ok {
		return false, nil
	}
	log := h.log
	if log != nil {
		log = log.With("command", cmd.Name, "args", len(cmd.Args))
		log.Info("command slash request")
	}
	switch cmd.Name {
	case "":
		if log != nil {
			log.Warn("command slash rejected", "reason", "empty")
		}
		return true, fmt.Errorf("invalid command")
	case "help":
		return true, h.handleHelp()
	case "image":
		return true, h.handleImage(cmd)
	case "transcript":
		return true, h.handleTranscript(cmd)
	case "info":
		return true, h.handleInfo()
	case "quit", "exit":
		return true, ErrQuit
	default:
		if log != nil {
			log.Warn("command slash rejected", "reason", "unknown")
		}
		return true, fmt.Errorf("unknown command: /%s", cmd.Name)
	}
}

func (h *Handler) handleHelp() error {
	for _, line := range helpLines() {
		h.println(line)
	}
	return nil
}

func helpLines() []string {
	return []string{
		"commands:",
		"  /help               show this help",
		"  /image [path]       write the current scene as PNG (default " + DefaultImagePath + ")",
		"  /transcript [path]  print the transcript, or save it to a file",
		"  /info               show game, mode, and turn count",
		"  /quit               leave the game",
	}
}

func (h *Handler) handleImage(cmd Command) error {
	if h.canvas == nil {
		return errors.New("no scene to draw")
	}
	path := cmd.Remainder
	if path == "" {
		path = DefaultImagePath
	}
	if err := h.canvas.WritePNG(path); err != nil {
		if h.log != nil {
			h.log.Warn("command image failed", "path", path, "err", err)
		}
		return err
	}
	h.println("scene written: " + path)
	if h.log != nil {
		h.log.Info("command image completed", "path", path)
	}
	return nil
}

func (h *Handler) handleTranscript(cmd Command) error {
	if h.session == nil {
		return errors.New("no session")
	}
	text := h.session.Transcript()
	if cmd.Remainder == "" {
		h.println(text)
		return nil
	}
	path := cmd.Remainder
	if err := os.WriteFile(path, []byte(text+"\n"), 0o644); err != nil {
		if h.log != nil {
			h.log.Warn("command transcript failed", "path", path, "err", err)
		}
		return err
	}
	h.println("transcript written: " + path)
	if h.log != nil {
		h.log.Info("command transcript completed", "path", path)
	}
	return nil
}

func (h *Handler) handleInfo() error {
	if h.session == nil {
		return errors.New("no session")
	}
	game := h.session.Game()
	format := string(game.Format)
	if format == "" {
		format = "unknown"
	}
	turns := 0
	if h.turns != nil {
		turns = h.turns()
	}
	mode := h.session.Mode()
	if mode == schema.ModeUnset {
		mode = schema.ModeLine
	}
	h.println(fmt.Sprintf("game:  %s (%s)", game.Name, format))
	if strings.TrimSpace(game.Path) != "" {
		h.println("file:  " + game.Path)
	}
	h.println("mode:  " + string(mode))
	h.println(fmt.Sprintf("turns: %d", turns))
	return nil
}

func (h *Handler) println(line string) {
	if h.out == nil {
		return
	}
	fmt.Fprintln(h.out, line)
}
