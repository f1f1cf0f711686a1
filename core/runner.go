package core

import (
	"context"

	"pkt.systems/loquax/schema"
)

// Runner starts interpreter processes and exposes their output as a
// stream of session events.
type Runner interface {
	Run(ctx context.Context, req RunRequest) (RunHandle, error)
}

// RunRequest describes one interpreter invocation.
type RunRequest struct {
	Game       schema.GameRef
	WorkingDir string
}

// RunHandle exposes the event stream and process lifecycle controls of a
// running interpreter.
type RunHandle interface {
	Events() EventStream
	// Send writes raw bytes to the interpreter's stdin. Line commands
	// carry their trailing newline; key mode sends bare bytes.
	Send(text string) error
	Signal(ctx context.Context, sig ProcessSignal) error
	Wait(ctx context.Context) (RunResult, error)
	Close() error
}

// EventStream yields turn events assembled from interpreter output.
type EventStream interface {
	Next(ctx context.Context) (schema.SessionEvent, error)
	Close() error
}

// RunResult describes the process outcome.
type RunResult struct {
	ExitCode int
}

// ProcessSignal indicates which signal to send to the process.
type ProcessSignal string

const (
	// ProcessSignalHUP requests a hangup signal.
	ProcessSignalHUP ProcessSignal = "HUP"
	// ProcessSignalTERM requests a termination signal.
	ProcessSignalTERM ProcessSignal = "TERM"
	// ProcessSignalKILL requests an immediate kill signal.
	ProcessSignalKILL ProcessSignal = "KILL"
)
