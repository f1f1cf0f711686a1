package schema

import "errors"

var (
	// ErrInvalidTag indicates a stream tag that does not match the grammar.
	ErrInvalidTag = errors.New("invalid tag")
	// ErrInvalidGame indicates an unusable game name.
	ErrInvalidGame = errors.New("invalid game name")
	// ErrInvalidLibrary indicates an unusable library root.
	ErrInvalidLibrary = errors.New("invalid library root")
	// ErrGameNotFound indicates the game is not in the library.
	ErrGameNotFound = errors.New("game not found")
	// ErrUnsupportedFormat indicates no interpreter claims the game file.
	ErrUnsupportedFormat = errors.New("unsupported game format")
	// ErrInterpreterNotFound indicates the interpreter binary is missing.
	ErrInterpreterNotFound = errors.New("interpreter not found")
	// ErrSessionClosed indicates the interpreter session has ended.
	ErrSessionClosed = errors.New("session closed")
	// ErrBitmapUnavailable indicates the interpreter produced no bitmap dump.
	ErrBitmapUnavailable = errors.New("bitmap unavailable")
	// ErrServerClosed indicates the server has been stopped.
	ErrServerClosed = errors.New("server closed")
	// ErrNotStarted indicates the server has not been started.
	ErrNotStarted = errors.New("server not started")
)
