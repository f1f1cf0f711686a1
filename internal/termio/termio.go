// Package termio switches the controlling terminal between line mode
// and raw mode for single-key game input.
package termio

import (
	"golang.org/x/sys/unix"
)

// State holds the terminal attributes to restore after raw mode.
type State struct {
	fd      int
	termios unix.Termios
}

// IsTerminal reports whether fd refers to a terminal.
func IsTerminal(fd int) bool {
	_, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	return err == nil
}

// MakeRaw switches the terminal into raw mode so single keypresses are
// delivered without echo or line buffering, and returns the previous
// state for Restore.
func MakeRaw(fd int) (*State, error) {
	termios, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return nil, err
	}
	prev := &State{fd: fd, termios: *termios}

	raw := *termios
	raw.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.INLCR
	raw.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.IEXTEN
	raw.Cflag &^= unix.CSIZE | unix.PARENB
	raw.Cflag |= unix.CS8

	// Block until one byte is available; keypresses arrive whole.
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &raw); err != nil {
		return nil, err
	}
	return prev, nil
}

// Restore puts the terminal back into the state captured by MakeRaw.
func Restore(state *State) error {
	if state == nil {
		return nil
	}
	return unix.IoctlSetTermios(state.fd, ioctlWriteTermios, &state.termios)
}
