// Package tty manages the controlling terminal: scoped raw input mode and
// reads that an interrupt can wake.
package tty

import (
	"os"

	"golang.org/x/term"
)

// Terminal is a terminal device identified by its file descriptor.
type Terminal struct {
	Fd int
}

// Stdin returns the terminal attached to standard input.
func Stdin() *Terminal {
	return &Terminal{Fd: int(os.Stdin.Fd())}
}

// IsTerminal reports whether the descriptor refers to a terminal.
func (t *Terminal) IsTerminal() bool {
	return term.IsTerminal(t.Fd)
}

// EnableRawMode switches the terminal to non-canonical, no-echo input so
// bytes arrive one at a time. The returned func restores the previous mode
// and must be called on every exit path; it is safe to call more than once.
//
// Signal generation (ISIG) and output processing are left alone so Ctrl-C
// still raises SIGINT and "\n" still moves to the start of the next line.
func (t *Terminal) EnableRawMode() (restore func() error, err error) {
	prev, err := term.GetState(t.Fd)
	if err != nil {
		return nil, err
	}

	if err := makeCbreak(t.Fd); err != nil {
		return nil, err
	}

	restored := false
	return func() error {
		if restored {
			return nil
		}
		restored = true
		return term.Restore(t.Fd, prev)
	}, nil
}
