//go:build !unix

package tty

import "golang.org/x/term"

// makeCbreak falls back to full raw mode where termios isn't available.
func makeCbreak(fd int) error {
	_, err := term.MakeRaw(fd)
	return err
}
