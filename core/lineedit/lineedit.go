// Package lineedit implements a small line editor that reads raw terminal
// input a byte at a time, echoes it, and supports cursor movement and
// history recall with the arrow keys.
package lineedit

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"unicode/utf8"

	"github.com/josephlewis42/myshell/core/tty"
)

// DefaultMaxLength is the longest line the editor accepts.
const DefaultMaxLength = 1024

const (
	keyCtrlD     = 0x04
	keyBackspace = 0x7f
	keyCtrlH     = 0x08
	keyEscape    = 0x1b
)

var ansiEscape = regexp.MustCompile("\x1b\\[[0-9;]*[A-Za-z]")

// PromptWidth returns the number of columns prompt occupies once printed,
// ignoring color escape sequences.
func PromptWidth(prompt string) int {
	return utf8.RuneCountInString(ansiEscape.ReplaceAllString(prompt, ""))
}

// History is the subset of the history store the editor needs.
type History interface {
	// Record stores a finished line.
	Record(line string)
	// Get returns the line k steps back from the newest, Get(1) is the newest.
	Get(k int) (string, bool)
}

// RawModer switches a terminal into non-canonical, no-echo input.
type RawModer interface {
	EnableRawMode() (restore func() error, err error)
}

// Editor reads lines. It is not safe for concurrent use.
type Editor struct {
	In  io.Reader
	Out io.Writer

	// History is browsed with up/down and receives finished lines, it may be
	// nil.
	History History
	// Terminal, if set, is put into raw mode for the duration of ReadLine.
	Terminal RawModer
	// MaxLength caps the line length, DefaultMaxLength if zero.
	MaxLength int
}

// ReadLine prints prompt and edits a line until Enter or end of input.
//
// It returns io.EOF if input ends before anything was typed. If input ends
// part way through a line, that line is returned without error.
func (e *Editor) ReadLine(prompt string) (string, error) {
	if e.Terminal != nil {
		restore, err := e.Terminal.EnableRawMode()
		if err != nil {
			return "", fmt.Errorf("enabling raw mode: %w", err)
		}
		defer restore()
	}

	maxLength := e.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	s := &session{
		in:          e.In,
		out:         e.Out,
		history:     e.History,
		prompt:      prompt,
		promptWidth: PromptWidth(prompt),
		maxLength:   maxLength,
		buf:         make([]byte, 0, maxLength),
	}
	s.redraw()

	return s.run()
}

type escapeState int

const (
	escNone escapeState = iota
	// escStart follows an ESC byte.
	escStart
	// escSequence follows ESC [ or ESC O until the final byte.
	escSequence
)

// maxEscapeParams bounds the parameter bytes kept for one sequence.
const maxEscapeParams = 8

// session is the state of one ReadLine call.
type session struct {
	in      io.Reader
	out     io.Writer
	history History

	prompt      string
	promptWidth int
	maxLength   int

	buf    []byte
	cursor int

	// browse is how many steps back in history the buffer was loaded from,
	// 0 means the live line.
	browse int
	// saved holds the live line while browsing.
	saved []byte

	esc    escapeState
	params []byte

	scratch [1]byte
}

func (s *session) run() (string, error) {
	for {
		b, err := s.readByte()
		switch {
		case errors.Is(err, tty.ErrInterrupted):
			s.interrupt()
			continue

		case err != nil:
			if len(s.buf) == 0 {
				if errors.Is(err, io.EOF) {
					return "", io.EOF
				}
				return "", err
			}
			fmt.Fprint(s.out, "\n")
			return string(s.buf), nil
		}

		switch s.handle(b) {
		case stepDone:
			fmt.Fprint(s.out, "\n")
			line := string(s.buf)
			if len(line) > 0 && s.history != nil {
				s.history.Record(line)
			}
			return line, nil
		case stepEOF:
			fmt.Fprint(s.out, "\n")
			return "", io.EOF
		}
	}
}

func (s *session) readByte() (byte, error) {
	for {
		n, err := s.in.Read(s.scratch[:])
		if n == 1 {
			return s.scratch[0], nil
		}
		if err != nil {
			return 0, err
		}
	}
}

type step int

const (
	stepEditing step = iota
	stepDone
	stepEOF
)

// handle applies one input byte.
func (s *session) handle(b byte) step {
	// A control byte always aborts a pending sequence and is handled as a
	// key of its own.
	switch s.esc {
	case escStart:
		s.esc = escNone
		switch {
		case b == '[' || b == 'O':
			s.esc = escSequence
			s.params = s.params[:0]
			return stepEditing
		case !isControl(b):
			// Meta-modified key, ignored.
			return stepEditing
		}

	case escSequence:
		switch {
		case b >= 0x20 && b <= 0x3f:
			// Parameter and intermediate bytes.
			if len(s.params) < maxEscapeParams {
				s.params = append(s.params, b)
			}
			return stepEditing
		case b >= 0x40 && b <= 0x7e:
			s.esc = escNone
			s.sequence(string(s.params), b)
			return stepEditing
		default:
			s.esc = escNone
		}
	}

	switch {
	case b == '\n' || b == '\r':
		return stepDone
	case b == keyEscape:
		s.esc = escStart
	case b == keyBackspace || b == keyCtrlH:
		s.backspace()
	case b == keyCtrlD:
		if len(s.buf) == 0 {
			return stepEOF
		}
	case b >= 0x20 && b < 0x7f:
		s.insert(b)
	}
	return stepEditing
}

func isControl(b byte) bool {
	return b < 0x20 || b == keyBackspace
}

// sequence handles a complete ESC [ params final sequence.
func (s *session) sequence(params string, final byte) {
	switch {
	case params == "" && final == 'A':
		s.historyUp()
	case params == "" && final == 'B':
		s.historyDown()
	case params == "" && final == 'C':
		s.moveTo(s.cursor + 1)
	case params == "" && final == 'D':
		s.moveTo(s.cursor - 1)
	case params == "" && final == 'H', final == '~' && (params == "1" || params == "7"):
		s.moveTo(0)
	case params == "" && final == 'F', final == '~' && (params == "4" || params == "8"):
		s.moveTo(len(s.buf))
	case final == '~' && params == "3":
		s.deleteForward()
	}
}

func (s *session) insert(b byte) {
	if len(s.buf) >= s.maxLength {
		return
	}

	s.buf = append(s.buf, 0)
	copy(s.buf[s.cursor+1:], s.buf[s.cursor:])
	s.buf[s.cursor] = b
	s.cursor++
	s.redraw()
}

func (s *session) backspace() {
	if s.cursor == 0 {
		return
	}

	copy(s.buf[s.cursor-1:], s.buf[s.cursor:])
	s.buf = s.buf[:len(s.buf)-1]
	s.cursor--
	s.redraw()
}

func (s *session) deleteForward() {
	if s.cursor == len(s.buf) {
		return
	}

	copy(s.buf[s.cursor:], s.buf[s.cursor+1:])
	s.buf = s.buf[:len(s.buf)-1]
	s.redraw()
}

func (s *session) historyUp() {
	if s.history == nil {
		return
	}
	if s.browse == 0 {
		s.saved = append(s.saved[:0], s.buf...)
	}

	line, ok := s.history.Get(s.browse + 1)
	if !ok {
		return
	}
	s.browse++
	s.load([]byte(line))
	s.redraw()
}

func (s *session) historyDown() {
	if s.browse == 0 {
		return
	}

	s.browse--
	if s.browse == 0 {
		s.load(s.saved)
	} else if line, ok := s.history.Get(s.browse); ok {
		s.load([]byte(line))
	}
	s.redraw()
}

// load replaces the buffer and puts the cursor at its end.
func (s *session) load(line []byte) {
	if len(line) > s.maxLength {
		line = line[:s.maxLength]
	}
	s.buf = append(s.buf[:0], line...)
	s.cursor = len(s.buf)
}

// interrupt abandons the current line and starts over on a fresh one.
func (s *session) interrupt() {
	s.buf = s.buf[:0]
	s.cursor = 0
	s.browse = 0
	s.saved = s.saved[:0]
	s.esc = escNone
	fmt.Fprint(s.out, "\n")
	s.redraw()
}

func (s *session) moveTo(cursor int) {
	if cursor < 0 || cursor > len(s.buf) || cursor == s.cursor {
		return
	}
	s.cursor = cursor
	fmt.Fprintf(s.out, "\x1b[%dG", s.column())
}

// column is the 1-based screen column of the cursor.
func (s *session) column() int {
	return s.promptWidth + s.cursor + 1
}

// redraw clears the line, prints the prompt and buffer, then places the
// cursor.
func (s *session) redraw() {
	fmt.Fprintf(s.out, "\r\x1b[K%s%s\x1b[%dG", s.prompt, s.buf, s.column())
}
