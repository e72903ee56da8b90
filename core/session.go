package core

import (
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/josephlewis42/myshell/core/config"
	"github.com/josephlewis42/myshell/core/pipeline"
	"github.com/josephlewis42/myshell/core/tty"
	"github.com/josephlewis42/myshell/core/ttylog"
	"golang.org/x/term"
)

// Session is a shell attached to the process's own terminal.
type Session struct {
	Shell *Shell

	toClose    listCloser
	interrupts chan os.Signal
}

// NewSession wires a shell to stdin, stdout and stderr: raw mode and
// interrupts when stdin is a terminal, plus the logs named in the
// configuration.
func NewSession(configuration *config.Configuration, stdin, stdout, stderr *os.File) (*Session, error) {
	var toClose listCloser

	logger := log.New(io.Discard, "", 0)
	appLog, err := configuration.OpenAppLog()
	if err != nil {
		return nil, err
	}
	if appLog != nil {
		toClose = append(toClose, appLog)
		logger = log.New(appLog, "[myshell] ", log.LstdFlags)
	}

	session := &Session{
		interrupts: make(chan os.Signal, 1),
	}
	// The shell survives interrupts, children get the default disposition
	// back when they exec.
	signal.Notify(session.interrupts, os.Interrupt)

	shell := NewShell(configuration, pipeline.IOBindings{
		Stdin:  stdin,
		Stdout: stdout,
		Stderr: stderr,
	}, logger)

	terminal := &tty.Terminal{Fd: int(stdin.Fd())}
	isTerminal := terminal.IsTerminal()
	shell.SetColor(configuration.UseColor(isTerminal && term.IsTerminal(int(stdout.Fd()))))

	if isTerminal {
		interruptReader, err := tty.NewInterruptReader(stdin, session.interrupts)
		if err != nil {
			signal.Stop(session.interrupts)
			toClose.Close()
			return nil, err
		}
		toClose = append(toClose, interruptReader)

		shell.Editor.In = interruptReader
		shell.Editor.Terminal = terminal
		shell.Interrupts = interruptReader
	}

	ttyLog, err := configuration.OpenTTYLog()
	if err != nil {
		signal.Stop(session.interrupts)
		toClose.Close()
		return nil, err
	}
	if ttyLog != nil {
		toClose = append(toClose, ttyLog)

		header := ttylog.DefaultAsciicastHeader()
		if width, height, err := term.GetSize(int(stdout.Fd())); err == nil {
			header.Width, header.Height = width, height
		}
		if termName := os.Getenv("TERM"); termName != "" {
			header.Env["TERM"] = termName
		}

		// Only the editor's traffic is recorded, children keep the real
		// terminal.
		recorder := ttylog.NewRecorder(shell.Editor.In, shell.Editor.Out, ttylog.NewAsciicastLogSink(ttyLog, header), logger)
		shell.Editor.In = recorder.Stdin()
		shell.Editor.Out = recorder.Stdout()
	}

	session.Shell = shell
	session.toClose = toClose
	return session, nil
}

// Run runs the shell until it exits and returns its status.
func (s *Session) Run() int {
	return s.Shell.Run()
}

// Close stops watching interrupts and closes the logs.
func (s *Session) Close() error {
	signal.Stop(s.interrupts)
	return s.toClose.Close()
}

type listCloser []io.Closer

func (lc listCloser) Close() error {
	var lastErr error
	for _, v := range lc {
		if err := v.Close(); err != nil {
			lastErr = err
		}
	}

	return lastErr
}
