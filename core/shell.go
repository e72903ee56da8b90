package core

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/josephlewis42/myshell/core/config"
	"github.com/josephlewis42/myshell/core/history"
	"github.com/josephlewis42/myshell/core/lineedit"
	"github.com/josephlewis42/myshell/core/pipeline"
	"github.com/josephlewis42/myshell/core/shell"
)

// Discarder drops interrupts that arrived between lines.
type Discarder interface {
	Discard()
}

// Shell reads lines, runs builtins in-process and everything else as
// pipelines of external programs.
type Shell struct {
	Config   *config.Configuration
	History  *history.History
	Editor   *lineedit.Editor
	Parser   *shell.Parser
	Executor *pipeline.Executor
	Logger   *log.Logger

	// Interrupts, if set, is cleared before every prompt.
	Interrupts Discarder

	stdout io.Writer
	stderr io.Writer
	prompt string
	exit   bool
}

// NewShell creates a shell on the given streams. Child processes only
// inherit Stdin if it is a file, any other reader belongs to the editor.
func NewShell(cfg *config.Configuration, streams pipeline.IOBindings, logger *log.Logger) *Shell {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	childIn := streams.Stdin
	if _, ok := childIn.(*os.File); !ok {
		childIn = nil
	}

	hist := history.New(cfg.HistorySize)

	return &Shell{
		Config:  cfg,
		History: hist,
		Editor: &lineedit.Editor{
			In:        streams.Stdin,
			Out:       streams.Stdout,
			History:   hist,
			MaxLength: cfg.MaxLineLength,
		},
		Parser: &shell.Parser{
			MaxStages: cfg.MaxStages,
			MaxArgs:   cfg.MaxArgs,
		},
		Executor: &pipeline.Executor{
			IO: pipeline.IOBindings{
				Stdin:  childIn,
				Stdout: streams.Stdout,
				Stderr: streams.Stderr,
			},
			Logger: logger,
		},
		Logger: logger,
		stdout: streams.Stdout,
		stderr: streams.Stderr,
		prompt: cfg.Prompt,
	}
}

// SetColor colors the prompt if enabled.
func (s *Shell) SetColor(enabled bool) {
	c := color.New(color.FgGreen, color.Bold)
	if enabled {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	s.prompt = c.Sprint(s.Config.Prompt)
}

// Prompt is printed before every line.
func (s *Shell) Prompt() string {
	return s.prompt
}

// Stdout is where builtins write output.
func (s *Shell) Stdout() io.Writer {
	return s.stdout
}

// Stderr is where builtins write errors.
func (s *Shell) Stderr() io.Writer {
	return s.stderr
}

// Run reads and executes lines until end of input or the exit builtin. It
// returns the shell's exit status, 0 in both cases.
func (s *Shell) Run() int {
	defer s.History.Clear()

	s.Logger.Printf("session started")
	defer s.Logger.Printf("session ended")

	for !s.exit {
		if s.Interrupts != nil {
			s.Interrupts.Discard()
		}

		line, err := s.Editor.ReadLine(s.prompt)
		switch {
		case errors.Is(err, io.EOF):
			return 0
		case err != nil:
			// An unreadable terminal is the end of input.
			s.Logger.Printf("reading input: %v", err)
			return 0
		}

		s.Execute(line)
	}

	return 0
}

// Execute runs one line and returns its status.
func (s *Shell) Execute(line string) int {
	stages := s.Parser.Parse(line).Runnable()
	if len(stages) == 0 {
		return 0
	}

	if len(stages) == 1 {
		if builtin, ok := AllBuiltins[stages[0].Name()]; ok {
			return s.runBuiltin(builtin, stages[0])
		}
	}

	result, err := s.Executor.Run(stages)
	if err != nil {
		s.Logger.Printf("running %q: %v", line, err)
		fmt.Fprintf(s.stderr, "myshell: %v\n", err)
		return 1
	}

	if result.Background {
		return 0
	}
	return result.ExitCode()
}

// runBuiltin runs a builtin in-process, honoring output redirection.
func (s *Shell) runBuiltin(builtin ShellBuiltin, stage shell.Stage) int {
	if stage.OutputFile != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if stage.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		fd, err := os.OpenFile(stage.OutputFile, flags, 0644)
		if err != nil {
			fmt.Fprintf(s.stderr, "myshell: %v\n", err)
			return pipeline.ExitRedirectFailed
		}
		defer fd.Close()

		prev := s.stdout
		s.stdout = fd
		defer func() { s.stdout = prev }()
	}

	s.Logger.Printf("builtin: %s", stage)
	return builtin.Main(s, stage.Args)
}
