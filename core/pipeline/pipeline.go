// Package pipeline launches parsed pipelines as connected operating system
// processes.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"syscall"

	"github.com/josephlewis42/myshell/core/shell"
)

// Exit codes for stages that never ran.
const (
	ExitRedirectFailed = 1
	ExitCannotExecute  = 126
	ExitNotFound       = 127
)

// ErrEmptyPipeline is returned when there is nothing to run.
var ErrEmptyPipeline = errors.New("empty pipeline")

// IOBindings are the terminal streams a pipeline is attached to: the first
// stage reads Stdin, the last writes Stdout and every stage writes Stderr.
type IOBindings struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Executor runs pipelines.
type Executor struct {
	IO IOBindings
	// Logger receives launch and exit events, it may be nil.
	Logger *log.Logger
}

// Process is one stage of a launched pipeline.
type Process struct {
	Stage shell.Stage
	// Pid is 0 if the stage failed to launch.
	Pid int
	// ExitCode is the stage's status, valid once the Result is done.
	ExitCode int
	// Err holds the reason the stage failed to launch.
	Err error

	cmd *exec.Cmd
}

// Result describes a launched pipeline.
type Result struct {
	Processes  []*Process
	Background bool

	done chan struct{}
}

// Done is closed once every process in the pipeline has exited.
func (r *Result) Done() <-chan struct{} {
	return r.done
}

// ExitCode is the exit code of the last stage, the pipeline's status. It
// blocks until the pipeline is done.
func (r *Result) ExitCode() int {
	<-r.done
	return r.Processes[len(r.Processes)-1].ExitCode
}

type pipe struct {
	r, w *os.File
}

// makePipes creates every pipe up front so a failure launches nothing.
func makePipes(n int) ([]pipe, error) {
	pipes := make([]pipe, 0, n)
	for i := 0; i < n; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			for _, p := range pipes {
				p.r.Close()
				p.w.Close()
			}
			return nil, err
		}
		pipes = append(pipes, pipe{r: r, w: w})
	}
	return pipes, nil
}

// Run launches the runnable stages of p left to right, each reading the
// previous stage's output. Foreground pipelines are waited for; background
// pipelines return at once and are reaped in the background.
//
// Failures of a single stage are reported on Stderr and recorded in its
// Process, the rest of the pipeline still runs. An error is only returned if
// nothing was launched.
func (e *Executor) Run(p shell.Pipeline) (*Result, error) {
	stages := p.Runnable()
	if len(stages) == 0 {
		return nil, ErrEmptyPipeline
	}

	pipes, err := makePipes(len(stages) - 1)
	if err != nil {
		return nil, fmt.Errorf("creating pipes: %w", err)
	}

	result := &Result{
		Background: stages.Background(),
		done:       make(chan struct{}),
	}

	input := e.IO.Stdin
	if result.Background {
		// Without job control a background pipeline must not compete with the
		// shell for terminal input.
		input = nil
	}

	var inputPipe *os.File
	for i, stage := range stages {
		output := e.IO.Stdout
		var outputPipe *os.File
		if i < len(pipes) {
			outputPipe = pipes[i].w
			output = outputPipe
		}

		result.Processes = append(result.Processes, e.launch(stage, input, output))

		// The child holds its own copies now.
		if inputPipe != nil {
			inputPipe.Close()
		}
		if outputPipe != nil {
			outputPipe.Close()
		}

		if i < len(pipes) {
			inputPipe = pipes[i].r
			input = inputPipe
		}
	}

	if result.Background {
		go e.reap(result)
		return result, nil
	}

	e.wait(result)
	return result, nil
}

// launch starts one stage. Explicit redirections replace the pipe streams.
func (e *Executor) launch(stage shell.Stage, stdin io.Reader, stdout io.Writer) *Process {
	proc := &Process{Stage: stage, ExitCode: -1}

	cmd := exec.Command(stage.Args[0], stage.Args[1:]...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = e.IO.Stderr

	// Redirection files are opened close-on-exec like every descriptor Go
	// creates, so only stdin, stdout and stderr reach the program.
	var opened []*os.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()

	if stage.InputFile != "" {
		f, err := os.Open(stage.InputFile)
		if err != nil {
			return e.fail(proc, ExitRedirectFailed, err, fmt.Sprintf("myshell: %v", err))
		}
		opened = append(opened, f)
		cmd.Stdin = f
	}

	if stage.OutputFile != "" {
		flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
		if stage.Append {
			flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
		}
		f, err := os.OpenFile(stage.OutputFile, flags, 0644)
		if err != nil {
			return e.fail(proc, ExitRedirectFailed, err, fmt.Sprintf("myshell: %v", err))
		}
		opened = append(opened, f)
		cmd.Stdout = f
	}

	if err := cmd.Start(); err != nil {
		var execErr *exec.Error
		switch {
		case errors.Is(err, exec.ErrNotFound):
			return e.fail(proc, ExitNotFound, err, fmt.Sprintf("%s: command not found", stage.Name()))
		case errors.As(err, &execErr):
			return e.fail(proc, ExitCannotExecute, err, fmt.Sprintf("myshell: %s: %v", stage.Name(), execErr.Err))
		default:
			return e.fail(proc, ExitCannotExecute, err, fmt.Sprintf("myshell: %v", err))
		}
	}

	proc.cmd = cmd
	proc.Pid = cmd.Process.Pid
	e.logf("launched pid %d: %s", proc.Pid, stage)
	return proc
}

func (e *Executor) fail(proc *Process, code int, err error, msg string) *Process {
	proc.ExitCode = code
	proc.Err = err

	if e.IO.Stderr != nil {
		fmt.Fprintln(e.IO.Stderr, msg)
	}
	e.logf("failed to launch %q: %v", proc.Stage.String(), err)
	return proc
}

func (e *Executor) wait(result *Result) {
	defer close(result.done)

	for _, proc := range result.Processes {
		if proc.cmd == nil {
			continue
		}
		// Wait errors other than a non-zero exit are I/O copy failures, the
		// status is still recorded.
		if err := proc.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) {
				e.logf("pid %d: %v", proc.Pid, err)
			}
		}
		proc.ExitCode = exitCode(proc.cmd)
		e.logf("pid %d exited with status %d", proc.Pid, proc.ExitCode)
	}
}

func (e *Executor) reap(result *Result) {
	e.wait(result)
	e.logf("background pipeline finished with status %d", result.Processes[len(result.Processes)-1].ExitCode)
}

// exitCode converts the state of a waited command to a shell status. Death by
// signal is reported as 128 plus the signal number.
func exitCode(cmd *exec.Cmd) int {
	state := cmd.ProcessState
	if state == nil {
		return ExitCannotExecute
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return 128 + int(status.Signal())
	}
	return state.ExitCode()
}

func (e *Executor) logf(format string, args ...interface{}) {
	if e.Logger != nil {
		e.Logger.Printf(format, args...)
	}
}
