package core

import (
	"fmt"
	"os"
	"sort"

	"github.com/pborman/getopt/v2"
)

// AllBuiltins holds a list of all registered shell builtins
var AllBuiltins = make(map[string]ShellBuiltin)

type ShellBuiltin interface {
	Main(s *Shell, args []string) int
}

type ShellBuiltinFunc func(s *Shell, args []string) int

func (f ShellBuiltinFunc) Main(s *Shell, args []string) int {
	return f(s, args)
}

var _ ShellBuiltin = (ShellBuiltinFunc)(nil)

// BuiltinNames returns the registered builtins in sorted order.
func BuiltinNames() []string {
	var names []string
	for name := range AllBuiltins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Cd is the cd shell builtin
func Cd(s *Shell, args []string) int {
	switch len(args) {
	case 1:
		home := os.Getenv("HOME")
		if home == "" {
			var err error
			if home, err = os.UserHomeDir(); err != nil {
				fmt.Fprintf(s.Stderr(), "%s: %v\n", args[0], err)
				return 1
			}
		}
		args = append(args, home)
		fallthrough
	case 2:
		if err := os.Chdir(args[1]); err != nil {
			fmt.Fprintf(s.Stderr(), "%s: %v\n", args[0], err)
			return 1
		}
	default:
		fmt.Fprintf(s.Stderr(), "%s: too many arguments\n", args[0])
		return 1
	}
	return 0
}

// Exit quits the shell
func Exit(s *Shell, args []string) int {
	s.exit = true
	return 0
}

// History prints the retained lines with their ordinals, -c clears them.
func History(s *Shell, args []string) int {
	opts := getopt.New()
	clearOpt := opts.Bool('c', "clear the history by deleting all entries")
	helpOpt := opts.BoolLong("help", 'h', "show help and exit")

	if err := opts.Getopt(args, nil); err != nil || *helpOpt || opts.NArgs() > 0 {
		w := s.Stderr()
		if err != nil {
			fmt.Fprintln(w, err)
		}
		fmt.Fprintln(w, "usage: history [-c]")
		fmt.Fprintln(w, "Display the history list with line numbers.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Options:")
		opts.PrintOptions(w)
		return 1
	}

	if *clearOpt {
		s.History.Clear()
		return 0
	}

	for n, line := range s.History.List() {
		fmt.Fprintf(s.Stdout(), "%d: %s\n", n, line)
	}
	return 0
}

// Help describes the grammar, the builtins and the editing keys.
func Help(s *Shell, args []string) int {
	w := s.Stdout()
	fmt.Fprintln(w, "myshell, a small interactive shell.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  stage1 | stage2 | ... [< infile] [> outfile | >> outfile] [&]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Builtins:")
	fmt.Fprintln(w, "  cd [DIR]       change the working directory, $HOME by default")
	fmt.Fprintln(w, "  exit           leave the shell")
	fmt.Fprintln(w, "  help           show this help")
	fmt.Fprintln(w, "  history [-c]   show or clear the command history")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Keys:")
	fmt.Fprintln(w, "  up/down        browse history")
	fmt.Fprintln(w, "  left/right     move the cursor")
	fmt.Fprintln(w, "  home/end       jump to the start or end of the line")
	fmt.Fprintln(w, "  Ctrl-C         discard the line")
	fmt.Fprintln(w, "  Ctrl-D         quit on an empty line")

	return 0
}

func init() {
	AllBuiltins["cd"] = ShellBuiltinFunc(Cd)
	AllBuiltins["history"] = ShellBuiltinFunc(History)
	AllBuiltins["help"] = ShellBuiltinFunc(Help)
	AllBuiltins["exit"] = ShellBuiltinFunc(Exit)
}
