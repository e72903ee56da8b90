// Package shell turns a line of input into pipeline stages.
//
// The grammar is deliberately small:
//
//	stage1 | stage2 | ... [< infile] [> outfile | >> outfile] [&]
//
// There is no expansion, globbing, subshells or logical operators.
package shell

import (
	"strings"

	"github.com/anmitsu/go-shlex"
)

const (
	// DefaultMaxStages is the maximum number of stages in a pipeline.
	DefaultMaxStages = 10
	// DefaultMaxArgs is the maximum number of argv entries in a stage.
	DefaultMaxArgs = 64
)

// Reserved tokens, only recognized when unquoted.
const (
	opInput      = "<"
	opOutput     = ">"
	opAppend     = ">>"
	opBackground = "&"
)

// Stage is a single program invocation within a pipeline.
type Stage struct {
	// Args holds the program name followed by its arguments.
	Args []string
	// InputFile is read as stdin when non-empty.
	InputFile string
	// OutputFile receives stdout when non-empty.
	OutputFile string
	// Append opens OutputFile for appending rather than truncating it.
	Append bool
	// Background is set when the stage contained an unquoted &.
	Background bool
}

// Empty reports whether the stage has nothing to run, e.g. it only held
// redirections.
func (s Stage) Empty() bool {
	return len(s.Args) == 0
}

// Name returns the program name or "" for an empty stage.
func (s Stage) Name() string {
	if s.Empty() {
		return ""
	}
	return s.Args[0]
}

func (s Stage) String() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(s.Args, " "))
	if s.InputFile != "" {
		sb.WriteString(" < " + s.InputFile)
	}
	if s.OutputFile != "" {
		if s.Append {
			sb.WriteString(" >> ")
		} else {
			sb.WriteString(" > ")
		}
		sb.WriteString(s.OutputFile)
	}
	if s.Background {
		sb.WriteString(" &")
	}
	return strings.TrimSpace(sb.String())
}

// Pipeline is an ordered chain of stages.
type Pipeline []Stage

// Background reports whether the pipeline should run detached. Only the last
// stage's flag counts.
func (p Pipeline) Background() bool {
	if len(p) == 0 {
		return false
	}
	return p[len(p)-1].Background
}

// Runnable returns the stages that have a program to run, in order. The
// result keeps the pipeline's background setting.
func (p Pipeline) Runnable() Pipeline {
	var out Pipeline
	for _, stage := range p {
		if !stage.Empty() {
			out = append(out, stage)
		}
	}

	if len(out) > 0 {
		out[len(out)-1].Background = p.Background()
	}
	return out
}

// Parser splits lines into pipelines.
type Parser struct {
	// MaxStages caps the number of stages, extra stages are dropped.
	MaxStages int
	// MaxArgs caps the argv length of each stage, extra arguments are dropped.
	MaxArgs int
}

// Parse splits line using the default limits.
func Parse(line string) Pipeline {
	return (&Parser{}).Parse(line)
}

func (p *Parser) maxStages() int {
	if p.MaxStages <= 0 {
		return DefaultMaxStages
	}
	return p.MaxStages
}

func (p *Parser) maxArgs() int {
	if p.MaxArgs <= 0 {
		return DefaultMaxArgs
	}
	return p.MaxArgs
}

// Parse splits line on unquoted pipes and builds a stage from each non-blank
// segment. It never fails: malformed pieces are dropped.
func (p *Parser) Parse(line string) Pipeline {
	var out Pipeline
	for _, segment := range splitUnquoted(line, isPipe) {
		segment = strings.TrimSpace(segment)
		if segment == "" {
			continue
		}
		if len(out) == p.maxStages() {
			break
		}
		out = append(out, p.parseStage(segment))
	}
	return out
}

func (p *Parser) parseStage(segment string) Stage {
	var stage Stage
	words := splitUnquoted(segment, isSpace)

	// Set once an output redirection is seen, after which only & is honored.
	redirected := false
	for i := 0; i < len(words); i++ {
		word := words[i]
		if word == "" {
			continue
		}

		if redirected {
			if word == opBackground {
				stage.Background = true
			}
			continue
		}

		switch word {
		case opBackground:
			stage.Background = true

		case opInput:
			if target, ok := operand(words, i); ok {
				stage.InputFile = target
				i++
			}

		case opOutput, opAppend:
			if target, ok := operand(words, i); ok {
				stage.OutputFile = target
				stage.Append = word == opAppend
				i++
			}
			redirected = true

		default:
			if len(stage.Args) < p.maxArgs() {
				stage.Args = append(stage.Args, unquote(word))
			}
		}
	}

	return stage
}

// operand returns the unquoted word following an operator at index i.
// Operators are never taken as file names.
func operand(words []string, i int) (string, bool) {
	if i+1 >= len(words) || isOperator(words[i+1]) {
		return "", false
	}

	target := unquote(words[i+1])
	return target, target != ""
}

func isOperator(word string) bool {
	switch word {
	case opInput, opOutput, opAppend, opBackground:
		return true
	}
	return false
}

var stripQuotes = strings.NewReplacer(`"`, "", `'`, "")

// unquote removes quoting from a single raw word.
func unquote(raw string) string {
	tokens, err := shlex.Split(raw, true)
	if err != nil {
		// Unterminated quote: it ran to the end of the segment, drop it.
		return stripQuotes.Replace(raw)
	}
	return strings.Join(tokens, "")
}

func isPipe(b byte) bool {
	return b == '|'
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\r', '\n':
		return true
	}
	return false
}

// splitUnquoted cuts s at every separator byte that is outside quotes and not
// escaped. Pieces keep their quoting so the caller can tell `">"` from `>`.
func splitUnquoted(s string, isSep func(byte) bool) []string {
	var (
		out     []string
		start   int
		quote   byte
		escaped bool
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && quote != '\'':
			escaped = true
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case isSep(c):
			out = append(out, s[start:i])
			start = i + 1
		}
	}

	return append(out, s[start:])
}
