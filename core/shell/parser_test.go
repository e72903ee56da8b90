package shell

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestParse(t *testing.T) {
	cases := map[string]struct {
		line string
		want Pipeline
	}{
		"empty": {
			line: "",
			want: nil,
		},
		"whitespace only": {
			line: " \t  ",
			want: nil,
		},
		"single command": {
			line: "ls -la /tmp",
			want: Pipeline{{Args: []string{"ls", "-la", "/tmp"}}},
		},
		"extra whitespace": {
			line: "  echo    hello \t world  ",
			want: Pipeline{{Args: []string{"echo", "hello", "world"}}},
		},
		"double quotes bind whitespace": {
			line: `echo "a b"`,
			want: Pipeline{{Args: []string{"echo", "a b"}}},
		},
		"single quotes bind whitespace": {
			line: `echo 'a b'`,
			want: Pipeline{{Args: []string{"echo", "a b"}}},
		},
		"empty quotes are an empty argument": {
			line: `printf "%s|" ""`,
			want: Pipeline{{Args: []string{"printf", "%s|", ""}}},
		},
		"pipeline": {
			line: "seq 1 5 | head -2",
			want: Pipeline{
				{Args: []string{"seq", "1", "5"}},
				{Args: []string{"head", "-2"}},
			},
		},
		"pipe without spaces": {
			line: "ls|wc -l",
			want: Pipeline{
				{Args: []string{"ls"}},
				{Args: []string{"wc", "-l"}},
			},
		},
		"empty segments collapse": {
			line: "a||b",
			want: Pipeline{
				{Args: []string{"a"}},
				{Args: []string{"b"}},
			},
		},
		"leading and trailing pipes": {
			line: "| a | ",
			want: Pipeline{{Args: []string{"a"}}},
		},
		"quoted pipe is literal": {
			line: `echo "a|b" | cat`,
			want: Pipeline{
				{Args: []string{"echo", "a|b"}},
				{Args: []string{"cat"}},
			},
		},
		"input redirection": {
			line: "cat < in.txt",
			want: Pipeline{{Args: []string{"cat"}, InputFile: "in.txt"}},
		},
		"output redirection": {
			line: "ls > out.txt",
			want: Pipeline{{Args: []string{"ls"}, OutputFile: "out.txt"}},
		},
		"append redirection": {
			line: "ls >> out.txt",
			want: Pipeline{{Args: []string{"ls"}, OutputFile: "out.txt", Append: true}},
		},
		"input then output": {
			line: "sort < in > out",
			want: Pipeline{{Args: []string{"sort"}, InputFile: "in", OutputFile: "out"}},
		},
		"output stops argument scanning": {
			line: "echo a > out b c",
			want: Pipeline{{Args: []string{"echo", "a"}, OutputFile: "out"}},
		},
		"background after output": {
			line: "echo a > out &",
			want: Pipeline{{Args: []string{"echo", "a"}, OutputFile: "out", Background: true}},
		},
		"later input replaces earlier": {
			line: "cat < a < b",
			want: Pipeline{{Args: []string{"cat"}, InputFile: "b"}},
		},
		"quoted file name": {
			line: `cat < "my file"`,
			want: Pipeline{{Args: []string{"cat"}, InputFile: "my file"}},
		},
		"background": {
			line: "sleep 10 &",
			want: Pipeline{{Args: []string{"sleep", "10"}, Background: true}},
		},
		"background in pipeline": {
			line: "yes | head -1 &",
			want: Pipeline{
				{Args: []string{"yes"}},
				{Args: []string{"head", "-1"}, Background: true},
			},
		},
		"quoted operators are literal": {
			line: `echo ">" "<" "&"`,
			want: Pipeline{{Args: []string{"echo", ">", "<", "&"}}},
		},
		"dangling output": {
			line: "ls >",
			want: Pipeline{{Args: []string{"ls"}}},
		},
		"dangling input": {
			line: "cat <",
			want: Pipeline{{Args: []string{"cat"}}},
		},
		"operator is not a file name": {
			line: "cat < & ",
			want: Pipeline{{Args: []string{"cat"}, Background: true}},
		},
		"redirection only stage": {
			line: "> out",
			want: Pipeline{{OutputFile: "out"}},
		},
		"unterminated quote runs to end": {
			line: `echo "a b`,
			want: Pipeline{{Args: []string{"echo", "a b"}}},
		},
		"escaped space": {
			line: `ls my\ dir`,
			want: Pipeline{{Args: []string{"ls", "my dir"}}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.line))
		})
	}
}

func TestParse_limits(t *testing.T) {
	t.Run("stages", func(t *testing.T) {
		line := strings.Repeat("true | ", 20) + "true"
		assert.Len(t, Parse(line), DefaultMaxStages)

		p := &Parser{MaxStages: 2}
		assert.Equal(t, Pipeline{{Args: []string{"a"}}, {Args: []string{"b"}}}, p.Parse("a | b | c"))
	})

	t.Run("args", func(t *testing.T) {
		p := &Parser{MaxArgs: 3}
		got := p.Parse("echo 1 2 3 4 > out")
		assert.Equal(t, Pipeline{{Args: []string{"echo", "1", "2"}, OutputFile: "out"}}, got)
	})
}

func TestPipeline_Background(t *testing.T) {
	cases := map[string]struct {
		line string
		want bool
	}{
		"empty":          {"", false},
		"foreground":     {"a | b", false},
		"last stage":     {"a | b &", true},
		"only first set": {"a & | b", false},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.line).Background())
		})
	}
}

func TestPipeline_Runnable(t *testing.T) {
	cases := map[string]struct {
		line string
		want Pipeline
	}{
		"drops empty stages": {
			line: "a | > x | b",
			want: Pipeline{{Args: []string{"a"}}, {Args: []string{"b"}}},
		},
		"all empty": {
			line: "> x | < y",
			want: nil,
		},
		"background moves to last runnable stage": {
			line: "sleep 1 | &",
			want: Pipeline{{Args: []string{"sleep", "1"}, Background: true}},
		},
		"background from dropped middle stage ignored": {
			line: "a & | > x",
			want: Pipeline{{Args: []string{"a"}}},
		},
	}

	for tn, tc := range cases {
		t.Run(tn, func(t *testing.T) {
			assert.Equal(t, tc.want, Parse(tc.line).Runnable())
		})
	}
}

func TestStage_String(t *testing.T) {
	stage := Stage{Args: []string{"sort", "-r"}, InputFile: "in", OutputFile: "out", Append: true, Background: true}
	assert.Equal(t, "sort -r < in >> out &", stage.String())
	assert.Equal(t, "", Stage{}.Name())
	assert.Equal(t, "sort", stage.Name())
}

func TestParseProperties(t *testing.T) {
	word := rapid.StringMatching(`[a-z0-9./-]{1,6}`)

	rapid.Check(t, func(rt *rapid.T) {
		stages := rapid.SliceOfN(rapid.SliceOfN(word, 1, 5), 1, DefaultMaxStages).Draw(rt, "stages")

		var segments []string
		for _, args := range stages {
			segments = append(segments, strings.Join(args, " "))
		}
		line := strings.Join(segments, " | ")

		got := Parse(line)
		if !assert.Len(rt, got, len(stages), fmt.Sprintf("line %q", line)) {
			return
		}
		for i, args := range stages {
			assert.Equal(rt, args, got[i].Args)
			assert.False(rt, got[i].Empty())
		}
	})
}
