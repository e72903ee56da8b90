package ttylog

import (
	"bytes"
	"errors"
	"io"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorded struct {
	stream Stream
	data   string
}

func TestRecorder(t *testing.T) {
	var got []recorded
	sink := func(e *Entry) error {
		got = append(got, recorded{e.Stream, string(e.Data)})
		return nil
	}

	var out bytes.Buffer
	rec := NewRecorder(strings.NewReader("ls\n"), &out, sink, nil)

	buf := make([]byte, 16)
	n, err := rec.Stdin().Read(buf)
	require.Nil(t, err)
	assert.Equal(t, "ls\n", string(buf[:n]))

	_, err = io.WriteString(rec.Stdout(), "myshell> ")
	require.Nil(t, err)

	// Nothing is recorded at EOF.
	_, err = rec.Stdin().Read(buf)
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, "myshell> ", out.String())
	assert.Equal(t, []recorded{
		{StreamInput, "ls\n"},
		{StreamOutput, "myshell> "},
	}, got)
}

func TestRecorder_sinkErrorsAreLogged(t *testing.T) {
	var logs bytes.Buffer
	sink := func(*Entry) error { return errors.New("disk full") }

	var out bytes.Buffer
	rec := NewRecorder(strings.NewReader(""), &out, sink, log.New(&logs, "", 0))

	n, err := io.WriteString(rec.Stdout(), "hello")
	assert.Nil(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "hello", out.String())
	assert.Equal(t, "recording output: disk full\n", logs.String())
}

func TestRecorder_toAsciicast(t *testing.T) {
	var cast bytes.Buffer
	rec := NewRecorder(strings.NewReader("x"), io.Discard, NewAsciicastLogSink(&cast, DefaultAsciicastHeader()), nil)

	io.ReadAll(rec.Stdin())
	io.WriteString(rec.Stdout(), "x\r\n")

	var replayed bytes.Buffer
	require.Nil(t, Replay(NewAsciicastLogSource(&cast), NewClientOutput(&replayed)))
	assert.Equal(t, "x\r\n", replayed.String())
}

func TestNewRealTimePlayback(t *testing.T) {
	start := time.Now()
	entries := []*Entry{
		{Time: start, Stream: StreamOutput, Data: []byte("a")},
		{Time: start.Add(time.Hour), Stream: StreamOutput, Data: []byte("b")},
	}

	var out bytes.Buffer
	playback := NewRealTimePlayback(10*time.Millisecond, NewClientOutput(&out))

	began := time.Now()
	for _, e := range entries {
		require.Nil(t, playback(e))
	}

	// The hour long pause is capped.
	assert.True(t, time.Since(began) < 5*time.Second, "pause was not capped")
	assert.Equal(t, "ab", out.String())
}
