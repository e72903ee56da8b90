// Package ttylog records and replays the bytes exchanged with a terminal.
package ttylog

import (
	"io"
	"log"
	"sync"
	"time"
)

// Stream identifies the direction of recorded data.
type Stream int

const (
	// StreamInput is data read from the terminal.
	StreamInput Stream = iota
	// StreamOutput is data written to the terminal.
	StreamOutput
)

func (s Stream) String() string {
	if s == StreamInput {
		return "input"
	}
	return "output"
}

// Entry is one recorded read or write.
type Entry struct {
	Time   time.Time
	Stream Stream
	// Data is only valid for the duration of a LogSink call.
	Data []byte
}

// LogSink receives log events.
type LogSink func(e *Entry) error

// LogSource adapts log readers.
type LogSource interface {
	// Next fetches the next available log entry. It returns io.EOF if the source
	// has no more log entries.
	Next() (*Entry, error)
}

// NewRealTimePlayback plays back the results in real-time.
// If maxSleep > 0, it's used as the maximum duration to pause.
func NewRealTimePlayback(maxSleep time.Duration, next LogSink) LogSink {
	var once sync.Once
	var prev time.Time

	return func(entry *Entry) error {
		once.Do(func() {
			prev = entry.Time
		})

		delta := entry.Time.Sub(prev)
		prev = entry.Time

		if maxSleep > 0 {
			if delta > maxSleep {
				delta = maxSleep
			}
			time.Sleep(delta)
		}

		return next(entry)
	}
}

// NewClientOutput writes terminal output to the given writer, input is
// skipped because the terminal already echoed it.
func NewClientOutput(w io.Writer) LogSink {
	return func(entry *Entry) error {
		if entry.Stream != StreamOutput {
			return nil
		}
		_, err := w.Write(entry.Data)
		return err
	}
}

// Replay reads a stream of events to a callback.
func Replay(recording LogSource, callback LogSink) (err error) {
	for {
		entry, err := recording.Next()
		switch {
		case err == io.EOF:
			return nil
		case err != nil:
			return err
		}

		if err := callback(entry); err != nil {
			return err
		}
	}
}

// Recorder forwards terminal I/O and copies every successful read and write
// to a LogSink.
type Recorder struct {
	mutex  sync.Mutex
	output LogSink
	logger *log.Logger

	in  io.Reader
	out io.Writer
}

// NewRecorder wraps in and out, forwarding all events to output. Sink
// failures are reported to logger and never interrupt the terminal.
func NewRecorder(in io.Reader, out io.Writer, output LogSink, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	recorder := &Recorder{output: output, logger: logger}
	recorder.in = &recordingReader{r: recorder, wrapped: in}
	recorder.out = &recordingWriter{r: recorder, wrapped: out}
	return recorder
}

// Stdin is the recorded input.
func (r *Recorder) Stdin() io.Reader {
	return r.in
}

// Stdout is the recorded output.
func (r *Recorder) Stdout() io.Writer {
	return r.out
}

func (r *Recorder) recordIO(stream Stream, data []byte, dest func([]byte) (int, error)) (int, error) {
	eventTime := time.Now()
	amount, err := dest(data)
	if amount > 0 {
		r.mutex.Lock()
		e2 := r.output(&Entry{
			Time:   eventTime,
			Stream: stream,
			Data:   data[:amount],
		})
		r.mutex.Unlock()
		if e2 != nil {
			r.logger.Printf("recording %s: %v", stream, e2)
		}
	}
	return amount, err
}

type recordingReader struct {
	r       *Recorder
	wrapped io.Reader
}

func (rr *recordingReader) Read(p []byte) (int, error) {
	return rr.r.recordIO(StreamInput, p, rr.wrapped.Read)
}

type recordingWriter struct {
	r       *Recorder
	wrapped io.Writer
}

func (rw *recordingWriter) Write(p []byte) (int, error) {
	return rw.r.recordIO(StreamOutput, p, rw.wrapped.Write)
}
