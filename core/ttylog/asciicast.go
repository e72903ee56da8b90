package ttylog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// AsciicastFileExt holds the suggested file extension for asciicast files.
const AsciicastFileExt = "cast"

// AsciicastHeader describes the recorded terminal.
type AsciicastHeader struct {
	Width  int
	Height int
	Title  string
	Env    map[string]string
}

// DefaultAsciicastHeader gives generic settings that display most outputs.
func DefaultAsciicastHeader() AsciicastHeader {
	return AsciicastHeader{
		Width:  80,
		Height: 24,
		Title:  "myshell session",
		Env: map[string]string{
			"TERM":  "xterm-256color",
			"SHELL": "myshell",
		},
	}
}

func writeJSONLine(w io.Writer, structure interface{}) error {
	line, err := json.Marshal(structure)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n", string(line))
	return err
}

// NewAsciicastLogSink creates a LogSink compatible with the asciicast v2
// format. The header is written with the first entry.
//
// See: https://github.com/asciinema/asciinema/blob/develop/doc/asciicast-v2.md
func NewAsciicastLogSink(w io.Writer, header AsciicastHeader) LogSink {
	var (
		start time.Time
		once  sync.Once
	)

	return func(entry *Entry) error {
		var headerErr error
		once.Do(func() {
			start = entry.Time
			headerErr = writeJSONLine(w, map[string]interface{}{
				"version":   2,
				"width":     header.Width,
				"height":    header.Height,
				"timestamp": start.Unix(),
				"title":     header.Title,
				"env":       header.Env,
			})
		})
		if headerErr != nil {
			return headerErr
		}

		direction := "o"
		if entry.Stream == StreamInput {
			direction = "i"
		}

		deltaSecond := microsecondsToSeconds(entry.Time.Sub(start).Microseconds())
		return writeJSONLine(w, &asciicastLogLine{deltaSecond, direction, string(entry.Data)})
	}
}

type AsciicastLogSource struct {
	r             *bufio.Reader
	consumeHeader sync.Once
	headerErr     error
	start         time.Time
}

var _ LogSource = (*AsciicastLogSource)(nil)

// NewAsciicastLogSource reads log events from an Asciicast formatted file.
func NewAsciicastLogSource(r io.Reader) *AsciicastLogSource {
	return &AsciicastLogSource{r: bufio.NewReader(r)}
}

// Next gets the next log entry, it returns io.EOF if there are no more.
func (log *AsciicastLogSource) Next() (*Entry, error) {
	log.consumeHeader.Do(func() {
		var header struct {
			Version   int   `json:"version"`
			Timestamp int64 `json:"timestamp"`
		}
		line, err := log.r.ReadBytes('\n')
		if err != nil {
			log.headerErr = err
			return
		}
		if err := json.Unmarshal(line, &header); err != nil {
			log.headerErr = fmt.Errorf("malformed header: %w", err)
			return
		}
		if header.Version != 2 {
			log.headerErr = fmt.Errorf("unsupported asciicast version %d", header.Version)
			return
		}
		log.start = time.Unix(header.Timestamp, 0)
	})
	if log.headerErr != nil {
		return nil, log.headerErr
	}

	for {
		line, err := log.r.ReadBytes('\n')
		if err != nil {
			return nil, err
		}

		if len(line) == 1 {
			// Skip blank lines
			continue
		}

		var asciicastLine asciicastLogLine
		if err := json.Unmarshal(line, &asciicastLine); err != nil {
			return nil, err
		}

		var stream Stream
		switch asciicastLine.EventType {
		case "o":
			stream = StreamOutput
		case "i":
			stream = StreamInput
		default:
			// skip unknown events
			continue
		}

		return &Entry{
			Time:   log.start.Add(time.Duration(secondsToMicroseconds(asciicastLine.TimeSeconds)) * time.Microsecond),
			Stream: stream,
			Data:   []byte(asciicastLine.EventData),
		}, nil
	}
}

type asciicastLogLine struct {
	TimeSeconds float64
	EventType   string
	EventData   string
}

func (log *asciicastLogLine) UnmarshalJSON(data []byte) error {
	var v []interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if count := len(v); count != 3 {
		return fmt.Errorf("malformed line, expected 3 entries got %d", count)
	}

	var timeOk, typeOk, dataOk bool
	log.TimeSeconds, timeOk = v[0].(float64)
	log.EventType, typeOk = v[1].(string)
	log.EventData, dataOk = v[2].(string)

	if !timeOk || !typeOk || !dataOk {
		return fmt.Errorf("malformed data in line: %q", v)
	}

	return nil
}

func (log *asciicastLogLine) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{log.TimeSeconds, log.EventType, log.EventData})
}

func microsecondsToSeconds(microseconds int64) (seconds float64) {
	return (float64(microseconds) * float64(time.Microsecond)) / float64(time.Second)
}

func secondsToMicroseconds(seconds float64) (microseconds int64) {
	return int64(float64(seconds)*float64(time.Second)) / int64(time.Microsecond)
}
