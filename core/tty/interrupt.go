package tty

import (
	"errors"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"github.com/muesli/cancelreader"
)

// ErrInterrupted is returned by InterruptReader.Read when an interrupt arrived
// since the previous read.
var ErrInterrupted = errors.New("interrupted")

// InterruptReader reads from a terminal and turns interrupt signals into
// ErrInterrupted results. The watcher goroutine only wakes a blocked Read, the
// reader's owner sees the interrupt on its own goroutine.
type InterruptReader struct {
	in         io.Reader
	interrupts <-chan os.Signal
	discards   chan chan struct{}
	done       chan struct{}
	stopped    chan struct{}
	pending    atomic.Bool

	mu sync.Mutex
	cr cancelreader.CancelReader
}

var _ io.ReadCloser = (*InterruptReader)(nil)

// NewInterruptReader wraps in, which should be a terminal, and starts
// watching interrupts. Close stops the watcher without closing in.
func NewInterruptReader(in io.Reader, interrupts <-chan os.Signal) (*InterruptReader, error) {
	cr, err := cancelreader.NewReader(in)
	if err != nil {
		return nil, err
	}

	r := &InterruptReader{
		in:         in,
		interrupts: interrupts,
		discards:   make(chan chan struct{}),
		done:       make(chan struct{}),
		stopped:    make(chan struct{}),
		cr:         cr,
	}
	go r.watch()

	return r, nil
}

func (r *InterruptReader) watch() {
	defer close(r.stopped)

	for {
		select {
		case <-r.done:
			return
		case reply := <-r.discards:
			r.drain()
			r.pending.Store(false)
			close(reply)
		case _, ok := <-r.interrupts:
			if !ok {
				return
			}
			r.pending.Store(true)
			r.mu.Lock()
			r.cr.Cancel()
			r.mu.Unlock()
		}
	}
}

// Read reads from the terminal, returning ErrInterrupted instead of data if an
// interrupt is pending.
func (r *InterruptReader) Read(p []byte) (int, error) {
	for {
		if r.pending.Swap(false) {
			return 0, ErrInterrupted
		}

		r.mu.Lock()
		cr := r.cr
		r.mu.Unlock()

		n, err := cr.Read(p)
		if !errors.Is(err, cancelreader.ErrCanceled) {
			return n, err
		}

		// A canceled reader stays canceled, replace it before the next read.
		if err := r.reset(); err != nil {
			return 0, err
		}
	}
}

func (r *InterruptReader) reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cr.Close()
	cr, err := cancelreader.NewReader(r.in)
	if err != nil {
		return err
	}
	r.cr = cr
	return nil
}

// Close stops watching interrupts. Signals still queued are left for the
// next reader.
func (r *InterruptReader) Close() error {
	close(r.done)

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cr.Close()
}

// Discard drops interrupts that arrived while nothing was reading, such as
// ones delivered to a foreground pipeline. Signals still queued for the
// watcher are dropped too.
func (r *InterruptReader) Discard() {
	reply := make(chan struct{})
	select {
	case r.discards <- reply:
		<-reply
	case <-r.stopped:
		r.pending.Store(false)
	}
}

// drain empties the signal queue without blocking. Only the watcher calls it.
func (r *InterruptReader) drain() {
	for {
		select {
		case _, ok := <-r.interrupts:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
