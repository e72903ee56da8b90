// Package history holds the bounded, in-memory log of submitted lines.
package history

import (
	"iter"
	"strings"
)

// DefaultCapacity is the number of lines retained when no capacity is given.
const DefaultCapacity = 100

// History is a FIFO of recorded lines. When full, recording a new line evicts
// the oldest one.
//
// History is not safe for concurrent use; it belongs to the thread running the
// line editor and builtins.
type History struct {
	lines    []string
	capacity int
	total    int
}

// New creates a History retaining at most capacity lines. Non-positive values
// use DefaultCapacity.
func New(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &History{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Record appends line. Empty and whitespace-only lines are ignored.
func (h *History) Record(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}

	if len(h.lines) == h.capacity {
		// Drop the oldest and shift the rest down before placing the new tail.
		h.lines[0] = ""
		copy(h.lines, h.lines[1:])
		h.lines = h.lines[:len(h.lines)-1]
	}

	h.lines = append(h.lines, line)
	h.total++
}

// List yields (ordinal, line) pairs oldest to newest. Ordinals are 1-based and
// count every line ever recorded, so after eviction the first retained line
// keeps its original number.
func (h *History) List() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		first := h.FirstOrdinal()
		for i, line := range h.lines {
			if !yield(first+i, line) {
				return
			}
		}
	}
}

// FirstOrdinal returns the display ordinal of the oldest retained line.
func (h *History) FirstOrdinal() int {
	return max(1, h.total-h.capacity+1)
}

// Get returns the line k steps back from the most recent; Get(1) is the newest.
func (h *History) Get(k int) (string, bool) {
	if k < 1 || k > len(h.lines) {
		return "", false
	}

	return h.lines[len(h.lines)-k], true
}

// Len returns the number of retained lines.
func (h *History) Len() int {
	return len(h.lines)
}

// Cap returns the maximum number of retained lines.
func (h *History) Cap() int {
	return h.capacity
}

// Total returns how many lines have been recorded since creation or the last
// Clear.
func (h *History) Total() int {
	return h.total
}

// Clear drops every line and resets the ordinals.
func (h *History) Clear() {
	clear(h.lines)
	h.lines = h.lines[:0]
	h.total = 0
}
