// Copyright © 2026 Groups.io, Inc.
// SPDX-License-Identifier: Apache-2.0

package terminal

import (
	"bytes"
	"sync"
)

const defaultScrollback = 1000

// Output is a ring buffer of a terminal's most recent output lines. It is
// an io.Writer; a trailing partial line is held until its newline arrives.
type Output struct {
	mu       sync.RWMutex
	lines    []string
	capacity int
	size     int
	head     int // next write position
	sequence int64
	partial  []byte
}

// NewOutput creates a buffer holding up to capacity lines.
func NewOutput(capacity int) *Output {
	if capacity <= 0 {
		capacity = defaultScrollback
	}
	return &Output{
		lines:    make([]string, capacity),
		capacity: capacity,
	}
}

// Write appends pty output. Carriage returns before newlines are dropped.
func (o *Output) Write(p []byte) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			o.partial = append(o.partial, data...)
			return len(p), nil
		}
		line := append(o.partial, data[:i]...)
		o.partial = o.partial[:0]
		o.add(string(bytes.TrimSuffix(line, []byte{'\r'})))
		data = data[i+1:]
	}
}

func (o *Output) add(line string) {
	o.lines[o.head] = line
	o.head = (o.head + 1) % o.capacity
	if o.size < o.capacity {
		o.size++
	}
	o.sequence++
}

// Lines returns the last n complete lines, oldest first.
func (o *Output) Lines(n int) []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	if n <= 0 || o.size == 0 {
		return []string{}
	}
	n = min(n, o.size)

	result := make([]string, n)
	start := (o.head - n + o.capacity) % o.capacity
	for i := range n {
		result[i] = o.lines[(start+i)%o.capacity]
	}
	return result
}

// Sequence returns the number of lines written so far.
func (o *Output) Sequence() int64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.sequence
}

// Size returns the number of lines held.
func (o *Output) Size() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.size
}
