// internal/logger/ring.go
package logger

import (
	"strings"
	"sync"
)

// Ring is a fixed-size ring of recent log lines. The dashboard renders it
// instead of letting zap write to the terminal the TUI owns. It satisfies
// io.Writer so it can back a zapcore.Core directly.
type Ring struct {
	mu    sync.Mutex
	lines []string
	next  int
	full  bool
	total uint64
}

// NewRing creates a ring keeping the most recent size lines.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = 200
	}
	return &Ring{lines: make([]string, size)}
}

// Write appends encoded log output. Multi-line writes are split so each
// entry occupies one slot.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if line == "" {
			continue
		}
		r.lines[r.next] = line
		r.next = (r.next + 1) % len(r.lines)
		if r.next == 0 {
			r.full = true
		}
		r.total++
	}
	return len(p), nil
}

// Recent returns up to limit lines, oldest first. limit <= 0 returns all
// retained lines.
func (r *Ring) Recent(limit int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := r.next
	start := 0
	if r.full {
		count = len(r.lines)
		start = r.next
	}
	if limit > 0 && limit < count {
		start = (start + count - limit) % len(r.lines)
		count = limit
	}

	out := make([]string, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, r.lines[(start+i)%len(r.lines)])
	}
	return out
}

// Len reports how many lines are currently retained.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.lines)
	}
	return r.next
}

// Total reports how many lines were ever written.
func (r *Ring) Total() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}
