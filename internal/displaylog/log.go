package displaylog

import (
	"sync"

	"github.com/atikulmunna/fleetwatch/internal/model"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 50

// Log is a fixed-capacity, insertion-ordered sequence of entries.
// Appends go to the tail; the oldest entries are evicted from the head.
type Log struct {
	mu      sync.RWMutex
	entries []model.LogEntry
	cap     int
}

// New creates a Log holding at most capacity entries.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		entries: make([]model.LogEntry, 0, capacity),
		cap:     capacity,
	}
}

// Append adds an entry to the tail, evicting from the head when full.
func (l *Log) Append(entry model.LogEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry)
	if over := len(l.entries) - l.cap; over > 0 {
		// Shift in place; the backing array stays at capacity.
		n := copy(l.entries, l.entries[over:])
		clear(l.entries[n:])
		l.entries = l.entries[:n]
	}
}

// Snapshot returns a copy of the entries, oldest first.
func (l *Log) Snapshot() []model.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]model.LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Tail returns a copy of the newest n entries, oldest first.
func (l *Log) Tail(n int) []model.LogEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]model.LogEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Len returns the current number of entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Cap returns the fixed capacity.
func (l *Log) Cap() int { return l.cap }
