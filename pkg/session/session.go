// Package session records the frames acquired between a start and a stop.
package session

import (
	"sync"
	"time"

	"github.com/itohio/colorgrid/pkg/frame"
)

// Entry is one recorded frame.
type Entry struct {
	Time  time.Time
	Frame frame.Frame
}

// Record is a finished session handed to exporters.
type Record struct {
	Start   time.Time
	Entries []Entry
}

// Empty reports whether the record holds no frames.
func (r Record) Empty() bool {
	return len(r.Entries) == 0
}

// Log accumulates entries for the running session. Appends are ignored while
// the log is closed.
type Log struct {
	mu      sync.Mutex
	start   time.Time
	entries []Entry
	open    bool
}

// New creates a closed, empty log.
func New() *Log {
	return &Log{}
}

// Start opens a new session, discarding whatever a previous session left.
func (l *Log) Start(ts time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.start = ts
	l.entries = nil
	l.open = true
}

// Append records a copy of f.
func (l *Log) Append(ts time.Time, f frame.Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return
	}
	l.entries = append(l.entries, Entry{Time: ts, Frame: f.Clone()})
}

// Drain closes the log and returns its contents. Draining a closed log
// returns an empty record.
func (l *Log) Drain() Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.open {
		return Record{}
	}
	l.open = false
	r := Record{Start: l.start, Entries: l.entries}
	l.entries = nil
	return r
}

// Len returns the number of entries recorded so far.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Open reports whether a session is being recorded.
func (l *Log) Open() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.open
}
