package acquire

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/colorgrid/pkg/chart"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/grid"
)

// ErrorEvent reports a failed operation to the display.
type ErrorEvent struct {
	Op  string
	Err error
}

func (e ErrorEvent) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e ErrorEvent) Unwrap() error {
	return e.Err
}

// Display receives coordinator notifications. Session callbacks run on the
// coordinator's control goroutine and must return quickly; implementations
// that touch a UI toolkit hand the update over to its own thread.
type Display interface {
	FrameApplied(ts time.Time, f frame.Frame, cells []grid.Cell)
	ChartPoint(cell int, view chart.View)
	ChartReset(cell int)
	StateChanged(s State)
	Error(ev ErrorEvent)
}

// Displays fans notifications out to several displays.
type Displays []Display

func (d Displays) FrameApplied(ts time.Time, f frame.Frame, cells []grid.Cell) {
	for _, x := range d {
		x.FrameApplied(ts, f, cells)
	}
}

func (d Displays) ChartPoint(cell int, view chart.View) {
	for _, x := range d {
		x.ChartPoint(cell, view)
	}
}

func (d Displays) ChartReset(cell int) {
	for _, x := range d {
		x.ChartReset(cell)
	}
}

func (d Displays) StateChanged(s State) {
	for _, x := range d {
		x.StateChanged(s)
	}
}

func (d Displays) Error(ev ErrorEvent) {
	for _, x := range d {
		x.Error(ev)
	}
}

// LogDisplay writes lifecycle changes and errors to the standard logger.
// Per-tick transitions between Running and ReadInFlight are not logged.
type LogDisplay struct {
	mu     sync.Mutex
	last   State
	frames int
}

// NewLogDisplay creates a LogDisplay.
func NewLogDisplay() *LogDisplay {
	return &LogDisplay{}
}

func (l *LogDisplay) FrameApplied(time.Time, frame.Frame, []grid.Cell) {
	l.mu.Lock()
	l.frames++
	l.mu.Unlock()
}

func (l *LogDisplay) ChartPoint(int, chart.View) {}

func (l *LogDisplay) ChartReset(cell int) {
	log.Printf("Chart %d reset", cell)
}

func (l *LogDisplay) StateChanged(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev := l.last
	l.last = s
	if s == ReadInFlight || (s == Running && prev == ReadInFlight) {
		return
	}
	if s == Running {
		l.frames = 0
	}
	if s == Idle && prev.Active() {
		log.Printf("Acquisition stopped after %d frames", l.frames)
		return
	}
	log.Printf("Acquisition %s", s)
}

func (l *LogDisplay) Error(ev ErrorEvent) {
	log.Printf("Acquisition error: %v", ev)
}

// Frames returns the number of frames applied in the current or last session.
func (l *LogDisplay) Frames() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.frames
}
