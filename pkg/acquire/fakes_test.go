package acquire

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/colorgrid/pkg/chart"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/export"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/grid"
)

// fakeLink blocks in ReadLine until a line or an error is fed to it.
type fakeLink struct {
	mu      sync.Mutex
	open    bool
	opens   int
	openErr error

	lines   chan []byte
	readErr chan error
	reads   atomic.Int32
}

func newFakeLink() *fakeLink {
	return &fakeLink{
		lines:   make(chan []byte, 16),
		readErr: make(chan error, 1),
	}
}

func (f *fakeLink) Open() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.openErr != nil {
		return f.openErr
	}
	f.open = true
	f.opens++
	return nil
}

func (f *fakeLink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.open = false
	return nil
}

func (f *fakeLink) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

func (f *fakeLink) ReadLine() ([]byte, error) {
	f.reads.Add(1)
	select {
	case l := <-f.lines:
		return l, nil
	case err := <-f.readErr:
		return nil, err
	}
}

func (f *fakeLink) feed(line string) {
	f.lines <- []byte(line)
}

type recordingDisplay struct {
	mu     sync.Mutex
	frames []frame.Frame
	points map[int][]chart.View
	resets []int
	states []State
	errors []ErrorEvent
}

func newRecordingDisplay() *recordingDisplay {
	return &recordingDisplay{points: make(map[int][]chart.View)}
}

func (d *recordingDisplay) FrameApplied(_ time.Time, f frame.Frame, _ []grid.Cell) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames = append(d.frames, f)
}

func (d *recordingDisplay) ChartPoint(cell int, view chart.View) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.points[cell] = append(d.points[cell], view)
}

func (d *recordingDisplay) ChartReset(cell int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resets = append(d.resets, cell)
}

func (d *recordingDisplay) StateChanged(s State) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states = append(d.states, s)
}

func (d *recordingDisplay) Error(ev ErrorEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, ev)
}

func (d *recordingDisplay) frameCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

func (d *recordingDisplay) errorEvents() []ErrorEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]ErrorEvent(nil), d.errors...)
}

type recordingExporter struct {
	mu       sync.Mutex
	sessions []export.Session
}

func (e *recordingExporter) Export(_ context.Context, s export.Session) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sessions = append(e.sessions, s)
	return nil
}

func (e *recordingExporter) exported() []export.Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]export.Session(nil), e.sessions...)
}

// testConfig returns a 1x3 grid whose ticker never fires during a test.
func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Grid.Rows = 1
	cfg.Grid.Columns = 3
	cfg.Acquisition.TickIntervalMs = int(time.Hour / time.Millisecond)
	return cfg
}

func values(cells []grid.Cell) []float64 {
	result := make([]float64, len(cells))
	for i, c := range cells {
		result[i] = c.Value
	}
	return result
}
