package main

import (
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/itohio/colorgrid/pkg/acquire"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paintRecorder struct {
	mu      sync.Mutex
	painted [][]grid.Cell
}

func (r *paintRecorder) paint(cells []grid.Cell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.painted = append(r.painted, cells)
}

func (r *paintRecorder) snapshot() [][]grid.Cell {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]grid.Cell(nil), r.painted...)
}

func TestRepaintThrottle_PaintsLastOfBurst(t *testing.T) {
	var rec paintRecorder
	th := newRepaintThrottle(20*time.Millisecond, rec.paint)

	burst := make([][]grid.Cell, 5)
	for i := range burst {
		burst[i] = []grid.Cell{{Index: 0, Value: float64(i)}}
		th.submit(burst[i])
	}

	assert.Eventually(t, func() bool { return len(rec.snapshot()) == 2 }, 2*time.Second, 5*time.Millisecond)
	painted := rec.snapshot()
	assert.Equal(t, burst[0], painted[0])
	assert.Equal(t, burst[4], painted[1])

	// Nothing else is pending
	time.Sleep(60 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 2)

	// Past the interval a frame is painted at once
	th.submit(burst[2])
	painted = rec.snapshot()
	require.Len(t, painted, 3)
	assert.Equal(t, burst[2], painted[2])
}

func newTestState(t *testing.T) *appState {
	t.Helper()
	a := test.NewTempApp(t)
	cfg := config.Default()
	s := &appState{
		app:    a,
		cfg:    cfg,
		window: a.NewWindow("test"),
		charts: make(map[int]*chartWindow),
		coord:  acquire.New(cfg, nil, nil),
	}
	s.repaint = newRepaintThrottle(updateInterval, s.paintCells)
	return s
}

func TestOpenChart(t *testing.T) {
	s := newTestState(t)

	s.openChart(2)
	require.Contains(t, s.charts, 2)
	assert.True(t, s.coord.Charts().IsActive(2))

	// A dropped recording is restarted on the open window
	s.coord.DeactivateChart(2)
	s.openChart(2)
	assert.Len(t, s.charts, 1)
	assert.True(t, s.coord.Charts().IsActive(2))

	s.charts[2].win.Close()
	assert.Empty(t, s.charts)
	assert.False(t, s.coord.Charts().IsActive(2))
}

func TestOpenChart_InvalidCellOpensNoWindow(t *testing.T) {
	s := newTestState(t)
	windows := len(s.app.Driver().AllWindows())

	s.openChart(99)
	assert.Empty(t, s.charts)
	assert.Len(t, s.app.Driver().AllWindows(), windows)
}
