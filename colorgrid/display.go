package main

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"github.com/itohio/colorgrid/pkg/acquire"
	"github.com/itohio/colorgrid/pkg/chart"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/grid"
	"github.com/itohio/colorgrid/pkg/scope"
)

// Throttle grid repaints to ~60 FPS
const updateInterval = 16 * time.Millisecond

// repaintThrottle runs paint at most once per interval. Cells arriving
// inside the interval are held and painted when it ends, so the last frame
// of a burst is always shown.
type repaintThrottle struct {
	interval time.Duration
	paint    func([]grid.Cell)

	mu        sync.Mutex
	last      time.Time
	pending   []grid.Cell
	scheduled bool
}

func newRepaintThrottle(interval time.Duration, paint func([]grid.Cell)) *repaintThrottle {
	return &repaintThrottle{interval: interval, paint: paint}
}

func (t *repaintThrottle) submit(cells []grid.Cell) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pending = cells
	if t.scheduled {
		return
	}
	wait := t.interval - time.Since(t.last)
	if wait <= 0 {
		t.flushLocked()
		return
	}
	t.scheduled = true
	time.AfterFunc(wait, t.flush)
}

func (t *repaintThrottle) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.scheduled = false
	t.flushLocked()
}

func (t *repaintThrottle) flushLocked() {
	cells := t.pending
	t.pending = nil
	if cells == nil {
		return
	}
	t.last = time.Now()
	t.paint(cells)
}

// uiDisplay forwards coordinator notifications to the fyne thread.
type uiDisplay struct {
	state *appState
}

var _ acquire.Display = (*uiDisplay)(nil)

func (d *uiDisplay) FrameApplied(ts time.Time, f frame.Frame, cells []grid.Cell) {
	d.state.repaint.submit(cells)
}

// paintCells schedules a repaint of the grid and the open chart line colors.
func (s *appState) paintCells(cells []grid.Cell) {
	fyne.Do(func() {
		s.grid.update(cells)
		for cell, cw := range s.charts {
			if cell < len(cells) {
				cw.chart.SetLineColor(cells[cell].Color.Color())
			}
		}
	})
}

func (d *uiDisplay) ChartPoint(cell int, view chart.View) {
	fyne.Do(func() {
		if cw, ok := d.state.charts[cell]; ok {
			cw.chart.Update(view)
		}
	})
}

func (d *uiDisplay) ChartReset(cell int) {
	fyne.Do(func() {
		if cw, ok := d.state.charts[cell]; ok {
			cw.chart.Reset()
		}
	})
}

func (d *uiDisplay) StateChanged(st acquire.State) {
	fyne.Do(func() {
		d.state.setState(st)
	})
}

func (d *uiDisplay) Error(ev acquire.ErrorEvent) {
	fyne.Do(func() {
		dialog.ShowError(fmt.Errorf("%s failed: %w", ev.Op, ev.Err), d.state.window)
	})
}

// chartWindow is the history window of one cell.
type chartWindow struct {
	win   fyne.Window
	chart *scope.ChartWidget
}

// openChart shows the chart of cell, creating it with an empty history when
// it is not open yet.
func (s *appState) openChart(cell int) {
	if cw, ok := s.charts[cell]; ok {
		if !s.coord.Charts().IsActive(cell) {
			// Recording was dropped by a configuration change
			if err := s.coord.ActivateChart(cell); err != nil {
				dialog.ShowError(err, s.window)
				return
			}
		}
		cw.win.RequestFocus()
		return
	}

	if err := s.coord.ActivateChart(cell); err != nil {
		dialog.ShowError(err, s.window)
		return
	}

	title := cellTitle(s.coord.Grid(), cell)
	cw := &chartWindow{
		win:   s.app.NewWindow(title),
		chart: scope.NewChartWidget(title),
	}
	s.charts[cell] = cw

	cw.win.SetContent(cw.chart)
	cw.win.Resize(fyne.NewSize(600, 400))
	cw.win.SetOnClosed(func() {
		delete(s.charts, cell)
		s.coord.DeactivateChart(cell)
	})
	cw.win.Show()
}

// closeCharts closes every chart window.
func (s *appState) closeCharts() {
	for _, cw := range s.charts {
		cw.win.Close()
	}
}
