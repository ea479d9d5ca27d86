// Package acquire drives the tick, read and publish cycle of an acquisition session.
//
// A session runs one control goroutine that owns the ticker. Each tick launches
// at most one decode worker; ticks arriving while a read is in flight are
// dropped. Completed frames are applied to the grid, the session log and the
// active charts on the control goroutine only.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/colorgrid/pkg/chart"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/export"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/grid"
	"github.com/itohio/colorgrid/pkg/link"
	"github.com/itohio/colorgrid/pkg/session"
)

var (
	// ErrSessionActive is returned by operations that are only allowed between sessions.
	ErrSessionActive = errors.New("session active")
	// ErrNoLink is returned by Start when no link has been opened.
	ErrNoLink = errors.New("no link selected")
)

// Coordinator owns the grid, the chart buffers and the session log and
// coordinates them with a link.
type Coordinator struct {
	mu      sync.Mutex
	cfg     *config.Config
	state   State
	lnk     link.Link
	current *run
	err     error

	grid     *grid.Grid
	charts   *chart.Set
	log      *session.Log
	display  Display
	exporter export.Exporter
	exports  sync.WaitGroup
	now      func() time.Time
}

// run is the control state of one session.
type run struct {
	ticks chan struct{}
	stop  chan struct{}
	done  chan struct{}
}

type result struct {
	ts    time.Time
	frame frame.Frame
	err   error
}

// New creates an idle coordinator. display and exporter may be nil.
func New(cfg *config.Config, display Display, exporter export.Exporter) *Coordinator {
	if cfg == nil {
		cfg = config.Default()
	}
	cfg = cfg.Clone()
	if display == nil {
		display = Displays(nil)
	}

	return &Coordinator{
		cfg:      cfg,
		state:    Idle,
		grid:     grid.New(cfg.Grid.Rows, cfg.Grid.Columns, cfg.Scale()),
		charts:   chart.NewSet(cfg.Chart.WindowSize),
		log:      session.New(),
		display:  display,
		exporter: exporter,
		now:      time.Now,
	}
}

// Grid returns the grid model. It may be read concurrently.
func (c *Coordinator) Grid() *grid.Grid {
	return c.grid
}

// Charts returns the chart buffers. They may be read concurrently.
func (c *Coordinator) Charts() *chart.Set {
	return c.charts
}

// Config returns a copy of the configuration in use.
func (c *Coordinator) Config() *config.Config {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cfg.Clone()
}

// State returns the current state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Err returns the error that ended the last session, if any.
func (c *Coordinator) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Open selects l as the link for the next session. The link is opened and
// closed again to check that the device is reachable.
func (c *Coordinator) Open(l link.Link) error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return fmt.Errorf("cannot change link: %w", ErrSessionActive)
	}

	err := l.Open()
	if err == nil {
		err = l.Close()
	}
	if err != nil {
		c.lnk = nil
		c.state = Idle
		c.mu.Unlock()
		c.display.StateChanged(Idle)
		return unavailable(err)
	}

	c.lnk = l
	c.state = LinkOpen
	c.mu.Unlock()
	c.display.StateChanged(LinkOpen)
	return nil
}

// Start begins a session on the selected link.
func (c *Coordinator) Start() error {
	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return ErrSessionActive
	}
	if c.lnk == nil {
		c.mu.Unlock()
		return fmt.Errorf("%w: %w", link.ErrLinkUnavailable, ErrNoLink)
	}

	l := c.lnk
	if !l.IsOpen() {
		if err := l.Open(); err != nil {
			c.state = Idle
			c.mu.Unlock()
			c.display.StateChanged(Idle)
			return unavailable(err)
		}
	}

	cfg := c.cfg
	dec := frame.NewDecoder(l, cfg.Grid.Rows, cfg.Grid.Columns,
		cfg.Protocol.RowDelimiter.Byte(), cfg.Protocol.ValueDelimiter.Byte())

	r := &run{
		ticks: make(chan struct{}),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	c.current = r
	c.err = nil
	c.state = Running
	c.log.Start(c.now())
	c.mu.Unlock()

	c.display.StateChanged(Running)
	go c.control(r, l, dec, cfg)
	return nil
}

// Tick requests one read outside the periodic schedule. It is dropped when no
// session runs or a read is already in flight.
func (c *Coordinator) Tick() {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return
	}

	select {
	case r.ticks <- struct{}{}:
	case <-r.done:
	}
}

// Stop ends the running session. It blocks until an in-flight read has been
// processed, the link is closed and the log has been handed to the exporter.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()
	if r == nil {
		return
	}

	select {
	case r.stop <- struct{}{}:
	case <-r.done:
	}
	<-r.done
}

// Wait blocks until every export started so far has finished.
func (c *Coordinator) Wait() {
	c.exports.Wait()
}

// ApplyConfig replaces the configuration between sessions. The grid is reset
// to the scale midpoint and charts are dropped when the shape changes.
func (c *Coordinator) ApplyConfig(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	c.mu.Lock()
	if c.state.Active() {
		c.mu.Unlock()
		return fmt.Errorf("cannot apply configuration: %w", ErrSessionActive)
	}

	cfg = cfg.Clone()
	rows, cols := c.grid.Size()
	reshape := rows != cfg.Grid.Rows || cols != cfg.Grid.Columns
	var dropped []int
	if reshape {
		dropped = c.charts.Active()
		c.charts.Clear()
	}
	c.charts.SetWindow(cfg.Chart.WindowSize)
	c.grid.SetScale(cfg.Scale())
	if reshape {
		c.grid.Reshape(cfg.Grid.Rows, cfg.Grid.Columns)
	} else {
		c.grid.Reset()
	}
	c.cfg = cfg
	c.mu.Unlock()

	for _, cell := range dropped {
		c.display.ChartReset(cell)
	}
	return nil
}

// ActivateChart starts recording the history of cell with an empty buffer.
func (c *Coordinator) ActivateChart(cell int) error {
	if cell < 0 || cell >= c.grid.Len() {
		return fmt.Errorf("cell %d out of range [0, %d)", cell, c.grid.Len())
	}
	c.charts.Activate(cell)
	c.display.ChartReset(cell)
	return nil
}

// DeactivateChart stops recording the history of cell.
func (c *Coordinator) DeactivateChart(cell int) {
	c.charts.Deactivate(cell)
}

// control is the session loop. It is the only writer of the grid, the charts
// and the log while the session runs.
func (c *Coordinator) control(r *run, l link.Link, dec *frame.Decoder, cfg *config.Config) {
	defer close(r.done)

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	results := make(chan result, 1)
	inFlight := false

	// launch starts a read unless one is in flight. A link that closed
	// itself between reads ends the session.
	launch := func() *ErrorEvent {
		if inFlight {
			return nil
		}
		if !l.IsOpen() {
			return &ErrorEvent{Op: "read", Err: link.ErrLinkClosed}
		}
		inFlight = true
		c.setState(ReadInFlight)

		ts := c.now()
		go func() {
			f, err := dec.Decode(ctx)
			results <- result{ts: ts, frame: f, err: err}
		}()
		return nil
	}

	for {
		var ev *ErrorEvent
		select {
		case <-ticker.C:
			ev = launch()
		case <-r.ticks:
			ev = launch()
		case res := <-results:
			inFlight = false
			if ev := c.complete(res); ev != nil {
				c.finish(r, l, cfg, ev)
				return
			}
			if !dec.Synchronized() {
				log.Printf("Frame footer missing, searching for the next frame start")
			}
			c.setState(Running)
		case <-r.stop:
			c.setState(Stopping)
			cancel()
			if inFlight {
				res := <-results
				if res.err == nil {
					if ev := c.complete(res); ev != nil {
						log.Printf("Dropped last frame on stop: %v", ev)
					}
				}
			}
			c.finish(r, l, cfg, nil)
			return
		}
		if ev != nil {
			c.finish(r, l, cfg, ev)
			return
		}
	}
}

// complete publishes a finished read. It returns the event that ends the
// session when the read failed or the frame does not fit the grid.
func (c *Coordinator) complete(res result) *ErrorEvent {
	if res.err != nil {
		return &ErrorEvent{Op: "read", Err: res.err}
	}
	if err := c.grid.ApplyFrame(res.frame); err != nil {
		return &ErrorEvent{Op: "apply", Err: err}
	}

	c.log.Append(res.ts, res.frame)
	c.display.FrameApplied(res.ts, res.frame, c.grid.Cells())

	for _, cell := range c.charts.Active() {
		if cell >= len(res.frame) {
			continue
		}
		if view, ok := c.charts.Push(cell, res.frame[cell]); ok {
			c.display.ChartPoint(cell, view)
		}
	}
	return nil
}

// finish closes the link, hands the log to the exporter and returns to Idle.
func (c *Coordinator) finish(r *run, l link.Link, cfg *config.Config, ev *ErrorEvent) {
	if err := l.Close(); err != nil {
		log.Printf("Failed to close link: %v", err)
	}

	c.export(c.log.Drain(), cfg.Grid.Rows, cfg.Grid.Columns)

	c.mu.Lock()
	if c.current == r {
		c.current = nil
	}
	c.state = Idle
	if ev != nil {
		c.err = *ev
	}
	c.mu.Unlock()

	c.display.StateChanged(Idle)
	if ev != nil {
		c.display.Error(*ev)
	}
}

// export runs the exporter in the background. Wait joins it.
func (c *Coordinator) export(rec session.Record, rows, columns int) {
	if c.exporter == nil {
		return
	}
	if rec.Empty() {
		log.Printf("Session recorded no frames, nothing to export")
		return
	}

	s := export.NewSession(rec, rows, columns)
	c.exports.Add(1)
	go func() {
		defer c.exports.Done()
		if err := c.exporter.Export(context.Background(), s); err != nil {
			log.Printf("Failed to export session %s: %v", s.ID, err)
			c.display.Error(ErrorEvent{Op: "export", Err: err})
			return
		}
		log.Printf("Exported session %s (%d frames)", s.ID, len(s.Entries))
	}()
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.display.StateChanged(s)
}

func unavailable(err error) error {
	if errors.Is(err, link.ErrLinkUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", link.ErrLinkUnavailable, err)
}
