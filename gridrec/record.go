package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/itohio/colorgrid/pkg/acquire"
	"github.com/itohio/colorgrid/pkg/chart"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/export"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/grid"
	"github.com/itohio/colorgrid/pkg/link"
	"github.com/itohio/colorgrid/pkg/logging"
	"github.com/itohio/colorgrid/pkg/publish"
	"github.com/urfave/cli/v2"
)

func recordCommand() *cli.Command {
	return &cli.Command{
		Name:  "record",
		Usage: "record one session until interrupted, the duration elapses or the device stops",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "serial port override (e.g., COM3 or /dev/ttyACM0)",
			},
			&cli.BoolFlag{
				Name:  "mock",
				Usage: "use the simulated device",
			},
			&cli.StringFlag{
				Name:  "replay",
				Usage: "replay a captured wire-format file instead of a device",
			},
			&cli.DurationFlag{
				Name:    "duration",
				Aliases: []string{"d"},
				Usage:   "stop after this long (0 = until interrupted)",
			},
			&cli.StringFlag{
				Name:  "broker",
				Usage: "MQTT broker override (e.g., tcp://localhost:1883)",
			},
		},
		Action: recordAction,
	}
}

func recordAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if port := c.String("port"); port != "" {
		cfg.Serial.Port = port
	}
	if broker := c.String("broker"); broker != "" {
		cfg.MQTT.Broker = broker
	}

	closeLog, err := logging.Configure(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to configure logging: %w", err)
	}
	defer closeLog()

	exporter, err := export.FromConfig(cfg.Export)
	if err != nil {
		return err
	}
	defer exporter.Close()

	watch := newSessionWatch()
	displays := acquire.Displays{acquire.NewLogDisplay(), watch}
	if cfg.MQTT.Broker != "" {
		feed, err := publish.Connect(cfg.MQTT)
		if err != nil {
			return err
		}
		defer feed.Close()
		displays = append(displays, feed)
	}

	l, name := selectLink(c, cfg)
	coord := acquire.New(cfg, displays, exporter)
	if err := coord.Open(l); err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	log.Printf("Recording from %s (%dx%d grid, tick %s)", name, cfg.Grid.Rows, cfg.Grid.Columns, cfg.TickInterval())

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if d := c.Duration("duration"); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	if err := coord.Start(); err != nil {
		return fmt.Errorf("failed to start acquisition: %w", err)
	}

	select {
	case <-ctx.Done():
		coord.Stop()
	case <-watch.Done():
	}
	coord.Wait()

	if err := coord.Err(); err != nil {
		if c.String("replay") != "" && errors.Is(err, link.ErrLinkClosed) {
			log.Printf("Replay of %s finished", name)
		} else {
			return err
		}
	}
	return watch.Err()
}

// selectLink builds the link chosen on the command line.
func selectLink(c *cli.Context, cfg *config.Config) (link.Link, string) {
	switch {
	case c.String("replay") != "":
		path := c.String("replay")
		return link.OpenFile(path), path
	case c.Bool("mock"):
		return link.NewMock(cfg), "simulated device"
	default:
		return link.New(cfg.Serial.Port, cfg.Serial.BaudRate, cfg.Serial.ReadTimeout), cfg.Serial.Port
	}
}

// sessionWatch reports the end of a session and collects export failures.
type sessionWatch struct {
	mu      sync.Mutex
	started bool
	done    chan struct{}
	errs    []error
}

var _ acquire.Display = (*sessionWatch)(nil)

func newSessionWatch() *sessionWatch {
	return &sessionWatch{done: make(chan struct{})}
}

// Done is closed when the first session has returned to Idle.
func (w *sessionWatch) Done() <-chan struct{} {
	return w.done
}

// Err returns the export failures seen so far.
func (w *sessionWatch) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return errors.Join(w.errs...)
}

func (w *sessionWatch) FrameApplied(time.Time, frame.Frame, []grid.Cell) {}

func (w *sessionWatch) ChartPoint(int, chart.View) {}

func (w *sessionWatch) ChartReset(int) {}

func (w *sessionWatch) StateChanged(s acquire.State) {
	w.mu.Lock()
	defer w.mu.Unlock()

	switch {
	case s.Active():
		w.started = true
	case s == acquire.Idle && w.started:
		select {
		case <-w.done:
		default:
			close(w.done)
		}
	}
}

func (w *sessionWatch) Error(ev acquire.ErrorEvent) {
	if ev.Op != "export" {
		return
	}
	w.mu.Lock()
	w.errs = append(w.errs, ev)
	w.mu.Unlock()
}
