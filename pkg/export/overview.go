package export

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Overview renders a PNG with the per-frame minimum, mean and maximum of a session.
type Overview struct {
	dir    string
	width  vg.Length
	height vg.Length
}

// NewOverview creates an overview exporter writing into dir.
func NewOverview(dir string) *Overview {
	return &Overview{
		dir:    dir,
		width:  vg.Points(960),
		height: vg.Points(480),
	}
}

// Path returns the file the overview of s is written to.
func (o *Overview) Path(s Session) string {
	return filepath.Join(o.dir, s.Name()+".png")
}

// Export saves the plot. Empty sessions are skipped.
func (o *Overview) Export(ctx context.Context, s Session) error {
	if len(s.Entries) == 0 {
		return nil
	}
	if err := os.MkdirAll(o.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	lo, mean, hi := summarize(s)

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Session %s (%dx%d)", s.Name(), s.Rows, s.Columns)
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "value"
	p.BackgroundColor = colornames.Snow
	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.Padding = vg.Points(5)
	p.Add(plotter.NewGrid())

	series := []struct {
		name string
		xys  plotter.XYs
		draw func(*plotter.Line)
	}{
		{"min", lo, func(l *plotter.Line) { l.Color = colornames.Royalblue }},
		{"mean", mean, func(l *plotter.Line) { l.Color = colornames.Seagreen; l.Width = vg.Points(1.5) }},
		{"max", hi, func(l *plotter.Line) { l.Color = colornames.Firebrick }},
	}
	for _, sr := range series {
		if err := ctx.Err(); err != nil {
			return err
		}
		line, points, err := plotter.NewLinePoints(sr.xys)
		if err != nil {
			return fmt.Errorf("failed to build %s line: %w", sr.name, err)
		}
		sr.draw(line)
		points.Shape = draw.CircleGlyph{}
		points.Color = line.Color
		points.Radius = vg.Points(1)
		p.Add(line, points)
		p.Legend.Add(sr.name, line)
	}

	if err := p.Save(o.width, o.height, o.Path(s)); err != nil {
		return fmt.Errorf("failed to save overview: %w", err)
	}
	return nil
}

// summarize reduces each frame to its minimum, mean and maximum against
// seconds since the session start.
func summarize(s Session) (lo, mean, hi plotter.XYs) {
	lo = make(plotter.XYs, len(s.Entries))
	mean = make(plotter.XYs, len(s.Entries))
	hi = make(plotter.XYs, len(s.Entries))

	for i, e := range s.Entries {
		x := e.Time.Sub(s.Start).Seconds()
		mn, mx, sum := math.Inf(1), math.Inf(-1), 0.0
		for _, v := range e.Frame {
			mn = min(mn, v)
			mx = max(mx, v)
			sum += v
		}
		if len(e.Frame) == 0 {
			mn, mx = 0, 0
		} else {
			sum /= float64(len(e.Frame))
		}
		lo[i] = plotter.XY{X: x, Y: mn}
		mean[i] = plotter.XY{X: x, Y: sum}
		hi[i] = plotter.XY{X: x, Y: mx}
	}
	return lo, mean, hi
}
