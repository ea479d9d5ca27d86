package scope

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"
	"github.com/itohio/colorgrid/pkg/chart"
)

var (
	gridColor  = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	labelColor = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	titleColor = color.RGBA{R: 220, G: 220, B: 220, A: 255}
)

const (
	marginLeft   = 60
	marginRight  = 20
	marginTop    = 30
	marginBottom = 40

	hLines = 6
	vLines = 10
)

// chartRenderer renders the chart widget.
type chartRenderer struct {
	chart *ChartWidget

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// plotArea is the rectangle data is drawn into, in widget coordinates.
type plotArea struct {
	x, y, w, h float32
}

// axes are the ranges mapped onto a plotArea.
type axes struct {
	minX, maxX float32
	minY, maxY float32
}

// axesFor orders the ranges of v and widens empty ones so they can be divided by.
// Scaling a negative minimum by 0.9 can push it above the maximum.
func axesFor(v chart.View) axes {
	a := axes{
		minX: float32(v.MinX), maxX: float32(v.MaxX),
		minY: float32(min(v.MinY, v.MaxY)), maxY: float32(max(v.MinY, v.MaxY)),
	}
	if a.maxX <= a.minX {
		a.maxX = a.minX + 1
	}
	if a.maxY-a.minY < 1e-9 {
		a.minY--
		a.maxY++
	}
	return a
}

// project maps a data point into area.
func (a axes) project(p chart.Point, area plotArea) fyne.Position {
	fx := (float32(p.X) - a.minX) / (a.maxX - a.minX)
	fy := (float32(p.Y) - a.minY) / (a.maxY - a.minY)
	fx = math32.Max(0, math32.Min(1, fx))
	fy = math32.Max(0, math32.Min(1, fy))
	return fyne.NewPos(area.x+fx*area.w, area.y+area.h-fy*area.h)
}

// MinSize returns the minimum size of the widget.
func (r *chartRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 250)
}

// Layout arranges the widget components.
func (r *chartRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	if r.lastSize != size {
		r.lastSize = size
		r.chart.BaseWidget.Refresh()
	}
}

// Refresh rebuilds the line segments and labels.
func (r *chartRenderer) Refresh() {
	r.chart.mu.RLock()
	view := r.chart.view
	points := r.chart.display
	lineColor := r.chart.color
	r.chart.mu.RUnlock()

	r.objects = []fyne.CanvasObject{r.bg}

	size := r.chart.Size()
	if size.Width <= marginLeft+marginRight || size.Height <= marginTop+marginBottom {
		return
	}

	area := plotArea{
		x: marginLeft,
		y: marginTop,
		w: size.Width - marginLeft - marginRight,
		h: size.Height - marginTop - marginBottom,
	}
	a := axesFor(view)

	r.drawTitle(area, points)
	r.drawGrid(area, a)
	r.drawLine(area, a, points, lineColor)
}

func (r *chartRenderer) drawTitle(area plotArea, points []chart.Point) {
	title := r.chart.title
	if len(points) > 0 {
		title += "   " + formatValue(points[len(points)-1].Y)
	}
	text := canvas.NewText(title, titleColor)
	text.TextSize = 13
	text.TextStyle = fyne.TextStyle{Bold: true}
	text.Move(fyne.NewPos(area.x, 6))
	r.objects = append(r.objects, text)
}

func (r *chartRenderer) drawGrid(area plotArea, a axes) {
	for i := range hLines + 1 {
		y := area.y + float32(i)*area.h/hLines
		r.addLine(fyne.NewPos(area.x, y), fyne.NewPos(area.x+area.w, y), gridColor, 1)

		value := a.maxY - float32(i)*(a.maxY-a.minY)/hLines
		text := canvas.NewText(formatValue(float64(value)), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(area.x-5, y-6))
		r.objects = append(r.objects, text)
	}

	for i, x := range xTicks(a.minX, a.maxX, vLines) {
		pos := a.project(chart.Point{X: float64(x), Y: float64(a.minY)}, area)
		r.addLine(fyne.NewPos(pos.X, area.y), fyne.NewPos(pos.X, area.y+area.h), gridColor, 1)
		if i%2 == 1 {
			continue
		}
		text := canvas.NewText(strconv.Itoa(int(x)), labelColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(pos.X, area.y+area.h+5))
		r.objects = append(r.objects, text)
	}
}

func (r *chartRenderer) drawLine(area plotArea, a axes, points []chart.Point, c color.Color) {
	if len(points) == 1 {
		pos := a.project(points[0], area)
		dot := canvas.NewCircle(c)
		dot.Resize(fyne.NewSize(4, 4))
		dot.Move(pos.SubtractXY(2, 2))
		r.objects = append(r.objects, dot)
		return
	}
	for i := range len(points) - 1 {
		r.addLine(a.project(points[i], area), a.project(points[i+1], area), c, 1.5)
	}
}

func (r *chartRenderer) addLine(p1, p2 fyne.Position, c color.Color, width float32) {
	line := canvas.NewLine(c)
	line.Position1 = p1
	line.Position2 = p2
	line.StrokeWidth = width
	r.objects = append(r.objects, line)
}

// Objects returns all canvas objects for rendering.
func (r *chartRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *chartRenderer) Destroy() {}

// xTicks returns integer tick positions between lo and hi, at most about n of them.
func xTicks(lo, hi float32, n int) []float32 {
	span := hi - lo
	if span <= 0 || n <= 0 {
		return nil
	}
	step := niceStep(span / float32(n))
	first := math32.Ceil(lo/step) * step

	var ticks []float32
	for x := first; x <= hi+step*1e-3; x += step {
		ticks = append(ticks, x)
	}
	return ticks
}

// niceStep rounds raw up to 1, 2 or 5 times a power of ten, never below 1.
func niceStep(raw float32) float32 {
	if raw <= 1 {
		return 1
	}
	exp := math32.Floor(math32.Log10(raw))
	base := math32.Pow(10, exp)
	switch f := raw / base; {
	case f <= 1:
		return base
	case f <= 2:
		return 2 * base
	case f <= 5:
		return 5 * base
	default:
		return 10 * base
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
