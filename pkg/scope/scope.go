// Package scope provides the fyne widget that draws a single cell's chart.
package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/colorgrid/pkg/chart"
)

// ChartWidget is a custom Fyne widget that displays the rolling history of one grid cell.
type ChartWidget struct {
	widget.BaseWidget

	title string

	// Data (protected by mu)
	mu      sync.RWMutex
	view    chart.View
	display []chart.Point
	color   color.Color

	maxDisplayPoints int
}

// NewChartWidget creates an empty chart with the given title.
func NewChartWidget(title string) *ChartWidget {
	w := &ChartWidget{
		title:            title,
		view:             chart.View{MaxX: 1},
		display:          make([]chart.Point, 0, 500),
		color:            color.RGBA{R: 255, G: 165, B: 0, A: 255},
		maxDisplayPoints: 500,
	}
	w.ExtendBaseWidget(w)
	return w
}

// Update replaces the displayed data. Call it on the UI thread (fyne.Do).
func (w *ChartWidget) Update(view chart.View) {
	w.mu.Lock()
	w.view = view
	w.display = chart.Downsample(w.display, view.Points, w.maxDisplayPoints)
	w.mu.Unlock()

	w.Refresh()
}

// Reset clears the chart.
func (w *ChartWidget) Reset() {
	w.Update(chart.View{MaxX: 1})
}

// SetLineColor sets the color of the data line, typically the cell's current color.
func (w *ChartWidget) SetLineColor(c color.Color) {
	w.mu.Lock()
	w.color = c
	w.mu.Unlock()
	w.Refresh()
}

// View returns the last view passed to Update.
func (w *ChartWidget) View() chart.View {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.view
}

// CreateRenderer creates the widget renderer.
func (w *ChartWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &chartRenderer{
		chart:   w,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
