package main

import (
	"fmt"
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/itohio/colorgrid/pkg/colormap"
	"github.com/itohio/colorgrid/pkg/grid"
)

// gridView lays out one tappable cell per grid value.
type gridView struct {
	container *fyne.Container
	cells     []*cellWidget
}

func newGridView(g *grid.Grid, onTapped func(cell int)) *gridView {
	_, columns := g.Size()
	snapshot := g.Cells()

	v := &gridView{cells: make([]*cellWidget, len(snapshot))}
	objects := make([]fyne.CanvasObject, len(snapshot))
	for i, c := range snapshot {
		v.cells[i] = newCellWidget(c.Index, onTapped)
		v.cells[i].set(c)
		objects[i] = v.cells[i]
	}
	v.container = container.NewGridWithColumns(columns, objects...)
	return v
}

// update recolors the cells. A snapshot of a different shape is ignored.
func (v *gridView) update(cells []grid.Cell) {
	if len(cells) != len(v.cells) {
		return
	}
	for i, c := range cells {
		v.cells[i].set(c)
	}
}

// cellWidget is a colored square showing a single value.
type cellWidget struct {
	widget.BaseWidget

	index    int
	rect     *canvas.Rectangle
	text     *canvas.Text
	onTapped func(int)
}

func newCellWidget(index int, onTapped func(int)) *cellWidget {
	c := &cellWidget{
		index:    index,
		rect:     canvas.NewRectangle(color.Black),
		text:     canvas.NewText("", color.White),
		onTapped: onTapped,
	}
	c.rect.StrokeColor = color.Gray{Y: 40}
	c.rect.StrokeWidth = 1
	c.text.Alignment = fyne.TextAlignCenter
	c.text.TextStyle = fyne.TextStyle{Monospace: true}
	c.ExtendBaseWidget(c)
	return c
}

func (c *cellWidget) set(cell grid.Cell) {
	c.rect.FillColor = cell.Color.Color()
	c.text.Text = strconv.FormatFloat(cell.Value, 'f', 2, 64)
	c.text.Color = textColor(cell.Color)
	c.rect.Refresh()
	c.text.Refresh()
}

// Tapped opens the chart of the cell.
func (c *cellWidget) Tapped(*fyne.PointEvent) {
	if c.onTapped != nil {
		c.onTapped(c.index)
	}
}

func (c *cellWidget) MinSize() fyne.Size {
	return fyne.NewSize(48, 48)
}

func (c *cellWidget) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(c.rect, container.NewCenter(c.text)))
}

// textColor picks black or white, whichever reads better on bg.
func textColor(bg colormap.RGB) color.Color {
	// ITU-R BT.601 luma
	luma := 0.299*float64(bg.R) + 0.587*float64(bg.G) + 0.114*float64(bg.B)
	if luma > 140 {
		return color.Black
	}
	return color.White
}

// cellTitle names a cell by its zero-based row and column.
func cellTitle(g *grid.Grid, cell int) string {
	row, column := g.Position(cell)
	return fmt.Sprintf("row %d column %d", row, column)
}
