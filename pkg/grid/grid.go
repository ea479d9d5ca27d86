// Package grid holds the colored cells shown by the live display.
package grid

import (
	"errors"
	"fmt"
	"sync"

	"github.com/itohio/colorgrid/pkg/colormap"
	"github.com/itohio/colorgrid/pkg/frame"
)

// ErrShapeMismatch is returned when a frame does not have one value per cell.
var ErrShapeMismatch = errors.New("frame shape mismatch")

// Cell is one grid position. Index is row-major.
type Cell struct {
	Index int
	Value float64
	Color colormap.RGB
}

// Grid is a rows x columns array of cells. Readers may call any getter
// concurrently with the single writer.
type Grid struct {
	mu      sync.RWMutex
	rows    int
	columns int
	scale   colormap.Scale
	cells   []Cell
}

// New creates a grid with every cell at the scale midpoint.
func New(rows, columns int, scale colormap.Scale) *Grid {
	g := &Grid{scale: scale}
	g.reshape(rows, columns)
	return g
}

// ApplyFrame sets every cell from f and recolors it. On a length mismatch the
// grid is left untouched.
func (g *Grid) ApplyFrame(f frame.Frame) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(f) != len(g.cells) {
		return fmt.Errorf("%w: %d values for %dx%d grid", ErrShapeMismatch, len(f), g.rows, g.columns)
	}
	for i, v := range f {
		g.cells[i].Value = v
		g.cells[i].Color = colormap.Map(v, g.scale)
	}
	return nil
}

// Reshape replaces all cells with fresh ones at the scale midpoint.
func (g *Grid) Reshape(rows, columns int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reshape(rows, columns)
}

func (g *Grid) reshape(rows, columns int) {
	if rows < 1 {
		rows = 1
	}
	if columns < 1 {
		columns = 1
	}
	g.rows = rows
	g.columns = columns

	mid := g.scale.Midpoint()
	color := colormap.Map(mid, g.scale)
	g.cells = make([]Cell, rows*columns)
	for i := range g.cells {
		g.cells[i] = Cell{Index: i, Value: mid, Color: color}
	}
}

// SetScale recolors every cell with a new scale, keeping values.
func (g *Grid) SetScale(scale colormap.Scale) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.scale = scale
	for i := range g.cells {
		g.cells[i].Color = colormap.Map(g.cells[i].Value, scale)
	}
}

// Reset sets every cell back to the scale midpoint.
func (g *Grid) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reshape(g.rows, g.columns)
}

// Scale returns the current color scale.
func (g *Grid) Scale() colormap.Scale {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.scale
}

// Size returns rows and columns.
func (g *Grid) Size() (rows, columns int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.rows, g.columns
}

// Len returns the number of cells.
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.cells)
}

// Cells returns a copy of all cells.
func (g *Grid) Cells() []Cell {
	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]Cell, len(g.cells))
	copy(result, g.cells)
	return result
}

// Cell returns the cell at index i.
func (g *Grid) Cell(i int) (Cell, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if i < 0 || i >= len(g.cells) {
		return Cell{}, false
	}
	return g.cells[i], true
}

// Position converts a cell index into its row and column.
func (g *Grid) Position(i int) (row, column int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return i / g.columns, i % g.columns
}
