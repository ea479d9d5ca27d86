// Package chart keeps the rolling per-cell history shown in chart windows.
package chart

// Point is one chart sample. X counts pushes since the buffer was reset.
type Point struct {
	X float64
	Y float64
}

// View is a snapshot of a buffer together with its axis ranges.
type View struct {
	Points []Point
	MinX   float64
	MaxX   float64
	MinY   float64
	MaxY   float64
}

// Buffer is a FIFO of at most window+1 points.
type Buffer struct {
	window int
	points []Point
	minX   int
	next   int
}

// NewBuffer creates an empty buffer.
func NewBuffer(window int) *Buffer {
	if window < 1 {
		window = 1
	}
	return &Buffer{
		window: window,
		points: make([]Point, 0, window+1),
	}
}

// Push appends v, evicting the oldest point once the buffer is full.
func (b *Buffer) Push(v float64) {
	if len(b.points) > b.window {
		b.evict(1)
	}
	b.points = append(b.points, Point{X: float64(b.next), Y: v})
	b.next++
}

func (b *Buffer) evict(n int) {
	b.points = append(b.points[:0], b.points[n:]...)
	b.minX += n
}

// SetWindow changes the window, dropping the oldest points that no longer fit.
func (b *Buffer) SetWindow(window int) {
	if window < 1 {
		window = 1
	}
	b.window = window
	if over := len(b.points) - (window + 1); over > 0 {
		b.evict(over)
	}
}

// Reset empties the buffer and restarts X at zero.
func (b *Buffer) Reset() {
	b.points = b.points[:0]
	b.minX = 0
	b.next = 0
}

// Len returns the number of stored points.
func (b *Buffer) Len() int {
	return len(b.points)
}

// MinX returns the X of the oldest point that is still visible.
func (b *Buffer) MinX() int {
	return b.minX
}

// Series returns a copy of the stored points, oldest first.
func (b *Buffer) Series() []Point {
	result := make([]Point, len(b.points))
	copy(result, b.points)
	return result
}

// View returns the points and axis ranges. The Y range spans min*0.9 to
// max*1.1 of the stored values; an empty buffer has a zero Y range and an X
// range of [0, 1].
func (b *Buffer) View() View {
	v := View{
		Points: b.Series(),
		MinX:   float64(b.minX),
		MaxX:   1,
	}
	if len(b.points) == 0 {
		return v
	}

	minY, maxY := b.points[0].Y, b.points[0].Y
	for _, p := range b.points[1:] {
		minY = min(minY, p.Y)
		maxY = max(maxY, p.Y)
	}
	v.MinY = minY * 0.9
	v.MaxY = maxY * 1.1
	v.MaxX = b.points[len(b.points)-1].X
	return v
}
