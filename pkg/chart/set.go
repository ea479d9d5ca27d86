package chart

import (
	"slices"
	"sync"
)

// Set holds the buffers of the cells whose charts are currently open.
type Set struct {
	mu      sync.RWMutex
	window  int
	buffers map[int]*Buffer
}

// NewSet creates a set with no active charts.
func NewSet(window int) *Set {
	return &Set{
		window:  window,
		buffers: make(map[int]*Buffer),
	}
}

// Activate starts recording for cell with an empty buffer. Activating an
// already active cell resets its buffer.
func (s *Set) Activate(cell int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers[cell] = NewBuffer(s.window)
}

// Deactivate stops recording for cell and drops its history.
func (s *Set) Deactivate(cell int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.buffers, cell)
}

// IsActive reports whether cell is recording.
func (s *Set) IsActive(cell int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buffers[cell]
	return ok
}

// Active returns the active cell indices in ascending order.
func (s *Set) Active() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]int, 0, len(s.buffers))
	for cell := range s.buffers {
		result = append(result, cell)
	}
	slices.Sort(result)
	return result
}

// Push appends v to the cell's buffer and returns the updated view. It is a
// no-op returning false when the cell is not active.
func (s *Set) Push(cell int, v float64) (View, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buffers[cell]
	if !ok {
		return View{}, false
	}
	b.Push(v)
	return b.View(), true
}

// Reset empties the cell's buffer while keeping it active.
func (s *Set) Reset(cell int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.buffers[cell]; ok {
		b.Reset()
	}
}

// Clear deactivates every chart.
func (s *Set) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.buffers)
}

// Series returns a copy of the cell's points.
func (s *Set) Series(cell int) []Point {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.buffers[cell]; ok {
		return b.Series()
	}
	return nil
}

// View returns the cell's current view.
func (s *Set) View(cell int) (View, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.buffers[cell]
	if !ok {
		return View{}, false
	}
	return b.View(), true
}

// Window returns the window size.
func (s *Set) Window() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.window
}

// SetWindow applies a new window size to all current and future buffers.
func (s *Set) SetWindow(window int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = window
	for _, b := range s.buffers {
		b.SetWindow(window)
	}
}
