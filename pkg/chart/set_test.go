package chart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_PushOnlyActive(t *testing.T) {
	s := NewSet(5)

	_, ok := s.Push(3, 1)
	assert.False(t, ok)
	assert.Nil(t, s.Series(3))

	s.Activate(3)
	v, ok := s.Push(3, 1)
	require.True(t, ok)
	assert.Equal(t, []Point{{0, 1}}, v.Points)
	assert.True(t, s.IsActive(3))
	assert.False(t, s.IsActive(2))
}

func TestSet_ActivateResets(t *testing.T) {
	s := NewSet(5)
	s.Activate(0)
	s.Push(0, 1)
	s.Push(0, 2)

	s.Activate(0)
	assert.Empty(t, s.Series(0))
}

func TestSet_ActiveSorted(t *testing.T) {
	s := NewSet(5)
	for _, c := range []int{7, 1, 4} {
		s.Activate(c)
	}
	assert.Equal(t, []int{1, 4, 7}, s.Active())

	s.Deactivate(4)
	assert.Equal(t, []int{1, 7}, s.Active())

	s.Clear()
	assert.Empty(t, s.Active())
}

func TestSet_Reset(t *testing.T) {
	s := NewSet(5)
	s.Activate(2)
	s.Push(2, 9)
	s.Reset(2)

	v, ok := s.View(2)
	require.True(t, ok)
	assert.Empty(t, v.Points)
	assert.True(t, s.IsActive(2))

	_, ok = s.View(5)
	assert.False(t, ok)
}

func TestSet_SetWindow(t *testing.T) {
	s := NewSet(10)
	s.Activate(0)
	for i := range 10 {
		s.Push(0, float64(i))
	}

	s.SetWindow(2)
	assert.Equal(t, 2, s.Window())
	assert.Len(t, s.Series(0), 3)

	s.Activate(1)
	for i := range 10 {
		s.Push(1, float64(i))
	}
	assert.Len(t, s.Series(1), 3)
}
