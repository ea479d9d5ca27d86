package session

import (
	"testing"
	"time"

	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_AppendDrainOrder(t *testing.T) {
	l := New()
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.Start(start)

	const n = 25
	for i := range n {
		l.Append(start.Add(time.Duration(i)*time.Second), frame.Frame{float64(i)})
	}
	assert.Equal(t, n, l.Len())

	r := l.Drain()
	assert.Equal(t, start, r.Start)
	require.Len(t, r.Entries, n)
	for i, e := range r.Entries {
		assert.Equal(t, frame.Frame{float64(i)}, e.Frame)
		assert.Equal(t, start.Add(time.Duration(i)*time.Second), e.Time)
	}
	assert.False(t, l.Open())

	l.Start(start.Add(time.Hour))
	assert.Equal(t, 0, l.Len())
	assert.True(t, l.Drain().Empty())
}

func TestLog_AppendIgnoredWhenClosed(t *testing.T) {
	l := New()
	l.Append(time.Now(), frame.Frame{1})
	assert.Equal(t, 0, l.Len())

	l.Start(time.Now())
	l.Drain()
	l.Append(time.Now(), frame.Frame{1})
	assert.Equal(t, 0, l.Len())
}

func TestLog_DrainTwice(t *testing.T) {
	l := New()
	l.Start(time.Now())
	l.Append(time.Now(), frame.Frame{1, 2})

	assert.Len(t, l.Drain().Entries, 1)
	r := l.Drain()
	assert.True(t, r.Empty())
	assert.True(t, r.Start.IsZero())
}

func TestLog_AppendCopiesFrame(t *testing.T) {
	l := New()
	l.Start(time.Now())
	f := frame.Frame{1, 2}
	l.Append(time.Now(), f)
	f[0] = 9

	r := l.Drain()
	assert.Equal(t, frame.Frame{1, 2}, r.Entries[0].Frame)
}
