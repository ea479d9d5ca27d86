package acquire

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/link"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

func startSession(t *testing.T, cfg *config.Config) (*Coordinator, *fakeLink, *recordingDisplay, *recordingExporter) {
	t.Helper()

	l := newFakeLink()
	d := newRecordingDisplay()
	e := &recordingExporter{}
	c := New(cfg, d, e)

	require.NoError(t, c.Open(l))
	assert.Equal(t, LinkOpen, c.State())
	assert.False(t, l.IsOpen(), "open validation must close the link again")

	require.NoError(t, c.Start())
	assert.True(t, l.IsOpen())
	return c, l, d, e
}

func TestCoordinator_OpenUnavailable(t *testing.T) {
	l := newFakeLink()
	l.openErr = errors.New("no such port")
	c := New(testConfig(), nil, nil)

	err := c.Open(l)
	assert.ErrorIs(t, err, link.ErrLinkUnavailable)
	assert.Equal(t, Idle, c.State())

	err = c.Start()
	assert.ErrorIs(t, err, link.ErrLinkUnavailable)
	assert.ErrorIs(t, err, ErrNoLink)
	assert.Equal(t, Idle, c.State())
}

func TestCoordinator_StartUnavailable(t *testing.T) {
	l := newFakeLink()
	c := New(testConfig(), nil, nil)
	require.NoError(t, c.Open(l))

	l.mu.Lock()
	l.openErr = errors.New("unplugged")
	l.mu.Unlock()

	assert.ErrorIs(t, c.Start(), link.ErrLinkUnavailable)
	assert.Equal(t, Idle, c.State())
}

func TestCoordinator_SingleFlight(t *testing.T) {
	c, l, d, _ := startSession(t, testConfig())

	c.Tick()
	c.Tick()
	c.Tick()

	assert.Eventually(t, func() bool { return l.reads.Load() == 1 }, waitFor, poll)
	assert.Never(t, func() bool { return l.reads.Load() > 1 }, 50*time.Millisecond, poll)
	assert.Equal(t, ReadInFlight, c.State())

	l.feed("1,2,3\n")
	assert.Eventually(t, func() bool { return c.State() == Running }, waitFor, poll)
	assert.Equal(t, []float64{1, 2, 3}, values(c.Grid().Cells()))

	c.Tick()
	assert.Eventually(t, func() bool { return l.reads.Load() == 2 }, waitFor, poll)
	l.feed("4,5,6\n")
	assert.Eventually(t, func() bool { return d.frameCount() == 2 }, waitFor, poll)

	c.Stop()
	assert.Equal(t, Idle, c.State())
}

func TestCoordinator_StopWaitsForInFlightRead(t *testing.T) {
	c, l, d, e := startSession(t, testConfig())

	c.Tick()
	require.Eventually(t, func() bool { return l.reads.Load() == 1 }, waitFor, poll)

	stopped := make(chan struct{})
	go func() {
		c.Stop()
		close(stopped)
	}()

	assert.Never(t, func() bool {
		select {
		case <-stopped:
			return true
		default:
			return false
		}
	}, 50*time.Millisecond, poll)
	assert.True(t, l.IsOpen())
	assert.Equal(t, Stopping, c.State())

	l.feed("7,8,9\n")
	select {
	case <-stopped:
	case <-time.After(waitFor):
		t.Fatal("Stop did not return after the read completed")
	}

	assert.Equal(t, 1, d.frameCount())
	assert.Equal(t, []float64{7, 8, 9}, values(c.Grid().Cells()))
	assert.False(t, l.IsOpen())
	assert.Equal(t, Idle, c.State())
	assert.NoError(t, c.Err())

	c.Wait()
	sessions := e.exported()
	require.Len(t, sessions, 1)
	require.Len(t, sessions[0].Entries, 1)
	assert.Equal(t, frame.Frame{7, 8, 9}, sessions[0].Entries[0].Frame)
	assert.Equal(t, 1, sessions[0].Rows)
	assert.Equal(t, 3, sessions[0].Columns)
}

func TestCoordinator_MalformedFrameEndsSession(t *testing.T) {
	c, l, d, e := startSession(t, testConfig())

	l.feed("1,2,3\n")
	c.Tick()
	require.Eventually(t, func() bool { return d.frameCount() == 1 }, waitFor, poll)

	l.feed("1.0,x,3.0\n")
	c.Tick()
	require.Eventually(t, func() bool { return len(d.errorEvents()) == 1 }, waitFor, poll)
	assert.Equal(t, Idle, c.State())

	assert.Equal(t, []float64{1, 2, 3}, values(c.Grid().Cells()))
	assert.ErrorIs(t, c.Err(), frame.ErrMalformedFrame)
	assert.False(t, l.IsOpen())

	events := d.errorEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "read", events[0].Op)
	assert.ErrorIs(t, events[0], frame.ErrMalformedFrame)

	c.Wait()
	sessions := e.exported()
	require.Len(t, sessions, 1)
	assert.Len(t, sessions[0].Entries, 1)

	// Further ticks and stops are no-ops
	c.Tick()
	c.Stop()
	assert.Equal(t, int32(2), l.reads.Load())
}

func TestCoordinator_LinkClosedEndsSession(t *testing.T) {
	c, l, d, e := startSession(t, testConfig())

	l.readErr <- errors.New("device disconnected")
	c.Tick()
	require.Eventually(t, func() bool { return len(d.errorEvents()) == 1 }, waitFor, poll)

	assert.Equal(t, Idle, c.State())
	assert.ErrorIs(t, c.Err(), link.ErrLinkClosed)

	c.Wait()
	assert.Empty(t, e.exported(), "empty sessions are not exported")
}

func TestCoordinator_LinkClosedBetweenReads(t *testing.T) {
	c, l, d, e := startSession(t, testConfig())

	l.feed("1,2,3\n")
	c.Tick()
	require.Eventually(t, func() bool { return d.frameCount() == 1 }, waitFor, poll)
	require.Eventually(t, func() bool { return c.State() == Running }, waitFor, poll)

	require.NoError(t, l.Close())
	c.Tick()
	require.Eventually(t, func() bool { return len(d.errorEvents()) == 1 }, waitFor, poll)

	assert.Equal(t, Idle, c.State())
	assert.ErrorIs(t, c.Err(), link.ErrLinkClosed)
	assert.Equal(t, "read", d.errorEvents()[0].Op)

	c.Wait()
	require.Len(t, e.exported(), 1)
	assert.Len(t, e.exported()[0].Entries, 1)
}

func TestCoordinator_ReplayWithoutTrailingNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.txt")
	require.NoError(t, os.WriteFile(path, []byte("1,2,3\n4,5,6"), 0644))

	d := newRecordingDisplay()
	e := &recordingExporter{}
	c := New(testConfig(), d, e)
	require.NoError(t, c.Open(link.OpenFile(path)))
	require.NoError(t, c.Start())

	require.Eventually(t, func() bool {
		c.Tick()
		return len(d.errorEvents()) == 1
	}, waitFor, poll)

	assert.Equal(t, Idle, c.State())
	assert.ErrorIs(t, c.Err(), link.ErrLinkClosed)
	assert.Equal(t, 2, d.frameCount())
	assert.Equal(t, []float64{4, 5, 6}, values(c.Grid().Cells()))

	c.Wait()
	require.Len(t, e.exported(), 1)
	assert.Len(t, e.exported()[0].Entries, 2)
}

func TestCoordinator_RestartResynchronizes(t *testing.T) {
	cfg := testConfig()
	cfg.Grid.Rows = 2
	cfg.Grid.Columns = 1
	c, l, d, _ := startSession(t, cfg)

	l.feed("noise\n")
	l.feed("#\n")
	l.feed("1\n")
	l.feed("2\n")
	l.feed("#\n")
	c.Tick()
	require.Eventually(t, func() bool { return d.frameCount() == 1 }, waitFor, poll)
	c.Stop()

	require.NoError(t, c.Start())
	l.feed("3\n")
	l.feed("#\n")
	l.feed("4\n")
	l.feed("5\n")
	l.feed("#\n")
	c.Tick()
	require.Eventually(t, func() bool { return d.frameCount() == 2 }, waitFor, poll)
	assert.Equal(t, []float64{4, 5}, values(c.Grid().Cells()))
	c.Stop()
}

func TestCoordinator_StartTwice(t *testing.T) {
	c, _, _, _ := startSession(t, testConfig())
	defer c.Stop()

	assert.ErrorIs(t, c.Start(), ErrSessionActive)
	assert.ErrorIs(t, c.Open(newFakeLink()), ErrSessionActive)
}

func TestCoordinator_Charts(t *testing.T) {
	c, l, d, _ := startSession(t, testConfig())
	defer c.Stop()

	require.NoError(t, c.ActivateChart(1))
	assert.Error(t, c.ActivateChart(3))
	assert.Error(t, c.ActivateChart(-1))

	for i, line := range []string{"1,10,1\n", "1,20,1\n"} {
		l.feed(line)
		c.Tick()
		require.Eventually(t, func() bool { return d.frameCount() == i+1 }, waitFor, poll)
	}

	d.mu.Lock()
	views := d.points[1]
	resets := d.resets
	_, other := d.points[0]
	d.mu.Unlock()

	require.Len(t, views, 2)
	assert.Equal(t, float64(20), views[1].Points[1].Y)
	assert.InDelta(t, 9, views[1].MinY, 1e-9)
	assert.InDelta(t, 22, views[1].MaxY, 1e-9)
	assert.False(t, other)
	assert.Equal(t, []int{1}, resets)

	c.DeactivateChart(1)
	assert.Empty(t, c.Charts().Active())
}

func TestCoordinator_ApplyConfig(t *testing.T) {
	d := newRecordingDisplay()
	c := New(testConfig(), d, nil)
	require.NoError(t, c.ActivateChart(2))
	require.NoError(t, c.Grid().ApplyFrame(frame.Frame{1, 2, 3}))

	// Same shape: values return to the midpoint of the new range
	same := testConfig()
	same.Range.Max = 200
	same.Chart.WindowSize = 7
	require.NoError(t, c.ApplyConfig(same))
	assert.Equal(t, []int{2}, c.Charts().Active())
	assert.Equal(t, 7, c.Charts().Window())
	assert.Equal(t, []float64{100, 100, 100}, values(c.Grid().Cells()))

	reshaped := testConfig()
	reshaped.Grid.Rows = 2
	reshaped.Grid.Columns = 2
	require.NoError(t, c.ApplyConfig(reshaped))
	assert.Equal(t, 4, c.Grid().Len())
	assert.Empty(t, c.Charts().Active())
	assert.Equal(t, 2, c.Config().Grid.Rows)

	d.mu.Lock()
	assert.Equal(t, []int{2, 2}, d.resets)
	d.mu.Unlock()

	invalid := testConfig()
	invalid.Range.Min = 500
	assert.Error(t, c.ApplyConfig(invalid))
	assert.Equal(t, 4, c.Grid().Len())
}

func TestCoordinator_ApplyConfigDuringSession(t *testing.T) {
	c, _, _, _ := startSession(t, testConfig())
	defer c.Stop()

	err := c.ApplyConfig(testConfig())
	assert.ErrorIs(t, err, ErrSessionActive)
}

func TestCoordinator_ConfigIsCopied(t *testing.T) {
	cfg := testConfig()
	c := New(cfg, nil, nil)
	cfg.Grid.Rows = 9

	assert.Equal(t, 1, c.Config().Grid.Rows)
}

func TestCoordinator_MockDevice(t *testing.T) {
	cfg := config.Default()
	cfg.Grid.Rows = 2
	cfg.Grid.Columns = 3
	cfg.Acquisition.TickIntervalMs = 5
	cfg.Mock.Rate = 2 * time.Millisecond
	cfg.Mock.BlankRate = 0.2
	cfg.Serial.ReadTimeout = 10 * time.Millisecond

	logDisplay := NewLogDisplay()
	d := newRecordingDisplay()
	e := &recordingExporter{}
	c := New(cfg, Displays{logDisplay, d}, e)

	require.NoError(t, c.Open(link.NewMock(cfg)))
	require.NoError(t, c.Start())
	require.Eventually(t, func() bool { return d.frameCount() >= 3 }, waitFor, poll)
	c.Stop()

	assert.Equal(t, Idle, c.State())
	assert.NoError(t, c.Err())
	assert.Empty(t, d.errorEvents())
	assert.GreaterOrEqual(t, logDisplay.Frames(), 3)

	c.Wait()
	sessions := e.exported()
	require.Len(t, sessions, 1)
	assert.GreaterOrEqual(t, len(sessions[0].Entries), 3)
	for _, entry := range sessions[0].Entries {
		assert.Len(t, entry.Frame, 6)
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "link open", LinkOpen.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "read in flight", ReadInFlight.String())
	assert.Equal(t, "stopping", Stopping.String())
	assert.Equal(t, "state(42)", State(42).String())
	assert.True(t, Stopping.Active())
	assert.False(t, LinkOpen.Active())
}
