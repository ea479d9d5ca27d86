package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/itohio/colorgrid/pkg/acquire"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/export"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"gridrec"}, args...))
	return out.String(), err
}

func writeReplay(t *testing.T, path string, rows, columns int, frames []frame.Frame) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := frame.NewWriter(&buf, rows, columns, '#', ',')
	for _, f := range frames {
		require.NoError(t, w.Write(f))
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return buf.Bytes()
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := run(t, "--config", path, "config", "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)

	_, err = run(t, "--config", path, "config", "init")
	assert.Error(t, err)

	_, err = run(t, "--config", path, "config", "init", "--force")
	assert.NoError(t, err)

	out, err = run(t, "--config", path, "config", "check")
	require.NoError(t, err)
	assert.Contains(t, out, "4x4 grid")
}

func TestConfigCheck_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("range:\n  min: 5\n  max: 1\n"), 0o644))

	_, err := run(t, "--config", path, "config", "check")
	assert.Error(t, err)
}

func TestRecord_ReplayToArchive(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	replayPath := filepath.Join(dir, "capture.txt")

	cfg := config.Default()
	cfg.Grid.Rows = 2
	cfg.Grid.Columns = 2
	cfg.Acquisition.TickIntervalMs = 1
	cfg.Export = config.ExportConfig{
		Dir:      filepath.Join(dir, "data"),
		Workbook: "totalData.xlsx",
		Archive:  "sessions.db",
	}
	require.NoError(t, cfg.Save(cfgPath))

	frames := []frame.Frame{
		{1, 2, 3, 4},
		{5.5, 6.5, 7.5, 8.5},
		{-1, 0, 100, 42},
	}
	capture := writeReplay(t, replayPath, 2, 2, frames)

	_, err := run(t, "--config", cfgPath, "record", "--replay", replayPath, "--duration", "10s")
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(dir, "data", "totalData.xlsx"))

	a, err := export.OpenArchive(filepath.Join(dir, "data", "sessions.db"))
	require.NoError(t, err)
	sessions, err := a.Sessions(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.Len(t, sessions, 1)
	assert.Equal(t, 3, sessions[0].Frames)
	assert.Equal(t, 2, sessions[0].Rows)

	out, err := run(t, "--config", cfgPath, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, sessions[0].ID.String())
	assert.Contains(t, out, "2x2")

	out, err = run(t, "--config", cfgPath, "sessions", "dump", "--wire", sessions[0].ID.String())
	require.NoError(t, err)
	assert.Equal(t, string(capture), out)

	out, err = run(t, "--config", cfgPath, "sessions", "dump", sessions[0].ID.String())
	require.NoError(t, err)
	assert.Contains(t, out, ",5.5,6.5,7.5,8.5\n")
}

func TestRecord_ReplayMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := config.Default()
	cfg.Export = config.ExportConfig{Dir: dir}
	require.NoError(t, cfg.Save(cfgPath))

	_, err := run(t, "--config", cfgPath, "record", "--replay", filepath.Join(dir, "missing.txt"))
	assert.Error(t, err)
}

func TestSessionsDump_Errors(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "sessions.db")

	_, err := run(t, "sessions", "dump", "--archive", archive)
	assert.Error(t, err)

	_, err = run(t, "sessions", "dump", "--archive", archive, "not-a-uuid")
	assert.Error(t, err)

	_, err = run(t, "sessions", "dump", "--archive", archive, "0b6b2f4e-3a55-4d7c-9a57-1f0f1b1f8a11")
	assert.Error(t, err)
}

func TestSessionWatch(t *testing.T) {
	w := newSessionWatch()

	w.StateChanged(acquire.LinkOpen)
	w.StateChanged(acquire.Idle)
	select {
	case <-w.Done():
		t.Fatal("done before a session started")
	default:
	}

	w.StateChanged(acquire.Running)
	w.StateChanged(acquire.ReadInFlight)
	w.StateChanged(acquire.Idle)
	select {
	case <-w.Done():
	case <-time.After(time.Second):
		t.Fatal("session end not reported")
	}

	// A second end must not panic
	w.StateChanged(acquire.Running)
	w.StateChanged(acquire.Idle)

	w.Error(acquire.ErrorEvent{Op: "read", Err: assert.AnError})
	assert.NoError(t, w.Err())
	w.Error(acquire.ErrorEvent{Op: "export", Err: assert.AnError})
	assert.ErrorIs(t, w.Err(), assert.AnError)
}
