// Package logging routes the standard logger to stdout and a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/itohio/colorgrid/pkg/config"
)

// RotatingWriter is an io.Writer that starts a new file once the current one
// would grow beyond maxBytes. Old files are kept as path.1 ... path.N.
type RotatingWriter struct {
	mu      sync.Mutex
	path    string
	max     int64
	backups int
	file    *os.File
	size    int64
}

// NewRotatingWriter opens path for appending. maxBytes <= 0 disables rotation.
func NewRotatingWriter(path string, maxBytes, backups int) (*RotatingWriter, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}

	w := &RotatingWriter{
		path:    path,
		max:     int64(maxBytes),
		backups: max(backups, 0),
	}
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *RotatingWriter) open() error {
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to stat log file: %w", err)
	}
	w.file = f
	w.size = info.Size()
	return nil
}

// Write appends p, rotating first when p would not fit.
func (w *RotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return 0, os.ErrClosed
	}
	if w.max > 0 && w.size > 0 && w.size+int64(len(p)) > w.max {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}

	n, err := w.file.Write(p)
	w.size += int64(n)
	return n, err
}

// Close closes the current file.
func (w *RotatingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

func (w *RotatingWriter) rotate() error {
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("failed to close log file: %w", err)
	}
	w.file = nil

	if w.backups == 0 {
		if err := os.Truncate(w.path, 0); err != nil {
			return fmt.Errorf("failed to truncate log file: %w", err)
		}
		return w.open()
	}

	os.Remove(backupName(w.path, w.backups))
	for i := w.backups - 1; i >= 1; i-- {
		os.Rename(backupName(w.path, i), backupName(w.path, i+1))
	}
	if err := os.Rename(w.path, backupName(w.path, 1)); err != nil {
		return fmt.Errorf("failed to rotate log file: %w", err)
	}
	return w.open()
}

func backupName(path string, n int) string {
	return fmt.Sprintf("%s.%d", path, n)
}

// Configure points the standard logger at the outputs selected in cfg.
// Stdout is used when nothing else is configured. The returned function
// closes the log file.
func Configure(cfg config.LogConfig) (func(), error) {
	var (
		writers []io.Writer
		file    *RotatingWriter
	)

	if cfg.File != "" {
		w, err := NewRotatingWriter(cfg.File, cfg.MaxBytes, cfg.BackupCount)
		if err != nil {
			return func() {}, err
		}
		file = w
		writers = append(writers, w)
	}
	if cfg.Stdout || len(writers) == 0 {
		writers = append(writers, os.Stdout)
	}

	log.SetOutput(io.MultiWriter(writers...))
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)

	return func() {
		log.SetOutput(os.Stderr)
		if file != nil {
			file.Close()
		}
	}, nil
}
