// Package export persists finished acquisition sessions.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/itohio/colorgrid/pkg/session"
)

// SheetTimeLayout names a session after its start time.
const SheetTimeLayout = "2006-01-02 15.04.05"

// EntryTimeLayout formats the time column of exported frames.
const EntryTimeLayout = "2006-01-02 15:04:05.000000"

// Session is a finished session together with the grid shape it was recorded with.
type Session struct {
	ID      uuid.UUID
	Start   time.Time
	Rows    int
	Columns int
	Entries []session.Entry
}

// NewSession wraps a drained record with a fresh ID.
func NewSession(rec session.Record, rows, columns int) Session {
	return Session{
		ID:      uuid.New(),
		Start:   rec.Start,
		Rows:    rows,
		Columns: columns,
		Entries: rec.Entries,
	}
}

// Name returns the start time formatted for file and sheet names.
func (s Session) Name() string {
	return s.Start.Format(SheetTimeLayout)
}

// Cells returns the number of values per frame.
func (s Session) Cells() int {
	return s.Rows * s.Columns
}

// Exporter writes a session somewhere. Export is called at most once per
// session and must not modify the entries.
type Exporter interface {
	Export(ctx context.Context, s Session) error
}

// Multi exports to every member and joins their errors.
type Multi []Exporter

// Export runs every exporter even when one of them fails.
func (m Multi) Export(ctx context.Context, s Session) error {
	var errs []error
	for _, e := range m {
		if err := e.Export(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every member that holds resources.
func (m Multi) Close() error {
	var errs []error
	for _, e := range m {
		if c, ok := e.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds the exporters enabled in cfg.
func FromConfig(cfg config.ExportConfig) (Multi, error) {
	var m Multi

	if cfg.Workbook != "" {
		m = append(m, NewWorkbook(filepath.Join(cfg.Dir, cfg.Workbook)))
	}
	if cfg.Archive != "" {
		a, err := OpenArchive(filepath.Join(cfg.Dir, cfg.Archive))
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to open archive: %w", err)
		}
		m = append(m, a)
	}
	if cfg.Overview {
		m = append(m, NewOverview(cfg.Dir))
	}

	if len(m) == 0 {
		log.Printf("No session exporters enabled")
	}
	return m, nil
}
