package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/itohio/colorgrid/pkg/frame"
	"github.com/itohio/colorgrid/pkg/session"
	_ "github.com/mattn/go-sqlite3"
)

const archiveSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	grid_rows  INTEGER NOT NULL,
	grid_cols  INTEGER NOT NULL,
	frames     INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS frames (
	session_id  TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	captured_at INTEGER NOT NULL,
	cell        INTEGER NOT NULL,
	value       REAL NOT NULL,
	PRIMARY KEY (session_id, seq, cell),
	FOREIGN KEY (session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at);
`

// Archive stores sessions in a SQLite database, one row per cell value.
type Archive struct {
	db *sql.DB
}

// Summary describes one archived session.
type Summary struct {
	ID      uuid.UUID
	Start   time.Time
	Rows    int
	Columns int
	Frames  int
}

// OpenArchive creates or opens the database at path.
func OpenArchive(path string) (*Archive, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(archiveSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Archive{db: db}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Export inserts s in a single transaction.
func (a *Archive) Export(ctx context.Context, s Session) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO sessions (id, started_at, grid_rows, grid_cols, frames) VALUES (?, ?, ?, ?, ?)`,
		s.ID.String(), s.Start.UnixNano(), s.Rows, s.Columns, len(s.Entries))
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO frames (session_id, seq, captured_at, cell, value) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer stmt.Close()

	id := s.ID.String()
	for seq, e := range s.Entries {
		ts := e.Time.UnixNano()
		for cell, v := range e.Frame {
			if _, err := stmt.ExecContext(ctx, id, seq, ts, cell, v); err != nil {
				return fmt.Errorf("insert frame %d: %w", seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Sessions lists archived sessions, oldest first.
func (a *Archive) Sessions(ctx context.Context) ([]Summary, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT id, started_at, grid_rows, grid_cols, frames FROM sessions ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var result []Summary
	for rows.Next() {
		var (
			id      string
			started int64
			s       Summary
		)
		if err := rows.Scan(&id, &started, &s.Rows, &s.Columns, &s.Frames); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("parse session id %q: %w", id, err)
		}
		s.Start = time.Unix(0, started)
		result = append(result, s)
	}
	return result, rows.Err()
}

// Entries loads the frames of one session in recording order.
func (a *Archive) Entries(ctx context.Context, id uuid.UUID) ([]session.Entry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT seq, captured_at, value FROM frames WHERE session_id = ? ORDER BY seq, cell`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var (
		result []session.Entry
		last   = -1
	)
	for rows.Next() {
		var (
			seq int
			ts  int64
			v   float64
		)
		if err := rows.Scan(&seq, &ts, &v); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if seq != last {
			result = append(result, session.Entry{Time: time.Unix(0, ts), Frame: frame.Frame{}})
			last = seq
		}
		e := &result[len(result)-1]
		e.Frame = append(e.Frame, v)
	}
	return result, rows.Err()
}
