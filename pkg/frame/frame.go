// Package frame decodes line-oriented device output into numeric frames.
//
// A multi-row device emits a row delimiter line, then one line per grid row:
//
//	#
//	1.0,2.0,3.0
//	4.0,5.0,6.0
//	#
//	...
//
// The delimiter line that follows the last row doubles as the footer of the
// frame just read. Single-row devices emit data lines only.
package frame

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/itohio/colorgrid/pkg/link"
)

// ErrMalformedFrame is returned for non-numeric tokens or a wrong value count.
var ErrMalformedFrame = errors.New("malformed frame")

// Frame is one fully decoded set of readings, row-major.
type Frame []float64

// Clone returns a copy of f.
func (f Frame) Clone() Frame {
	if f == nil {
		return nil
	}
	cp := make(Frame, len(f))
	copy(cp, f)
	return cp
}

// Source is the line stream a Decoder reads from. link.Link satisfies it.
type Source interface {
	ReadLine() ([]byte, error)
	IsOpen() bool
}

// State is the decoder state.
type State int

const (
	Seeking State = iota
	ReadingRows
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Seeking:
		return "seeking"
	case ReadingRows:
		return "reading rows"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Decoder turns lines into frames of rows*columns values.
// A Decoder is not safe for concurrent use; at most one Decode may run at a time.
type Decoder struct {
	src        Source
	rows       int
	columns    int
	rowDelim   byte
	valueDelim byte

	state   State
	synced  bool
	pending []byte // line read ahead of its frame, consumed before the source
}

// NewDecoder creates a decoder for a rows x columns grid.
func NewDecoder(src Source, rows, columns int, rowDelim, valueDelim byte) *Decoder {
	return &Decoder{
		src:        src,
		rows:       rows,
		columns:    columns,
		rowDelim:   rowDelim,
		valueDelim: valueDelim,
		state:      Seeking,
	}
}

// Size returns the number of values in a frame.
func (d *Decoder) Size() int {
	return d.rows * d.columns
}

// State returns the state reached by the last Decode.
func (d *Decoder) State() State {
	return d.state
}

// Synchronized reports whether the decoder has found the frame boundary.
func (d *Decoder) Synchronized() bool {
	return d.synced
}

// Reset forgets synchronization so the next Decode searches for a frame start.
func (d *Decoder) Reset() {
	d.state = Seeking
	d.synced = false
	d.pending = nil
}

// Decode blocks until a complete frame has been read. It never returns a
// partial frame: on error the returned frame is nil.
func (d *Decoder) Decode(ctx context.Context) (Frame, error) {
	f, err := d.decode(ctx)
	if err != nil {
		d.state = Failed
		return nil, err
	}
	d.state = Done
	return f, nil
}

func (d *Decoder) decode(ctx context.Context) (Frame, error) {
	if !d.synced {
		d.state = Seeking
		if err := d.seek(ctx); err != nil {
			return nil, err
		}
		d.synced = true
	}

	d.state = ReadingRows
	values := make(Frame, 0, d.Size())
	for r := 0; r < d.rows; r++ {
		line, err := d.nextNonBlank(ctx)
		if err != nil {
			return nil, err
		}
		values, err = d.parseRow(values, line, r)
		if err != nil {
			return nil, err
		}
	}

	if d.rows > 1 {
		footer, err := d.nextNonBlank(ctx)
		if err != nil {
			return nil, err
		}
		if footer[0] != d.rowDelim {
			// Footer missing: let the next search start from this line
			d.pending = footer
			d.synced = false
		}
	}

	if len(values) != d.Size() {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrMalformedFrame, d.Size(), len(values))
	}
	return values, nil
}

// seek skips noise until a row delimiter line. Single-row devices have no
// delimiter line, so they are synchronized immediately.
func (d *Decoder) seek(ctx context.Context) error {
	if d.rows == 1 {
		return nil
	}
	for {
		line, err := d.readLine(ctx)
		if err != nil {
			return err
		}
		if line[0] == d.rowDelim {
			return nil
		}
	}
}

// parseRow appends every non-empty token of line to values.
func (d *Decoder) parseRow(values Frame, line []byte, row int) (Frame, error) {
	for _, tok := range bytes.Split(line, []byte{d.valueDelim}) {
		tok = bytes.TrimSpace(tok)
		if len(tok) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(string(tok), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: row %d: invalid value %q", ErrMalformedFrame, row, tok)
		}
		values = append(values, v)
	}
	return values, nil
}

// nextNonBlank returns the next line that contains more than whitespace.
func (d *Decoder) nextNonBlank(ctx context.Context) ([]byte, error) {
	for {
		line, err := d.readLine(ctx)
		if err != nil {
			return nil, err
		}
		if len(bytes.TrimSpace(line)) > 0 {
			return line, nil
		}
	}
}

// readLine returns the next non-empty read. Empty reads are timeouts while the
// source is open and end of input once it has closed.
func (d *Decoder) readLine(ctx context.Context) ([]byte, error) {
	if d.pending != nil {
		line := d.pending
		d.pending = nil
		return line, nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line, err := d.src.ReadLine()
		if err != nil {
			if errors.Is(err, link.ErrLinkClosed) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %w", link.ErrLinkClosed, err)
		}
		if len(line) > 0 {
			return line, nil
		}
		if !d.src.IsOpen() {
			return nil, link.ErrLinkClosed
		}
	}
}
