package frame

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
)

// Writer renders frames in the device wire format, so that recorded sessions
// can be replayed through a Decoder.
type Writer struct {
	w          *bufio.Writer
	rows       int
	columns    int
	rowDelim   byte
	valueDelim byte
	frames     int
}

// NewWriter creates a Writer for a rows x columns grid.
func NewWriter(w io.Writer, rows, columns int, rowDelim, valueDelim byte) *Writer {
	return &Writer{
		w:          bufio.NewWriter(w),
		rows:       rows,
		columns:    columns,
		rowDelim:   rowDelim,
		valueDelim: valueDelim,
	}
}

// Write emits one frame. Multi-row frames are preceded by a row delimiter line.
func (w *Writer) Write(f Frame) error {
	if len(f) != w.rows*w.columns {
		return fmt.Errorf("%w: expected %d values, got %d", ErrMalformedFrame, w.rows*w.columns, len(f))
	}

	if w.rows > 1 {
		w.delimiter()
	}
	for r := 0; r < w.rows; r++ {
		for c := 0; c < w.columns; c++ {
			if c > 0 {
				w.w.WriteByte(w.valueDelim)
			}
			w.w.WriteString(strconv.FormatFloat(f[r*w.columns+c], 'g', -1, 64))
		}
		w.w.WriteString("\r\n")
	}
	w.frames++
	return nil
}

// Flush writes buffered frames to the underlying writer.
func (w *Writer) Flush() error {
	return w.w.Flush()
}

// Close terminates the last frame and flushes. The decoder expects a
// delimiter line after every multi-row frame. The underlying writer stays open.
func (w *Writer) Close() error {
	if w.rows > 1 && w.frames > 0 {
		w.delimiter()
	}
	return w.Flush()
}

// Frames returns the number of frames written.
func (w *Writer) Frames() int {
	return w.frames
}

func (w *Writer) delimiter() {
	w.w.WriteByte(w.rowDelim)
	w.w.WriteString("\r\n")
}
