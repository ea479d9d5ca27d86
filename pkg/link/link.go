// Package link provides the line-oriented byte stream the frame decoder reads from.
package link

import "errors"

var (
	// ErrLinkUnavailable is returned when the device cannot be opened.
	ErrLinkUnavailable = errors.New("link unavailable")
	// ErrLinkClosed is returned when the device disappears while reading.
	ErrLinkClosed = errors.New("link closed")
)

// Link is a line-oriented connection to a device (real, simulated or replayed).
type Link interface {
	Open() error
	Close() error
	IsOpen() bool
	// ReadLine blocks until a full line is available and returns it including
	// the terminator. It returns an empty slice on timeout or end of input.
	ReadLine() ([]byte, error)
}

// Ensure Serial implements Link.
var _ Link = (*Serial)(nil)

// Ensure Mock implements Link.
var _ Link = (*Mock)(nil)

// Ensure Stream implements Link.
var _ Link = (*Stream)(nil)
