package link

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Stream is a Link over an arbitrary byte stream, such as a captured device log.
// Reaching the end of the stream closes the link.
type Stream struct {
	opener func() (io.Reader, error)

	mu     sync.RWMutex
	src    io.Reader
	reader *bufio.Reader
	open   bool
	eof    bool // input exhausted, close on the next read
}

// NewStream creates a Stream that reads r once.
func NewStream(r io.Reader) *Stream {
	used := false
	return &Stream{
		opener: func() (io.Reader, error) {
			if used {
				return nil, errors.New("stream already consumed")
			}
			used = true
			return r, nil
		},
	}
}

// OpenFile creates a Stream that replays the file at path every time it is opened.
func OpenFile(path string) *Stream {
	return &Stream{
		opener: func() (io.Reader, error) {
			return os.Open(path)
		},
	}
}

// Open opens the underlying stream.
func (s *Stream) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}

	src, err := s.opener()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLinkUnavailable, err)
	}
	s.src = src
	s.reader = bufio.NewReader(src)
	s.open = true
	s.eof = false
	return nil
}

// Close closes the underlying stream if it can be closed.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}

func (s *Stream) closeLocked() error {
	if !s.open {
		return nil
	}
	s.open = false
	if c, ok := s.src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// IsOpen returns whether the stream is open and not yet exhausted.
func (s *Stream) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// ReadLine returns the next line. An unterminated last line is returned as
// is; the read after it returns nothing and closes the link.
func (s *Stream) ReadLine() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil, nil
	}
	if s.eof {
		s.closeLocked()
		return nil, nil
	}

	line, err := s.reader.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if len(line) > 0 {
				s.eof = true
				return line, nil
			}
			s.closeLocked()
			return nil, nil
		}
		return line, fmt.Errorf("%w: %w", ErrLinkClosed, err)
	}
	return line, nil
}
