package link

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

const (
	// DefaultBaudRate is the baud rate used when none is configured.
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single ReadLine call when no data arrives.
	DefaultReadTimeout = 100 * time.Millisecond
	// MaxLineLength is the longest line returned before a terminator is forced.
	MaxLineLength = 64 * 1024

	readChunk = 256
)

// Port represents a serial port.
type Port struct {
	Name        string
	Description string
}

// Serial represents a connection to the grid device over a serial port.
type Serial struct {
	port        string
	baudRate    int
	readTimeout time.Duration

	mu   sync.RWMutex
	conn io.ReadWriteCloser
	open bool

	// Accessed only by the reader.
	pending []byte
	chunk   []byte
}

// New creates a new Serial link for the specified port, baud rate and read timeout.
func New(port string, baudRate int, readTimeout time.Duration) *Serial {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Serial{
		port:        port,
		baudRate:    baudRate,
		readTimeout: readTimeout,
		chunk:       make([]byte, readChunk),
	}
}

// Ports returns a list of available serial ports.
func Ports() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		// Fall back to plain names when USB details are unavailable
		names, err := serial.GetPortsList()
		if err != nil {
			return nil, fmt.Errorf("failed to list serial ports: %w", err)
		}
		result := make([]Port, 0, len(names))
		for _, name := range names {
			result = append(result, Port{Name: name, Description: name})
		}
		return result, nil
	}

	result := make([]Port, 0, len(details))
	for _, d := range details {
		desc := d.Name
		if d.IsUSB {
			desc = fmt.Sprintf("%s - %s (%s:%s)", d.Name, d.Product, d.VID, d.PID)
		}
		result = append(result, Port{Name: d.Name, Description: desc})
	}
	return result, nil
}

// Name returns the port name.
func (s *Serial) Name() string {
	return s.port
}

// Open opens the serial port.
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open {
		return nil
	}

	port, err := serial.Open(s.port, &serial.Mode{BaudRate: s.baudRate})
	if err != nil {
		return fmt.Errorf("%w: failed to open serial port %s: %w", ErrLinkUnavailable, s.port, err)
	}
	if err := port.SetReadTimeout(s.readTimeout); err != nil {
		port.Close()
		return fmt.Errorf("%w: failed to set read timeout on %s: %w", ErrLinkUnavailable, s.port, err)
	}

	s.conn = port
	s.open = true
	s.pending = s.pending[:0]

	return nil
}

// Close closes the serial port.
func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return nil
	}

	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			log.Printf("Error closing serial port: %v", err)
		}
		s.conn = nil
	}
	s.open = false

	return nil
}

// IsOpen returns whether the port is currently open.
func (s *Serial) IsOpen() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open
}

// ReadLine reads up to and including the next '\n'. Partial lines are kept
// across read timeouts, so a timeout returns an empty slice without losing data.
func (s *Serial) ReadLine() ([]byte, error) {
	s.mu.RLock()
	conn := s.conn
	s.mu.RUnlock()

	if conn == nil {
		return nil, nil
	}

	for {
		if line, ok := s.takeLine(); ok {
			return line, nil
		}

		n, err := conn.Read(s.chunk)
		if n > 0 {
			s.pending = append(s.pending, s.chunk[:n]...)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLinkClosed, s.port, err)
		}
		// Read timeout
		return nil, nil
	}
}

// takeLine removes the first complete line from the pending buffer.
func (s *Serial) takeLine() ([]byte, bool) {
	i := bytes.IndexByte(s.pending, '\n')
	if i < 0 {
		if len(s.pending) < MaxLineLength {
			return nil, false
		}
		i = len(s.pending) - 1
	}

	line := make([]byte, i+1)
	copy(line, s.pending[:i+1])
	s.pending = append(s.pending[:0], s.pending[i+1:]...)
	return line, true
}
