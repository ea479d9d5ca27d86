package link

import (
	"context"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/itohio/colorgrid/pkg/config"
)

// Mock simulates a grid device for testing and development. It emits frames in
// the same wire format a real device uses: a row delimiter line followed by one
// line per row (multi-row grids) or a single data line (one-row grids).
type Mock struct {
	rows, columns int
	rowDelim      byte
	valueDelim    byte
	min, max      float64
	cfg           config.MockConfig
	readTimeout   time.Duration

	lines  chan []byte
	mu     sync.RWMutex
	cancel context.CancelFunc
	done   chan struct{}
	open   bool

	// Simulation state, owned by the generator goroutine
	rng       *rand.Rand
	startTime time.Time
}

// NewMock creates a new simulated device producing frames for cfg's grid and protocol.
func NewMock(cfg *config.Config) *Mock {
	if cfg == nil {
		cfg = config.Default()
	}

	readTimeout := cfg.Serial.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}

	return &Mock{
		rows:        cfg.Grid.Rows,
		columns:     cfg.Grid.Columns,
		rowDelim:    cfg.Protocol.RowDelimiter.Byte(),
		valueDelim:  cfg.Protocol.ValueDelimiter.Byte(),
		min:         cfg.Range.Min,
		max:         cfg.Range.Max,
		cfg:         cfg.Mock,
		readTimeout: readTimeout,
	}
}

// Open starts generating frames.
func (m *Mock) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.open {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.lines = make(chan []byte, 4*(m.rows+2))
	m.open = true
	m.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	m.startTime = time.Now()

	go m.generate(ctx, m.lines, m.done)

	return nil
}

// Close stops the simulated device.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.open {
		m.mu.Unlock()
		return nil
	}
	m.cancel()
	m.open = false
	done := m.done
	m.mu.Unlock()

	<-done
	return nil
}

// IsOpen returns whether the simulated device is running.
func (m *Mock) IsOpen() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.open
}

// ReadLine returns the next emitted line, or an empty slice after the read timeout.
func (m *Mock) ReadLine() ([]byte, error) {
	m.mu.RLock()
	lines := m.lines
	open := m.open
	m.mu.RUnlock()

	if !open {
		return nil, nil
	}

	timer := time.NewTimer(m.readTimeout)
	defer timer.Stop()

	select {
	case line := <-lines:
		return line, nil
	case <-timer.C:
		return nil, nil
	}
}

// generate emits one frame per configured rate until ctx is cancelled.
func (m *Mock) generate(ctx context.Context, out chan<- []byte, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.Rate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, line := range m.frameLines(now) {
				select {
				case out <- line:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// frameLines renders a single frame in wire format.
func (m *Mock) frameLines(now time.Time) [][]byte {
	lines := make([][]byte, 0, m.rows+2)
	if m.rows > 1 {
		lines = append(lines, []byte{m.rowDelim, '\r', '\n'})
	}

	values := m.values(now)
	var sb strings.Builder
	for r := 0; r < m.rows; r++ {
		if m.cfg.BlankRate > 0 && m.rng.Float64() < m.cfg.BlankRate {
			lines = append(lines, []byte("\r\n"))
		}
		sb.Reset()
		for c := 0; c < m.columns; c++ {
			if c > 0 {
				sb.WriteByte(m.valueDelim)
			}
			sb.WriteString(strconv.FormatFloat(values[r*m.columns+c], 'f', 2, 64))
		}
		sb.WriteString("\r\n")
		lines = append(lines, []byte(sb.String()))
	}
	return lines
}

// values simulates a wave travelling across the grid plus noise.
func (m *Mock) values(now time.Time) []float64 {
	n := m.rows * m.columns
	values := make([]float64, n)

	mid := (m.min + m.max) / 2
	amp := (m.max - m.min) / 2
	phase := 2 * math.Pi * now.Sub(m.startTime).Seconds() / m.cfg.Period.Seconds()

	for i := range values {
		offset := 2 * math.Pi * float64(i) / float64(n)
		noise := (m.rng.Float64()*2 - 1) * m.cfg.Noise
		values[i] = mid + amp*math.Sin(phase+offset) + noise
	}
	return values
}
