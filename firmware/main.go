//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"time"
)

var (
	columnADCs [GRID_COLUMNS]machine.ADC
	uart       = machine.UART0

	// Latest scan in tenths of a percent of full scale
	cells [GRID_ROWS][GRID_COLUMNS]uint16

	// Timing
	frameInterval = time.Duration(FRAME_INTERVAL_MS) * time.Millisecond
	lastFrame     time.Time

	// Serial buffer for reading lines
	serialBuffer [8]byte
	serialPos    int
)

func main() {
	for _, p := range rowPins {
		p.Configure(machine.PinConfig{Mode: machine.PinOutput})
		p.Low()
	}

	adcConfig := machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	}
	for i, p := range columnPins {
		p.Configure(machine.PinConfig{Mode: machine.PinInput})
		columnADCs[i] = machine.ADC{Pin: p}
		columnADCs[i].Configure(adcConfig)
	}

	// Configure UART for frame rate control
	uart.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	lastFrame = time.Now()

	for {
		now := time.Now()

		processSerial()

		if now.Sub(lastFrame) >= frameInterval {
			scan()
			outputFrame()
			lastFrame = now
		}

		time.Sleep(100 * time.Microsecond)
	}
}

// scan drives each row in turn and samples every column.
func scan() {
	for r, rowPin := range rowPins {
		rowPin.High()
		time.Sleep(SETTLE_US * time.Microsecond)

		for c := range columnADCs {
			var sum uint32
			for range NUM_SAMPLES {
				sum += uint32(columnADCs[c].Get())
			}
			// ADC.Get is scaled to 16 bits regardless of resolution
			cells[r][c] = uint16(sum / NUM_SAMPLES * 1000 / 65535)
		}

		rowPin.Low()
	}
}

// outputFrame writes the delimiter line followed by one line per row.
// Example for a 2x2 grid: "#\r\n12.5,40.0\r\n99.9,0.0\r\n"
func outputFrame() {
	if GRID_ROWS > 1 {
		print(string(rune(ROW_DELIMITER)))
		print("\r\n")
	}
	for r := range cells {
		for c, v := range cells[r] {
			if c > 0 {
				print(string(rune(VALUE_DELIMITER)))
			}
			printTenths(v)
		}
		print("\r\n")
	}
}

// printTenths prints v/10 with one decimal without pulling in float formatting.
func printTenths(v uint16) {
	print(v / 10)
	print(".")
	print(v % 10)
}

// processSerial accepts a frame interval in milliseconds, one decimal number per line.
func processSerial() {
	for uart.Buffered() > 0 {
		data, err := uart.ReadByte()
		if err != nil {
			break
		}

		if data == '\n' || data == '\r' {
			if serialPos > 0 {
				updateFrameInterval()
			}
			serialPos = 0
			continue
		}

		if data == ' ' || data == '\t' {
			continue
		}

		if data >= '0' && data <= '9' {
			if serialPos < len(serialBuffer) {
				serialBuffer[serialPos] = data
				serialPos++
			}
		} else {
			// Invalid character - reset buffer
			serialPos = 0
		}
	}
}

func updateFrameInterval() {
	ms := 0
	for _, d := range serialBuffer[:serialPos] {
		ms = ms*10 + int(d-'0')
	}
	if ms < MIN_FRAME_INTERVAL || ms > MAX_FRAME_INTERVAL {
		return
	}
	frameInterval = time.Duration(ms) * time.Millisecond
}
