//go:build tinygo

package main

import "machine"

const (
	// Grid shape, must match grid.rows and grid.columns on the host
	GRID_ROWS    = 4
	GRID_COLUMNS = 4

	// Framing, must match protocol.row_delimiter and protocol.value_delimiter
	ROW_DELIMITER   = '#'
	VALUE_DELIMITER = ','

	// Sampling configuration
	NUM_SAMPLES        = 8   // ADC reads averaged per cell
	SETTLE_US          = 50  // Delay after switching a row before sampling
	FRAME_INTERVAL_MS  = 100 // Default interval between frames
	MIN_FRAME_INTERVAL = 10  // Bounds accepted over serial, in milliseconds
	MAX_FRAME_INTERVAL = 10000

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// Serial configuration
	// Worst case line: "100.0,100.0,100.0,100.0\r\n" = 25 bytes. A frame is one "#\r\n"
	// delimiter line plus 4 rows = 103 bytes, at 100 frames/sec 10,300 bytes/sec.
	// 115200 baud (11,520 bytes/sec) covers the fastest accepted frame rate.
	UART_BAUD_RATE = 115200
)

// Row drive pins, one per grid row. The active row is driven high.
var rowPins = [GRID_ROWS]machine.Pin{machine.D7, machine.D8, machine.D9, machine.D10}

// Column sense pins, one ADC per grid column.
var columnPins = [GRID_COLUMNS]machine.Pin{machine.A0, machine.A1, machine.A2, machine.A3}
