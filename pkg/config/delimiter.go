package config

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Delimiter is a single framing byte of the device protocol.
// Printable ASCII is stored as a one-character string, anything else as an integer.
type Delimiter byte

// Byte returns the delimiter as a byte.
func (d Delimiter) Byte() byte {
	return byte(d)
}

// String returns a readable form of the delimiter.
func (d Delimiter) String() string {
	if d.printable() {
		return strconv.Quote(string(rune(d)))
	}
	return fmt.Sprintf("0x%02x", byte(d))
}

func (d Delimiter) printable() bool {
	return d > ' ' && d < 0x7f
}

// MarshalYAML implements yaml.Marshaler.
func (d Delimiter) MarshalYAML() (interface{}, error) {
	if d.printable() {
		return string(rune(d)), nil
	}
	return int(d), nil
}

// UnmarshalYAML accepts a one-character string or an integer in 0..255.
func (d *Delimiter) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("delimiter: expected a scalar at line %d", value.Line)
	}

	if value.ShortTag() == "!!int" {
		var n int
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("delimiter: %w", err)
		}
		if n < 0 || n > 255 {
			return fmt.Errorf("delimiter: byte value out of range: %d", n)
		}
		*d = Delimiter(n)
		return nil
	}

	if len(value.Value) != 1 {
		return fmt.Errorf("delimiter: expected a single character, got %q", value.Value)
	}
	*d = Delimiter(value.Value[0])
	return nil
}
