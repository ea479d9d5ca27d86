// Package colormap maps scalar readings onto a three-stop color gradient.
package colormap

import (
	"fmt"
	"image/color"

	"gopkg.in/yaml.v3"
)

// RGB is a color with 8-bit channels.
type RGB struct {
	R, G, B uint8
}

// Color returns c as an opaque image/color value.
func (c RGB) Color() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Ints returns the channels as integers, in R, G, B order.
func (c RGB) Ints() [3]int {
	return [3]int{int(c.R), int(c.G), int(c.B)}
}

// String formats the color as "r g b".
func (c RGB) String() string {
	return fmt.Sprintf("%d %d %d", c.R, c.G, c.B)
}

// MarshalYAML stores the color as a three-integer sequence.
func (c RGB) MarshalYAML() (interface{}, error) {
	ch := c.Ints()
	return ch[:], nil
}

// UnmarshalYAML reads a three-integer sequence with channels in 0..255.
func (c *RGB) UnmarshalYAML(value *yaml.Node) error {
	var ch []int
	if err := value.Decode(&ch); err != nil {
		return fmt.Errorf("color: %w", err)
	}
	rgb, err := FromInts(ch...)
	if err != nil {
		return err
	}
	*c = rgb
	return nil
}

// FromInts builds a color from exactly three channel values in 0..255.
func FromInts(ch ...int) (RGB, error) {
	if len(ch) != 3 {
		return RGB{}, fmt.Errorf("color: expected 3 channels, got %d", len(ch))
	}
	for i, v := range ch {
		if v < 0 || v > 255 {
			return RGB{}, fmt.Errorf("color: channel %d out of range: %d", i, v)
		}
	}
	return RGB{R: uint8(ch[0]), G: uint8(ch[1]), B: uint8(ch[2])}, nil
}

// Scale describes the value range and the three gradient stops.
type Scale struct {
	Min   float64
	Max   float64
	Start RGB
	Mid   RGB
	End   RGB
}

// Midpoint returns the value that maps exactly onto Mid.
func (s Scale) Midpoint() float64 {
	return (s.Min + s.Max) / 2
}

// Map returns the color for value. Values outside [Min, Max] are clamped.
// Below the midpoint the color moves from Start to Mid, above it from Mid to End.
func Map(value float64, s Scale) RGB {
	if value > s.Max {
		value = s.Max
	} else if value < s.Min {
		value = s.Min
	}

	mid := s.Midpoint()
	switch {
	case value < mid:
		return interpolate(s.Start, s.Mid, (value-s.Min)/(mid-s.Min))
	case value > mid:
		return interpolate(s.Mid, s.End, (value-mid)/(s.Max-mid))
	default:
		return s.Mid
	}
}

// interpolate blends a towards b by t. Channels are truncated, not rounded.
func interpolate(a, b RGB, t float64) RGB {
	return RGB{
		R: channel(a.R, b.R, t),
		G: channel(a.G, b.G, t),
		B: channel(a.B, b.B, t),
	}
}

func channel(a, b uint8, t float64) uint8 {
	v := int(float64(a)*(1-t) + float64(b)*t)
	if v < 0 {
		v = 0
	} else if v > 255 {
		v = 255
	}
	return uint8(v)
}
