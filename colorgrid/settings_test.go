package main

import (
	"testing"
	"time"

	"github.com/itohio/colorgrid/pkg/colormap"
	"github.com/itohio/colorgrid/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	tests := []struct {
		text    string
		want    colormap.RGB
		wantErr bool
	}{
		{"0 0 255", colormap.RGB{B: 255}, false},
		{"12,34,56", colormap.RGB{R: 12, G: 34, B: 56}, false},
		{" 1, 2 ,3 ", colormap.RGB{R: 1, G: 2, B: 3}, false},
		{"1 2", colormap.RGB{}, true},
		{"1 2 256", colormap.RGB{}, true},
		{"red", colormap.RGB{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var got colormap.RGB
			err := parseColor("color", tt.text, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		text    string
		want    config.Delimiter
		wantErr bool
	}{
		{"#", '#', false},
		{",", ',', false},
		{"5", '5', false},
		{"0x1e", 0x1e, false},
		{"9", '9', false},
		{"59", ';', false},
		{"0", '0', false},
		{"0x00", 0, true},
		{"", 0, true},
		{"ab", 0, true},
		{"300", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			var got config.Delimiter
			err := parseDelimiter("delimiter", tt.text, &got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDelimiterText_RoundTrip(t *testing.T) {
	for b := 1; b < 256; b++ {
		d := config.Delimiter(b)
		var got config.Delimiter
		require.NoError(t, parseDelimiter("delimiter", delimiterText(d), &got), "byte %d", b)
		assert.Equal(t, d, got, "byte %d", b)
	}
}

func TestParseNumbers(t *testing.T) {
	var n int
	require.NoError(t, parseInt("rows", " 8 ", &n))
	assert.Equal(t, 8, n)
	assert.Error(t, parseInt("rows", "eight", &n))
	assert.Equal(t, 8, n)

	var f float64
	require.NoError(t, parseFloat("min", "-12.5", &f))
	assert.Equal(t, -12.5, f)
	assert.Error(t, parseFloat("min", "", &f))

	var d time.Duration
	require.NoError(t, parseDuration("rate", "250ms", &d))
	assert.Equal(t, 250*time.Millisecond, d)
	assert.Error(t, parseDuration("rate", "0s", &d))
	assert.Error(t, parseDuration("rate", "fast", &d))
}
