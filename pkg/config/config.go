package config

import (
	"fmt"
	"os"
	"time"

	"github.com/itohio/colorgrid/pkg/colormap"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Serial      SerialConfig      `yaml:"serial"`
	Grid        GridConfig        `yaml:"grid"`
	Protocol    ProtocolConfig    `yaml:"protocol"`
	Range       RangeConfig       `yaml:"range"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Chart       ChartConfig       `yaml:"chart"`
	Colors      ColorConfig       `yaml:"colors"`
	Export      ExportConfig      `yaml:"export"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Log         LogConfig         `yaml:"log"`
	Mock        MockConfig        `yaml:"mock"`
}

// SerialConfig contains serial port configuration.
type SerialConfig struct {
	Port        string        `yaml:"port"`
	BaudRate    int           `yaml:"baud_rate"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

// GridConfig contains the grid shape.
type GridConfig struct {
	Rows    int `yaml:"rows"`
	Columns int `yaml:"columns"`
}

// ProtocolConfig contains the framing bytes of the device protocol.
type ProtocolConfig struct {
	RowDelimiter   Delimiter `yaml:"row_delimiter"`   // First byte of the line that starts a frame
	ValueDelimiter Delimiter `yaml:"value_delimiter"` // Separates values within a row line
}

// RangeConfig contains the color mapping thresholds.
type RangeConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// AcquisitionConfig contains acquisition timing.
type AcquisitionConfig struct {
	TickIntervalMs int `yaml:"tick_interval_ms"`
}

// ChartConfig contains per-cell chart parameters.
type ChartConfig struct {
	WindowSize int `yaml:"window_size"` // Number of most recent points shown per chart
}

// ColorConfig contains the three gradient stops.
type ColorConfig struct {
	Start colormap.RGB `yaml:"start"`
	Mid   colormap.RGB `yaml:"mid"`
	End   colormap.RGB `yaml:"end"`
}

// ExportConfig selects where finished sessions are persisted.
type ExportConfig struct {
	Dir      string `yaml:"dir"`
	Workbook string `yaml:"workbook"` // xlsx file name inside Dir, empty disables
	Archive  string `yaml:"archive"`  // sqlite file name inside Dir, empty disables
	Overview bool   `yaml:"overview"` // write a PNG overview plot per session
}

// MQTTConfig contains the optional live frame feed.
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // Empty disables publishing
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	QoS      byte   `yaml:"qos"`
}

// LogConfig contains logging output configuration.
type LogConfig struct {
	File        string `yaml:"file"`
	MaxBytes    int    `yaml:"max_bytes"`
	BackupCount int    `yaml:"backup_count"`
	Stdout      bool   `yaml:"stdout"`
}

// MockConfig contains simulated device configuration.
type MockConfig struct {
	Rate      time.Duration `yaml:"rate"`       // Interval between emitted frames
	Noise     float64       `yaml:"noise"`      // Amplitude of random noise added to each value
	Period    time.Duration `yaml:"period"`     // Period of the simulated wave
	BlankRate float64       `yaml:"blank_rate"` // Probability of a blank line before each row
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Serial: SerialConfig{
			Port:        "COM3", // Default for Windows, should be "/dev/ttyACM0" on Linux/Mac
			BaudRate:    115200,
			ReadTimeout: 100 * time.Millisecond,
		},
		Grid: GridConfig{
			Rows:    4,
			Columns: 4,
		},
		Protocol: ProtocolConfig{
			RowDelimiter:   '#',
			ValueDelimiter: ',',
		},
		Range: RangeConfig{
			Min: 0,
			Max: 100,
		},
		Acquisition: AcquisitionConfig{
			TickIntervalMs: 100,
		},
		Chart: ChartConfig{
			WindowSize: 50,
		},
		Colors: ColorConfig{
			Start: colormap.RGB{R: 0, G: 0, B: 255},
			Mid:   colormap.RGB{R: 0, G: 255, B: 0},
			End:   colormap.RGB{R: 255, G: 0, B: 0},
		},
		Export: ExportConfig{
			Dir:      "data",
			Workbook: "totalData.xlsx",
			Archive:  "",
			Overview: false,
		},
		MQTT: MQTTConfig{
			Broker:   "",
			Topic:    "colorgrid/frames",
			ClientID: "colorgrid",
			QoS:      0,
		},
		Log: LogConfig{
			File:        "",
			MaxBytes:    1 << 20,
			BackupCount: 3,
			Stdout:      true,
		},
		Mock: MockConfig{
			Rate:      50 * time.Millisecond,
			Noise:     2.0,
			Period:    5 * time.Second,
			BlankRate: 0.05,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Ensure minimum required fields are set (use defaults if missing)
	cfg.ensureDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// Validate checks the values the acquisition core relies on.
func (c *Config) Validate() error {
	if c.Grid.Rows < 1 || c.Grid.Columns < 1 {
		return fmt.Errorf("invalid grid shape %dx%d: rows and columns must be at least 1", c.Grid.Rows, c.Grid.Columns)
	}
	if c.Range.Min >= c.Range.Max {
		return fmt.Errorf("invalid range: min (%g) must be less than max (%g)", c.Range.Min, c.Range.Max)
	}
	if c.Acquisition.TickIntervalMs < 1 {
		return fmt.Errorf("invalid tick interval %dms: must be at least 1", c.Acquisition.TickIntervalMs)
	}
	if c.Chart.WindowSize < 1 {
		return fmt.Errorf("invalid chart window size %d: must be at least 1", c.Chart.WindowSize)
	}
	if c.Protocol.RowDelimiter == c.Protocol.ValueDelimiter {
		return fmt.Errorf("row and value delimiters must differ (both %s)", c.Protocol.RowDelimiter)
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("invalid mqtt qos %d", c.MQTT.QoS)
	}
	return nil
}

// Cells returns the number of grid cells.
func (c *Config) Cells() int {
	return c.Grid.Rows * c.Grid.Columns
}

// TickInterval returns the acquisition tick interval.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Acquisition.TickIntervalMs) * time.Millisecond
}

// Scale returns the color scale described by the range and color sections.
func (c *Config) Scale() colormap.Scale {
	return colormap.Scale{
		Min:   c.Range.Min,
		Max:   c.Range.Max,
		Start: c.Colors.Start,
		Mid:   c.Colors.Mid,
		End:   c.Colors.End,
	}
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = def.Serial.ReadTimeout
	}

	if c.Grid.Rows == 0 {
		c.Grid.Rows = def.Grid.Rows
	}
	if c.Grid.Columns == 0 {
		c.Grid.Columns = def.Grid.Columns
	}

	if c.Protocol.RowDelimiter == 0 {
		c.Protocol.RowDelimiter = def.Protocol.RowDelimiter
	}
	if c.Protocol.ValueDelimiter == 0 {
		c.Protocol.ValueDelimiter = def.Protocol.ValueDelimiter
	}

	if c.Acquisition.TickIntervalMs == 0 {
		c.Acquisition.TickIntervalMs = def.Acquisition.TickIntervalMs
	}
	if c.Chart.WindowSize == 0 {
		c.Chart.WindowSize = def.Chart.WindowSize
	}

	if c.Export.Dir == "" {
		c.Export.Dir = def.Export.Dir
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = def.MQTT.Topic
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = def.MQTT.ClientID
	}

	if c.Mock.Rate == 0 {
		c.Mock.Rate = def.Mock.Rate
	}
	if c.Mock.Period == 0 {
		c.Mock.Period = def.Mock.Period
	}
}
