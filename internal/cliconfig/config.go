package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Source kinds accepted by --source.
const (
	SourceSerial  = "serial"
	SourceCapture = "capture"
	SourceSim     = "sim"
)

// DefaultMetricsAddr is where /metrics is served unless overridden.
const DefaultMetricsAddr = ":9477"

// Config holds CLI configuration for dcf77rx.
type Config struct {
	Source string

	Port         string
	Baud         int
	Line         string
	Invert       bool
	PollInterval time.Duration
	PowerDTR     bool
	PowerRTS     bool

	Capture string
	Follow  bool

	SimStart    time.Time
	SimMinutes  int
	SimRealtime bool
	SimNoise    float64
	SimDropout  float64

	RecordDir string
	StateDir  string
	LogFrames bool

	MQTTBroker   string
	MQTTTopic    string
	MQTTClientID string
	MQTTUsername string
	MQTTPassword string
	MQTTQoS      int
	MQTTRetain   bool

	WebhookURL   string
	WebhookToken string
	HTTPTimeout  time.Duration

	MetricsAddr string
	LogLevel    string
	LogFile     string

	QueueSize      int
	PublishRetries int
	PublishTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Source:         SourceSerial,
		Baud:           9600,
		Line:           "dcd",
		PollInterval:   5 * time.Millisecond,
		MQTTTopic:      "dcf77rx/frames",
		HTTPTimeout:    15 * time.Second,
		MetricsAddr:    DefaultMetricsAddr,
		LogLevel:       "info",
		LogFrames:      true,
		QueueSize:      16,
		PublishRetries: 2,
		PublishTimeout: 5 * time.Second,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	switch c.Source {
	case SourceSerial:
		if c.Port == "" {
			return fmt.Errorf("port is required for the serial source")
		}
	case SourceCapture:
		if c.Capture == "" {
			return fmt.Errorf("capture is required for the capture source")
		}
	case SourceSim:
		if c.SimStart.IsZero() {
			c.SimStart = time.Now().UTC().Truncate(time.Minute)
		}
		if c.SimNoise < 0 || c.SimNoise > 1 || c.SimDropout < 0 || c.SimDropout > 1 {
			return fmt.Errorf("sim-noise and sim-dropout must be within [0, 1]")
		}
	default:
		return fmt.Errorf("unknown source %q (want serial, capture or sim)", c.Source)
	}

	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	if c.MQTTQoS < 0 || c.MQTTQoS > 2 {
		return fmt.Errorf("mqtt-qos must be 0, 1 or 2")
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log level: %w", err)
	}

	return nil
}

// Masked returns a copy safe for logging.
func (c Config) Masked() Config {
	if c.MQTTPassword != "" {
		c.MQTTPassword = "*****"
	}
	if c.WebhookToken != "" {
		c.WebhookToken = "*****"
	}
	return c
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setTime parses an RFC 3339 time if valid and flag not changed.
func (s *configSetter) setTime(flag, value string, dst *time.Time) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = t
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString accepts "true" and "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
