package cliconfig

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Source != SourceSerial {
		t.Errorf("Source = %v, want serial", cfg.Source)
	}
	if cfg.PollInterval != 5*time.Millisecond {
		t.Errorf("PollInterval = %v, want 5ms", cfg.PollInterval)
	}
	if cfg.MetricsAddr != DefaultMetricsAddr {
		t.Errorf("MetricsAddr = %v, want %v", cfg.MetricsAddr, DefaultMetricsAddr)
	}
	if cfg.QueueSize != 16 {
		t.Errorf("QueueSize = %v, want 16", cfg.QueueSize)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := DefaultConfig()
	with := func(mod func(*Config)) Config {
		c := base
		mod(&c)
		return c
	}

	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"serial with port", with(func(c *Config) { c.Port = "/dev/ttyUSB0" }), false},
		{"serial without port", base, true},
		{"capture with path", with(func(c *Config) { c.Source = SourceCapture; c.Capture = "a.txt" }), false},
		{"capture without path", with(func(c *Config) { c.Source = SourceCapture }), true},
		{"sim", with(func(c *Config) { c.Source = SourceSim }), false},
		{"sim noise out of range", with(func(c *Config) { c.Source = SourceSim; c.SimNoise = 1.5 }), true},
		{"unknown source", with(func(c *Config) { c.Source = "radio" }), true},
		{"invalid poll interval", with(func(c *Config) { c.Source = SourceSim; c.PollInterval = -1 }), true},
		{"zero queue size", with(func(c *Config) { c.Source = SourceSim; c.QueueSize = 0 }), true},
		{"bad qos", with(func(c *Config) { c.Source = SourceSim; c.MQTTQoS = 3 }), true},
		{"bad log level", with(func(c *Config) { c.Source = SourceSim; c.LogLevel = "loud" }), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.config
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Validate_SimStartDefault(t *testing.T) {
	c := DefaultConfig()
	c.Source = SourceSim
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if c.SimStart.IsZero() {
		t.Fatal("SimStart not derived")
	}
	if c.SimStart.Second() != 0 || c.SimStart.Nanosecond() != 0 {
		t.Errorf("SimStart = %v, want a whole minute", c.SimStart)
	}

	fixed := time.Date(2025, time.February, 23, 15, 29, 0, 0, time.UTC)
	c.SimStart = fixed
	if err := c.Validate(); err != nil {
		t.Fatal(err)
	}
	if !c.SimStart.Equal(fixed) {
		t.Errorf("explicit SimStart overwritten: %v", c.SimStart)
	}
}

func TestConfig_Masked(t *testing.T) {
	c := Config{MQTTPassword: "secret", WebhookToken: "token"}
	m := c.Masked()
	if m.MQTTPassword != "*****" || m.WebhookToken != "*****" {
		t.Errorf("Masked() = %+v", m)
	}
	if c.MQTTPassword != "secret" {
		t.Error("Masked() modified the receiver")
	}
}
