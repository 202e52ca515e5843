package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations and times to
// make TOML friendly.
type FileConfig struct {
	Source string `toml:"source"`

	Port         string `toml:"port"`
	Baud         int    `toml:"baud"`
	Line         string `toml:"line"`
	Invert       *bool  `toml:"invert"`
	PollInterval string `toml:"poll_interval"`
	PowerDTR     *bool  `toml:"power_dtr"`
	PowerRTS     *bool  `toml:"power_rts"`

	Capture string `toml:"capture"`
	Follow  *bool  `toml:"follow"`

	SimStart    string  `toml:"sim_start"`
	SimMinutes  int     `toml:"sim_minutes"`
	SimRealtime *bool   `toml:"sim_realtime"`
	SimNoise    float64 `toml:"sim_noise"`
	SimDropout  float64 `toml:"sim_dropout"`

	RecordDir string `toml:"record_dir"`
	StateDir  string `toml:"state_dir"`
	LogFrames *bool  `toml:"log_frames"`

	MQTTBroker   string `toml:"mqtt_broker"`
	MQTTTopic    string `toml:"mqtt_topic"`
	MQTTClientID string `toml:"mqtt_client_id"`
	MQTTUsername string `toml:"mqtt_username"`
	MQTTPassword string `toml:"mqtt_password"`
	MQTTQoS      int    `toml:"mqtt_qos"`
	MQTTRetain   *bool  `toml:"mqtt_retain"`

	WebhookURL   string `toml:"webhook_url"`
	WebhookToken string `toml:"webhook_token"`
	HTTPTimeout  string `toml:"http_timeout"`

	MetricsAddr string `toml:"metrics_addr"`
	LogLevel    string `toml:"log_level"`
	LogFile     string `toml:"log_file"`

	QueueSize      int    `toml:"queue_size"`
	PublishRetries int    `toml:"publish_retries"`
	PublishTimeout string `toml:"publish_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.dcf77rx/config.toml, or an empty string
// when the home directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".dcf77rx", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("source", fc.Source, &cfg.Source)
	s.setString("port", fc.Port, &cfg.Port)
	s.setString("line", fc.Line, &cfg.Line)
	s.setString("capture", fc.Capture, &cfg.Capture)
	s.setString("record-dir", fc.RecordDir, &cfg.RecordDir)
	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("mqtt-broker", fc.MQTTBroker, &cfg.MQTTBroker)
	s.setString("mqtt-topic", fc.MQTTTopic, &cfg.MQTTTopic)
	s.setString("mqtt-client-id", fc.MQTTClientID, &cfg.MQTTClientID)
	s.setString("mqtt-username", fc.MQTTUsername, &cfg.MQTTUsername)
	s.setString("mqtt-password", fc.MQTTPassword, &cfg.MQTTPassword)
	s.setString("webhook-url", fc.WebhookURL, &cfg.WebhookURL)
	s.setString("webhook-token", fc.WebhookToken, &cfg.WebhookToken)
	s.setString("metrics-addr", fc.MetricsAddr, &cfg.MetricsAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("log-file", fc.LogFile, &cfg.LogFile)

	if err := s.setDuration("poll", fc.PollInterval, &cfg.PollInterval); err != nil {
		return err
	}
	if err := s.setDuration("http-timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("publish-timeout", fc.PublishTimeout, &cfg.PublishTimeout); err != nil {
		return err
	}
	if err := s.setTime("sim-start", fc.SimStart, &cfg.SimStart); err != nil {
		return err
	}

	s.setFloat("sim-noise", fc.SimNoise, &cfg.SimNoise)
	s.setFloat("sim-dropout", fc.SimDropout, &cfg.SimDropout)

	s.setInt("baud", fc.Baud, &cfg.Baud)
	s.setInt("sim-minutes", fc.SimMinutes, &cfg.SimMinutes)
	s.setInt("mqtt-qos", fc.MQTTQoS, &cfg.MQTTQoS)
	s.setInt("queue-size", fc.QueueSize, &cfg.QueueSize)
	s.setInt("retries", fc.PublishRetries, &cfg.PublishRetries)

	s.setBool("invert", fc.Invert, &cfg.Invert)
	s.setBool("power-dtr", fc.PowerDTR, &cfg.PowerDTR)
	s.setBool("power-rts", fc.PowerRTS, &cfg.PowerRTS)
	s.setBool("follow", fc.Follow, &cfg.Follow)
	s.setBool("sim-realtime", fc.SimRealtime, &cfg.SimRealtime)
	s.setBool("log-frames", fc.LogFrames, &cfg.LogFrames)
	s.setBool("mqtt-retain", fc.MQTTRetain, &cfg.MQTTRetain)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
