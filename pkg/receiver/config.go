package receiver

import (
	"fmt"
	"time"

	httpAdapter "github.com/bft-labs/dcf77rx/internal/adapters/http"
	"github.com/bft-labs/dcf77rx/internal/adapters/mqtt"
	"github.com/bft-labs/dcf77rx/internal/adapters/serial"
	"github.com/bft-labs/dcf77rx/internal/adapters/sim"
	"github.com/bft-labs/dcf77rx/internal/app"
	"github.com/bft-labs/dcf77rx/internal/domain"
)

// Source kinds.
const (
	SourceSerial  = "serial"
	SourceCapture = "capture"
	SourceSim     = "sim"
)

// Adapter configurations.
type (
	SerialConfig  = serial.Config
	SimConfig     = sim.Config
	MQTTConfig    = mqtt.Config
	WebhookConfig = httpAdapter.WebhookConfig

	// Line names a modem status input: "dcd", "cts", "dsr" or "ri".
	Line = serial.Line
)

// CaptureConfig selects a capture file to replay.
type CaptureConfig struct {
	Path   string
	Follow bool
}

// Config describes where edges come from and where frames go.
type Config struct {
	// Source is SourceSerial, SourceCapture or SourceSim. It is ignored
	// when WithSource supplies an edge source.
	Source  string
	Serial  SerialConfig
	Capture CaptureConfig
	Sim     SimConfig

	// RecordDir, when set, receives a capture file of every sample.
	RecordDir string

	// StateDir, when set, receives last_frame.json after every frame.
	StateDir string

	// LogFrames logs every frame at info level.
	LogFrames bool

	// MQTT is enabled when Broker is set.
	MQTT MQTTConfig

	// Webhook is enabled when URL is set.
	Webhook WebhookConfig

	QueueSize       int
	PublishTimeout  time.Duration
	PublishRetries  int
	ShutdownTimeout time.Duration
}

// SetDefaults fills zero values.
func (c *Config) SetDefaults() {
	if c.Source == "" {
		c.Source = SourceSerial
	}
	if c.Serial.Line == "" {
		c.Serial.Line = serial.LineDCD
	}
	if c.Serial.BaudRate <= 0 {
		c.Serial.BaudRate = 9600
	}
	if c.Serial.PollInterval <= 0 {
		c.Serial.PollInterval = serial.DefaultPollInterval
	}
	if c.QueueSize <= 0 {
		c.QueueSize = app.DefaultQueueSize
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = app.DefaultPublishTimeout
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = app.ShutdownTimeout
	}
}

// Validate reports the first problem found. hasSource tells whether an
// edge source was injected, which makes the source settings irrelevant.
func (c *Config) Validate(hasSource bool) error {
	if !hasSource {
		switch c.Source {
		case SourceSerial:
			if c.Serial.Port == "" {
				return invalid("serial port is required")
			}
			if _, err := serial.ParseLine(string(c.Serial.Line)); err != nil {
				return invalid(err.Error())
			}
		case SourceCapture:
			if c.Capture.Path == "" {
				return invalid("capture path is required")
			}
		case SourceSim:
			if c.Sim.Noise < 0 || c.Sim.Noise > 1 || c.Sim.Dropout < 0 || c.Sim.Dropout > 1 {
				return invalid("sim noise and dropout must be within [0, 1]")
			}
			if c.Sim.Minutes < 0 {
				return invalid("sim minutes must not be negative")
			}
		default:
			return invalid(fmt.Sprintf("unknown source %q", c.Source))
		}
	}

	if c.MQTT.QoS > 2 {
		return invalid("mqtt qos must be 0, 1 or 2")
	}
	if c.PublishRetries < 0 {
		return invalid("publish retries must not be negative")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, msg)
}
