// Package mqtt publishes decoded frames to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

// DefaultTopic is used when Config.Topic is empty.
const DefaultTopic = "dcf77rx/frames"

// Config describes the broker connection.
type Config struct {
	// Broker is host:port or a full URL such as ssl://host:8883.
	Broker   string
	Topic    string
	ClientID string
	Username string
	Password string
	QoS      byte
	Retain   bool
	Timeout  time.Duration
}

// ClientFactory builds a client from options. Tests replace it.
type ClientFactory func(opts *paho.ClientOptions) paho.Client

// Option configures a Sink.
type Option func(*Sink)

// WithClientFactory replaces paho.NewClient.
func WithClientFactory(factory ClientFactory) Option {
	return func(s *Sink) {
		s.factory = factory
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Sink) {
		s.logger = logger
	}
}

// Sink implements ports.FrameSink by publishing FrameMeta as JSON.
type Sink struct {
	cfg     Config
	factory ClientFactory
	logger  log.Logger
	client  paho.Client
}

var _ ports.FrameSink = (*Sink)(nil)

// Connect creates the client and waits for the first connection.
func Connect(cfg Config, opts ...Option) (*Sink, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("%w: mqtt broker is required", domain.ErrInvalidConfig)
	}
	if cfg.QoS > 2 {
		return nil, fmt.Errorf("%w: mqtt qos %d", domain.ErrInvalidConfig, cfg.QoS)
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "dcf77rx-" + uuid.New().String()[:8]
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	s := &Sink{
		cfg:     cfg,
		factory: paho.NewClient,
		logger:  log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	co := paho.NewClientOptions()
	co.AddBroker(brokerURL(cfg.Broker))
	co.SetClientID(cfg.ClientID)
	co.SetUsername(cfg.Username)
	co.SetPassword(cfg.Password)
	co.SetAutoReconnect(true)
	co.SetConnectRetry(true)
	co.SetConnectTimeout(cfg.Timeout)
	co.SetOnConnectHandler(func(paho.Client) {
		s.logger.Info("mqtt connected", log.String("broker", cfg.Broker))
	})
	co.SetConnectionLostHandler(func(_ paho.Client, err error) {
		s.logger.Warn("mqtt connection lost", log.Err(err))
	})

	s.client = s.factory(co)
	token := s.client.Connect()
	if !token.WaitTimeout(cfg.Timeout) {
		return nil, fmt.Errorf("connect to mqtt broker %s: timeout", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", cfg.Broker, err)
	}

	s.logger.Info("mqtt sink ready",
		log.String("broker", cfg.Broker),
		log.String("topic", cfg.Topic),
		log.String("client_id", cfg.ClientID),
	)
	return s, nil
}

// brokerURL adds tcp:// to a bare host:port.
func brokerURL(broker string) string {
	if strings.Contains(broker, "://") {
		return broker
	}
	return "tcp://" + broker
}

// Publish sends the frame and waits for the broker acknowledgement or ctx.
func (s *Sink) Publish(ctx context.Context, frame domain.DecodedFrame) error {
	payload, err := json.Marshal(frame.ToMeta())
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}

	token := s.client.Publish(s.cfg.Topic, s.cfg.QoS, s.cfg.Retain, payload)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", s.cfg.Topic, err)
	}
	return nil
}

// Close disconnects, allowing 250 ms for in-flight messages.
func (s *Sink) Close() error {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
	return nil
}
