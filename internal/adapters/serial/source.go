// Package serial reads a DCF77 receiver module whose output is wired to a
// modem status line of a serial port.
//
// Cheap receiver boards only need a supply and one digital output. DTR and
// RTS can power the board and DCD, CTS, DSR or RI carry its output, so no
// data bytes are ever read from the port. The line is polled; the poll
// interval bounds the timing resolution of every edge.
package serial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	bugst "go.bug.st/serial"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

// DefaultPollInterval keeps the timing error well below the 70 ms margin
// between a 100 ms pulse and the bit split.
const DefaultPollInterval = 5 * time.Millisecond

// Config describes the port and the wiring of the receiver.
type Config struct {
	Port         string
	BaudRate     int
	Line         Line
	Invert       bool
	PollInterval time.Duration
	PowerDTR     bool
	PowerRTS     bool
}

// Option configures a Source.
type Option func(*Source)

// WithClock replaces the wall clock used for polling and timestamps.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Source) {
		s.clock = clock
	}
}

// WithPortFactory replaces the function that opens the port.
func WithPortFactory(factory PortFactory) Option {
	return func(s *Source) {
		s.factory = factory
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

// Source implements ports.EdgeSource on a modem status line.
type Source struct {
	cfg     Config
	clock   clockwork.Clock
	factory PortFactory
	logger  log.Logger

	mu     sync.Mutex
	port   Port
	ticker clockwork.Ticker
	start  time.Time
	last   bool
	primed bool
	closed bool
}

var _ ports.EdgeSource = (*Source)(nil)

// Open opens the port, applies the supply lines and starts the poll ticker.
func Open(cfg Config, opts ...Option) (*Source, error) {
	if cfg.Line == "" {
		cfg.Line = LineDCD
	}
	line, err := ParseLine(string(cfg.Line))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	cfg.Line = line
	if cfg.BaudRate <= 0 {
		cfg.BaudRate = 9600
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}

	s := &Source{
		cfg:     cfg,
		clock:   clockwork.NewRealClock(),
		factory: DefaultPortFactory,
		logger:  log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	port, err := s.factory(cfg.Port, &bugst.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, err
	}
	if err := port.SetDTR(cfg.PowerDTR); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set DTR on %s: %w", cfg.Port, err)
	}
	if err := port.SetRTS(cfg.PowerRTS); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set RTS on %s: %w", cfg.Port, err)
	}

	s.port = port
	s.start = s.clock.Now()
	s.ticker = s.clock.NewTicker(cfg.PollInterval)

	s.logger.Info("serial source opened",
		log.String("port", cfg.Port),
		log.String("line", string(cfg.Line)),
		log.Bool("invert", cfg.Invert),
		log.Duration("poll", cfg.PollInterval),
	)
	return s, nil
}

// Next returns the current level on the first call and afterwards blocks
// until the level changes.
func (s *Source) Next(ctx context.Context) (dcf77.Pulse, error) {
	if !s.isPrimed() {
		p, _, err := s.poll()
		return p, err
	}

	for {
		select {
		case <-ctx.Done():
			return dcf77.Pulse{}, ctx.Err()
		case <-s.ticker.Chan():
		}

		p, changed, err := s.poll()
		if err != nil || changed {
			return p, err
		}
	}
}

// poll samples the line once. changed is true for the first sample and
// whenever the level differs from the previous sample.
func (s *Source) poll() (dcf77.Pulse, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return dcf77.Pulse{}, false, domain.ErrSourceClosed
	}

	bits, err := s.port.GetModemStatusBits()
	if err != nil {
		return dcf77.Pulse{}, false, fmt.Errorf("read modem status of %s: %w", s.cfg.Port, err)
	}
	level := s.cfg.Line.level(bits) != s.cfg.Invert

	if s.primed && level == s.last {
		return dcf77.Pulse{}, false, nil
	}
	s.primed = true
	s.last = level

	// uint32 truncation is the intended wraparound
	millis := uint32(s.clock.Since(s.start).Milliseconds())
	return dcf77.Pulse{Level: level, Millis: millis}, true, nil
}

func (s *Source) isPrimed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.primed
}

// Close stops polling, drops the supply lines and closes the port.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.ticker.Stop()

	if s.cfg.PowerDTR {
		_ = s.port.SetDTR(false)
	}
	if s.cfg.PowerRTS {
		_ = s.port.SetRTS(false)
	}
	return s.port.Close()
}
