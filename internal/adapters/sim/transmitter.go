// Package sim generates the pulse train of a DCF77 transmitter.
//
// The transmitter lowers the carrier at the start of every second for
// 100 ms (bit 0) or 200 ms (bit 1) and skips second 59, so the next
// minute marker follows a gap of roughly 1.8 s. The frame sent during a
// minute announces the following minute.
package sim

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/caltime"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
)

// Pulse lengths of the carrier reduction.
const (
	ZeroMillis = 100
	OneMillis  = 200
)

// Config describes the broadcast.
type Config struct {
	// Start is the wall time of the first minute marker. It is truncated
	// to the minute.
	Start time.Time

	// Minutes is the number of frames to send. Zero sends forever.
	Minutes int

	// CEST selects summer time zone bits.
	CEST bool

	// Flags are copied into every frame.
	Flags dcf77.EncodeFlags

	// MillisOffset is the sample time of the first sample.
	MillisOffset uint32

	// Noise is the probability per second of an extra sample that repeats
	// the current level.
	Noise float64

	// Dropout is the probability per second of a missing pulse.
	Dropout float64

	// Seed makes Noise and Dropout reproducible.
	Seed uint64

	// Realtime paces samples on the clock instead of returning them at once.
	Realtime bool
}

// Option configures a Transmitter.
type Option func(*Transmitter)

// WithClock sets the clock used in realtime mode.
func WithClock(clock clockwork.Clock) Option {
	return func(t *Transmitter) {
		t.clock = clock
	}
}

// Transmitter implements ports.EdgeSource with a synthetic signal.
type Transmitter struct {
	cfg   Config
	clock clockwork.Clock
	rng   *rand.Rand

	mu      sync.Mutex
	queue   []dcf77.Pulse
	minute  int
	base    uint32
	started bool
	done    bool
	epoch   time.Time

	closed atomic.Bool
}

var _ ports.EdgeSource = (*Transmitter)(nil)

// New creates a transmitter.
func New(cfg Config, opts ...Option) *Transmitter {
	cfg.Start = cfg.Start.Truncate(time.Minute)
	t := &Transmitter{
		cfg:   cfg,
		clock: clockwork.NewRealClock(),
		rng:   rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// FrameFor returns the frame sent during minute k, which announces the
// minute after it.
func (t *Transmitter) FrameFor(k int) dcf77.Frame {
	at := t.cfg.Start.Add(time.Duration(k+1) * time.Minute)
	return dcf77.Encode(caltime.FromTime(at, t.cfg.CEST), t.cfg.Flags)
}

// Next returns the next sample. A finite broadcast ends with the minute
// marker that closes the last frame, then io.EOF.
func (t *Transmitter) Next(ctx context.Context) (dcf77.Pulse, error) {
	t.mu.Lock()
	if t.closed.Load() {
		t.mu.Unlock()
		return dcf77.Pulse{}, domain.ErrSourceClosed
	}
	if err := ctx.Err(); err != nil {
		t.mu.Unlock()
		return dcf77.Pulse{}, err
	}

	for len(t.queue) == 0 {
		if t.done {
			t.mu.Unlock()
			return dcf77.Pulse{}, ports.ErrEndOfSource
		}
		t.fill()
	}
	p := t.queue[0]
	t.queue = t.queue[1:]

	var wait time.Duration
	if t.cfg.Realtime {
		if t.epoch.IsZero() {
			t.epoch = t.clock.Now()
		}
		due := t.epoch.Add(time.Duration(p.Millis-t.cfg.MillisOffset) * time.Millisecond)
		wait = due.Sub(t.clock.Now())
	}
	t.mu.Unlock()

	if wait > 0 {
		select {
		case <-ctx.Done():
			return dcf77.Pulse{}, ctx.Err()
		case <-t.clock.After(wait):
		}
	}
	return p, nil
}

// fill queues the samples of the next minute.
func (t *Transmitter) fill() {
	if !t.started {
		t.started = true
		// idle carrier one second before the first marker
		t.queue = append(t.queue, dcf77.Pulse{Level: true, Millis: t.cfg.MillisOffset})
		t.base = t.cfg.MillisOffset + 1000
		return
	}

	if t.cfg.Minutes > 0 && t.minute >= t.cfg.Minutes {
		t.queue = append(t.queue, dcf77.Pulse{Level: false, Millis: t.base})
		t.done = true
		return
	}

	bits := t.FrameFor(t.minute).Bits()
	for s, bit := range bits {
		at := t.base + uint32(s)*1000
		if t.cfg.Dropout > 0 && t.rng.Float64() < t.cfg.Dropout {
			continue
		}
		width := uint32(ZeroMillis)
		if bit == 1 {
			width = OneMillis
		}
		t.queue = append(t.queue,
			dcf77.Pulse{Level: false, Millis: at},
			dcf77.Pulse{Level: true, Millis: at + width},
		)
		if t.cfg.Noise > 0 && t.rng.Float64() < t.cfg.Noise {
			t.queue = append(t.queue, dcf77.Pulse{Level: true, Millis: at + width + 10})
		}
	}

	t.minute++
	t.base += 60000
}

// Close ends the broadcast.
func (t *Transmitter) Close() error {
	t.closed.Store(true)
	return nil
}
