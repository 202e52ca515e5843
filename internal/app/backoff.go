package app

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/jonboulle/clockwork"
)

// Default backoff configuration values.
const (
	DefaultBackoffInitial = 250 * time.Millisecond
	DefaultBackoffMax     = 5 * time.Second
)

// backoff implements exponential backoff with ±20% jitter.
type backoff struct {
	clock   clockwork.Clock
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(clock clockwork.Clock, initial, max time.Duration) *backoff {
	return &backoff{
		clock:   clock,
		initial: initial,
		max:     max,
		current: initial,
	}
}

// Wait sleeps for the current delay and doubles it up to max.
// Returns ctx.Err() if ctx ends first.
func (b *backoff) Wait(ctx context.Context) error {
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	delay := time.Duration(float64(b.current) + jitter)

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-b.clock.After(delay):
		return nil
	}
}

// Reset restores the initial delay.
func (b *backoff) Reset() {
	b.current = b.initial
}

// Current returns the delay of the next Wait before jitter.
func (b *backoff) Current() time.Duration {
	return b.current
}
