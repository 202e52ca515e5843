package ports

import (
	"context"
	"io"

	"github.com/bft-labs/dcf77rx/pkg/dcf77"
)

// EdgeSource produces samples of the receiver output line in time order.
type EdgeSource interface {
	// Next blocks until the next sample is available.
	// A finite source returns io.EOF after its last sample.
	// Returns ctx.Err() when ctx is done.
	Next(ctx context.Context) (dcf77.Pulse, error)

	// Close releases the underlying device or file.
	Close() error
}

// ErrEndOfSource marks the end of a finite source.
var ErrEndOfSource = io.EOF
