package ports

import (
	"context"

	"github.com/bft-labs/dcf77rx/internal/domain"
)

// FrameSink receives every decoded frame.
type FrameSink interface {
	// Publish delivers one frame. An error is logged by the caller and
	// does not stop the pipeline.
	Publish(ctx context.Context, frame domain.DecodedFrame) error

	// Close flushes and releases the sink.
	Close() error
}
