package domain

import (
	"time"

	"github.com/bft-labs/dcf77rx/pkg/dcf77"
)

// ReceiverStats is a point-in-time view of a running receiver.
type ReceiverStats struct {
	Decoder dcf77.Stats

	// Dropped counts frames lost because the dispatch queue was full.
	Dropped uint64

	// Published counts successful sink deliveries (one per sink per frame).
	Published uint64

	// SinkErrors counts deliveries that failed after all retries.
	SinkErrors uint64

	// LastTimestamp and LastFrameAt describe the most recent frame.
	// LastFrameAt is zero before the first frame.
	LastTimestamp int64
	LastFrameAt   time.Time
}
