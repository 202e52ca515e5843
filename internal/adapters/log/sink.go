// Package log adapts the logger port: a frame sink that writes every
// decoded frame to the log, and a logger that discards everything.
package log

import (
	"context"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	plog "github.com/bft-labs/dcf77rx/pkg/log"
)

// FrameSink logs each frame at info level.
type FrameSink struct {
	logger ports.Logger
}

var _ ports.FrameSink = (*FrameSink)(nil)

// NewFrameSink writes to logger.
func NewFrameSink(logger ports.Logger) *FrameSink {
	return &FrameSink{logger: logger}
}

// Publish logs the frame. It never fails.
func (s *FrameSink) Publish(_ context.Context, f domain.DecodedFrame) error {
	s.logger.Info("frame received",
		plog.String("broadcast_time", f.Time.String()),
		plog.String("zone", f.Zone()),
		plog.Int64("timestamp", f.Timestamp),
		plog.Hex("raw", uint64(f.Raw)),
		plog.Uint32("systick", f.Systick),
		plog.Bool("dst_notice", f.Raw.DSTAnnounce()),
		plog.Bool("leap_notice", f.Raw.LeapSecondAnnounce()),
	)
	return nil
}

// Close does nothing.
func (s *FrameSink) Close() error { return nil }
