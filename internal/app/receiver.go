package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

// Receiver defaults.
const (
	DefaultQueueSize      = 16
	DefaultPublishTimeout = 5 * time.Second
)

// ReceiverConfig tunes the frame hand-off and delivery.
type ReceiverConfig struct {
	// QueueSize bounds the frames waiting for delivery. Frames decoded
	// while the queue is full are dropped.
	QueueSize int

	// PublishTimeout bounds one delivery attempt to one sink.
	PublishTimeout time.Duration

	// PublishRetries is the number of extra attempts after a failed delivery.
	PublishRetries int
}

// FrameObserver is told about every frame before it reaches the sinks.
type FrameObserver interface {
	OnFrame(frame domain.DecodedFrame)
}

// Receiver pumps an edge source into a decoder on one goroutine and
// delivers decoded frames to the sinks on another.
//
// The decoder handler only enqueues the frame without blocking, so a slow
// sink never delays edge processing.
type Receiver struct {
	cfg      ReceiverConfig
	source   ports.EdgeSource
	sinks    []ports.FrameSink
	logger   ports.Logger
	clock    clockwork.Clock
	observer FrameObserver

	decoder *dcf77.Decoder
	frames  chan domain.DecodedFrame

	dropped       atomic.Uint64
	published     atomic.Uint64
	sinkErrors    atomic.Uint64
	lastTimestamp atomic.Int64
	lastFrameAt   atomic.Int64
}

// NewReceiver wires a receiver. observer may be nil.
func NewReceiver(
	cfg ReceiverConfig,
	source ports.EdgeSource,
	sinks []ports.FrameSink,
	logger ports.Logger,
	clock clockwork.Clock,
	observer FrameObserver,
) *Receiver {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = DefaultPublishTimeout
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	r := &Receiver{
		cfg:      cfg,
		source:   source,
		sinks:    sinks,
		logger:   logger,
		clock:    clock,
		observer: observer,
	}
	r.decoder = dcf77.NewDecoder(r.onFrame)
	return r
}

// Run processes the source until it is exhausted, fails, or ctx ends.
// Frames already queued are delivered before Run returns. Run returns nil
// when the source ends and ctx.Err() when canceled.
func (r *Receiver) Run(ctx context.Context) error {
	frames := make(chan domain.DecodedFrame, r.cfg.QueueSize)
	r.frames = frames

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(frames)
		return r.pump(gctx)
	})
	g.Go(func() error {
		r.dispatch(gctx, frames)
		return nil
	})

	err := g.Wait()

	stats := r.decoder.Stats()
	r.logger.Info("receiver finished",
		log.Uint64("frames", stats.Frames),
		log.Uint64("rejected", stats.Rejected()),
		log.Uint64("dropped", r.dropped.Load()),
	)
	return err
}

func (r *Receiver) pump(ctx context.Context) error {
	first := true
	for {
		p, err := r.source.Next(ctx)
		if err != nil {
			if errors.Is(err, ports.ErrEndOfSource) {
				r.logger.Info("edge source exhausted")
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read edge source: %w", err)
		}

		// The first sample is the line state when collection starts.
		if first {
			first = false
			r.decoder.Reset(p.Level, p.Millis)
			r.logger.Debug("decoder started",
				log.Bool("level", p.Level),
				log.Uint32("millis", p.Millis),
			)
			continue
		}
		r.decoder.Process(p)
	}
}

// onFrame runs inside Decoder.Process.
func (r *Receiver) onFrame(frame dcf77.Frame, millis uint32) {
	df := domain.NewDecodedFrame(frame, millis, r.clock.Now())
	select {
	case r.frames <- df:
	default:
		r.dropped.Add(1)
	}
}

func (r *Receiver) dispatch(ctx context.Context, frames <-chan domain.DecodedFrame) {
	for f := range frames {
		r.lastTimestamp.Store(f.Timestamp)
		r.lastFrameAt.Store(f.ReceivedAt.UnixNano())

		r.logger.Debug("frame decoded",
			log.String("broadcast_time", f.Time.String()),
			log.Hex("raw", uint64(f.Raw)),
		)

		if r.observer != nil {
			r.observer.OnFrame(f)
		}
		for _, sink := range r.sinks {
			r.publish(ctx, sink, f)
		}
	}
}

// publish delivers f to one sink. Attempts outlive ctx so that frames
// queued at shutdown are still delivered once; retries stop with ctx.
func (r *Receiver) publish(ctx context.Context, sink ports.FrameSink, f domain.DecodedFrame) {
	bo := newBackoff(r.clock, DefaultBackoffInitial, DefaultBackoffMax)
	for attempt := 0; ; attempt++ {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.PublishTimeout)
		err := sink.Publish(pctx, f)
		cancel()
		if err == nil {
			r.published.Add(1)
			return
		}

		if attempt >= r.cfg.PublishRetries || bo.Wait(ctx) != nil {
			r.sinkErrors.Add(1)
			r.logger.Warn("frame delivery failed",
				log.String("sink", fmt.Sprintf("%T", sink)),
				log.Int("attempts", attempt+1),
				log.Err(err),
			)
			return
		}
	}
}

// Stats returns a snapshot. Safe to call concurrently with Run.
func (r *Receiver) Stats() domain.ReceiverStats {
	s := domain.ReceiverStats{
		Decoder:       r.decoder.Stats(),
		Dropped:       r.dropped.Load(),
		Published:     r.published.Load(),
		SinkErrors:    r.sinkErrors.Load(),
		LastTimestamp: r.lastTimestamp.Load(),
	}
	if ns := r.lastFrameAt.Load(); ns != 0 {
		s.LastFrameAt = time.Unix(0, ns)
	}
	return s
}

// Close closes the source and every sink.
func (r *Receiver) Close() error {
	errs := []error{r.source.Close()}
	for _, sink := range r.sinks {
		errs = append(errs, sink.Close())
	}
	return errors.Join(errs...)
}
