// Package metrics exports receiver statistics to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/dcf77rx/internal/domain"
)

// Namespace prefixes every metric name.
const Namespace = "dcf77rx"

// StatsSource provides the numbers to export. *app.Receiver satisfies it.
type StatsSource interface {
	Stats() domain.ReceiverStats
}

// Collector reads a StatsSource on every scrape. The counters already live
// in the decoder, so nothing is mirrored between scrapes.
type Collector struct {
	src StatsSource

	edges        *prometheus.Desc
	noise        *prometheus.Desc
	bits         *prometheus.Desc
	overflowBits *prometheus.Desc
	syncs        *prometheus.Desc
	frames       *prometheus.Desc
	incomplete   *prometheus.Desc
	parityErrors *prometheus.Desc
	dropped      *prometheus.Desc
	published    *prometheus.Desc
	sinkErrors   *prometheus.Desc
	lastTS       *prometheus.Desc
	lastSeen     *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

func desc(subsystem, name, help string) *prometheus.Desc {
	return prometheus.NewDesc(prometheus.BuildFQName(Namespace, subsystem, name), help, nil, nil)
}

// NewCollector creates a collector for src.
func NewCollector(src StatsSource) *Collector {
	return &Collector{
		src:          src,
		edges:        desc("decoder", "samples_total", "Samples passed to the decoder."),
		noise:        desc("decoder", "noise_samples_total", "Samples ignored because the level did not change."),
		bits:         desc("decoder", "stored_pulses_total", "Pulses stored as data in the frame buffer."),
		overflowBits: desc("decoder", "dropped_pulses_total", "Pulses dropped because the frame buffer was full."),
		syncs:        desc("decoder", "minute_marks_total", "Minute boundaries detected."),
		frames:       desc("decoder", "frames_total", "Frames that passed validation."),
		incomplete:   desc("decoder", "incomplete_frames_total", "Frames rejected for a wrong pulse count."),
		parityErrors: desc("decoder", "parity_errors_total", "Minutes rejected for a parity mismatch."),
		dropped:      desc("receiver", "frames_dropped_total", "Frames dropped because the delivery queue was full."),
		published:    desc("receiver", "deliveries_total", "Successful deliveries of a frame to a sink."),
		sinkErrors:   desc("receiver", "delivery_errors_total", "Deliveries that failed after all retries."),
		lastTS:       desc("receiver", "last_frame_timestamp_seconds", "Broadcast time of the last frame, as seconds since 1970 in the broadcast zone."),
		lastSeen:     desc("receiver", "last_frame_received_seconds", "Unix time the last frame was decoded."),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.edges, c.noise, c.bits, c.overflowBits, c.syncs, c.frames, c.incomplete,
		c.parityErrors, c.dropped, c.published, c.sinkErrors, c.lastTS, c.lastSeen,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.src.Stats()
	counter := func(d *prometheus.Desc, v uint64) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v))
	}

	counter(c.edges, s.Decoder.Edges)
	counter(c.noise, s.Decoder.Noise)
	counter(c.bits, s.Decoder.Bits)
	counter(c.overflowBits, s.Decoder.OverflowBits)
	counter(c.syncs, s.Decoder.Syncs)
	counter(c.frames, s.Decoder.Frames)
	counter(c.incomplete, s.Decoder.Incomplete)
	counter(c.parityErrors, s.Decoder.ParityErrors)
	counter(c.dropped, s.Dropped)
	counter(c.published, s.Published)
	counter(c.sinkErrors, s.SinkErrors)

	// gauges only exist once a frame was seen
	if s.LastFrameAt.IsZero() {
		return
	}
	ch <- prometheus.MustNewConstMetric(c.lastTS, prometheus.GaugeValue, float64(s.LastTimestamp))
	ch <- prometheus.MustNewConstMetric(c.lastSeen, prometheus.GaugeValue, float64(s.LastFrameAt.UnixMilli())/1000)
}
