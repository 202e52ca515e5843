package receiver

import (
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

// Re-exported port types, so that callers can supply their own adapters.
type (
	// EdgeSource produces samples of the receiver output line.
	EdgeSource = ports.EdgeSource

	// FrameSink consumes decoded frames.
	FrameSink = ports.FrameSink

	// Frame is a decoded frame.
	Frame = domain.DecodedFrame

	// FrameMeta is the JSON form of a Frame.
	FrameMeta = domain.FrameMeta

	// Stats is a snapshot of receiver activity.
	Stats = domain.ReceiverStats

	// HTTPClient is used by the webhook sink. *http.Client satisfies it.
	HTTPClient = ports.HTTPClient

	// Logger is the logging interface from pkg/log.
	Logger = log.Logger
)

// Option configures optional behavior of a Receiver.
type Option func(*options)

type options struct {
	logger       log.Logger
	source       ports.EdgeSource
	sinks        []ports.FrameSink
	registerer   prometheus.Registerer
	eventHandler EventHandler
	clock        clockwork.Clock
	httpClient   ports.HTTPClient
	plugins      []Plugin
}

func defaultOptions() options {
	return options{
		logger:     log.NewNoopLogger(),
		clock:      clockwork.NewRealClock(),
		httpClient: http.DefaultClient,
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithSource supplies the edge source instead of building one from Config.
// The caller keeps ownership and closes it after the receiver stopped.
func WithSource(source EdgeSource) Option {
	return func(o *options) {
		o.source = source
	}
}

// WithSink adds a frame sink next to those built from Config.
// The caller keeps ownership and closes it after the receiver stopped.
func WithSink(sink FrameSink) Option {
	return func(o *options) {
		o.sinks = append(o.sinks, sink)
	}
}

// WithRegistry registers the receiver metrics with reg on Start.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = reg
	}
}

// WithEventHandler sets a handler for state changes and frames.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithClock replaces the wall clock. Tests use a fake clock.
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithHTTPClient sets the client used by the webhook sink.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithPlugin registers a plugin. Plugins are initialized in registration
// order on Start and shut down in reverse order on Stop.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}
