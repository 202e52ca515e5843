package receiver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	goversion "github.com/hashicorp/go-version"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/dcf77rx/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/dcf77rx/internal/adapters/http"
	logAdapter "github.com/bft-labs/dcf77rx/internal/adapters/log"
	"github.com/bft-labs/dcf77rx/internal/adapters/mqtt"
	"github.com/bft-labs/dcf77rx/internal/adapters/serial"
	"github.com/bft-labs/dcf77rx/internal/adapters/sim"
	"github.com/bft-labs/dcf77rx/internal/app"
	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/metrics"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/caltime"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

// captureTimeLayout names capture files after the moment recording began.
const captureTimeLayout = "20060102T150405Z"

// Receiver decodes DCF77 frames from an edge source and delivers them to
// the configured sinks. Use New to create one, then Start.
type Receiver struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	emitter   *eventEmitter
	logger    ports.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	collector *metrics.Collector

	// runMu guards the fields describing the current run. It is never held
	// while events are emitted, so handlers may call Stats.
	runMu       sync.RWMutex
	recv        *app.Receiver
	capture     string
	pluginsDown *sync.Once
}

// New creates a Receiver in StateStopped. Nothing is opened until Start.
func New(cfg Config, opts ...Option) (*Receiver, error) {
	cfg.SetDefaults()

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Validate(o.source != nil); err != nil {
		return nil, err
	}
	if err := validateModuleVersions(); err != nil {
		return nil, err
	}

	emitter := &eventEmitter{handler: o.eventHandler}

	return &Receiver{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(o.logger, emitter, o.clock),
		emitter:   emitter,
		logger:    o.logger,
	}, nil
}

// Start opens the source and sinks and begins decoding in the background.
// It returns ErrAlreadyRunning unless the receiver is stopped or crashed.
// ctx bounds the whole run.
func (r *Receiver) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := r.lifecycle.TransitionTo(app.StateStarting, "Start() called"); err != nil {
		return err
	}

	source, capture, err := r.openSource()
	if err != nil {
		_ = r.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}
	sinks, err := r.openSinks()
	if err != nil {
		_ = source.Close()
		_ = r.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	recv := app.NewReceiver(app.ReceiverConfig{
		QueueSize:      r.config.QueueSize,
		PublishTimeout: r.config.PublishTimeout,
		PublishRetries: r.config.PublishRetries,
	}, source, sinks, r.logger, r.opts.clock, r.emitter)
	r.runMu.Lock()
	r.recv = recv
	r.capture = capture
	r.pluginsDown = &sync.Once{}
	r.runMu.Unlock()

	if err := r.registerMetrics(); err != nil {
		_ = recv.Close()
		_ = r.lifecycle.TransitionTo(app.StateCrashed, err.Error())
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		RecordDir:     r.config.RecordDir,
		ActiveCapture: capture,
		StateDir:      r.config.StateDir,
		Logger:        r.logger,
	}
	for i, p := range r.opts.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			r.logger.Error("plugin initialization failed",
				log.String("plugin", p.Name()),
				log.Err(err))
			cancel()
			r.shutdownPlugins(r.opts.plugins[:i])
			_ = recv.Close()
			_ = r.lifecycle.TransitionTo(app.StateCrashed, "plugin init failed: "+p.Name())
			return err
		}
		r.logger.Info("plugin initialized", log.String("plugin", p.Name()))
	}

	r.lifecycle.AddWorker()
	go func() {
		defer r.lifecycle.WorkerDone()

		if err := r.lifecycle.TransitionTo(app.StateRunning, "receiver starting"); err != nil {
			r.logger.Error("failed to transition to running", log.Err(err))
			_ = recv.Close()
			return
		}

		err := recv.Run(runCtx)
		if cerr := recv.Close(); cerr != nil {
			r.logger.Warn("closing source and sinks", log.Err(cerr))
		}

		if err != nil && runCtx.Err() == nil {
			r.logger.Error("receiver error", log.Err(err))
			_ = r.lifecycle.TransitionTo(app.StateCrashed, err.Error())
			r.stopPlugins()
			return
		}

		// The source ran out or ctx ended. When Stop() is already winding
		// down the state is Stopping and this transition is refused.
		reason := "source exhausted"
		if runCtx.Err() != nil {
			reason = "context done"
		}
		if r.lifecycle.TransitionTo(app.StateStopping, reason) == nil {
			r.stopPlugins()
			_ = r.lifecycle.TransitionTo(app.StateStopped, reason)
		}
	}()

	return nil
}

// Stop cancels the run, waits for queued frames to be delivered, and shuts
// the plugins down. It waits at most Config.ShutdownTimeout and returns
// ErrShutdownTimeout when that expires.
func (r *Receiver) Stop() error {
	r.mu.Lock()

	if !r.lifecycle.CanStop() {
		r.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := r.lifecycle.TransitionTo(app.StateStopping, "Stop() called"); err != nil {
		r.mu.Unlock()
		return err
	}
	if r.cancel != nil {
		r.cancel()
	}

	r.mu.Unlock()

	err := r.lifecycle.WaitWithTimeout(r.config.ShutdownTimeout)

	r.stopPlugins()

	if err != nil {
		_ = r.lifecycle.TransitionTo(app.StateCrashed, "shutdown timeout")
	} else {
		_ = r.lifecycle.TransitionTo(app.StateStopped, "graceful shutdown")
	}
	return err
}

// Wait blocks until the background run has ended, either because the
// source ran out, the run failed, or Stop was called.
func (r *Receiver) Wait() {
	r.lifecycle.Wait()
}

// Status returns the current lifecycle state.
func (r *Receiver) Status() State {
	return convertState(r.lifecycle.State())
}

// Stats returns counters of the current or most recent run.
func (r *Receiver) Stats() Stats {
	r.runMu.RLock()
	recv := r.recv
	r.runMu.RUnlock()

	if recv == nil {
		return Stats{}
	}
	return recv.Stats()
}

// ActiveCapture returns the capture file written by the current or most
// recent run, or an empty string when nothing is recorded.
func (r *Receiver) ActiveCapture() string {
	r.runMu.RLock()
	defer r.runMu.RUnlock()
	return r.capture
}

func (r *Receiver) openSource() (ports.EdgeSource, string, error) {
	var source ports.EdgeSource
	if r.opts.source != nil {
		source = borrowedSource{r.opts.source}
	} else {
		var err error
		source, err = r.openConfiguredSource()
		if err != nil {
			return nil, "", err
		}
	}

	if r.config.RecordDir == "" {
		return source, "", nil
	}

	if err := os.MkdirAll(r.config.RecordDir, 0o755); err != nil {
		_ = source.Close()
		return nil, "", fmt.Errorf("create record dir: %w", err)
	}
	name := "capture-" + r.opts.clock.Now().UTC().Format(captureTimeLayout) + ".txt"
	path := filepath.Join(r.config.RecordDir, name)
	rec, err := fs.CreateRecorder(path)
	if err != nil {
		_ = source.Close()
		return nil, "", err
	}
	r.logger.Info("recording samples", log.String("path", path))
	return fs.Tee(source, rec), path, nil
}

func (r *Receiver) openConfiguredSource() (ports.EdgeSource, error) {
	switch r.config.Source {
	case SourceSerial:
		return serial.Open(r.config.Serial,
			serial.WithClock(r.opts.clock),
			serial.WithLogger(r.logger))
	case SourceCapture:
		return fs.OpenCapture(r.config.Capture.Path,
			fs.WithFollow(r.config.Capture.Follow),
			fs.WithCaptureLogger(r.logger))
	case SourceSim:
		return sim.New(r.config.Sim, sim.WithClock(r.opts.clock)), nil
	default:
		return nil, fmt.Errorf("%w: unknown source %q", domain.ErrInvalidConfig, r.config.Source)
	}
}

func (r *Receiver) openSinks() ([]ports.FrameSink, error) {
	var sinks []ports.FrameSink

	if r.config.LogFrames {
		sinks = append(sinks, logAdapter.NewFrameSink(r.logger))
	}
	if r.config.StateDir != "" {
		if err := os.MkdirAll(r.config.StateDir, 0o755); err != nil {
			return nil, fmt.Errorf("create state dir: %w", err)
		}
		sinks = append(sinks, fs.NewLastFrameFile(r.config.StateDir))
	}
	if r.config.Webhook.URL != "" {
		sinks = append(sinks, httpAdapter.NewWebhookSink(r.config.Webhook, r.opts.httpClient, r.logger))
	}
	if r.config.MQTT.Broker != "" {
		sink, err := mqtt.Connect(r.config.MQTT, mqtt.WithLogger(r.logger))
		if err != nil {
			for _, s := range sinks {
				_ = s.Close()
			}
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	for _, s := range r.opts.sinks {
		sinks = append(sinks, borrowedSink{s})
	}

	return sinks, nil
}

// registerMetrics registers the collector once. The collector reads
// whichever run is current, so restarts need no re-registration.
func (r *Receiver) registerMetrics() error {
	if r.opts.registerer == nil || r.collector != nil {
		return nil
	}
	c := metrics.NewCollector(r)
	if err := r.opts.registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return fmt.Errorf("register metrics: %w", err)
		}
	}
	r.collector = c
	return nil
}

// stopPlugins shuts down all plugins once per run.
func (r *Receiver) stopPlugins() {
	r.runMu.RLock()
	once := r.pluginsDown
	r.runMu.RUnlock()

	if once != nil {
		once.Do(func() { r.shutdownPlugins(r.opts.plugins) })
	}
}

func (r *Receiver) shutdownPlugins(plugins []Plugin) {
	ctx := context.Background()
	for i := len(plugins) - 1; i >= 0; i-- {
		p := plugins[i]
		if err := p.Shutdown(ctx); err != nil {
			r.logger.Error("plugin shutdown failed",
				log.String("plugin", p.Name()),
				log.Err(err))
		} else {
			r.logger.Info("plugin shutdown complete", log.String("plugin", p.Name()))
		}
	}
}

// borrowedSource and borrowedSink keep the receiver from closing adapters
// supplied through options; the caller owns them.
type borrowedSource struct{ ports.EdgeSource }

func (borrowedSource) Close() error { return nil }

type borrowedSink struct{ ports.FrameSink }

func (borrowedSink) Close() error { return nil }

// validateModuleVersions checks that every module is at least at the
// version this package was built against.
func validateModuleVersions() error {
	modules := map[string]struct {
		version    string
		minVersion string
	}{
		"dcf77":    {dcf77.Version, dcf77.MinCompatibleVersion},
		"caltime":  {caltime.Version, caltime.MinCompatibleVersion},
		"log":      {log.Version, log.MinCompatibleVersion},
		"receiver": {Version, MinCompatibleVersion},
	}

	for name, m := range modules {
		ok, err := isVersionCompatible(m.version, m.minVersion)
		if err != nil {
			return fmt.Errorf("module %s: %w", name, err)
		}
		if !ok {
			return fmt.Errorf("module %s version %s is below minimum compatible version %s",
				name, m.version, m.minVersion)
		}
	}
	return nil
}

func isVersionCompatible(version, minVersion string) (bool, error) {
	v, err := goversion.NewVersion(version)
	if err != nil {
		return false, err
	}
	minV, err := goversion.NewVersion(minVersion)
	if err != nil {
		return false, err
	}
	return !v.LessThan(minV), nil
}
