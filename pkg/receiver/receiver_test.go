package receiver_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bft-labs/dcf77rx/pkg/dcf77"
	"github.com/bft-labs/dcf77rx/pkg/receiver"
)

var simStart = time.Date(2025, time.February, 23, 15, 29, 0, 0, time.UTC)

func simConfig(minutes int) receiver.Config {
	return receiver.Config{
		Source: receiver.SourceSim,
		Sim:    receiver.SimConfig{Start: simStart, Minutes: minutes},
	}
}

// recordingHandler collects events.
type recordingHandler struct {
	mu     sync.Mutex
	states []receiver.StateChangeEvent
	frames []receiver.Frame
}

func (h *recordingHandler) OnStateChange(e receiver.StateChangeEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.states = append(h.states, e)
}

func (h *recordingHandler) OnFrame(f receiver.Frame) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, f)
}

func (h *recordingHandler) States() []receiver.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []receiver.State
	for _, e := range h.states {
		out = append(out, e.Current)
	}
	return out
}

type memorySink struct {
	mu     sync.Mutex
	frames []receiver.Frame
	closed bool
}

func (s *memorySink) Publish(_ context.Context, f receiver.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, f)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type blockingSource struct {
	closed bool
}

func (s *blockingSource) Next(ctx context.Context) (dcf77.Pulse, error) {
	<-ctx.Done()
	return dcf77.Pulse{}, ctx.Err()
}

func (s *blockingSource) Close() error {
	s.closed = true
	return nil
}

type failingSource struct{}

func (failingSource) Next(context.Context) (dcf77.Pulse, error) {
	return dcf77.Pulse{}, errors.New("line disconnected")
}

func (failingSource) Close() error { return nil }

// stubPlugin counts lifecycle calls.
type stubPlugin struct {
	mu        sync.Mutex
	initErr   error
	cfg       receiver.PluginConfig
	inits     int
	shutdowns int
}

func (p *stubPlugin) Name() string { return "stub" }

func (p *stubPlugin) Initialize(_ context.Context, cfg receiver.PluginConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.inits++
	p.cfg = cfg
	return p.initErr
}

func (p *stubPlugin) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdowns++
	return nil
}

func TestReceiver_RunsSimToCompletion(t *testing.T) {
	handler := &recordingHandler{}
	sink := &memorySink{}
	plugin := &stubPlugin{}

	r, err := receiver.New(simConfig(3),
		receiver.WithEventHandler(handler),
		receiver.WithSink(sink),
		receiver.WithPlugin(plugin),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if r.Status() != receiver.StateStopped {
		t.Fatalf("initial status = %v", r.Status())
	}

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	r.Wait()

	if r.Status() != receiver.StateStopped {
		t.Errorf("status after source ran out = %v, want Stopped", r.Status())
	}

	want := []receiver.State{
		receiver.StateStarting, receiver.StateRunning, receiver.StateStopping, receiver.StateStopped,
	}
	got := handler.States()
	if len(got) != len(want) {
		t.Fatalf("states = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("state %d = %v, want %v", i, got[i], want[i])
		}
	}

	if len(sink.frames) != 3 || len(handler.frames) != 3 {
		t.Fatalf("sink got %d frames, handler %d, want 3", len(sink.frames), len(handler.frames))
	}
	if ts := sink.frames[2].Timestamp; ts != simStart.Add(3*time.Minute).Unix() {
		t.Errorf("last timestamp = %d", ts)
	}
	if sink.closed {
		t.Error("injected sink was closed by the receiver")
	}

	if s := r.Stats(); s.Decoder.Frames != 3 || s.Published != 3 {
		t.Errorf("stats = %+v", s)
	}
	if plugin.inits != 1 || plugin.shutdowns != 1 {
		t.Errorf("plugin inits/shutdowns = %d/%d", plugin.inits, plugin.shutdowns)
	}

	if err := r.Stop(); !errors.Is(err, receiver.ErrNotRunning) {
		t.Errorf("Stop() after completion = %v, want ErrNotRunning", err)
	}
}

func TestReceiver_StartStop(t *testing.T) {
	src := &blockingSource{}
	plugin := &stubPlugin{}

	r, err := receiver.New(receiver.Config{}, receiver.WithSource(src), receiver.WithPlugin(plugin))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx := context.Background()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := r.Start(ctx); !errors.Is(err, receiver.ErrAlreadyRunning) {
		t.Errorf("second Start() = %v, want ErrAlreadyRunning", err)
	}

	if err := r.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if r.Status() != receiver.StateStopped {
		t.Errorf("status = %v", r.Status())
	}
	if src.closed {
		t.Error("injected source was closed by the receiver")
	}

	// restart with the same source
	if err := r.Start(ctx); err != nil {
		t.Fatalf("restart error = %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
	if plugin.inits != 2 || plugin.shutdowns != 2 {
		t.Errorf("plugin inits/shutdowns = %d/%d", plugin.inits, plugin.shutdowns)
	}
}

func TestReceiver_CrashOnSourceError(t *testing.T) {
	plugin := &stubPlugin{}
	r, err := receiver.New(receiver.Config{}, receiver.WithSource(failingSource{}), receiver.WithPlugin(plugin))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.Wait()

	if r.Status() != receiver.StateCrashed {
		t.Errorf("status = %v, want Crashed", r.Status())
	}
	if plugin.shutdowns != 1 {
		t.Errorf("plugin shutdowns = %d", plugin.shutdowns)
	}
	if err := r.Stop(); !errors.Is(err, receiver.ErrNotRunning) {
		t.Errorf("Stop() = %v, want ErrNotRunning", err)
	}
}

func TestReceiver_ParentContextEndsRun(t *testing.T) {
	tests := []struct {
		name   string
		cancel func() (context.Context, context.CancelFunc)
	}{
		{"canceled", func() (context.Context, context.CancelFunc) {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			return ctx, func() {}
		}},
		{"deadline", func() (context.Context, context.CancelFunc) {
			return context.WithTimeout(context.Background(), 20*time.Millisecond)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := &recordingHandler{}
			plugin := &stubPlugin{}
			r, err := receiver.New(receiver.Config{},
				receiver.WithSource(&blockingSource{}),
				receiver.WithPlugin(plugin),
				receiver.WithEventHandler(handler),
			)
			if err != nil {
				t.Fatal(err)
			}

			ctx, cancel := tt.cancel()
			defer cancel()
			if err := r.Start(ctx); err != nil {
				t.Fatalf("Start() error = %v", err)
			}
			r.Wait()

			if r.Status() != receiver.StateStopped {
				t.Errorf("status = %v, want Stopped", r.Status())
			}
			if plugin.shutdowns != 1 {
				t.Errorf("plugin shutdowns = %d, want 1", plugin.shutdowns)
			}
			states := handler.States()
			if len(states) == 0 || states[len(states)-1] != receiver.StateStopped {
				t.Errorf("states = %v", states)
			}
			for _, s := range states {
				if s == receiver.StateCrashed {
					t.Errorf("run crashed: %v", states)
				}
			}
			if err := r.Stop(); !errors.Is(err, receiver.ErrNotRunning) {
				t.Errorf("Stop() = %v, want ErrNotRunning", err)
			}
		})
	}
}

func TestReceiver_PluginInitFailure(t *testing.T) {
	first := &stubPlugin{}
	second := &stubPlugin{initErr: errors.New("boom")}

	r, err := receiver.New(simConfig(1), receiver.WithPlugin(first), receiver.WithPlugin(second))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); err == nil {
		t.Fatal("Start() succeeded with a failing plugin")
	}
	if r.Status() != receiver.StateCrashed {
		t.Errorf("status = %v, want Crashed", r.Status())
	}
	if first.shutdowns != 1 || second.shutdowns != 0 {
		t.Errorf("shutdowns = %d/%d, want 1/0", first.shutdowns, second.shutdowns)
	}
}

func TestReceiver_RecordsAndPersists(t *testing.T) {
	recordDir := t.TempDir()
	stateDir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC))
	plugin := &stubPlugin{}

	cfg := simConfig(2)
	cfg.RecordDir = recordDir
	cfg.StateDir = stateDir

	r, err := receiver.New(cfg, receiver.WithClock(clock), receiver.WithPlugin(plugin))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	r.Wait()

	wantCapture := filepath.Join(recordDir, "capture-20250301T120000Z.txt")
	if r.ActiveCapture() != wantCapture {
		t.Errorf("ActiveCapture() = %q, want %q", r.ActiveCapture(), wantCapture)
	}
	if plugin.cfg.ActiveCapture != wantCapture || plugin.cfg.StateDir != stateDir {
		t.Errorf("plugin config = %+v", plugin.cfg)
	}

	data, err := os.ReadFile(wantCapture)
	if err != nil {
		t.Fatalf("read capture: %v", err)
	}
	if !strings.HasPrefix(string(data), "# dcf77rx capture") {
		t.Errorf("capture header missing: %q", string(data[:min(40, len(data))]))
	}

	// replay the recording through a capture source
	replay, err := receiver.New(receiver.Config{
		Source:  receiver.SourceCapture,
		Capture: receiver.CaptureConfig{Path: wantCapture},
	}, receiver.WithSink(&memorySink{}))
	if err != nil {
		t.Fatal(err)
	}
	if err := replay.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	replay.Wait()
	if got := replay.Stats().Decoder.Frames; got != 2 {
		t.Errorf("replayed frames = %d, want 2", got)
	}

	last, err := os.ReadFile(filepath.Join(stateDir, "last_frame.json"))
	if err != nil {
		t.Fatalf("read last frame: %v", err)
	}
	if !strings.Contains(string(last), `"zone": "CET"`) {
		t.Errorf("last_frame.json = %s", last)
	}
}

func TestReceiver_RegistersMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	r, err := receiver.New(simConfig(2), receiver.WithRegistry(reg))
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err := r.Start(context.Background()); err != nil {
			t.Fatalf("Start() #%d error = %v", i+1, err)
		}
		r.Wait()
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var frames float64 = -1
	for _, mf := range families {
		if mf.GetName() == "dcf77rx_decoder_frames_total" {
			frames = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	if frames != 2 {
		t.Errorf("dcf77rx_decoder_frames_total = %v, want 2", frames)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  receiver.Config
	}{
		{"serial without port", receiver.Config{Source: receiver.SourceSerial}},
		{"serial bad line", receiver.Config{Source: receiver.SourceSerial, Serial: receiver.SerialConfig{Port: "/dev/ttyUSB0", Line: "xyz"}}},
		{"capture without path", receiver.Config{Source: receiver.SourceCapture}},
		{"sim noise", receiver.Config{Source: receiver.SourceSim, Sim: receiver.SimConfig{Noise: 2}}},
		{"unknown source", receiver.Config{Source: "radio"}},
		{"mqtt qos", receiver.Config{Source: receiver.SourceSim, MQTT: receiver.MQTTConfig{Broker: "localhost:1883", QoS: 3}}},
		{"negative retries", receiver.Config{Source: receiver.SourceSim, PublishRetries: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := receiver.New(tt.cfg)
			if !errors.Is(err, receiver.ErrInvalidConfig) {
				t.Errorf("New() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_SetDefaults(t *testing.T) {
	var cfg receiver.Config
	cfg.SetDefaults()

	if cfg.Source != receiver.SourceSerial {
		t.Errorf("Source = %q", cfg.Source)
	}
	if cfg.Serial.Line != "dcd" || cfg.Serial.BaudRate != 9600 {
		t.Errorf("Serial = %+v", cfg.Serial)
	}
	if cfg.QueueSize <= 0 || cfg.PublishTimeout <= 0 || cfg.ShutdownTimeout <= 0 {
		t.Errorf("defaults missing: %+v", cfg)
	}
}

func TestState_String(t *testing.T) {
	tests := []struct {
		state receiver.State
		want  string
	}{
		{receiver.StateStopped, "Stopped"},
		{receiver.StateStarting, "Starting"},
		{receiver.StateRunning, "Running"},
		{receiver.StateStopping, "Stopping"},
		{receiver.StateCrashed, "Crashed"},
		{receiver.State(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %s, want %s", tt.state, got, tt.want)
		}
	}
}
