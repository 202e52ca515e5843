package dcf77rx

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/dcf77rx/pkg/dcf77"
	"github.com/bft-labs/dcf77rx/pkg/receiver"
)

type countingSink struct {
	frames []Frame
}

func (s *countingSink) Publish(_ context.Context, f Frame) error {
	s.frames = append(s.frames, f)
	return nil
}

func (s *countingSink) Close() error { return nil }

type brokenSource struct{}

func (brokenSource) Next(context.Context) (dcf77.Pulse, error) {
	return dcf77.Pulse{}, errors.New("port vanished")
}

func (brokenSource) Close() error { return nil }

func TestRun_FiniteSource(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = receiver.SourceSim
	cfg.Sim = receiver.SimConfig{
		Start:   time.Date(2025, time.October, 26, 1, 58, 0, 0, time.UTC),
		Minutes: 2,
		CEST:    true,
	}

	sink := &countingSink{}
	if err := Run(context.Background(), cfg, receiver.WithSink(sink)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(sink.frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(sink.frames))
	}
	if z := sink.frames[0].Zone(); z != "CEST" {
		t.Errorf("zone = %s, want CEST", z)
	}
}

func TestRun_Crash(t *testing.T) {
	err := Run(context.Background(), DefaultConfig(), receiver.WithSource(brokenSource{}))
	if err == nil {
		t.Fatal("Run() succeeded with a failing source")
	}
}

func TestRun_Canceled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Source = receiver.SourceSim
	cfg.Sim = receiver.SimConfig{
		Start:    time.Date(2025, time.February, 23, 15, 29, 0, 0, time.UTC),
		Realtime: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := Run(ctx, cfg); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Source != receiver.SourceSerial || cfg.QueueSize <= 0 {
		t.Errorf("DefaultConfig() = %+v", cfg)
	}
}
