// Package dcf77rx decodes the DCF77 time signal.
//
// Example usage:
//
//	cfg := dcf77rx.DefaultConfig()
//	cfg.Serial.Port = "/dev/ttyUSB0"
//	cfg.StateDir = "/var/lib/dcf77rx"
//	if err := dcf77rx.Run(ctx, cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// Run is a blocking shortcut around pkg/receiver. Use that package directly
// to control the lifecycle, add sinks or register plugins.
package dcf77rx

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/bft-labs/dcf77rx/pkg/log"
	"github.com/bft-labs/dcf77rx/pkg/receiver"
)

// Config holds the configuration of a receiver.
type Config = receiver.Config

// Frame is a decoded DCF77 frame.
type Frame = receiver.Frame

// Run decodes frames until ctx is canceled, the source runs out, or the
// receiver crashes. It returns nil in the first two cases.
func Run(ctx context.Context, cfg Config, opts ...receiver.Option) error {
	r, err := receiver.New(cfg, opts...)
	if err != nil {
		return err
	}
	if err := r.Start(ctx); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		r.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-done:
	}
	// A run that already ended reports ErrNotRunning.
	if err := r.Stop(); err != nil && !errors.Is(err, receiver.ErrNotRunning) {
		return err
	}
	<-done

	if r.Status() == receiver.StateCrashed {
		return errors.New("dcf77rx: receiver crashed")
	}
	return nil
}

// DefaultConfig returns a Config with sensible default values.
// At minimum, set Serial.Port before calling Run.
func DefaultConfig() Config {
	var cfg Config
	cfg.SetDefaults()
	return cfg
}

// Logger returns a console logger for use with receiver.WithLogger through
// log.NewZerologAdapterWithLogger.
func Logger() zerolog.Logger {
	return log.NewZerologAdapter().Logger()
}
