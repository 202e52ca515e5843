package capturecleanup

import "github.com/bft-labs/dcf77rx/pkg/receiver"

// WithCaptureCleanup returns a receiver Option that enables capture cleanup.
//
// Usage:
//
//	r, err := receiver.New(cfg,
//	    capturecleanup.WithCaptureCleanup(capturecleanup.Config{
//	        CheckInterval: time.Hour,
//	        HighWatermark: 64 << 20,
//	        LowWatermark:  32 << 20,
//	    }),
//	)
func WithCaptureCleanup(cfg Config) receiver.Option {
	return receiver.WithPlugin(New(cfg))
}

// WithDefaultCaptureCleanup enables capture cleanup with DefaultConfig.
func WithDefaultCaptureCleanup() receiver.Option {
	return WithCaptureCleanup(DefaultConfig())
}
