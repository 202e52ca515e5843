package configwatcher

import "github.com/bft-labs/dcf77rx/pkg/receiver"

// WithConfigWatcher returns a receiver Option that reloads the log level
// from a configuration file whenever it changes.
//
// Usage:
//
//	r, err := receiver.New(cfg,
//	    configwatcher.WithConfigWatcher(configwatcher.DefaultConfig("/etc/dcf77rx/config.toml")),
//	)
func WithConfigWatcher(cfg Config) receiver.Option {
	return receiver.WithPlugin(New(cfg))
}
