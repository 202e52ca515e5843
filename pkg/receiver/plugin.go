package receiver

import "context"

// Plugin extends a Receiver with work that runs alongside it.
//
// Initialize is called on every Start before the first sample is read and
// may start goroutines bound to ctx. Shutdown is called on Stop, and also
// when the source runs out, after the frames have been delivered.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context, cfg PluginConfig) error
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to plugins on Initialize.
type PluginConfig struct {
	// RecordDir is where capture files are written, or empty.
	RecordDir string

	// ActiveCapture is the capture file being written by this run, or empty.
	ActiveCapture string

	// StateDir holds last_frame.json, or is empty.
	StateDir string

	Logger Logger
}
