// Package ports defines the interfaces that connect the receiver pipeline
// to infrastructure adapters.
//
//   - [EdgeSource]: produces input samples (serial line, capture file, simulator)
//   - [FrameSink]: consumes decoded frames (log, MQTT, capture of frames)
//   - [Logger]: structured logging abstraction
//   - [HTTPClient]: HTTP request abstraction for the webhook sink
//
// The application layer (internal/app) depends only on these interfaces.
// Adapters under internal/adapters implement them.
package ports
