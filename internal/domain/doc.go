// Package domain holds the entities shared by the receiver pipeline.
//
// It depends only on the public decoder packages and has no knowledge of
// serial ports, files, brokers or loggers.
//
//   - [DecodedFrame]: a validated minute frame with its decoded calendar time
//   - [FrameMeta]: the JSON form of a DecodedFrame used by sinks and captures
package domain
