package domain

import "errors"

// Errors returned by the receiver and its adapters. Check them with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("dcf77rx: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("dcf77rx: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("dcf77rx: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("dcf77rx: invalid configuration")

	// ErrSourceClosed is returned by an edge source used after Close.
	ErrSourceClosed = errors.New("dcf77rx: source closed")

	// ErrMalformedCapture is returned for a capture line that is not "<millis> <0|1>".
	ErrMalformedCapture = errors.New("dcf77rx: malformed capture line")
)
