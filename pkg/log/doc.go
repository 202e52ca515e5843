// Package log provides the logging abstraction used by dcf77rx components.
//
// Library code never writes to a global logger. Components accept a Logger
// and default to NoopLogger, so embedding the decoder in another program
// produces no output unless asked to.
//
// # Usage
//
// Console output on stderr:
//
//	logger := log.NewZerologAdapter()
//
// Console output plus a rotating file:
//
//	file := log.NewRotatingFile(log.FileOptions{Path: "/var/log/dcf77rx.log"})
//	defer file.Close()
//	logger := log.NewZerologAdapterWithWriters(zerolog.InfoLevel, log.ConsoleWriter(os.Stderr), file)
//
// Custom loggers implement the four level methods:
//
//	func (l *MyLogger) Debug(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Info(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Warn(msg string, fields ...log.Field) { ... }
//	func (l *MyLogger) Error(msg string, fields ...log.Field) { ... }
//
// # Version
//
// Current version: 1.1.0
// Minimum compatible version: 1.0.0
package log
