// Package receiver provides an embeddable DCF77 time signal receiver.
//
// A Receiver reads the demodulated output of a DCF77 receiver module from
// an edge source, decodes one frame per minute and hands every valid frame
// to a set of sinks. Edges can come from a serial modem status line, from
// a capture file, or from a built-in transmitter simulation.
//
// # Basic Usage
//
//	cfg := receiver.Config{
//	    Source: receiver.SourceSerial,
//	    Serial: receiver.SerialConfig{Port: "/dev/ttyUSB0"},
//	    StateDir: "/var/lib/dcf77rx",
//	}
//
//	r, err := receiver.New(cfg, receiver.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	if err := r.Start(ctx); err != nil {
//	    return err
//	}
//
//	// ... run until shutdown signal ...
//
//	if err := r.Stop(); err != nil {
//	    logger.Warn("shutdown", log.Err(err))
//	}
//
// # Sinks
//
// Frames can be logged (LogFrames), written to last_frame.json (StateDir),
// posted to a webhook (Webhook.URL), and published over MQTT (MQTT.Broker).
// Further sinks are added with [WithSink].
//
// A slow sink never delays decoding. Frames wait in a bounded queue and are
// dropped when it is full; [Stats] reports how many.
//
// # Lifecycle States
//
// A Receiver is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. A finite source, such as a capture
// file or a simulation with a minute count, stops the receiver on its own
// once every frame has been delivered. Use [Receiver.Wait] to block until
// that happens.
//
// # Plugins
//
// Plugins run next to the receiver and follow its lifecycle:
//
//	r, err := receiver.New(cfg,
//	    capturecleanup.WithCaptureCleanup(capturecleanup.DefaultConfig()),
//	)
package receiver
