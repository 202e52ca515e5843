// Package dcf77 decodes the DCF77 longwave time signal from edge timings.
//
// A DCF77 receiver module turns the amplitude keyed carrier into a digital
// level. Each second starts with a pulse of 100 ms (bit 0) or 200 ms (bit 1);
// the 59th second carries no pulse and marks the minute boundary. A minute
// therefore carries 59 bits, protected by three even parity bits covering
// the minutes, the hours and the date.
//
// # Decoding
//
// Feed every level change of the input line to a [Decoder]. Once a complete
// minute has been received and its parity checks out, the handler supplied
// to [NewDecoder] is called with the [Frame] and the millisecond timestamp
// of the edge that closed the minute:
//
//	d := dcf77.NewDecoder(func(f dcf77.Frame, millis uint32) {
//	    fmt.Println(f.Time())
//	})
//	d.Reset(currentLevel, nowMillis)
//	for edge := range edges {
//	    d.Process(edge)
//	}
//
// Process does a bounded amount of work and never allocates, so it can run
// inside an interrupt style callback. The handler runs synchronously inside
// Process and must return quickly; it must not call back into the decoder.
// A Decoder is not safe for concurrent use by multiple producers.
//
// Incomplete minutes, parity failures and excess bits are dropped silently.
// Every minute boundary restarts collection, so the decoder recovers on its
// own. [Decoder.Stats] exposes counters for diagnostics.
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package dcf77
