package dcf77

import "sync/atomic"

// Stats is a snapshot of decoder activity since construction.
type Stats struct {
	Edges        uint64 // samples passed to Process
	Noise        uint64 // samples without a level change
	Bits         uint64 // bits stored in the buffer
	OverflowBits uint64 // bits dropped because the buffer was full
	Syncs        uint64 // minute boundaries detected
	Frames       uint64 // frames delivered
	Incomplete   uint64 // minutes with fewer than FrameBits bits
	ParityErrors uint64 // complete minutes failing a parity check
}

// Rejected returns the number of minute boundaries that did not yield a frame.
func (s Stats) Rejected() uint64 {
	return s.Incomplete + s.ParityErrors
}

type counters struct {
	edges        atomic.Uint64
	noise        atomic.Uint64
	bits         atomic.Uint64
	overflowBits atomic.Uint64
	syncs        atomic.Uint64
	frames       atomic.Uint64
	incomplete   atomic.Uint64
	parityErrors atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Edges:        c.edges.Load(),
		Noise:        c.noise.Load(),
		Bits:         c.bits.Load(),
		OverflowBits: c.overflowBits.Load(),
		Syncs:        c.syncs.Load(),
		Frames:       c.frames.Load(),
		Incomplete:   c.incomplete.Load(),
		ParityErrors: c.parityErrors.Load(),
	}
}
