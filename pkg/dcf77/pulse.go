package dcf77

const (
	// SplitMillis separates short from long pulses. A pulse shorter than
	// this decodes as 0, anything at least this long as 1.
	SplitMillis = 170

	// SyncMillis is the silence that marks a minute boundary. The carrier
	// is not keyed in second 59, so a gap this long only occurs there.
	SyncMillis = 1200

	// FrameBits is the number of bits in a complete minute.
	FrameBits = 59
)

// Pulse is one sample of the receiver output, taken on a level change.
type Pulse struct {
	// Level is the input level after the change.
	Level bool

	// Millis is a free running millisecond counter. It may wrap around
	// at 2^32; only differences between samples are used.
	Millis uint32
}

// Edge is the kind of level transition between two samples.
type Edge int

const (
	// EdgeNone means the level did not change.
	EdgeNone Edge = iota
	// EdgeRising is a low to high transition. It ends a pulse.
	EdgeRising
	// EdgeFalling is a high to low transition. It starts a pulse.
	EdgeFalling
)

// String returns a human-readable representation of the edge.
func (e Edge) String() string {
	switch e {
	case EdgeNone:
		return "none"
	case EdgeRising:
		return "rising"
	case EdgeFalling:
		return "falling"
	default:
		return "unknown"
	}
}

// Classify compares two consecutive samples. It returns the edge type and
// the milliseconds elapsed between them, wraparound included.
func Classify(prev, next Pulse) (Edge, uint32) {
	elapsed := next.Millis - prev.Millis
	switch {
	case prev.Level == next.Level:
		return EdgeNone, elapsed
	case next.Level:
		return EdgeRising, elapsed
	default:
		return EdgeFalling, elapsed
	}
}

// BitFor decodes the length of a pulse.
func BitFor(elapsed uint32) uint {
	if elapsed < SplitMillis {
		return 0
	}
	return 1
}

// IsSync reports whether a gap of elapsed milliseconds before a falling
// edge marks a minute boundary.
func IsSync(elapsed uint32) bool {
	return elapsed >= SyncMillis
}
