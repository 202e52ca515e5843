package dcf77

// FrameHandler receives every frame that passed validation together with
// the millisecond timestamp of the falling edge that closed the minute.
// It runs synchronously inside Decoder.Process.
type FrameHandler func(frame Frame, millis uint32)

// Option configures a Decoder.
type Option func(*Decoder)

// WithInitialLevel sets the level assumed before the first sample.
// The default is high, the idle level of a pulled-up input.
func WithInitialLevel(level bool) Option {
	return func(d *Decoder) {
		d.prev.Level = level
	}
}

// Decoder turns pulse samples into validated frames.
//
// All state is owned by the Decoder and mutated only from Process, Conclude
// and Reset, which must be called from a single goroutine.
type Decoder struct {
	handler FrameHandler

	prev Pulse
	buf  uint64
	pos  uint

	// parity is the running accumulator of the segment currently open.
	// It is reset at each segment start and latched at each segment end.
	parity     uint8
	parityMin  uint8
	parityHour uint8
	parityDate uint8

	stats counters
}

// NewDecoder creates a decoder that reports frames to handler.
// A nil handler discards frames; Stats still counts them.
func NewDecoder(handler FrameHandler, opts ...Option) *Decoder {
	d := &Decoder{
		handler: handler,
		prev:    Pulse{Level: true},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Reset discards any partial minute and takes level and millis as the
// previous sample. Call it when data collection (re)starts.
func (d *Decoder) Reset(level bool, millis uint32) {
	d.prev = Pulse{Level: level, Millis: millis}
	d.clear()
}

// Process handles one sample of the input line.
//
// A sample at the same level as the previous one is noise and ignored.
// A rising edge ends a pulse and appends a bit decoded from the pulse
// length. A falling edge that follows a gap of at least SyncMillis closes
// the minute. The sample becomes the previous sample whenever the level
// changed.
func (d *Decoder) Process(p Pulse) {
	d.stats.edges.Add(1)

	edge, elapsed := Classify(d.prev, p)
	switch edge {
	case EdgeNone:
		d.stats.noise.Add(1)
		return
	case EdgeFalling:
		d.prev = p
		if IsSync(elapsed) {
			d.stats.syncs.Add(1)
			if frame, ok := d.Conclude(); ok && d.handler != nil {
				d.handler(frame, p.Millis)
			}
		}
	case EdgeRising:
		d.prev = p
		d.appendBit(BitFor(elapsed))
	}
}

// appendBit stores bit at the current position and maintains the segment
// parities. Bits past FrameBits are dropped until the next minute boundary.
func (d *Decoder) appendBit(bit uint) {
	if d.pos >= FrameBits {
		d.stats.overflowBits.Add(1)
		return
	}
	d.stats.bits.Add(1)

	d.buf |= uint64(bit&1) << d.pos

	switch d.pos {
	case minuteSegStart, hourSegStart, dateSegStart:
		d.parity = 0
	case minuteSegEnd:
		d.parityMin = d.parity
	case hourSegEnd:
		d.parityHour = d.parity
	case dateSegEnd:
		d.parityDate = d.parity
	}

	if bit == 1 {
		d.parity ^= 1
	}

	d.pos++
}

// Conclude ends the current minute. It reports a frame only when exactly
// FrameBits bits were collected and all three latched parities match the
// parity bits in the frame. The buffer is cleared in every case.
func (d *Decoder) Conclude() (Frame, bool) {
	frame := Frame(d.buf)
	complete := d.pos == FrameBits
	parityMin, parityHour, parityDate := d.parityMin, d.parityHour, d.parityDate
	d.clear()

	if !complete {
		d.stats.incomplete.Add(1)
		return 0, false
	}
	if parityMin != frame.P1() || parityHour != frame.P2() || parityDate != frame.P3() {
		d.stats.parityErrors.Add(1)
		return 0, false
	}

	d.stats.frames.Add(1)
	return frame, true
}

func (d *Decoder) clear() {
	d.buf = 0
	d.pos = 0
	d.parity = 0
	d.parityMin = 0
	d.parityHour = 0
	d.parityDate = 0
}

// Position returns the number of bits collected in the current minute.
func (d *Decoder) Position() int {
	return int(d.pos)
}

// Buffer returns the bits collected in the current minute.
func (d *Decoder) Buffer() uint64 {
	return d.buf
}

// Previous returns the last accepted sample.
func (d *Decoder) Previous() Pulse {
	return d.prev
}

// Stats returns a snapshot of the decoder counters. It is safe to call
// concurrently with Process.
func (d *Decoder) Stats() Stats {
	return d.stats.snapshot()
}
