package dcf77

import "github.com/bft-labs/dcf77rx/pkg/caltime"

// EncodeFlags holds the frame bits that are not derived from the time.
type EncodeFlags struct {
	Civil              uint16
	CallBit            bool
	DSTAnnounce        bool
	LeapSecondAnnounce bool
}

// EncodeBCD packs a value in [0, 99] as two decimal digits.
func EncodeBCD(v int) uint64 {
	return uint64(v + (v/10)*6)
}

// Encode builds the frame a transmitter sends during the minute before tm.
// Seconds and day of year are ignored. The zone bits follow tm.IsDST and
// the parity bits are set so that the frame validates.
func Encode(tm caltime.Tm, flags EncodeFlags) Frame {
	wday := tm.WDay
	if wday == 0 {
		wday = 7
	}

	var v uint64
	set := func(shift, width uint, value uint64) {
		v |= (value & (1<<width - 1)) << shift
	}
	setFlag := func(shift uint, b bool) {
		if b {
			v |= 1 << shift
		}
	}

	set(civilShift, civilWidth, uint64(flags.Civil))
	setFlag(callBitShift, flags.CallBit)
	setFlag(a1Shift, flags.DSTAnnounce)
	setFlag(z1Shift, tm.IsDST)
	setFlag(z2Shift, !tm.IsDST)
	setFlag(a2Shift, flags.LeapSecondAnnounce)
	setFlag(startShift, true)
	set(minuteShift, minuteWidth, EncodeBCD(tm.Min))
	set(hourShift, hourWidth, EncodeBCD(tm.Hour))
	set(dayShift, dayWidth, EncodeBCD(tm.MDay))
	set(wdayShift, wdayWidth, EncodeBCD(wday))
	set(monthShift, monthWidth, EncodeBCD(tm.Mon+1))
	set(yearShift, yearWidth, EncodeBCD(tm.AnnoDomini()%100))

	f := Frame(v)
	setFlag(p1Shift, parityOf(f, minuteSegStart, minuteSegEnd) == 1)
	setFlag(p2Shift, parityOf(f, hourSegStart, hourSegEnd) == 1)
	setFlag(p3Shift, parityOf(f, dateSegStart, dateSegEnd) == 1)
	return Frame(v)
}

// Bits returns the frame as the sequence of bits sent in seconds 0..58.
func (f Frame) Bits() [FrameBits]uint {
	var bits [FrameBits]uint
	for i := range bits {
		bits[i] = uint(uint64(f)>>uint(i)) & 1
	}
	return bits
}
