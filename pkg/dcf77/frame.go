package dcf77

import (
	"fmt"

	"github.com/bft-labs/dcf77rx/pkg/caltime"
)

// Frame is a complete minute of DCF77 bits. Bit n of the value holds the
// bit received in second n.
//
//	 0..14  civil warning bits     28      P1, even parity of 21..27
//	15      R, call bit            29..34  hours (BCD)
//	16      A1, DST change notice  35      P2, even parity of 29..34
//	17      Z1, CEST in effect     36..41  day of month (BCD)
//	18      Z2, CET in effect      42..44  day of week, Monday = 1
//	19      A2, leap second notice 45..49  month (BCD)
//	20      S, start of time       50..57  year within century (BCD)
//	21..27  minutes (BCD)          58      P3, even parity of 36..57
type Frame uint64

// Bit offsets and widths of the frame fields.
const (
	civilShift   = 0
	civilWidth   = 15
	callBitShift = 15
	a1Shift      = 16
	z1Shift      = 17
	z2Shift      = 18
	a2Shift      = 19
	startShift   = 20
	minuteShift  = 21
	minuteWidth  = 7
	p1Shift      = 28
	hourShift    = 29
	hourWidth    = 6
	p2Shift      = 35
	dayShift     = 36
	dayWidth     = 6
	wdayShift    = 42
	wdayWidth    = 3
	monthShift   = 45
	monthWidth   = 5
	yearShift    = 50
	yearWidth    = 8
	p3Shift      = 58
)

// Parity segment boundaries as buffer positions.
const (
	minuteSegStart = minuteShift
	minuteSegEnd   = p1Shift
	hourSegStart   = hourShift
	hourSegEnd     = p2Shift
	dateSegStart   = dayShift
	dateSegEnd     = p3Shift
)

func (f Frame) field(shift, width uint) uint64 {
	return (uint64(f) >> shift) & (1<<width - 1)
}

func (f Frame) flag(shift uint) bool {
	return f.field(shift, 1) == 1
}

// Civil returns the 15 civil warning bits.
func (f Frame) Civil() uint16 { return uint16(f.field(civilShift, civilWidth)) }

// CallBit reports the R bit, set when the transmitter runs on its backup antenna.
func (f Frame) CallBit() bool { return f.flag(callBitShift) }

// DSTAnnounce reports the A1 bit, set during the hour before a CET/CEST switch.
func (f Frame) DSTAnnounce() bool { return f.flag(a1Shift) }

// CEST reports the Z1 bit.
func (f Frame) CEST() bool { return f.flag(z1Shift) }

// CET reports the Z2 bit.
func (f Frame) CET() bool { return f.flag(z2Shift) }

// LeapSecondAnnounce reports the A2 bit.
func (f Frame) LeapSecondAnnounce() bool { return f.flag(a2Shift) }

// StartOfTime reports the S bit, which is always set in a valid frame.
func (f Frame) StartOfTime() bool { return f.flag(startShift) }

// RawMinutes returns the packed minutes field.
func (f Frame) RawMinutes() uint64 { return f.field(minuteShift, minuteWidth) }

// RawHours returns the packed hours field.
func (f Frame) RawHours() uint64 { return f.field(hourShift, hourWidth) }

// RawDay returns the packed day of month field.
func (f Frame) RawDay() uint64 { return f.field(dayShift, dayWidth) }

// RawWeekday returns the packed day of week field.
func (f Frame) RawWeekday() uint64 { return f.field(wdayShift, wdayWidth) }

// RawMonth returns the packed month field.
func (f Frame) RawMonth() uint64 { return f.field(monthShift, monthWidth) }

// RawYear returns the packed year within century field.
func (f Frame) RawYear() uint64 { return f.field(yearShift, yearWidth) }

// P1 returns the minutes parity bit.
func (f Frame) P1() uint8 { return uint8(f.field(p1Shift, 1)) }

// P2 returns the hours parity bit.
func (f Frame) P2() uint8 { return uint8(f.field(p2Shift, 1)) }

// P3 returns the date parity bit.
func (f Frame) P3() uint8 { return uint8(f.field(p3Shift, 1)) }

// ParityOK recomputes the three segment parities from the payload and
// compares them with P1, P2 and P3.
func (f Frame) ParityOK() bool {
	return parityOf(f, minuteSegStart, minuteSegEnd) == f.P1() &&
		parityOf(f, hourSegStart, hourSegEnd) == f.P2() &&
		parityOf(f, dateSegStart, dateSegEnd) == f.P3()
}

// parityOf returns the XOR of bits [from, to).
func parityOf(f Frame, from, to uint) uint8 {
	var p uint8
	for i := from; i < to; i++ {
		p ^= uint8(uint64(f)>>i) & 1
	}
	return p
}

// DecodeBCD unpacks a two digit packed decimal value. The tens digit sits
// in the upper nibble, so a plain binary read over-counts by 6 per ten.
// Values outside the packed decimal range are not rejected.
func DecodeBCD(v uint64) int {
	return int(v - (v/16)*6)
}

// Time decodes the calendar fields of the frame. Seconds are 0 because a
// frame describes the minute that starts with the edge that completed it.
// The day of year is not transmitted and is reported as -1.
func (f Frame) Time() caltime.Tm {
	return caltime.Tm{
		Sec:   0,
		Min:   DecodeBCD(f.RawMinutes()),
		Hour:  DecodeBCD(f.RawHours()),
		WDay:  DecodeBCD(f.RawWeekday()) % 7,
		MDay:  DecodeBCD(f.RawDay()),
		Mon:   DecodeBCD(f.RawMonth()) - 1,
		YDay:  -1,
		Year:  100 + DecodeBCD(f.RawYear()),
		IsDST: f.CEST(),
	}
}

// String returns the frame as a hexadecimal number.
func (f Frame) String() string {
	return fmt.Sprintf("%#016x", uint64(f))
}
