package domain

import (
	"fmt"
	"time"

	"github.com/bft-labs/dcf77rx/pkg/caltime"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
)

// DecodedFrame is a frame that passed validation, together with its
// decoded calendar time.
type DecodedFrame struct {
	// Raw is the 59-bit payload.
	Raw dcf77.Frame

	// Systick is the millisecond timestamp of the edge that closed the minute.
	Systick uint32

	// Time is the broadcast time. Seconds are zero; the frame announces
	// the minute that starts at the closing edge.
	Time caltime.Tm

	// Timestamp is Time as seconds since 1970-01-01 00:00:00 in the
	// broadcast zone. No zone conversion is applied.
	Timestamp int64

	// ReceivedAt is the host wall clock when the frame was decoded.
	ReceivedAt time.Time
}

// NewDecodedFrame decodes the calendar fields of raw.
func NewDecodedFrame(raw dcf77.Frame, systick uint32, receivedAt time.Time) DecodedFrame {
	tm := raw.Time()
	return DecodedFrame{
		Raw:        raw,
		Systick:    systick,
		Time:       tm,
		Timestamp:  tm.Timestamp(),
		ReceivedAt: receivedAt,
	}
}

// Zone returns the zone abbreviation announced by the frame.
func (f DecodedFrame) Zone() string {
	switch {
	case f.Raw.CEST() && !f.Raw.CET():
		return "CEST"
	case f.Raw.CET() && !f.Raw.CEST():
		return "CET"
	default:
		return "???"
	}
}

// FrameMeta is the JSON representation of a DecodedFrame.
type FrameMeta struct {
	Raw        string `json:"raw"`
	Systick    uint32 `json:"systick"`
	Time       string `json:"time"`
	Timestamp  int64  `json:"timestamp"`
	Zone       string `json:"zone"`
	DSTNotice  bool   `json:"dst_notice"`
	LeapNotice bool   `json:"leap_notice"`
	CallBit    bool   `json:"call_bit"`
	ReceivedAt int64  `json:"received_at"`
}

// ToMeta converts f for JSON serialization. ReceivedAt is in unix milliseconds.
func (f DecodedFrame) ToMeta() FrameMeta {
	return FrameMeta{
		Raw:        fmt.Sprintf("%#x", uint64(f.Raw)),
		Systick:    f.Systick,
		Time:       f.Time.String(),
		Timestamp:  f.Timestamp,
		Zone:       f.Zone(),
		DSTNotice:  f.Raw.DSTAnnounce(),
		LeapNotice: f.Raw.LeapSecondAnnounce(),
		CallBit:    f.Raw.CallBit(),
		ReceivedAt: f.ReceivedAt.UnixMilli(),
	}
}
