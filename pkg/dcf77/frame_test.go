package dcf77

import (
	"testing"

	"github.com/bft-labs/dcf77rx/pkg/caltime"
)

func TestDecodeBCD(t *testing.T) {
	tests := []struct {
		raw  uint64
		want int
	}{
		{0x00, 0},
		{0x09, 9},
		{0x10, 10},
		{0x19, 19},
		{0x23, 23},
		{0x31, 31},
		{0x59, 59},
		{0x99, 99},
		// not packed decimal, decoded without complaint
		{0x1F, 25},
	}

	for _, tt := range tests {
		if got := DecodeBCD(tt.raw); got != tt.want {
			t.Errorf("DecodeBCD(%#x) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestEncodeBCD(t *testing.T) {
	for v := 0; v < 100; v++ {
		if got := DecodeBCD(EncodeBCD(v)); got != v {
			t.Errorf("DecodeBCD(EncodeBCD(%d)) = %d", v, got)
		}
	}
	if got := EncodeBCD(23); got != 0x23 {
		t.Errorf("EncodeBCD(23) = %#x, want 0x23", got)
	}
}

func TestFrame_Fields(t *testing.T) {
	f := Encode(exampleTm(), EncodeFlags{Civil: 0x1234, CallBit: true, LeapSecondAnnounce: true})

	tests := []struct {
		name string
		got  uint64
		want uint64
	}{
		{"minutes", f.RawMinutes(), 0x30},
		{"hours", f.RawHours(), 0x15},
		{"day", f.RawDay(), 0x23},
		{"weekday", f.RawWeekday(), 7},
		{"month", f.RawMonth(), 0x02},
		{"year", f.RawYear(), 0x25},
		{"civil", uint64(f.Civil()), 0x1234},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %#x, want %#x", tt.name, tt.got, tt.want)
		}
	}

	if !f.StartOfTime() {
		t.Error("StartOfTime() = false")
	}
	if !f.CET() || f.CEST() {
		t.Errorf("CET/CEST = %v/%v, want true/false", f.CET(), f.CEST())
	}
	if !f.CallBit() || !f.LeapSecondAnnounce() || f.DSTAnnounce() {
		t.Errorf("R/A2/A1 = %v/%v/%v, want true/true/false", f.CallBit(), f.LeapSecondAnnounce(), f.DSTAnnounce())
	}
	if !f.ParityOK() {
		t.Error("ParityOK() = false for an encoded frame")
	}
	if f>>FrameBits != 0 {
		t.Errorf("bits above %d set: %v", FrameBits, f)
	}
}

func TestFrame_Parity(t *testing.T) {
	f := Encode(exampleTm(), EncodeFlags{})

	// 0x30 has two ones set, 0x15 has three
	if f.P1() != 0 {
		t.Errorf("P1() = %d, want 0", f.P1())
	}
	if f.P2() != 1 {
		t.Errorf("P2() = %d, want 1", f.P2())
	}

	if (f ^ 1<<dayShift).ParityOK() {
		t.Error("ParityOK() = true after flipping a date bit")
	}
	if !(f ^ 1<<dayShift ^ 1<<p3Shift).ParityOK() {
		t.Error("ParityOK() = false after flipping a date bit and P3")
	}
}

func TestFrame_TimeDST(t *testing.T) {
	tm := exampleTm()
	tm.IsDST = true
	f := Encode(tm, EncodeFlags{DSTAnnounce: true})

	got := f.Time()
	if !got.IsDST {
		t.Error("IsDST = false for a CEST frame")
	}
	if !f.DSTAnnounce() {
		t.Error("DSTAnnounce() = false")
	}
	if got.String() != "Sun Feb 23 15:30:00 2025" {
		t.Errorf("String() = %q", got.String())
	}
}

func TestFrame_TimeToTimestamp(t *testing.T) {
	f := Encode(exampleTm(), EncodeFlags{})
	if got := f.Time().Timestamp(); got != 1740324600 {
		t.Errorf("Timestamp() = %d, want 1740324600", got)
	}

	back := caltime.FromTimestamp(1740324600, false)
	if Encode(back, EncodeFlags{}) != f {
		t.Error("frame from converted timestamp differs")
	}
}

func TestFrame_String(t *testing.T) {
	if got := Frame(0x1f).String(); got != "0x000000000000001f" {
		t.Errorf("String() = %q", got)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		prev, next  Pulse
		wantEdge    Edge
		wantElapsed uint32
	}{
		{"rising", Pulse{false, 100}, Pulse{true, 300}, EdgeRising, 200},
		{"falling", Pulse{true, 300}, Pulse{false, 1100}, EdgeFalling, 800},
		{"same level", Pulse{true, 300}, Pulse{true, 400}, EdgeNone, 100},
		{"wraparound", Pulse{false, ^uint32(0) - 49}, Pulse{true, 50}, EdgeRising, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edge, elapsed := Classify(tt.prev, tt.next)
			if edge != tt.wantEdge || elapsed != tt.wantElapsed {
				t.Errorf("Classify() = %v, %d, want %v, %d", edge, elapsed, tt.wantEdge, tt.wantElapsed)
			}
		})
	}
}

func TestEdge_String(t *testing.T) {
	tests := []struct {
		edge Edge
		want string
	}{
		{EdgeNone, "none"},
		{EdgeRising, "rising"},
		{EdgeFalling, "falling"},
		{Edge(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.edge.String(); got != tt.want {
			t.Errorf("Edge(%d).String() = %s, want %s", tt.edge, got, tt.want)
		}
	}
}

func TestBitForAndIsSync(t *testing.T) {
	if BitFor(169) != 0 || BitFor(170) != 1 {
		t.Error("BitFor split is not at 170 ms")
	}
	if IsSync(1199) || !IsSync(1200) {
		t.Error("IsSync threshold is not at 1200 ms")
	}
}
