package serial

import (
	"fmt"
	"strings"

	bugst "go.bug.st/serial"
)

// Port is the part of a serial port the edge source uses.
// go.bug.st/serial.Port satisfies it.
type Port interface {
	GetModemStatusBits() (*bugst.ModemStatusBits, error)
	SetDTR(dtr bool) error
	SetRTS(rts bool) error
	Close() error
}

// PortFactory opens a serial port.
type PortFactory func(path string, mode *bugst.Mode) (Port, error)

// DefaultPortFactory opens a real serial port.
func DefaultPortFactory(path string, mode *bugst.Mode) (Port, error) {
	port, err := bugst.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port: %w", err)
	}
	return port, nil
}

// Line is the modem status input the receiver output is wired to.
type Line string

const (
	LineDCD Line = "dcd"
	LineCTS Line = "cts"
	LineDSR Line = "dsr"
	LineRI  Line = "ri"
)

// ParseLine accepts a line name in any case.
func ParseLine(s string) (Line, error) {
	switch l := Line(strings.ToLower(strings.TrimSpace(s))); l {
	case LineDCD, LineCTS, LineDSR, LineRI:
		return l, nil
	default:
		return "", fmt.Errorf("unknown modem line %q (want dcd, cts, dsr or ri)", s)
	}
}

func (l Line) level(bits *bugst.ModemStatusBits) bool {
	switch l {
	case LineCTS:
		return bits.CTS
	case LineDSR:
		return bits.DSR
	case LineRI:
		return bits.RI
	default:
		return bits.DCD
	}
}
