package serial

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	bugst "go.bug.st/serial"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
)

type mockPort struct {
	mu       sync.Mutex
	bits     bugst.ModemStatusBits
	statErr  error
	dtr, rts []bool
	closed   bool
}

func (m *mockPort) GetModemStatusBits() (*bugst.ModemStatusBits, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statErr != nil {
		return nil, m.statErr
	}
	bits := m.bits
	return &bits, nil
}

func (m *mockPort) SetDTR(v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dtr = append(m.dtr, v)
	return nil
}

func (m *mockPort) SetRTS(v bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rts = append(m.rts, v)
	return nil
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockPort) setDCD(v bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bits.DCD = v
}

func openMock(t *testing.T, cfg Config, port *mockPort, clock clockwork.Clock) *Source {
	t.Helper()
	var gotPath string
	var gotMode *bugst.Mode
	factory := func(path string, mode *bugst.Mode) (Port, error) {
		gotPath, gotMode = path, mode
		return port, nil
	}
	src, err := Open(cfg, WithClock(clock), WithPortFactory(factory))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if gotPath != cfg.Port || gotMode == nil || gotMode.BaudRate != 9600 {
		t.Fatalf("factory called with %q, %+v", gotPath, gotMode)
	}
	return src
}

func TestSource_PollReportsChanges(t *testing.T) {
	clock := clockwork.NewFakeClock()
	port := &mockPort{bits: bugst.ModemStatusBits{DCD: true}}
	src := openMock(t, Config{Port: "/dev/ttyUSB0"}, port, clock)
	defer src.Close()

	p, changed, err := src.poll()
	if err != nil || !changed || p != (dcf77.Pulse{Level: true, Millis: 0}) {
		t.Fatalf("first poll = %+v, %v, %v", p, changed, err)
	}

	clock.Advance(50 * time.Millisecond)
	if _, changed, _ := src.poll(); changed {
		t.Fatal("unchanged level reported as change")
	}

	clock.Advance(1950 * time.Millisecond)
	port.setDCD(false)
	p, changed, err = src.poll()
	if err != nil || !changed || p != (dcf77.Pulse{Level: false, Millis: 2000}) {
		t.Fatalf("falling poll = %+v, %v, %v", p, changed, err)
	}

	clock.Advance(100 * time.Millisecond)
	port.setDCD(true)
	p, _, _ = src.poll()
	if p != (dcf77.Pulse{Level: true, Millis: 2100}) {
		t.Errorf("rising poll = %+v", p)
	}
}

func TestSource_InvertAndLine(t *testing.T) {
	clock := clockwork.NewFakeClock()
	port := &mockPort{bits: bugst.ModemStatusBits{CTS: true, DCD: false}}
	src := openMock(t, Config{Port: "COM3", Line: LineCTS, Invert: true}, port, clock)
	defer src.Close()

	p, _, err := src.poll()
	if err != nil {
		t.Fatal(err)
	}
	if p.Level {
		t.Error("inverted CTS high read as high")
	}
}

func TestSource_NextWaitsForTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	port := &mockPort{bits: bugst.ModemStatusBits{DCD: true}}
	src := openMock(t, Config{Port: "/dev/ttyS0", PollInterval: 10 * time.Millisecond}, port, clock)
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	first, err := src.Next(ctx)
	if err != nil || !first.Level {
		t.Fatalf("first Next() = %+v, %v", first, err)
	}

	port.setDCD(false)
	result := make(chan dcf77.Pulse, 1)
	go func() {
		p, err := src.Next(ctx)
		if err != nil {
			t.Errorf("Next() error = %v", err)
		}
		result <- p
	}()

	clock.Advance(10 * time.Millisecond)

	select {
	case p := <-result:
		if p.Level || p.Millis != 10 {
			t.Errorf("Next() = %+v, want low at 10", p)
		}
	case <-ctx.Done():
		t.Fatal("Next() did not return after a tick")
	}
}

func TestSource_NextHonoursContext(t *testing.T) {
	clock := clockwork.NewFakeClock()
	port := &mockPort{}
	src := openMock(t, Config{Port: "/dev/ttyS0"}, port, clock)
	defer src.Close()

	if _, err := src.Next(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Next(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Next() error = %v, want context.Canceled", err)
	}
}

func TestSource_PowerLinesAndClose(t *testing.T) {
	port := &mockPort{}
	src := openMock(t, Config{Port: "/dev/ttyS0", PowerDTR: true}, port, clockwork.NewFakeClock())

	if err := src.Close(); err != nil {
		t.Fatal(err)
	}
	if err := src.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if len(port.dtr) != 2 || !port.dtr[0] || port.dtr[1] {
		t.Errorf("DTR sequence = %v, want [true false]", port.dtr)
	}
	if len(port.rts) != 1 || port.rts[0] {
		t.Errorf("RTS sequence = %v, want [false]", port.rts)
	}
	if !port.closed {
		t.Error("port not closed")
	}
	if _, err := src.Next(context.Background()); !errors.Is(err, domain.ErrSourceClosed) {
		t.Errorf("Next() after Close error = %v", err)
	}
}

func TestSource_StatusError(t *testing.T) {
	port := &mockPort{statErr: errors.New("unplugged")}
	src := openMock(t, Config{Port: "/dev/ttyS0"}, port, clockwork.NewFakeClock())
	defer src.Close()

	if _, err := src.Next(context.Background()); err == nil {
		t.Error("expected error from modem status read")
	}
}

func TestOpen_RejectsUnknownLine(t *testing.T) {
	opened := false
	factory := func(string, *bugst.Mode) (Port, error) {
		opened = true
		return &mockPort{}, nil
	}

	_, err := Open(Config{Port: "/dev/ttyUSB0", Line: "rx"}, WithClock(clockwork.NewFakeClock()), WithPortFactory(factory))
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Errorf("Open() error = %v, want ErrInvalidConfig", err)
	}
	if opened {
		t.Error("port opened for an unknown line")
	}
}

func TestOpen_NormalisesLine(t *testing.T) {
	port := &mockPort{}
	src := openMock(t, Config{Port: "/dev/ttyUSB0", Line: " CTS "}, port, clockwork.NewFakeClock())
	defer src.Close()

	if src.cfg.Line != LineCTS {
		t.Errorf("line = %q, want %q", src.cfg.Line, LineCTS)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		in      string
		want    Line
		wantErr bool
	}{
		{"dcd", LineDCD, false},
		{"CTS", LineCTS, false},
		{" dsr ", LineDSR, false},
		{"Ri", LineRI, false},
		{"rx", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLine(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLine(%q) = %q, %v", tt.in, got, err)
		}
	}
}
