package fs

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
)

const captureHeader = "# dcf77rx capture: <millis> <level>\n"

// Recorder writes samples in capture format.
type Recorder struct {
	mu     sync.Mutex
	w      *bufio.Writer
	closer io.Closer
	buf    []byte
}

// NewRecorder writes to w. Close flushes but does not close w.
func NewRecorder(w io.Writer) *Recorder {
	return &Recorder{w: bufio.NewWriter(w)}
}

// CreateRecorder truncates path and writes the capture header.
func CreateRecorder(path string) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create capture: %w", err)
	}
	r := NewRecorder(f)
	r.closer = f
	if _, err := r.w.WriteString(captureHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write capture header: %w", err)
	}
	return r, nil
}

// Record appends one sample.
func (r *Recorder) Record(p dcf77.Pulse) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buf = strconv.AppendUint(r.buf[:0], uint64(p.Millis), 10)
	if p.Level {
		r.buf = append(r.buf, " 1\n"...)
	} else {
		r.buf = append(r.buf, " 0\n"...)
	}
	_, err := r.w.Write(r.buf)
	return err
}

// Flush writes buffered samples.
func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.w.Flush()
}

// Close flushes and closes the file opened by CreateRecorder.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.w.Flush()
	if r.closer != nil {
		if cerr := r.closer.Close(); err == nil {
			err = cerr
		}
		r.closer = nil
	}
	return err
}

// TeeSource records every sample an edge source yields.
type TeeSource struct {
	src ports.EdgeSource
	rec *Recorder
}

var _ ports.EdgeSource = (*TeeSource)(nil)

// Tee wraps src so that each sample is also written to rec.
func Tee(src ports.EdgeSource, rec *Recorder) *TeeSource {
	return &TeeSource{src: src, rec: rec}
}

// Next returns the next sample of the wrapped source. A recording
// failure is returned together with the sample.
func (t *TeeSource) Next(ctx context.Context) (dcf77.Pulse, error) {
	p, err := t.src.Next(ctx)
	if err != nil {
		return p, err
	}
	if rerr := t.rec.Record(p); rerr != nil {
		return p, fmt.Errorf("record sample: %w", rerr)
	}
	return p, nil
}

// Close closes the source, then the recorder.
func (t *TeeSource) Close() error {
	err := t.src.Close()
	if rerr := t.rec.Close(); err == nil {
		err = rerr
	}
	return err
}
