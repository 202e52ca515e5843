package fs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/dcf77rx/internal/domain"
	"github.com/bft-labs/dcf77rx/internal/ports"
	"github.com/bft-labs/dcf77rx/pkg/dcf77"
	"github.com/bft-labs/dcf77rx/pkg/log"
)

// CaptureOption configures a CaptureSource.
type CaptureOption func(*CaptureSource)

// WithFollow keeps reading as the file grows instead of returning io.EOF,
// like tail -f.
func WithFollow(follow bool) CaptureOption {
	return func(c *CaptureSource) {
		c.follow = follow
	}
}

// WithCaptureLogger sets the logger.
func WithCaptureLogger(logger log.Logger) CaptureOption {
	return func(c *CaptureSource) {
		c.logger = logger
	}
}

// CaptureSource replays samples from a capture file.
type CaptureSource struct {
	path   string
	follow bool
	logger log.Logger

	mu      sync.Mutex
	file    *os.File
	reader  *bufio.Reader
	watcher *fsnotify.Watcher
	pending string
	lineNo  int

	closed atomic.Bool
}

var _ ports.EdgeSource = (*CaptureSource)(nil)

// OpenCapture opens path for reading. In follow mode the file is watched
// for writes.
func OpenCapture(path string, opts ...CaptureOption) (*CaptureSource, error) {
	c := &CaptureSource{
		path:   path,
		logger: log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open capture: %w", err)
	}
	c.file = f
	c.reader = bufio.NewReader(f)

	if c.follow {
		w, err := fsnotify.NewWatcher()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Add(path); err != nil {
			_ = w.Close()
			_ = f.Close()
			return nil, fmt.Errorf("watch %s: %w", path, err)
		}
		c.watcher = w
	}

	c.logger.Info("capture source opened",
		log.String("path", path),
		log.Bool("follow", c.follow),
	)
	return c, nil
}

// Next returns the next sample in the file. Without follow it returns
// io.EOF at the end of the file.
func (c *CaptureSource) Next(ctx context.Context) (dcf77.Pulse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		if c.closed.Load() {
			return dcf77.Pulse{}, domain.ErrSourceClosed
		}

		chunk, err := c.reader.ReadString('\n')
		c.pending += chunk

		if err != nil && !errors.Is(err, io.EOF) {
			return dcf77.Pulse{}, fmt.Errorf("read capture: %w", err)
		}
		if err != nil && c.follow {
			// partial line stays pending until the writer finishes it
			if werr := c.waitForWrite(ctx); werr != nil {
				return dcf77.Pulse{}, werr
			}
			continue
		}
		if err != nil && c.pending == "" {
			return dcf77.Pulse{}, io.EOF
		}

		line := c.pending
		c.pending = ""
		c.lineNo++

		p, ok, perr := ParseCaptureLine(line)
		if perr != nil {
			return dcf77.Pulse{}, fmt.Errorf("%s:%d: %w", c.path, c.lineNo, perr)
		}
		if ok {
			return p, nil
		}
	}
}

func (c *CaptureSource) waitForWrite(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return domain.ErrSourceClosed
			}
			if ev.Has(fsnotify.Write) {
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				c.logger.Warn("capture file went away", log.String("path", c.path))
				return io.EOF
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return domain.ErrSourceClosed
			}
			return fmt.Errorf("watch capture: %w", err)
		}
	}
}

// Close closes the watcher, which wakes a Next blocked in follow mode,
// then the file.
func (c *CaptureSource) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	if c.watcher != nil {
		_ = c.watcher.Close()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.file.Close()
}

// ParseCaptureLine parses one capture line. ok is false for blank and
// comment lines.
func ParseCaptureLine(line string) (p dcf77.Pulse, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return dcf77.Pulse{}, false, nil
	}
	if len(fields) != 2 {
		return dcf77.Pulse{}, false, fmt.Errorf("%w: %q", domain.ErrMalformedCapture, strings.TrimSpace(line))
	}

	millis, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return dcf77.Pulse{}, false, fmt.Errorf("%w: millis %q", domain.ErrMalformedCapture, fields[0])
	}

	switch fields[1] {
	case "0":
		p.Level = false
	case "1":
		p.Level = true
	default:
		return dcf77.Pulse{}, false, fmt.Errorf("%w: level %q", domain.ErrMalformedCapture, fields[1])
	}
	p.Millis = uint32(millis)
	return p, true, nil
}
