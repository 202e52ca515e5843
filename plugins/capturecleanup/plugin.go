// Package capturecleanup keeps the capture directory of a receiver below a
// size limit by removing the oldest capture files.
package capturecleanup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/bft-labs/dcf77rx/pkg/log"
	"github.com/bft-labs/dcf77rx/pkg/receiver"
)

const (
	capturePrefix = "capture-"
	captureSuffix = ".txt"
)

// Plugin periodically checks the size of the capture files and removes the
// oldest ones once the total exceeds the high watermark. The capture being
// written is never removed.
type Plugin struct {
	mu sync.RWMutex

	checkInterval  time.Duration
	highWatermark  int64
	lowWatermark   int64
	runImmediately bool
	clock          clockwork.Clock

	recordDir string
	active    string
	logger    receiver.Logger
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// Config holds configuration options for the capture cleanup plugin.
type Config struct {
	// CheckInterval is how often to check the capture directory.
	// Default: 6 hours
	CheckInterval time.Duration

	// HighWatermark is the size in bytes above which cleanup begins.
	// Default: 256 MiB
	HighWatermark int64

	// LowWatermark is the target size in bytes after cleanup.
	// Default: 192 MiB
	LowWatermark int64

	// RunImmediately runs a check on startup.
	RunImmediately bool

	// Clock drives the check interval. Default: the wall clock.
	Clock clockwork.Clock
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		CheckInterval:  6 * time.Hour,
		HighWatermark:  256 << 20,
		LowWatermark:   192 << 20,
		RunImmediately: true,
	}
}

// New creates a capture cleanup plugin.
func New(cfg Config) *Plugin {
	def := DefaultConfig()
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = def.CheckInterval
	}
	if cfg.HighWatermark <= 0 {
		cfg.HighWatermark = def.HighWatermark
	}
	if cfg.LowWatermark <= 0 || cfg.LowWatermark > cfg.HighWatermark {
		cfg.LowWatermark = cfg.HighWatermark / 4 * 3
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Plugin{
		checkInterval:  cfg.CheckInterval,
		highWatermark:  cfg.HighWatermark,
		lowWatermark:   cfg.LowWatermark,
		runImmediately: cfg.RunImmediately,
		clock:          cfg.Clock,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "capturecleanup"
}

// Initialize starts the cleanup loop.
func (p *Plugin) Initialize(ctx context.Context, cfg receiver.PluginConfig) error {
	p.mu.Lock()
	p.recordDir = cfg.RecordDir
	p.active = cfg.ActiveCapture
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.recordDir == "" {
		p.logger.Warn("capture cleanup disabled: no record directory configured")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("capture cleanup enabled",
		log.String("dir", p.recordDir),
		log.String("high_watermark", formatBytes(p.highWatermark)),
		log.String("low_watermark", formatBytes(p.lowWatermark)),
	)

	p.wg.Add(1)
	go p.cleanupLoop(loopCtx)

	return nil
}

// Shutdown stops the cleanup loop.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	return nil
}

func (p *Plugin) cleanupLoop(ctx context.Context) {
	defer p.wg.Done()

	if p.runImmediately {
		p.CleanupOnce(ctx)
	}

	ticker := p.clock.NewTicker(p.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			p.CleanupOnce(ctx)
		}
	}
}

// CleanupOnce performs a single check and returns the number of bytes freed.
func (p *Plugin) CleanupOnce(ctx context.Context) int64 {
	p.mu.RLock()
	dir, active, logger := p.recordDir, p.active, p.logger
	p.mu.RUnlock()

	files, err := captureFiles(dir)
	if err != nil {
		logger.Error("capture cleanup: list failed", log.Err(err))
		return 0
	}

	var curSize int64
	for _, f := range files {
		curSize += f.size
	}
	if curSize <= p.highWatermark {
		return 0
	}

	var removed int64
	for _, f := range files {
		if ctx.Err() != nil || curSize <= p.lowWatermark {
			break
		}
		if f.path == active {
			continue
		}
		if err := os.Remove(f.path); err != nil {
			logger.Error("capture cleanup: remove failed", log.String("path", f.path), log.Err(err))
			continue
		}
		curSize -= f.size
		removed += f.size
	}

	if removed > 0 {
		logger.Info("capture cleanup completed",
			log.String("freed", formatBytes(removed)),
			log.String("remaining", formatBytes(curSize)),
		)
	}
	return removed
}

type captureFile struct {
	path string
	size int64
}

// captureFiles lists the capture files in dir, oldest first. The names
// embed the start time, so lexical order is chronological.
func captureFiles(dir string) ([]captureFile, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var files []captureFile
	for _, e := range ents {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, capturePrefix) || !strings.HasSuffix(name, captureSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, captureFile{path: filepath.Join(dir, name), size: info.Size()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

func formatBytes(b int64) string {
	const (
		_          = iota
		KB float64 = 1 << (10 * iota)
		MB
		GB
	)

	fb := float64(b)
	switch {
	case fb >= GB:
		return fmt.Sprintf("%.2fGiB", fb/GB)
	case fb >= MB:
		return fmt.Sprintf("%.2fMiB", fb/MB)
	case fb >= KB:
		return fmt.Sprintf("%.2fKiB", fb/KB)
	default:
		return fmt.Sprintf("%dB", b)
	}
}

var _ receiver.Plugin = (*Plugin)(nil)
