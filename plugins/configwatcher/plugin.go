// Package configwatcher applies log level changes from the configuration
// file while the receiver runs.
package configwatcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/bft-labs/dcf77rx/pkg/log"
	"github.com/bft-labs/dcf77rx/pkg/receiver"
)

// Reasons reported when the file cannot be applied.
const (
	ReasonFileNotFound     = "FILE_NOT_FOUND"
	ReasonPermissionDenied = "PERMISSION_DENIED"
	ReasonReadError        = "READ_ERROR"
	ReasonParseError       = "PARSE_ERROR"
)

// watchedFile is the part of the configuration file this plugin applies.
type watchedFile struct {
	LogLevel string `toml:"log_level"`
}

// Plugin watches one TOML file and applies its log_level on every change.
type Plugin struct {
	mu sync.Mutex

	path          string
	debounceDelay time.Duration
	setLevel      func(zerolog.Level)
	clock         clockwork.Clock

	logger   receiver.Logger
	current  zerolog.Level
	applied  bool
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce clockwork.Timer
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch. The plugin is inactive when empty.
	Path string

	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// SetLevel applies a level. Default: zerolog.SetGlobalLevel.
	SetLevel func(zerolog.Level)

	// Clock drives the debounce timer. Default: the wall clock.
	Clock clockwork.Clock
}

// DefaultConfig returns a Config with sensible defaults for path.
func DefaultConfig(path string) Config {
	return Config{
		Path:          path,
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	if cfg.SetLevel == nil {
		cfg.SetLevel = zerolog.SetGlobalLevel
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		setLevel:      cfg.SetLevel,
		clock:         cfg.Clock,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the file. The current content is applied
// before Initialize returns.
func (p *Plugin) Initialize(ctx context.Context, cfg receiver.PluginConfig) error {
	p.mu.Lock()
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// editors replace files, so watch the directory
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		_ = watcher.Close()
		return err
	}

	p.Reload()

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher started", log.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher: watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceReload() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = p.clock.AfterFunc(p.debounceDelay, func() { p.Reload() })
}

// Reload reads the file and applies its log level when it changed. It
// reports whether a level was applied.
func (p *Plugin) Reload() bool {
	data, err := os.ReadFile(p.path)
	if err != nil {
		p.logger.Warn("config watcher: read failed",
			log.String("path", p.path),
			log.String("reason", reasonFor(err)),
			log.Err(err))
		return false
	}

	var wf watchedFile
	if err := toml.Unmarshal(data, &wf); err != nil {
		p.logger.Warn("config watcher: parse failed",
			log.String("path", p.path),
			log.String("reason", ReasonParseError),
			log.Err(err))
		return false
	}
	if wf.LogLevel == "" {
		return false
	}

	level, err := zerolog.ParseLevel(wf.LogLevel)
	if err != nil {
		p.logger.Warn("config watcher: invalid log level",
			log.String("log_level", wf.LogLevel),
			log.String("reason", ReasonParseError))
		return false
	}

	p.mu.Lock()
	if p.applied && p.current == level {
		p.mu.Unlock()
		return false
	}
	p.current = level
	p.applied = true
	p.mu.Unlock()

	p.setLevel(level)
	p.logger.Info("log level applied", log.String("level", level.String()))
	return true
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ReasonFileNotFound
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermissionDenied
	default:
		return ReasonReadError
	}
}

var _ receiver.Plugin = (*Plugin)(nil)
