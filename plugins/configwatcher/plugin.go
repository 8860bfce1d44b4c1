// Package configwatcher feeds configuration changes into a canopy runtime.
// It watches a TOML file and, after every debounced write, parses it and
// delivers it to the tree as a configuration change.
package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	toml "github.com/pelletier/go-toml/v2"

	"github.com/bft-labs/canopy"
	"github.com/bft-labs/canopy/internal/app"
	"github.com/bft-labs/canopy/pkg/component"
	"github.com/bft-labs/canopy/pkg/log"
)

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	// Configuration
	path          string
	debounceDelay time.Duration
	retryInitial  time.Duration
	retryMax      time.Duration
	attempts      int
	applyInitial  bool

	// Runtime state
	runtime  canopy.Dispatcher
	logger   log.Logger
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
	last     component.Configuration
	applied  int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// Path is the TOML file to watch. Empty disables the plugin.
	Path string

	// DebounceDelay is how long the file must stay quiet before it is read.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// RetryInitial and RetryMax bound the backoff between failed attempts.
	// Default: 50 milliseconds and 2 seconds
	RetryInitial time.Duration
	RetryMax     time.Duration

	// Attempts is how many times a change is tried before it is dropped.
	// Default: 5
	Attempts int

	// ApplyInitial delivers the file once when the plugin starts.
	ApplyInitial bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
		RetryInitial:  app.DefaultBackoffInitial,
		RetryMax:      app.DefaultBackoffMax,
		Attempts:      5,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	d := DefaultConfig()
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = d.DebounceDelay
	}
	if cfg.RetryInitial <= 0 {
		cfg.RetryInitial = d.RetryInitial
	}
	if cfg.RetryMax < cfg.RetryInitial {
		cfg.RetryMax = max(d.RetryMax, cfg.RetryInitial)
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = d.Attempts
	}

	return &Plugin{
		path:          cfg.Path,
		debounceDelay: cfg.DebounceDelay,
		retryInitial:  cfg.RetryInitial,
		retryMax:      cfg.RetryMax,
		attempts:      cfg.Attempts,
		applyInitial:  cfg.ApplyInitial,
		logger:        log.NoopLogger{},
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the file. The watch is in place when it returns.
func (p *Plugin) Initialize(ctx context.Context, cfg canopy.PluginConfig) error {
	p.mu.Lock()
	p.runtime = cfg.Runtime
	p.logger = log.OrNoop(cfg.Logger).With(log.String("plugin", p.Name()))
	p.mu.Unlock()

	if p.path == "" {
		p.logger.Warn("config watcher disabled: no file configured")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// editors replace files, so watch the directory and filter by name
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(p.path), err)
	}
	p.watcher = watcher

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher initialized", log.String("path", p.path))

	if p.applyInitial {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.applyWithRetry(watchCtx)
		}()
	}

	p.wg.Add(1)
	go p.watchLoop(watchCtx)

	return nil
}

// Shutdown stops the config watcher and waits for in-flight deliveries.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Lock()
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.mu.Unlock()
	p.wg.Wait()
	return nil
}

// Applied returns how many configurations were delivered to the tree.
func (p *Plugin) Applied() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.applied
}

func (p *Plugin) watchLoop(ctx context.Context) {
	defer p.wg.Done()
	defer p.watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceApply(ctx)

		case err, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("watcher error", log.Err(err))
		}
	}
}

func (p *Plugin) debounceApply(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ctx.Err() != nil {
		return
	}
	if p.debounce != nil && p.debounce.Stop() {
		p.wg.Done()
	}
	p.wg.Add(1)
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		defer p.wg.Done()
		p.applyWithRetry(ctx)
	})
}

// applyWithRetry reads the file and delivers it, backing off while the file
// is half written or the runtime is busy.
func (p *Plugin) applyWithRetry(ctx context.Context) {
	b := app.NewBackoff(p.retryInitial, p.retryMax)
	err := app.Retry(ctx, b, p.attempts, func() error {
		return p.apply(ctx)
	})
	if err != nil && ctx.Err() == nil {
		p.logger.Error("configuration change dropped",
			log.Int("attempts", p.attempts),
			log.Err(err))
	}
}

func (p *Plugin) apply(ctx context.Context) error {
	cfg, err := LoadConfiguration(p.path)
	if err != nil {
		return err
	}

	p.mu.Lock()
	same := p.last != nil && reflect.DeepEqual(p.last, cfg)
	runtime := p.runtime
	p.mu.Unlock()
	if same {
		p.logger.Debug("configuration unchanged")
		return nil
	}

	err = runtime.Dispatch(ctx, func(h *component.Host) error {
		return h.ConfigurationChanged(cfg)
	})
	if err != nil {
		return fmt.Errorf("deliver configuration: %w", err)
	}

	p.mu.Lock()
	p.last = cfg
	p.applied++
	p.mu.Unlock()
	p.logger.Info("configuration changed", log.Int("keys", len(cfg)))
	return nil
}

// LoadConfiguration reads a flat or nested TOML table as a configuration.
func LoadConfiguration(path string) (component.Configuration, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := component.Configuration{}
	if err := toml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Ensure Plugin implements canopy.Plugin.
var _ canopy.Plugin = (*Plugin)(nil)
