package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 500 * time.Millisecond

// Change describes one successful reload
type Change struct {
	Old, New *Config

	// Tunables lists runtime settings that took effect
	Tunables []string

	// Pending lists settings that changed on disk but need a restart
	Pending []string
}

// Diff compares two configurations. Only the refresh schedule can be applied
// to a running process.
func Diff(old, next *Config) Change {
	c := Change{Old: old, New: next}

	tunable := func(name string, a, b time.Duration) {
		if a != b {
			c.Tunables = append(c.Tunables, fmt.Sprintf("%s: %s -> %s", name, a, b))
		}
	}
	tunable("refresh.update_interval", old.Refresh.UpdateInterval, next.Refresh.UpdateInterval)
	tunable("refresh.cache_duration", old.Refresh.CacheDuration, next.Refresh.CacheDuration)
	tunable("refresh.session_idle", old.Refresh.SessionIdle, next.Refresh.SessionIdle)

	pending := func(name string, changed bool) {
		if changed {
			c.Pending = append(c.Pending, name)
		}
	}
	pending("server_address", old.ServerAddress != next.ServerAddress)
	pending("environment", old.Environment != next.Environment)
	pending("log_level", old.LogLevel != next.LogLevel)
	pending("chain", old.Chain != next.Chain)
	pending("narrative", old.Narrative != next.Narrative)
	pending("http", fmt.Sprint(old.HTTP) != fmt.Sprint(next.HTTP))
	pending("observability", old.Observability != next.Observability)

	return c
}

// Empty reports whether nothing changed
func (c Change) Empty() bool {
	return len(c.Tunables) == 0 && len(c.Pending) == 0
}

// Watcher reloads the YAML config file in development and hands each change
// to the registered handlers, in registration order.
type Watcher struct {
	file   string
	load   func() (*Config, error)
	logger *zap.Logger
	delay  time.Duration

	mu       sync.Mutex
	current  *Config
	handlers []func(Change)
}

// NewWatcher watches the file cfg was loaded from. It is inert outside
// development or when no file was used.
func NewWatcher(cfg *Config, logger *zap.Logger) *Watcher {
	w := &Watcher{
		load:    LoadConfig,
		logger:  logger,
		delay:   reloadDebounce,
		current: cfg,
	}
	if cfg.IsDevelopment() && cfg.ConfigFile != "" {
		w.file = filepath.Clean(cfg.ConfigFile)
	}
	return w
}

// Enabled reports whether Run will watch anything
func (w *Watcher) Enabled() bool {
	return w.file != ""
}

// OnChange registers fn for future reloads
func (w *Watcher) OnChange(fn func(Change)) {
	w.mu.Lock()
	w.handlers = append(w.handlers, fn)
	w.mu.Unlock()
}

// Current returns the last configuration that loaded cleanly
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run watches until ctx is done. A disabled watcher returns at once.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.Enabled() {
		w.logger.Info("Configuration hot reloading disabled")
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer fsw.Close()

	// editors replace files on save, so watch the directory
	if err := fsw.Add(filepath.Dir(w.file)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.file, err)
	}
	w.logger.Info("Configuration hot reloading enabled", zap.String("file", w.file))

	timer := time.NewTimer(0)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.file || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			timer.Reset(w.delay)

		case <-timer.C:
			w.Reload()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Configuration watcher error", zap.Error(err))
		}
	}
}

// Reload reads the configuration again and notifies handlers when it differs.
// A file that fails to load or validate leaves the current config in place.
func (w *Watcher) Reload() {
	next, err := w.load()
	if err != nil {
		w.logger.Error("Configuration reload rejected", zap.Error(err))
		return
	}

	w.mu.Lock()
	change := Diff(w.current, next)
	if change.Empty() {
		w.mu.Unlock()
		return
	}
	w.current = next
	handlers := append([]func(Change){}, w.handlers...)
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded",
		zap.Strings("applied", change.Tunables),
		zap.Strings("restartRequired", change.Pending),
	)
	for _, h := range handlers {
		w.notify(h, change)
	}
}

func (w *Watcher) notify(h func(Change), change Change) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("Configuration handler panicked", zap.Any("panic", r))
		}
	}()
	h(change)
}
