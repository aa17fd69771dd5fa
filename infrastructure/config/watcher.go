package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DynamicConfig is the part of the configuration that can change at runtime
type DynamicConfig struct {
	LogLevel string `yaml:"log_level"`
}

// Validate rejects settings that cannot be applied
func (d *DynamicConfig) Validate() error {
	if d.LogLevel == "" {
		return nil
	}
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(d.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level %q", d.LogLevel)
	}
	return nil
}

// Watcher reloads a dynamic config file when it changes
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	mu       sync.RWMutex
	current  *DynamicConfig
	onChange []func(*DynamicConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once
	debounce time.Duration
}

// NewWatcher loads the file once and prepares to watch it
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	initial, err := loadDynamicConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial config: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory so atomic saves (write then rename) are seen
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &Watcher{
		path:     path,
		watcher:  fsw,
		current:  initial,
		logger:   logger.Named("config_watcher"),
		stopCh:   make(chan struct{}),
		debounce: 100 * time.Millisecond,
	}, nil
}

// OnChange registers a callback run after each successful reload. Register before Start.
func (w *Watcher) OnChange(fn func(*DynamicConfig)) {
	w.onChange = append(w.onChange, fn)
}

// Current returns the last valid configuration
func (w *Watcher) Current() *DynamicConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("Configuration watcher stopped")
	})
}

func (w *Watcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(w.debounce, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	next, err := loadDynamicConfig(w.path)
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}

	w.mu.Lock()
	previous := w.current
	w.current = next
	w.mu.Unlock()

	if previous.LogLevel != next.LogLevel {
		w.logger.Info("Log level changed",
			zap.String("from", previous.LogLevel),
			zap.String("to", next.LogLevel))
	}

	for _, fn := range w.onChange {
		fn(next)
	}
}

func loadDynamicConfig(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg DynamicConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// BindLogLevel keeps level in step with the watched log_level setting
func BindLogLevel(w *Watcher, level zap.AtomicLevel) {
	apply := func(cfg *DynamicConfig) {
		if cfg.LogLevel == "" {
			return
		}
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(cfg.LogLevel)); err == nil {
			level.SetLevel(l)
		}
	}
	apply(w.Current())
	w.OnChange(apply)
}
