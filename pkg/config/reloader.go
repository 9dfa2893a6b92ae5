package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Reloader watches a configuration file and invokes a callback with the
// freshly loaded configuration on change. Only runtime-safe fields should be
// applied by the callback; endpoints and the token are fixed at install time.
type Reloader struct {
	configPath   string
	watcher      *fsnotify.Watcher
	onChange     func(*Config)
	logger       *slog.Logger
	mu           sync.RWMutex
	running      bool
	stopCh       chan struct{}
	debounceTime time.Duration
}

// NewReloader creates a reloader for the given path. onChange receives the
// normalized new configuration; load failures are logged and skipped.
func NewReloader(configPath string, onChange func(*Config), logger *slog.Logger) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Reloader{
		configPath:   configPath,
		watcher:      watcher,
		onChange:     onChange,
		logger:       logger,
		stopCh:       make(chan struct{}),
		debounceTime: time.Second,
	}, nil
}

// Start begins watching the configuration file for changes.
func (r *Reloader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = true
	r.mu.Unlock()

	// Watch the directory: editors often write a temp file and rename it
	// over the target, which would orphan a file-level watch.
	if err := r.watcher.Add(filepath.Dir(r.configPath)); err != nil {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
		return err
	}

	r.logger.Info("Config reloader started", "config_path", r.configPath)
	go r.watchLoop(ctx)
	return nil
}

// Stop stops the reloader.
func (r *Reloader) Stop() error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	close(r.stopCh)
	return r.watcher.Close()
}

// IsRunning returns whether the reloader is currently watching.
func (r *Reloader) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *Reloader) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if !r.isConfigFileEvent(event) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			// Debounce rapid successive writes
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(r.debounceTime, r.triggerReload)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Error("Config reloader error", "error", err)

		case <-r.stopCh:
			r.logger.Info("Config reloader stopped")
			return

		case <-ctx.Done():
			return
		}
	}
}

func (r *Reloader) isConfigFileEvent(event fsnotify.Event) bool {
	eventPath, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	configPath, err := filepath.Abs(r.configPath)
	if err != nil {
		return false
	}
	return eventPath == configPath
}

func (r *Reloader) triggerReload() {
	start := time.Now()
	cfg, err := Load(r.configPath, r.logger)
	if err != nil {
		r.logger.Error("Config reload failed", "error", err, "duration", time.Since(start))
		return
	}

	r.onChange(cfg)
	r.logger.Info("Config reload completed", "duration", time.Since(start))
}
