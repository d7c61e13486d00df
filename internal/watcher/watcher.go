// Package watcher reloads the configuration file while the control API is running.
// Changes take effect for the next login attempt.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cryovex/mcauth/internal/config"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

const configReloadDebounce = 150 * time.Millisecond

// Watcher watches the configuration file and hands every successfully reloaded
// configuration to the reload callback.
type Watcher struct {
	configPath     string
	reloadCallback func(*config.Config)
	watcher        *fsnotify.Watcher

	mu             sync.Mutex
	config         *config.Config
	lastConfigHash string

	configReloadMu    sync.Mutex
	configReloadTimer *time.Timer
}

// NewWatcher creates a watcher for configPath. cfg is the configuration currently in use.
func NewWatcher(configPath string, cfg *config.Config, reloadCallback func(*config.Config)) (*Watcher, error) {
	watcher, errNewWatcher := fsnotify.NewWatcher()
	if errNewWatcher != nil {
		return nil, errNewWatcher
	}
	absPath, errAbs := filepath.Abs(configPath)
	if errAbs != nil {
		absPath = configPath
	}
	w := &Watcher{
		configPath:     filepath.Clean(absPath),
		reloadCallback: reloadCallback,
		watcher:        watcher,
		config:         cfg,
	}
	w.lastConfigHash, _ = hashFile(w.configPath)
	return w, nil
}

// Start watches the directory holding the config file, so editors that replace the file
// atomically are seen too. Events are processed until ctx ends or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.configPath)
	if errAdd := w.watcher.Add(dir); errAdd != nil {
		log.Errorf("failed to watch config directory %s: %v", dir, errAdd)
		return errAdd
	}
	log.Debugf("watching config file: %s", w.configPath)
	go w.processEvents(ctx)
	return nil
}

// Stop stops the file watcher.
func (w *Watcher) Stop() error {
	w.stopConfigReloadTimer()
	return w.watcher.Close()
}

// Config returns the configuration most recently loaded.
func (w *Watcher) Config() *config.Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.config
}

func (w *Watcher) processEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case errWatch, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("file watcher error: %v", errWatch)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.configPath {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}
	log.Debugf("config file event: %s %s", event.Op.String(), event.Name)
	w.scheduleConfigReload()
}
