package config

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// debounceDelay coalesces the write bursts editors produce when saving.
const debounceDelay = 250 * time.Millisecond

// Watcher reloads the configuration file when it changes on disk and emits
// the reloaded configuration. Invalid edits are dropped so a typo in the
// file never propagates a broken configuration.
type Watcher struct {
	configPath string
	watcher    *fsnotify.Watcher
	changes    chan *Config
	errs       chan error
	stop       chan struct{}
}

// NewWatcher creates a watcher for the given config file path. The watch is
// placed on the containing directory because most editors replace the file
// on save, which would drop a watch on the file itself.
func NewWatcher(configPath string) (*Watcher, error) {
	if configPath == "" {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = path
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	return &Watcher{
		configPath: configPath,
		watcher:    fsw,
		changes:    make(chan *Config, 1),
		errs:       make(chan error, 1),
		stop:       make(chan struct{}),
	}, nil
}

// Start begins watching. Reloaded configurations arrive on Changes().
func (w *Watcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.configPath)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("watching config directory %s: %w", dir, err)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and cleans up resources.
func (w *Watcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
		_ = w.watcher.Close()
	}
}

// Changes returns the channel carrying reloaded configurations.
func (w *Watcher) Changes() <-chan *Config {
	return w.changes
}

// Errors returns the channel carrying reload failures.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

func (w *Watcher) processEvents(ctx context.Context) {
	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceDelay)
				debounceC = debounce.C
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceDelay)
			}
		case <-debounceC:
			debounce = nil
			debounceC = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.configPath)
	if err != nil {
		w.reportError(fmt.Errorf("config reload: %w", err))
		return
	}
	// Keep only the newest config if the consumer is behind.
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- cfg:
	default:
	}
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errs <- err:
	default:
	}
}
