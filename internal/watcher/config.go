package watcher

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/mbvlabs/linkpulse/internal/logger"
)

const DefaultDebounce = 500 * time.Millisecond

// ConfigWatcherConfig configures RunConfigWatcher.
type ConfigWatcherConfig struct {
	Path     string
	Debounce time.Duration
	Logger   logger.Logger
}

// RunConfigWatcher signals changed whenever the file at cfg.Path is
// written, created, renamed or removed. The parent directory is watched so
// editors that replace the file atomically are still picked up. Bursts of
// events are debounced into one signal.
func RunConfigWatcher(ctx context.Context, changed chan<- struct{}, cfg ConfigWatcherConfig) error {
	log := cfg.Logger
	if log == nil {
		log = logger.Noop()
	}
	debounceDelay := cfg.Debounce
	if debounceDelay <= 0 {
		debounceDelay = DefaultDebounce
	}

	target, err := filepath.Abs(cfg.Path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return err
	}

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isTarget(event.Name, target) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(debounceDelay, func() {
				log.Info("config file changed: %s", filepath.Base(target))
				select {
				case changed <- struct{}{}:
				default:
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Debug("config watcher error: %v", err)
		}
	}
}

func isTarget(name, target string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	return filepath.Clean(abs) == filepath.Clean(target)
}
