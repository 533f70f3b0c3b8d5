// Package watcher reloads dock configuration when its files change.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/grovetools/dock/config"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 200 * time.Millisecond

// Options configures a ConfigWatcher.
type Options struct {
	// Dirs are watched non-recursively. Missing directories are skipped.
	Dirs     []string
	Debounce time.Duration

	// Reload loads the merged configuration after a change.
	Reload func() (*config.Config, error)
	// Apply receives every configuration that loaded cleanly.
	Apply func(*config.Config) error
	// Notify is called with the changed file after Apply succeeds.
	Notify func(file string)

	Logger *logrus.Entry
}

// ConfigWatcher watches config directories with fsnotify and reapplies the
// configuration once writes settle.
type ConfigWatcher struct {
	opts Options

	mu      sync.Mutex
	timer   *time.Timer
	pending string
}

// New creates a ConfigWatcher. It does not touch the filesystem until Run.
func New(opts Options) *ConfigWatcher {
	if opts.Debounce <= 0 {
		opts.Debounce = defaultDebounce
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ConfigWatcher{opts: opts}
}

// Name implements engine.Worker.
func (w *ConfigWatcher) Name() string {
	return "config-watcher"
}

// Run watches until ctx is canceled.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	targetToLink := w.addDirs(fw)

	defer w.stopTimer()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.opts.Logger.Debugf("fsnotify event: %s op=%v", event.Name, event.Op)

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			name := event.Name
			if link, ok := targetToLink[name]; ok {
				name = link
			}
			if config.IsConfigFile(name) {
				w.schedule(name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.opts.Logger.WithError(err).Error("Watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}

// addDirs registers every existing directory, plus the target directories
// of symlinked config files since fsnotify does not follow links.
func (w *ConfigWatcher) addDirs(fw *fsnotify.Watcher) map[string]string {
	watched := make(map[string]bool)
	targetToLink := make(map[string]string)

	add := func(dir string) {
		if watched[dir] {
			return
		}
		if err := fw.Add(dir); err != nil {
			w.opts.Logger.WithError(err).WithField("dir", dir).Debug("Not watching directory")
			return
		}
		watched[dir] = true
		w.opts.Logger.WithField("dir", dir).Debug("Watching config directory")
	}

	for _, dir := range w.opts.Dirs {
		if dir == "" {
			continue
		}
		add(dir)

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.Type()&os.ModeSymlink == 0 || !config.IsConfigFile(entry.Name()) {
				continue
			}
			link := filepath.Join(dir, entry.Name())
			target, err := filepath.EvalSymlinks(link)
			if err != nil {
				w.opts.Logger.WithError(err).Warnf("Failed to resolve symlink %s", link)
				continue
			}
			targetToLink[target] = link
			add(filepath.Dir(target))
		}
	}

	return targetToLink
}

// schedule restarts the debounce timer so a burst of writes triggers one
// reload.
func (w *ConfigWatcher) schedule(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = file
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.opts.Debounce, w.fire)
}

func (w *ConfigWatcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *ConfigWatcher) fire() {
	w.mu.Lock()
	file := w.pending
	w.mu.Unlock()

	w.reload(file)
}

func (w *ConfigWatcher) reload(file string) {
	log := w.opts.Logger.WithField("file", filepath.Base(file))
	log.Info("Config changed, reloading")

	cfg, err := w.opts.Reload()
	if err != nil {
		log.WithError(err).Warn("Reloaded configuration is invalid, keeping the current one")
		return
	}
	if w.opts.Apply != nil {
		if err := w.opts.Apply(cfg); err != nil {
			log.WithError(err).Warn("Failed to apply reloaded configuration")
			return
		}
	}
	if w.opts.Notify != nil {
		w.opts.Notify(file)
	}
}
