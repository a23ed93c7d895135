package app

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"ovpnconf/models"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = time.Second

// Watcher re-applies the intent file whenever it changes. Instances that
// disappear from the intent between two reloads are torn down.
type Watcher struct {
	app       *App
	path      string
	selectors []models.Selector
	debounce  time.Duration

	running atomic.Bool
	mu      sync.Mutex
	known   []string
}

func NewWatcher(a *App, path string, selectors []models.Selector) *Watcher {
	return &Watcher{
		app:       a,
		path:      path,
		selectors: selectors,
		debounce:  defaultDebounce,
	}
}

// Reload reads the intent and applies the selected instances plus those that
// vanished since the previous reload.
func (w *Watcher) Reload(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	cfg, err := ReadIntent(w.path)
	if err != nil {
		return err
	}
	names := SelectInstances(cfg, w.selectors)
	targets := append(Vanished(w.known, names), names...)
	sort.Strings(targets)
	w.known = names

	return w.app.applyNames(ctx, cfg, targets)
}

// Run applies the intent once, then watches its directory until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	l := w.app.log.With().Str("path", w.path).Logger()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors often replace the file, so the directory is watched.
	err = watcher.Add(filepath.Dir(w.path))
	if err != nil {
		return fmt.Errorf("failed to watch intent directory: %w", err)
	}
	target, err := filepath.Abs(w.path)
	if err != nil {
		return err
	}

	err = w.Reload(ctx)
	if err != nil {
		l.Error().Err(err).Msg("initial apply failed")
	}
	l.Info().Msg("watching intent")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || name != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			l.Debug().Str("event", event.Op.String()).Msg("intent changed")
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, func() {
				start := time.Now()
				err := w.Reload(ctx)
				if err != nil {
					l.Error().Err(err).Dur("duration", time.Since(start)).Msg("reload failed")
					return
				}
				l.Info().Dur("duration", time.Since(start)).Msg("reload completed")
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.Error().Err(err).Msg("watcher error")
		case <-ctx.Done():
			return nil
		}
	}
}
