package catalog

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Holder publishes the current tables. Readers take a snapshot with Get; a
// reload swaps the pointer and never mutates tables in place.
type Holder struct {
	mu     sync.RWMutex
	tables *Tables
}

// NewHolder creates a holder with initial tables.
func NewHolder(t *Tables) *Holder {
	return &Holder{tables: t}
}

// Get returns the current tables.
func (h *Holder) Get() *Tables {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.tables
}

// Set replaces the current tables.
func (h *Holder) Set(t *Tables) {
	h.mu.Lock()
	h.tables = t
	h.mu.Unlock()
}

// Watcher reloads a tables file when it changes on disk.
type Watcher struct {
	path     string
	holder   *Holder
	logger   zerolog.Logger
	debounce time.Duration
	onReload func(*Tables)
}

// NewWatcher creates a watcher for the tables file at path that publishes
// into holder. onReload, if non-nil, is called after every successful swap.
func NewWatcher(path string, holder *Holder, logger zerolog.Logger, onReload func(*Tables)) *Watcher {
	return &Watcher{
		path:     path,
		holder:   holder,
		logger:   logger.With().Str("component", "tables-watcher").Logger(),
		debounce: 500 * time.Millisecond,
		onReload: onReload,
	}
}

// Run watches until ctx is cancelled. The parent directory is watched so that
// editors which replace the file by rename are handled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	target, err := filepath.Abs(w.path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", w.path, err)
	}
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(target), err)
	}

	w.logger.Info().Str("path", target).Msg("Watching tables file")

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
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
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug().Str("op", event.Op.String()).Msg("Tables file changed")

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

func (w *Watcher) reload() {
	t, err := Load(w.path)
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to reload tables, keeping previous version")
		return
	}
	w.holder.Set(t)

	stats := t.Stats()
	w.logger.Info().
		Int("canonical", stats.Canonical).
		Int("overrides", stats.Overrides).
		Int("stop_list", stats.StopList).
		Msg("Tables reloaded")

	if w.onReload != nil {
		w.onReload(t)
	}
}
