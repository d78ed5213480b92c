package workflow

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is how long a Watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reports changed record references below a store root. Hidden
// directories and files, such as the temporary files of an atomic save, are
// ignored, as are backups.
type Watcher struct {
	root     string
	logger   zerolog.Logger
	debounce time.Duration
}

// NewWatcher creates a watcher for the records of s.
func NewWatcher(s *FileStore, logger zerolog.Logger) *Watcher {
	return &Watcher{
		root:     s.root,
		logger:   logger.With().Str("component", "workflow-watcher").Logger(),
		debounce: DefaultDebounce,
	}
}

// SetDebounce overrides DefaultDebounce.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run watches until ctx is cancelled and sends the sorted references that
// changed during each quiet period to out. Created directories are watched
// as they appear. References of removed files are reported too; callers
// tell them apart by loading them.
func (w *Watcher) Run(ctx context.Context, out chan<- []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	root, err := filepath.Abs(w.root)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", w.root, err)
	}
	if err := addTree(watcher, root); err != nil {
		return err
	}

	w.logger.Info().Str("root", root).Msg("Watching workflows")

	pending := map[string]struct{}{}
	var settle <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&fsnotify.Create != 0 && isDir(event.Name) && !hidden(filepath.Base(event.Name)) {
				if err := addTree(watcher, event.Name); err != nil {
					w.logger.Warn().Err(err).Str("path", event.Name).Msg("Failed to watch new directory")
				}
				continue
			}

			ref, ok := w.ref(root, event.Name)
			if !ok || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.logger.Debug().Str("ref", ref).Str("op", event.Op.String()).Msg("Workflow changed")
			pending[ref] = struct{}{}
			settle = time.After(w.debounce)

		case <-settle:
			settle = nil
			refs := make([]string, 0, len(pending))
			for ref := range pending {
				refs = append(refs, ref)
			}
			sort.Strings(refs)

			select {
			case out <- refs:
				pending = map[string]struct{}{}
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// ref maps an event path to a record reference.
func (w *Watcher) ref(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if hidden(part) {
			return "", false
		}
	}
	if !strings.EqualFold(filepath.Ext(rel), ".json") {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

func addTree(watcher *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && hidden(d.Name()) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

func hidden(name string) bool {
	return strings.HasPrefix(name, ".")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
