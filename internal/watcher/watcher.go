// Package watcher watches the content and translation directories for
// changes, debouncing rapid editor bursts into a single reload notification.
// Only the development server uses it.
package watcher

import (
	"context"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stranka-dev/stranka/internal/logging"
)

// Handler is invoked once per debounced batch of changed paths.
type Handler func(paths []string)

// Watcher wraps fsnotify with recursive directory registration, an extension
// filter and debouncing.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debounce  time.Duration
	exts      map[string]bool
	logger    logging.Logger

	mu       sync.Mutex
	handlers []Handler
	pending  map[string]bool
	timer    *time.Timer
}

// New creates a watcher. exts restricts notifications to the listed file
// extensions (".md", ".yml"); an empty list notifies for everything.
func New(debounce time.Duration, exts []string, logger logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}

	extSet := make(map[string]bool, len(exts))
	for _, ext := range exts {
		extSet[strings.ToLower(ext)] = true
	}

	return &Watcher{
		fsWatcher: fsw,
		debounce:  debounce,
		exts:      extSet,
		logger:    logger.WithComponent("watcher"),
		pending:   make(map[string]bool),
	}, nil
}

// AddRecursive registers root and every directory below it. New
// subdirectories created later are picked up as their create events arrive.
func (w *Watcher) AddRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.fsWatcher.Add(path)
		}
		return nil
	})
}

// OnChange registers a handler for debounced change batches.
func (w *Watcher) OnChange(handler Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers = append(w.handlers, handler)
}

// Start runs the event loop until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
}

// Stop closes the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, err, "watch error")
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	// Newly created directories need registration so edits inside them are
	// seen too.
	if event.Op.Has(fsnotify.Create) {
		if filepath.Ext(event.Name) == "" {
			if err := w.fsWatcher.Add(event.Name); err == nil {
				w.logger.Debug(ctx, "watching new directory", "path", event.Name)
			}
		}
	}

	if !w.relevant(event.Name) {
		return
	}
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) &&
		!event.Op.Has(fsnotify.Remove) && !event.Op.Has(fsnotify.Rename) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[event.Name] = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) relevant(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	return w.exts[strings.ToLower(filepath.Ext(path))]
}

func (w *Watcher) flush() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for path := range w.pending {
		paths = append(paths, path)
	}
	w.pending = make(map[string]bool)
	handlers := make([]Handler, len(w.handlers))
	copy(handlers, w.handlers)
	w.mu.Unlock()

	if len(paths) == 0 {
		return
	}
	for _, handler := range handlers {
		handler(paths)
	}
}
