// Package daemon re-runs the pipeline when watched inputs change.
package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/heefoo/apiloom/internal/util"
)

// ChangeFunc is called once per debounced batch with the changed paths in
// lexical order.
type ChangeFunc func(ctx context.Context, changed []string) error

type Watcher struct {
	watcher         *fsnotify.Watcher
	isRelevant      func(string) bool
	onChange        ChangeFunc
	excludePatterns []string
	logger          *slog.Logger
	debounceMs      atomic.Int64
	mu              sync.Mutex
	files           map[string]bool // explicitly watched files
	dirs            map[string]bool // directories watched recursively
	pendingFiles    map[string]time.Time
	stopCh          chan struct{}
	stopOnce        sync.Once
}

type WatcherConfig struct {
	// IsRelevant filters files found under watched directories. Nil accepts
	// every file.
	IsRelevant      func(string) bool
	OnChange        ChangeFunc
	ExcludePatterns []string
	DebounceMs      int
	Logger          *slog.Logger
}

func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounceMs := cfg.DebounceMs
	if debounceMs <= 0 {
		debounceMs = 100 // Default 100ms debounce
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	w := &Watcher{
		watcher:         fsWatcher,
		isRelevant:      cfg.IsRelevant,
		onChange:        cfg.OnChange,
		excludePatterns: cfg.ExcludePatterns,
		logger:          logger,
		files:           make(map[string]bool),
		dirs:            make(map[string]bool),
		pendingFiles:    make(map[string]time.Time),
		stopCh:          make(chan struct{}),
	}
	w.debounceMs.Store(int64(debounceMs))
	return w, nil
}

// Watch blocks until ctx is done or Stop is called. Directories are watched
// recursively; a plain file is watched through its parent directory.
func (w *Watcher) Watch(ctx context.Context, inputs []string) error {
	for _, input := range inputs {
		if err := w.add(input); err != nil {
			w.logger.Warn("failed to watch input", slog.String("path", input), slog.Any("error", err))
		}
	}

	go w.processDebounced(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stopCh:
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", slog.Any("error", err))
		}
	}
}

func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
	})
}

func (w *Watcher) add(input string) error {
	info, err := os.Stat(input)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		w.mu.Lock()
		w.files[filepath.Clean(input)] = true
		w.mu.Unlock()
		return w.watcher.Add(filepath.Dir(input))
	}
	return w.addDirRecursive(input)
}

func (w *Watcher) addDirRecursive(dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != dir && util.ShouldExclude(path, info.Name(), w.excludePatterns) {
				return filepath.SkipDir
			}
			if err := w.watcher.Add(path); err != nil {
				return err
			}
			w.mu.Lock()
			w.dirs[filepath.Clean(path)] = true
			w.mu.Unlock()
		}
		return nil
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := filepath.Clean(event.Name)

	w.mu.Lock()
	explicit := w.files[path]
	w.mu.Unlock()

	if !explicit {
		if !w.watchesDir(filepath.Dir(path)) {
			return
		}
		if util.ShouldExclude(path, filepath.Base(path), w.excludePatterns) {
			return
		}
		// New subdirectories join the watch set.
		if event.Op&fsnotify.Create == fsnotify.Create {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				if err := w.addDirRecursive(path); err != nil {
					w.logger.Warn("failed to watch directory", slog.String("path", path), slog.Any("error", err))
				}
				return
			}
		}
		if w.isRelevant != nil && !w.isRelevant(path) {
			return
		}
	}

	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
		w.queueFile(path)
	}
}

func (w *Watcher) watchesDir(dir string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dirs[dir]
}

func (w *Watcher) queueFile(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pendingFiles[path] = time.Now()
}

func (w *Watcher) processDebounced(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(w.debounceMs.Load()) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.processPending(ctx)
		}
	}
}

// processPending flushes the batch once every queued path has been quiet for
// the debounce interval.
func (w *Watcher) processPending(ctx context.Context) {
	w.mu.Lock()
	now := time.Now()
	debounceThreshold := time.Duration(w.debounceMs.Load()) * time.Millisecond

	if len(w.pendingFiles) == 0 {
		w.mu.Unlock()
		return
	}
	for _, queuedAt := range w.pendingFiles {
		if now.Sub(queuedAt) < debounceThreshold {
			w.mu.Unlock()
			return
		}
	}

	changed := make([]string, 0, len(w.pendingFiles))
	for path := range w.pendingFiles {
		changed = append(changed, path)
	}
	w.pendingFiles = make(map[string]time.Time)
	w.mu.Unlock()

	sort.Strings(changed)
	w.logger.Info("inputs changed", slog.Int("files", len(changed)))

	if w.onChange == nil {
		return
	}
	if err := w.onChange(ctx, changed); err != nil {
		w.logger.Error("rerun failed", slog.Any("error", err))
	}
}
