// Package watch implements --watch mode: recompile a source file on
// every save. Adapted from the teacher's filewatcher_windows.go, which
// polls file mtimes for its own hot-build loop since the teacher
// carries no native notification backend on this platform either;
// here the debounce interval comes from config instead of a literal
// constant (the poll interval stays a fixed 500ms) and onChange
// receives the single watched source path.
//go:build windows

package watch

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Watcher polls a single source file's mtime and debounces onChange
// calls.
type Watcher struct {
	watchMap    map[string]time.Time
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	debounce    time.Duration
	onChange    func(string)
	stopChan    chan struct{}
}

// New creates a Watcher invoking onChange (debounced by debounceMs)
// after the watched file's mtime advances.
func New(debounceMs int, onChange func(string)) (*Watcher, error) {
	return &Watcher{
		watchMap:    make(map[string]time.Time),
		debounceMap: make(map[string]*time.Timer),
		debounce:    time.Duration(debounceMs) * time.Millisecond,
		onChange:    onChange,
		stopChan:    make(chan struct{}),
	}, nil
}

// AddFile registers path for change notifications.
func (w *Watcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w.mu.Lock()
	w.watchMap[absPath] = time.Time{}
	w.mu.Unlock()
	return nil
}

// Run blocks, polling every 500ms and dispatching debounced onChange
// calls until Close is called.
func (w *Watcher) Run() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.checkFiles()
		case <-w.stopChan:
			return
		}
	}
}

func (w *Watcher) checkFiles() {
	w.mu.Lock()
	paths := make([]string, 0, len(w.watchMap))
	for path := range w.watchMap {
		paths = append(paths, path)
	}
	w.mu.Unlock()

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}

		w.mu.Lock()
		lastMod := w.watchMap[path]
		w.mu.Unlock()

		if !lastMod.IsZero() && info.ModTime().After(lastMod) {
			w.debouncedCallback(path)
		}

		w.mu.Lock()
		w.watchMap[path] = info.ModTime()
		w.mu.Unlock()
	}
}

func (w *Watcher) debouncedCallback(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, exists := w.debounceMap[path]; exists {
		timer.Stop()
	}
	w.debounceMap[path] = time.AfterFunc(w.debounce, func() {
		w.onChange(path)
		w.mu.Lock()
		delete(w.debounceMap, path)
		w.mu.Unlock()
	})
}

// Close stops the polling loop.
func (w *Watcher) Close() error {
	close(w.stopChan)
	return nil
}
