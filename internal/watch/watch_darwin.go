// Package watch implements --watch mode: recompile a source file on
// every save. Adapted from the teacher's filewatcher_darwin.go, which
// watches .c67 sources via kqueue for its own hot-build loop; here the
// debounce interval comes from config instead of a literal constant
// and onChange receives the single watched source path.
//go:build darwin

package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/deanmlittle/sbpf/internal/logging"
)

// Watcher watches a single source file via kqueue and debounces
// onChange calls.
type Watcher struct {
	kq          int
	watchMap    map[int]string
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	debounce    time.Duration
	onChange    func(string)
}

// New creates a Watcher invoking onChange (debounced by debounceMs)
// after the watched file is written to.
func New(debounceMs int, onChange func(string)) (*Watcher, error) {
	kq, err := unix.Kqueue()
	if err != nil {
		return nil, fmt.Errorf("kqueue failed: %w", err)
	}
	return &Watcher{
		kq:          kq,
		watchMap:    make(map[int]string),
		debounceMap: make(map[string]*time.Timer),
		debounce:    time.Duration(debounceMs) * time.Millisecond,
		onChange:    onChange,
	}, nil
}

// AddFile registers path for change notifications.
func (w *Watcher) AddFile(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	fd, err := unix.Open(absPath, unix.O_RDONLY, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", absPath, err)
	}

	event := unix.Kevent_t{
		Ident:  uint64(fd),
		Filter: unix.EVFILT_VNODE,
		Flags:  unix.EV_ADD | unix.EV_CLEAR,
		Fflags: unix.NOTE_WRITE | unix.NOTE_ATTRIB,
	}
	if _, err := unix.Kevent(w.kq, []unix.Kevent_t{event}, nil, nil); err != nil {
		unix.Close(fd)
		return fmt.Errorf("failed to add kevent for %s: %w", absPath, err)
	}

	w.mu.Lock()
	w.watchMap[fd] = absPath
	w.mu.Unlock()
	return nil
}

// Run blocks, dispatching debounced onChange calls until the process
// exits; it never returns under normal operation.
func (w *Watcher) Run() {
	events := make([]unix.Kevent_t, 10)
	for {
		n, err := unix.Kevent(w.kq, nil, events, nil)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			logging.Debugf("watch: error reading kevent: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		for i := 0; i < n; i++ {
			fd := int(events[i].Ident)
			w.mu.Lock()
			path := w.watchMap[fd]
			w.mu.Unlock()
			if path != "" {
				w.debouncedCallback(path)
			}
		}
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

// Close releases every watched file descriptor and the kqueue itself.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for fd := range w.watchMap {
		unix.Close(fd)
	}
	return unix.Close(w.kq)
}
