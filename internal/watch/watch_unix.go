// Package watch implements --watch mode: recompile a source file on
// every save. Adapted from the teacher's filewatcher_unix.go, which
// watches .c67 sources for its own hot-build loop; here the debounce
// interval comes from config instead of a literal constant and
// onChange receives the single watched source path.
//go:build linux

package watch

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/deanmlittle/sbpf/internal/logging"
)

// Watcher watches a single source file and debounces onChange calls.
type Watcher struct {
	fd          int
	watchMap    map[int]string
	mu          sync.Mutex
	debounceMap map[string]*time.Timer
	debounce    time.Duration
	onChange    func(string)
}

// New creates a Watcher invoking onChange (debounced by debounceMs)
// after the watched file is modified or closed after a write.
func New(debounceMs int, onChange func(string)) (*Watcher, error) {
	fd, err := unix.InotifyInit1(unix.IN_NONBLOCK | unix.IN_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("inotify_init failed: %w", err)
	}
	return &Watcher{
		fd:          fd,
		watchMap:    make(map[int]string),
		debounceMap: make(map[string]*time.Timer),
		debounce:    time.Duration(debounceMs) * time.Millisecond,
		onChange:    onChange,
	}, nil
}

// AddFile registers path for change notifications.
func (w *Watcher) AddFile(path string) error {
	wd, err := unix.InotifyAddWatch(w.fd, path, unix.IN_MODIFY|unix.IN_CLOSE_WRITE)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	w.mu.Lock()
	w.watchMap[wd] = path
	w.mu.Unlock()
	return nil
}

// Run blocks, dispatching debounced onChange calls until the process
// exits; it never returns under normal operation.
func (w *Watcher) Run() {
	buf := make([]byte, unix.SizeofInotifyEvent*10)
	for {
		n, err := unix.Read(w.fd, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				time.Sleep(100 * time.Millisecond)
				continue
			}
			logging.Debugf("watch: error reading inotify events: %v", err)
			continue
		}

		offset := 0
		for offset < n {
			event := (*unix.InotifyEvent)(unsafe.Pointer(&buf[offset]))
			offset += unix.SizeofInotifyEvent + int(event.Len)

			if event.Mask&(unix.IN_MODIFY|unix.IN_CLOSE_WRITE) != 0 {
				w.mu.Lock()
				path := w.watchMap[int(event.Wd)]
				w.mu.Unlock()
				if path != "" {
					w.debouncedCallback(path)
				}
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

// Close releases the underlying inotify file descriptor.
func (w *Watcher) Close() error {
	return unix.Close(w.fd)
}
