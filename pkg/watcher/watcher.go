// Package watcher reports changes to hierarchy data files so the UI can
// reload them. It watches each file's directory with fsnotify, which survives
// atomic save-by-rename, and falls back to polling stat(2) when events are
// unavailable or unreliable.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vanderheijden86/foldtree/pkg/debug"
)

// DefaultPollInterval is the default polling interval for fallback mode.
const DefaultPollInterval = 2 * time.Second

// EnvForcePoll forces polling mode when set to a true value.
const EnvForcePoll = "FOLD_FORCE_POLL"

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrPermission     = errors.New("permission denied")
	ErrAlreadyStarted = errors.New("watcher already started")
	ErrNoPaths        = errors.New("no paths to watch")
)

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounceDuration sets the debounce duration.
func WithDebounceDuration(d time.Duration) Option {
	return func(w *Watcher) { w.debounceDuration = d }
}

// WithPollInterval sets the polling interval for fallback mode.
func WithPollInterval(d time.Duration) Option {
	return func(w *Watcher) { w.pollInterval = d }
}

// WithOnChange sets the callback invoked, after debouncing, with the paths
// that changed during the window.
func WithOnChange(fn func(paths []string)) Option {
	return func(w *Watcher) { w.onChange = fn }
}

// WithOnError sets the callback invoked on errors. Removal of a watched
// file is reported as an error wrapping ErrFileRemoved.
func WithOnError(fn func(error)) Option {
	return func(w *Watcher) { w.onError = fn }
}

// WithForcePoll forces polling mode even if fsnotify is available.
func WithForcePoll(force bool) Option {
	return func(w *Watcher) { w.forcePoll = force }
}

type fileState struct {
	mtime time.Time
	size  int64
}

// Watcher monitors a set of files.
type Watcher struct {
	paths            []string
	debounceDuration time.Duration
	pollInterval     time.Duration
	onChange         func([]string)
	onError          func(error)
	forcePoll        bool
	fsType           FilesystemType

	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	polling   bool
	states    map[string]fileState
	pending   map[string]struct{}

	cancel   context.CancelFunc
	started  bool
	mu       sync.RWMutex
	changeCh chan []string
}

// NewWatcher creates a watcher for paths. Paths are made absolute and
// deduplicated; they need not exist yet.
func NewWatcher(paths []string, opts ...Option) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, ErrNoPaths
	}
	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", p, err)
		}
		abs = append(abs, a)
	}
	slices.Sort(abs)

	w := &Watcher{
		paths:            slices.Compact(abs),
		debounceDuration: DefaultDebounceDuration,
		pollInterval:     DefaultPollInterval,
		onChange:         func([]string) {},
		onError:          func(error) {},
		states:           make(map[string]fileState),
		pending:          make(map[string]struct{}),
		changeCh:         make(chan []string, 1),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.debouncer = NewDebouncer(w.debounceDuration)
	return w, nil
}

// Start begins watching. Cancelling ctx has the same effect as Stop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	for _, p := range w.paths {
		st, err := statFile(p)
		if err != nil && os.IsPermission(err) {
			return fmt.Errorf("%w: %s", ErrPermission, p)
		}
		w.states[p] = st
	}

	// One remote file is enough to poll everything.
	w.fsType = FSTypeUnknown
	for _, p := range w.paths {
		if t := detectFilesystemTypeFunc(p); t != FSTypeUnknown {
			w.fsType = t
			if t.IsRemote() {
				break
			}
		}
	}
	w.polling = w.forcePoll || envBool(EnvForcePoll) || w.fsType.IsRemote()

	ctx, w.cancel = context.WithCancel(ctx)

	if !w.polling {
		fsw, err := w.openFsnotify()
		if err != nil {
			debug.Log("watcher: fsnotify unavailable, polling: %v", err)
			w.polling = true
		} else {
			w.fsWatcher = fsw
			go w.watchEvents(ctx, fsw)
		}
	}
	if w.polling {
		go w.watchPolling(ctx)
	}

	w.started = true
	debug.Log("watcher: started on %d path(s), polling=%v fs=%s", len(w.paths), w.polling, w.fsType)
	return nil
}

func (w *Watcher) openFsnotify() (*fsnotify.Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dirs := make(map[string]bool)
	for _, p := range w.paths {
		dir := filepath.Dir(p)
		if dirs[dir] {
			continue
		}
		dirs[dir] = true
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return fsw, nil
}

// Stop stops watching. The Changed channel stays open: a reader blocked on
// it would otherwise spin on a closed channel.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}
	w.cancel()
	if w.fsWatcher != nil {
		w.fsWatcher.Close()
		w.fsWatcher = nil
	}
	w.debouncer.Cancel()
	clear(w.pending)
	w.started = false
}

// IsPolling returns true if the watcher is using polling mode.
func (w *Watcher) IsPolling() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.polling
}

// IsStarted returns true if the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Changed delivers the changed paths of each debounced burst. A slow reader
// misses bursts but always sees the latest one.
func (w *Watcher) Changed() <-chan []string {
	return w.changeCh
}

// Paths returns the watched absolute paths, sorted.
func (w *Watcher) Paths() []string {
	return slices.Clone(w.paths)
}

// FilesystemType returns the classification found by Start.
func (w *Watcher) FilesystemType() FilesystemType {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.fsType
}

// PollInterval returns the polling interval used when polling mode is active.
func (w *Watcher) PollInterval() time.Duration {
	return w.pollInterval
}

func (w *Watcher) isWatched(path string) bool {
	_, found := slices.BinarySearch(w.paths, path)
	return found
}

func (w *Watcher) watchEvents(ctx context.Context, fsw *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			path := filepath.Clean(event.Name)
			if !w.isWatched(path) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove):
				w.onError(fmt.Errorf("%w: %s", ErrFileRemoved, path))
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename):
				w.markChanged(path)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) watchPolling(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, p := range w.paths {
				w.pollOnce(p)
			}
		}
	}
}

func (w *Watcher) pollOnce(path string) {
	st, err := statFile(path)

	w.mu.Lock()
	prev := w.states[path]
	if err == nil {
		w.states[path] = st
	} else if os.IsNotExist(err) {
		w.states[path] = fileState{}
	}
	w.mu.Unlock()

	switch {
	case err == nil:
		if st.mtime.After(prev.mtime) || st.size != prev.size {
			w.markChanged(path)
		}
	case os.IsNotExist(err):
		// Only report a file that existed before.
		if !prev.mtime.IsZero() {
			w.onError(fmt.Errorf("%w: %s", ErrFileRemoved, path))
		}
	case os.IsPermission(err):
		w.onError(fmt.Errorf("%w: %s", ErrPermission, path))
	default:
		w.onError(err)
	}
}

func (w *Watcher) markChanged(path string) {
	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.mu.Unlock()
	w.debouncer.Trigger(w.flush)
}

// flush hands the accumulated paths to the callback and the channel.
func (w *Watcher) flush() {
	w.mu.Lock()
	if !w.started || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	changed := make([]string, 0, len(w.pending))
	for p := range w.pending {
		changed = append(changed, p)
	}
	clear(w.pending)
	w.mu.Unlock()

	slices.Sort(changed)
	w.onChange(changed)

	// Replace a stale undelivered burst with this one.
	select {
	case <-w.changeCh:
	default:
	}
	select {
	case w.changeCh <- changed:
	default:
	}
}

func statFile(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	return fileState{mtime: info.ModTime(), size: info.Size()}, nil
}

func envBool(name string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(name))) {
	case "1", "true", "yes", "y", "on":
		return true
	default:
		return false
	}
}
