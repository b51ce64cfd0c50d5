package scanner

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/lessons/internal/logging"
)

// ErrWatcherFailed indicates the filesystem watcher failed to initialize.
var ErrWatcherFailed = errors.New("failed to initialize filesystem watcher")

// DefaultDebounce is how long the watcher waits for more events before
// emitting a change.
const DefaultDebounce = 300 * time.Millisecond

// Change is a coalesced set of lesson file events.
type Change struct {
	// Paths are the lesson files touched, sorted and deduplicated.
	Paths []string

	// Timestamp is when the change was emitted.
	Timestamp time.Time
}

// Watcher emits a Change whenever lesson files in a directory are created,
// written, removed or renamed. Bursts of events within the debounce window
// are coalesced into one Change.
type Watcher struct {
	dir      string
	isLesson func(string) bool
	debounce time.Duration
	logger   *logging.Logger

	watcher *fsnotify.Watcher
	changes chan Change
	stop    chan struct{}
	once    sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the coalescing window.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger for watcher errors.
func WithLogger(l *logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWatcher creates a watcher over dir for the scanner's lesson files.
func (s *Scanner) NewWatcher(dir string, opts ...WatcherOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWatcherFailed, err)
	}

	w := &Watcher{
		dir:      dir,
		isLesson: s.IsLesson,
		debounce: DefaultDebounce,
		logger:   logging.NewNop(),
		watcher:  fw,
		changes:  make(chan Change, 1),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Start begins watching. Events are processed in a background goroutine
// until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	go w.processEvents(ctx)
	return nil
}

// Stop stops the watcher and releases its resources. It is safe to call
// more than once.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Changes returns the channel of coalesced changes. It is closed when the
// watcher stops.
func (w *Watcher) Changes() <-chan Change {
	return w.changes
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.changes)

	pending := map[string]bool{}
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			pending[event.Name] = true
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			}

		case <-fire:
			timer, fire = nil, nil
			w.emit(pending)
			pending = map[string]bool{}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "lesson watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	const ops = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	return event.Op&ops != 0 && w.isLesson(filepath.Base(event.Name))
}

// emit sends a change without blocking. When the consumer has not yet taken
// the previous change the new paths are merged into it.
func (w *Watcher) emit(pending map[string]bool) {
	select {
	case prev := <-w.changes:
		for _, p := range prev.Paths {
			pending[p] = true
		}
	default:
	}

	paths := make([]string, 0, len(pending))
	for p := range pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	select {
	case w.changes <- Change{Paths: paths, Timestamp: time.Now()}:
	default:
	}
}
