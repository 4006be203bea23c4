package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/logger"
)

// Ensure Watcher implements the interface.
var _ driven.CorpusWatcher = (*Watcher)(nil)

// DefaultDebounce is how long Debounce waits for the corpus to settle.
const DefaultDebounce = 2 * time.Second

// ErrWatcherClosed is returned by Watch after Close.
var ErrWatcherClosed = errors.New("watcher is closed")

// Watcher reports changes to markdown files in the corpus directory.
type Watcher struct {
	dir string

	mu      sync.Mutex
	closed  bool
	watches []*fsnotify.Watcher
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string) *Watcher {
	return &Watcher{dir: dir}
}

// Watch emits one change per relevant filesystem event until ctx is
// cancelled, then closes the channel.
func (w *Watcher) Watch(ctx context.Context) (<-chan domain.CorpusChange, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrWatcherClosed
	}

	info, err := os.Stat(w.dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCorpusNotFound, w.dir)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", domain.ErrCorpusNotFound, w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.watches = append(w.watches, fsw)

	changes := make(chan domain.CorpusChange)
	go w.run(ctx, fsw, changes)

	return changes, nil
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher, changes chan<- domain.CorpusChange) {
	defer close(changes)
	defer fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			change := handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("corpus watcher: %v", err)
		}
	}
}

// handleFsEvent maps an fsnotify event to a corpus change, or nil when the
// event is irrelevant (directories, hidden or non-markdown files, chmod).
func handleFsEvent(event fsnotify.Event) *domain.CorpusChange {
	if !IsDocument(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &domain.CorpusChange{Type: domain.ChangeDeleted, Path: event.Name}
	case event.Has(fsnotify.Create):
		if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
			return nil
		}
		return &domain.CorpusChange{Type: domain.ChangeCreated, Path: event.Name}
	case event.Has(fsnotify.Write):
		return &domain.CorpusChange{Type: domain.ChangeUpdated, Path: event.Name}
	default:
		return nil
	}
}

// Close stops all active watches. It is idempotent.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error
	for _, fsw := range w.watches {
		if err := fsw.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	w.watches = nil
	return errors.Join(errs...)
}

// Debounce collects changes and calls onChange once no further change has
// arrived for window. It returns when changes is closed or ctx is done.
// A burst still pending when changes closes is flushed.
func Debounce(
	ctx context.Context,
	changes <-chan domain.CorpusChange,
	window time.Duration,
	onChange func([]domain.CorpusChange),
) {
	var (
		pending []domain.CorpusChange
		timer   *time.Timer
		fire    <-chan time.Time
	)
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}
	defer stop()

	for {
		select {
		case <-ctx.Done():
			return

		case change, ok := <-changes:
			if !ok {
				if len(pending) > 0 {
					onChange(pending)
				}
				return
			}
			pending = append(pending, change)
			stop()
			timer = time.NewTimer(window)
			fire = timer.C

		case <-fire:
			batch := pending
			pending = nil
			fire = nil
			onChange(batch)
		}
	}
}
