package library

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher invalidates the cache when matching files in the library
// directory change. Events are debounced so a bulk copy triggers one reload.
type Watcher struct {
	watcher  *fsnotify.Watcher
	matches  func(name string) bool
	onChange func()
	debounce time.Duration
	logger   *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewWatcher(dir string, matches func(name string) bool, onChange func(), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create library watcher failed: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("watch library directory failed: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		watcher:  fw,
		matches:  matches,
		onChange: onChange,
		debounce: 500 * time.Millisecond,
		logger:   logger,
	}, nil
}

func (w *Watcher) Start(ctx context.Context) {
	if w.cancel != nil {
		return
	}
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		var timer *time.Timer
		var fire <-chan time.Time
		for {
			select {
			case <-watchCtx.Done():
				if timer != nil {
					timer.Stop()
				}
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.relevant(event) {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(w.debounce)
				} else {
					timer.Reset(w.debounce)
				}
				fire = timer.C
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("library watcher error", "error", err)
			case <-fire:
				fire = nil
				w.logger.Info("library directory changed, invalidating cache")
				w.onChange()
			}
		}
	}()
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return w.matches(event.Name)
}

func (w *Watcher) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
