package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/bassista/go_action/internal/logger"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces the write+chmod or remove+create bursts editors
// and atomic replaces produce.
const DefaultDebounce = 200 * time.Millisecond

// WatchFile calls onChange after path is written, created, replaced or
// removed. The parent directory is watched, not the file, so temp+rename
// replacement is still seen. Events are filtered by basename and debounced.
// The returned channel is closed once the watcher has shut down after ctx is
// cancelled.
func WatchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) (<-chan struct{}, error) {
	if onChange == nil {
		return nil, errors.New("onChange callback is required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	dir, base := filepath.Dir(abs), filepath.Base(abs)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch dir: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer w.Close()

		var (
			mu    sync.Mutex
			timer *time.Timer
		)
		schedule := func() {
			mu.Lock()
			defer mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(debounce, func() {
				if ctx.Err() == nil {
					onChange()
				}
			})
		}
		defer func() {
			mu.Lock()
			defer mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					logger.WithComponent("watcher").Tracef("%s: %s", event.Op, event.Name)
					schedule()
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.WithComponent("watcher").Errorf("watcher error: %v", err)
			}
		}
	}()

	return done, nil
}
