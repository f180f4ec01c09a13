// Package watch reloads the catalog when its feed file changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ReloadFunc is called once per burst of changes to the watched file.
type ReloadFunc func(ctx context.Context) error

// FeedWatcher watches the directory holding a single file, so editors that save by
// rename are still seen. Rapid writes are collapsed into one reload.
type FeedWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration
	reload   ReloadFunc
	log      *zap.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
}

func New(path string, debounce time.Duration, reload ReloadFunc, log *zap.Logger) (*FeedWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &FeedWatcher{
		watcher:  w,
		path:     abs,
		debounce: debounce,
		reload:   reload,
		log:      log,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start is non-blocking. It fails if the feed's directory cannot be watched.
func (fw *FeedWatcher) Start(ctx context.Context) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.running {
		return nil
	}
	if err := fw.watcher.Add(filepath.Dir(fw.path)); err != nil {
		return err
	}
	fw.running = true
	go fw.run(ctx)
	fw.log.Info("watching catalog feed", zap.String("path", fw.path))
	return nil
}

// Stop ends the event loop and releases the watcher. Safe to call more than once.
func (fw *FeedWatcher) Stop() {
	fw.mu.Lock()
	if !fw.running {
		fw.mu.Unlock()
		_ = fw.watcher.Close()
		return
	}
	fw.running = false
	fw.mu.Unlock()

	close(fw.stopCh)
	<-fw.doneCh
	if err := fw.watcher.Close(); err != nil {
		fw.log.Warn("closing feed watcher", zap.Error(err))
	}
}

func (fw *FeedWatcher) run(ctx context.Context) {
	defer close(fw.doneCh)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-fw.stopCh:
			return
		case ev, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !fw.relevant(ev) {
				continue
			}
			fw.log.Debug("feed changed", zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(fw.debounce)
			} else {
				timer.Reset(fw.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("feed watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			if err := fw.reload(ctx); err != nil {
				fw.log.Warn("feed reload failed; keeping current catalog", zap.Error(err))
			}
		}
	}
}

func (fw *FeedWatcher) relevant(ev fsnotify.Event) bool {
	if filepath.Clean(ev.Name) != fw.path {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename)
}
