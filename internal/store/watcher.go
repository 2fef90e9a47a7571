package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// debounceWindow coalesces the write+rename bursts editors produce into one
// reload.
const debounceWindow = 250 * time.Millisecond

// Watcher reloads a user's settings when the file changes on disk outside
// the daemon, e.g. a hand edit or a sync tool dropping a new copy.
type Watcher struct {
	fs      *FileStore
	logger  *zap.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher watches the store's data directory.
func NewWatcher(fs *FileStore, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(fs.dataDir); err != nil {
		w.Close()
		return nil, err
	}
	return &Watcher{fs: fs, logger: logger, watcher: w}, nil
}

// Run blocks, invoking onChange(userID's settings path) for relevant file
// events until ctx is cancelled. Self-inflicted writes also trigger events;
// the caller deduplicates by comparing loaded records.
func (w *Watcher) Run(ctx context.Context, userID string, onChange func()) {
	defer w.watcher.Close()

	target := filepath.Base(w.fs.Path(userID))
	var pending *time.Timer
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			if pending != nil {
				pending.Stop()
			}
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != target {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(debounceWindow, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			w.logger.Debug("settings file changed on disk", zap.String("user", userID))
			onChange()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", zap.Error(err))
		}
	}
}
