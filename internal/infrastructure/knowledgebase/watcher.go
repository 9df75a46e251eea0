package knowledgebase

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher invalidates the store's cached snapshot when the spreadsheet is edited
// or replaced outside the process.
type Watcher struct {
	watcher *fsnotify.Watcher
	store   *XLSXStore
	logger  *zap.Logger
}

// NewWatcher creates a watcher for the store's backing file
func NewWatcher(store *XLSXStore, logger *zap.Logger) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{watcher: w, store: store, logger: logger}, nil
}

// Start watches the file's directory until ctx is done. The directory is watched
// rather than the file because saves replace the file with a new inode.
// The returned channel receives one value per invalidation and is closed on exit.
func (w *Watcher) Start(ctx context.Context) (<-chan struct{}, error) {
	target := filepath.Clean(w.store.Path())
	if err := w.watcher.Add(filepath.Dir(target)); err != nil {
		return nil, err
	}

	changes := make(chan struct{}, 1)

	go func() {
		defer close(changes)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}

				w.store.Invalidate()
				w.logger.Debug("knowledge base changed on disk",
					zap.String("path", target),
					zap.String("op", event.Op.String()))

				select {
				case changes <- struct{}{}:
				default:
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("knowledge base watcher error", zap.Error(err))
			}
		}
	}()

	return changes, nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}
