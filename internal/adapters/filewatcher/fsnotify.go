// Package filewatcher provides file system monitoring adapters.
package filewatcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

// FSNotifyWatcher implements ports.FileWatcher using fsnotify.
type FSNotifyWatcher struct {
	watcher    *fsnotify.Watcher
	extensions []string // File extensions to watch (e.g., ".pdf", ".txt")
	logger     *slog.Logger
}

// NewFSNotifyWatcher creates a new file watcher.
func NewFSNotifyWatcher(extensions []string, logger *slog.Logger) (*FSNotifyWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &FSNotifyWatcher{
		watcher:    w,
		extensions: extensions,
		logger:     logger,
	}, nil
}

// Watch starts monitoring the directory and emits events.
func (w *FSNotifyWatcher) Watch(ctx context.Context, dir string) (<-chan ports.FileEvent, error) {
	if err := w.watcher.Add(dir); err != nil {
		return nil, err
	}

	events := make(chan ports.FileEvent, 100)

	go func() {
		defer close(events)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				if !w.isWatchedExtension(event.Name) {
					continue
				}

				var op ports.FileOperation
				switch {
				case event.Has(fsnotify.Create):
					op = ports.FileCreated
				case event.Has(fsnotify.Write):
					op = ports.FileModified
				case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
					op = ports.FileDeleted
				default:
					continue
				}

				select {
				case events <- ports.FileEvent{Path: event.Name, Operation: op}:
				case <-ctx.Done():
					return
				}
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("file watcher error", "dir", dir, "error", err)
			}
		}
	}()

	return events, nil
}

// Stop stops the watcher.
func (w *FSNotifyWatcher) Stop() error {
	return w.watcher.Close()
}

func (w *FSNotifyWatcher) isWatchedExtension(path string) bool {
	return slices.Contains(w.extensions, strings.ToLower(filepath.Ext(path)))
}
