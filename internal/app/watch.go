package app

import (
	"context"
	"fmt"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

// Watch keeps the index in sync with dir until ctx is cancelled: created or
// modified documents are re-ingested, deleted ones are dropped.
func (a *App) Watch(ctx context.Context, watcher ports.FileWatcher, dir string) error {
	events, err := watcher.Watch(ctx, dir)
	if err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	a.logger.Info("watching for documents", "dir", dir)

	for event := range events {
		log := a.logger.With("path", event.Path, "op", event.Operation)
		switch event.Operation {
		case ports.FileCreated, ports.FileModified:
			report, err := a.Ingest(ctx, []string{event.Path}, false)
			if err != nil {
				log.Warn("re-ingest failed", "error", err)
				continue
			}
			log.Info("document indexed", "chunks", report.Chunks)
		case ports.FileDeleted:
			if err := a.Remove(ctx, event.Path); err != nil {
				log.Warn("removing document failed", "error", err)
				continue
			}
			log.Info("document removed")
		}
	}
	return ctx.Err()
}
