// Package usecases contains the application rules of the RAG pipeline:
// cleaning, chunking, extraction strategy, ingestion, indexing and the
// answer orchestration state machine. Only ports and entities are imported.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

// ErrNoDocumentsProcessed is returned when no input path produced a chunk.
var ErrNoDocumentsProcessed = errors.New("no documents were successfully processed")

// DocumentExtractor turns a readable local file into text.
type DocumentExtractor interface {
	Extract(ctx context.Context, path string) entities.ExtractionResult
}

// IngestUseCase converts document paths into an ordered chunk sequence.
type IngestUseCase struct {
	resolver  ports.SourceResolver
	extractor DocumentExtractor
	chunker   *Chunker
	workers   int
	logger    *slog.Logger
}

// NewIngestUseCase creates an IngestUseCase. workers < 1 means sequential.
func NewIngestUseCase(
	resolver ports.SourceResolver,
	extractor DocumentExtractor,
	chunker *Chunker,
	workers int,
	logger *slog.Logger,
) *IngestUseCase {
	if chunker == nil {
		chunker = NewChunker(DefaultChunkSize, DefaultChunkOverlap)
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestUseCase{
		resolver:  resolver,
		extractor: extractor,
		chunker:   chunker,
		workers:   workers,
		logger:    logger,
	}
}

// Ingest extracts, cleans and chunks every readable path. Unreadable paths
// are logged and skipped. Chunks appear in input-path order regardless of
// the number of workers.
func (uc *IngestUseCase) Ingest(ctx context.Context, paths []string) ([]entities.DocumentChunk, error) {
	perDoc := make([][]entities.DocumentChunk, len(paths))
	skipped := make([]error, len(paths))

	var g errgroup.Group
	g.SetLimit(uc.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			chunks, err := uc.ingestOne(ctx, path)
			if err != nil {
				uc.logger.Warn("skipping document", "path", path, "error", err)
				skipped[i] = fmt.Errorf("%s: %w", path, err)
				return nil
			}
			perDoc[i] = chunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []entities.DocumentChunk
	for _, chunks := range perDoc {
		all = append(all, chunks...)
	}
	if len(all) == 0 {
		if reasons := errors.Join(skipped...); reasons != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoDocumentsProcessed, reasons)
		}
		return nil, ErrNoDocumentsProcessed
	}

	uc.logger.Info("ingestion finished", "documents", len(paths), "chunks", len(all))
	return all, nil
}

func (uc *IngestUseCase) ingestOne(ctx context.Context, path string) ([]entities.DocumentChunk, error) {
	local, cleanup, err := uc.resolver.Resolve(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("resolving document: %w", err)
	}
	defer cleanup()

	res := uc.extractor.Extract(ctx, local)
	chunks := uc.chunker.ChunkDocument(path, res.Text)

	log := uc.logger.With("path", path)
	if len(chunks) == 0 {
		log.Warn("document produced no text", "method", res.Method, "degraded", res.Degraded)
		return nil, nil
	}
	log.Info("document ingested",
		"method", res.Method,
		"confidence", res.Confidence,
		"degraded", res.Degraded,
		"pages", res.Pages,
		"chunks", len(chunks),
	)
	return chunks, nil
}
