// Package app wires configuration into a running RAG pipeline and exposes
// the operations the command line, HTTP, MCP and TUI front-ends share.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/NiteeshPutla/agentic-rag/internal/config"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/usecases"
)

// Resolver resolves document paths and expands directories into files.
type Resolver interface {
	ports.SourceResolver
	Expand(ctx context.Context, paths []string) ([]string, error)
}

// Components are the collaborators an App is assembled from.
type Components struct {
	LLM       ports.LLM
	Embedder  ports.EmbeddingService
	Store     ports.VectorStore
	Extractor usecases.DocumentExtractor
	Resolver  Resolver
	Closers   []func() error
}

// IngestReport summarizes one ingestion run.
type IngestReport struct {
	Documents int      `json:"documents"`
	Chunks    int      `json:"chunks"`
	Sources   []string `json:"sources"`
}

// AskResult is an answer together with how it was reached.
type AskResult struct {
	Answer    string   `json:"answer"`
	Attempts  int      `json:"attempts"`
	Validated bool     `json:"validated"`
	Sources   []string `json:"sources"`
}

// App is the assembled pipeline. It is safe for concurrent use.
type App struct {
	cfg          *config.Config
	logger       *slog.Logger
	resolver     Resolver
	ingest       *usecases.IngestUseCase
	index        *usecases.IndexBuilder
	store        ports.VectorStore
	orchestrator *usecases.Orchestrator
	closers      []func() error
}

// New assembles an App from ready-made components.
func New(cfg *config.Config, c Components, logger *slog.Logger) *App {
	if logger == nil {
		logger = slog.Default()
	}
	chunker := usecases.NewChunker(cfg.Ingest.ChunkSize, cfg.Ingest.ChunkOverlap)
	retriever := usecases.NewVectorRetriever(c.Embedder, c.Store, cfg.Orchestrator.TopK)

	return &App{
		cfg:          cfg,
		logger:       logger,
		resolver:     c.Resolver,
		ingest:       usecases.NewIngestUseCase(c.Resolver, c.Extractor, chunker, cfg.Ingest.Workers, logger),
		index:        usecases.NewIndexBuilder(c.Embedder, c.Store, cfg.Embedding.BatchSize, logger),
		store:        c.Store,
		orchestrator: usecases.NewOrchestrator(retriever, c.LLM, cfg.Orchestrator.MaxAttempts, logger),
		closers:      c.Closers,
	}
}

// Build creates every collaborator named by cfg and assembles the App.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	c, err := NewComponents(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, c, logger), nil
}

// Ingest extracts, chunks and indexes paths. Directories and gs:// prefixes
// ending in "/" are expanded first. With reset the new chunks replace the
// whole index. A failed run leaves the index untouched.
func (a *App) Ingest(ctx context.Context, paths []string, reset bool) (IngestReport, error) {
	expanded, err := a.resolver.Expand(ctx, paths)
	if err != nil {
		return IngestReport{}, fmt.Errorf("expanding paths: %w", err)
	}
	if len(expanded) == 0 {
		return IngestReport{}, usecases.ErrNoDocumentsProcessed
	}

	chunks, err := a.ingest.Ingest(ctx, expanded)
	if err != nil {
		return IngestReport{}, err
	}

	build := a.index.Build
	if reset {
		build = a.index.Rebuild
	}
	if err := build(ctx, chunks); err != nil {
		return IngestReport{}, err
	}

	sources := chunkSources(chunks)
	return IngestReport{Documents: len(sources), Chunks: len(chunks), Sources: sources}, nil
}

// Remove drops a document from the index.
func (a *App) Remove(ctx context.Context, path string) error {
	return a.index.Remove(ctx, path)
}

// Ask answers a question from the indexed documents.
func (a *App) Ask(ctx context.Context, question string) (AskResult, error) {
	state, err := a.orchestrator.Run(ctx, question)
	if err != nil {
		return AskResult{}, err
	}

	answer := usecases.ApologyAnswer
	if state.FinalAnswer != nil {
		answer = *state.FinalAnswer
	}
	return AskResult{
		Answer:    answer,
		Attempts:  state.RetryCount,
		Validated: state.Validated,
		Sources:   chunkSources(state.RetrievedDocuments),
	}, nil
}

// Count returns the number of indexed chunks.
func (a *App) Count(ctx context.Context) (int, error) {
	return a.store.Count(ctx)
}

// Config returns the configuration the App was built from.
func (a *App) Config() *config.Config {
	return a.cfg
}

// Close releases clients and database handles in reverse creation order.
func (a *App) Close() error {
	var errs []error
	for _, c := range slices.Backward(a.closers) {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func chunkSources(chunks []entities.DocumentChunk) []string {
	sources := []string{}
	for _, c := range chunks {
		if c.Source != "" && !slices.Contains(sources, c.Source) {
			sources = append(sources, c.Source)
		}
	}
	return sources
}
