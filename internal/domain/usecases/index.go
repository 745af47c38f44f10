package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

const (
	DefaultTopK      = 5
	defaultBatchSize = 32
)

// chunkNamespace scopes deterministic chunk IDs.
var chunkNamespace = uuid.MustParse("5f0c7a52-3c1e-4b8e-9d0a-6f2b1e7c4a91")

// IndexBuilder embeds chunks and writes them to a vector store.
type IndexBuilder struct {
	embedder  ports.EmbeddingService
	store     ports.VectorStore
	batchSize int
	logger    *slog.Logger
}

// NewIndexBuilder creates an IndexBuilder with injected dependencies.
func NewIndexBuilder(embedder ports.EmbeddingService, store ports.VectorStore, batchSize int, logger *slog.Logger) *IndexBuilder {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexBuilder{embedder: embedder, store: store, batchSize: batchSize, logger: logger}
}

// Build embeds and stores chunks. Chunks from a source that is already
// indexed replace the earlier copy. Nothing is removed from the store until
// every chunk has been embedded.
func (b *IndexBuilder) Build(ctx context.Context, chunks []entities.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	return b.write(ctx, chunks, false)
}

// Rebuild replaces the whole index with chunks. The store is cleared only
// after every chunk has been embedded, so a failed run leaves it untouched.
func (b *IndexBuilder) Rebuild(ctx context.Context, chunks []entities.DocumentChunk) error {
	return b.write(ctx, chunks, true)
}

func (b *IndexBuilder) write(ctx context.Context, chunks []entities.DocumentChunk, reset bool) error {
	records, err := b.embed(ctx, chunks)
	if err != nil {
		return err
	}

	var sources []string
	if reset {
		if err := b.store.Clear(ctx); err != nil {
			return fmt.Errorf("resetting index: %w", err)
		}
	} else {
		seen := make(map[string]bool)
		for _, c := range chunks {
			if c.Source != "" && !seen[c.Source] {
				seen[c.Source] = true
				sources = append(sources, c.Source)
			}
		}
		for _, src := range sources {
			if err := b.store.Delete(ctx, src); err != nil {
				return fmt.Errorf("removing stale chunks for %s: %w", src, err)
			}
		}
	}

	if len(records) > 0 {
		if err := b.store.Store(ctx, records); err != nil {
			return fmt.Errorf("storing chunks: %w", err)
		}
	}

	b.logger.Info("index updated", "chunks", len(records), "reset", reset)
	return nil
}

func (b *IndexBuilder) embed(ctx context.Context, chunks []entities.DocumentChunk) ([]entities.EmbeddedChunk, error) {
	records := make([]entities.EmbeddedChunk, 0, len(chunks))
	for start := 0; start < len(chunks); start += b.batchSize {
		batch := chunks[start:min(start+b.batchSize, len(chunks))]

		embeddings, err := b.embedder.EmbedBatch(ctx, entities.Contents(batch))
		if err != nil {
			return nil, fmt.Errorf("embedding chunks: %w", err)
		}
		if len(embeddings) != len(batch) {
			return nil, fmt.Errorf("embedding chunks: got %d vectors for %d chunks", len(embeddings), len(batch))
		}

		for i, c := range batch {
			records = append(records, entities.EmbeddedChunk{
				ID:        ChunkID(c),
				Chunk:     c,
				Embedding: embeddings[i],
			})
		}
	}
	return records, nil
}

// Remove drops all chunks of one source.
func (b *IndexBuilder) Remove(ctx context.Context, source string) error {
	return b.store.Delete(ctx, source)
}

// ChunkID derives a stable identifier from a chunk's source and position.
func ChunkID(c entities.DocumentChunk) string {
	key := c.Source + "#" + strconv.Itoa(c.SourceIndex)
	if c.Source == "" {
		key += "#" + c.Content
	}
	return uuid.NewSHA1(chunkNamespace, []byte(key)).String()
}

// VectorRetriever implements ports.Retriever over an embedding service and
// a vector store.
type VectorRetriever struct {
	embedder ports.EmbeddingService
	store    ports.VectorStore
	topK     int
}

// NewVectorRetriever creates a VectorRetriever returning at most topK chunks.
func NewVectorRetriever(embedder ports.EmbeddingService, store ports.VectorStore, topK int) *VectorRetriever {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &VectorRetriever{embedder: embedder, store: store, topK: topK}
}

// Retrieve implements ports.Retriever.
func (r *VectorRetriever) Retrieve(ctx context.Context, query string) ([]entities.DocumentChunk, error) {
	if strings.TrimSpace(query) == "" {
		return []entities.DocumentChunk{}, nil
	}

	embedding, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.Search(ctx, embedding, r.topK)
	if err != nil {
		return nil, fmt.Errorf("searching vectors: %w", err)
	}

	chunks := make([]entities.DocumentChunk, len(results))
	for i, res := range results {
		chunks[i] = res.Chunk
	}
	return chunks, nil
}
