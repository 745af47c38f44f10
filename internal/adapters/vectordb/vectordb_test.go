package vectordb

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

func record(id, source string, index int, content string, emb ...float32) entities.EmbeddedChunk {
	return entities.EmbeddedChunk{
		ID:        id,
		Chunk:     entities.DocumentChunk{Content: content, SourceIndex: index, TotalChunks: 2, Source: source},
		Embedding: emb,
	}
}

// stores runs each test against every VectorStore implementation.
func stores(t *testing.T) map[string]ports.VectorStore {
	t.Helper()
	sqlite, err := NewSQLiteStore(t.TempDir(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	return map[string]ports.VectorStore{
		"memory": NewInMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestStore_StoreAndSearch(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Store(ctx, []entities.EmbeddedChunk{
				record("c1", "doc1.pdf", 0, "hello", 1, 0, 0),
				record("c2", "doc1.pdf", 1, "world", 0, 1, 0),
			}))

			results, err := store.Search(ctx, []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "hello", results[0].Chunk.Content)
			assert.Equal(t, "doc1.pdf", results[0].Chunk.Source)
			assert.Equal(t, 2, results[0].Chunk.TotalChunks)
			assert.InDelta(t, 1.0, results[0].Score, 1e-9)

			top, err := store.Search(ctx, []float32{0, 1, 0}, 1)
			require.NoError(t, err)
			require.Len(t, top, 1)
			assert.Equal(t, "world", top[0].Chunk.Content)
		})
	}
}

func TestStore_ReplaceSameID(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Store(ctx, []entities.EmbeddedChunk{record("c1", "a", 0, "old", 1, 0)}))
			require.NoError(t, store.Store(ctx, []entities.EmbeddedChunk{record("c1", "a", 0, "new", 1, 0)}))

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, count)

			results, _ := store.Search(ctx, []float32{1, 0}, 5)
			assert.Equal(t, "new", results[0].Chunk.Content)
		})
	}
}

func TestStore_DeleteBySource(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Store(ctx, []entities.EmbeddedChunk{
				record("c1", "doc1", 0, "test", 1, 0, 0),
				record("c2", "doc2", 0, "keep", 0, 1, 0),
			}))

			require.NoError(t, store.Delete(ctx, "doc1"))
			require.NoError(t, store.Delete(ctx, "missing"))

			results, err := store.Search(ctx, []float32{1, 0, 0}, 10)
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, "keep", results[0].Chunk.Content)
		})
	}
}

func TestStore_Clear(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Store(ctx, []entities.EmbeddedChunk{
				record("c1", "a", 0, "x", 1, 0, 0),
				record("c2", "a", 1, "y", 0, 1, 0),
			}))

			require.NoError(t, store.Clear(ctx))

			count, err := store.Count(ctx)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestStore_TiesOrderedBySourcePosition(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Store(ctx, []entities.EmbeddedChunk{
				record("c3", "b", 0, "b0", 1, 0),
				record("c2", "a", 1, "a1", 1, 0),
				record("c1", "a", 0, "a0", 1, 0),
			}))

			results, err := store.Search(ctx, []float32{1, 0}, 3)
			require.NoError(t, err)
			got := make([]string, len(results))
			for i, r := range results {
				got[i] = r.Chunk.Content
			}
			assert.Equal(t, []string{"a0", "a1", "b0"}, got)
		})
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
		{"empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}
