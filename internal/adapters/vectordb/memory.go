// Package vectordb provides ports.VectorStore adapters: an in-memory store
// for tests and one-shot runs, and a SQLite-backed store that persists
// between runs.
package vectordb

import (
	"context"
	"sync"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// InMemoryStore keeps embedded chunks in a map keyed by chunk ID.
type InMemoryStore struct {
	mu      sync.RWMutex
	chunks  map[string]entities.EmbeddedChunk
	sources map[string][]string // source -> chunk IDs
}

// NewInMemoryStore creates a new in-memory vector store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		chunks:  make(map[string]entities.EmbeddedChunk),
		sources: make(map[string][]string),
	}
}

// Store saves chunks with their embeddings. Existing IDs are overwritten.
func (s *InMemoryStore) Store(ctx context.Context, chunks []entities.EmbeddedChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		if _, exists := s.chunks[c.ID]; !exists {
			s.sources[c.Chunk.Source] = append(s.sources[c.Chunk.Source], c.ID)
		}
		s.chunks[c.ID] = c
	}
	return nil
}

// Search finds the most similar chunks to a query embedding.
func (s *InMemoryStore) Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error) {
	s.mu.RLock()
	records := make([]entities.EmbeddedChunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		records = append(records, c)
	}
	s.mu.RUnlock()

	return rank(embedding, records, topK), nil
}

// Delete removes all chunks of a source.
func (s *InMemoryStore) Delete(ctx context.Context, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.sources[source] {
		delete(s.chunks, id)
	}
	delete(s.sources, source)
	return nil
}

// Clear removes all data from the store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.chunks = make(map[string]entities.EmbeddedChunk)
	s.sources = make(map[string][]string)
	return nil
}

// Count returns the number of stored chunks.
func (s *InMemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks), nil
}
