package vectordb

import (
	"math"
	"sort"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// cosineSimilarity calculates cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rank scores every record against the query and keeps the best topK.
// Equal scores fall back to source then position so results are stable.
func rank(query []float32, records []entities.EmbeddedChunk, topK int) []entities.QueryResult {
	results := make([]entities.QueryResult, len(records))
	for i, r := range records {
		results[i] = entities.QueryResult{Chunk: r.Chunk, Score: cosineSimilarity(query, r.Embedding)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Chunk.Source != b.Chunk.Source {
			return a.Chunk.Source < b.Chunk.Source
		}
		return a.Chunk.SourceIndex < b.Chunk.SourceIndex
	})

	if topK >= 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}
