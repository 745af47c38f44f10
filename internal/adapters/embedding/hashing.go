package embedding

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

const DefaultHashingDims = 512

// HashingEmbedder is a deterministic bag-of-words embedder that needs no
// model server. Tokens are lowercased alphanumeric runs (hyphens kept, so
// identifiers like ALPHA-999-BETA stay whole) hashed into a fixed number
// of signed buckets; vectors are L2-normalized.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates a HashingEmbedder; dims <= 0 selects the default.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = DefaultHashingDims
	}
	return &HashingEmbedder{dims: dims}
}

// Embed implements ports.EmbeddingService.
func (h *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)
	for _, tok := range tokenize(text) {
		f := fnv.New64a()
		f.Write([]byte(tok))
		sum := f.Sum64()
		idx := int(sum % uint64(h.dims))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= scale
		}
	}
	return vec, nil
}

// EmbedBatch implements ports.EmbeddingService.
func (h *HashingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i], _ = h.Embed(ctx, t)
	}
	return out, nil
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, "-"); f != "" {
			out = append(out, f)
		}
	}
	return out
}
