package embedding

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestOllamaAdapter_EmbedBatch(t *testing.T) {
	var got ollamaEmbedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		out := make([][]float32, len(got.Input))
		for i := range out {
			out[i] = []float32{float32(i), 0.5}
		}
		json.NewEncoder(w).Encode(map[string]any{"embeddings": out})
	}))
	defer server.Close()

	adapter := NewOllamaAdapter(server.URL, "test-model", quietLogger())
	results, err := adapter.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, []float32{2, 0.5}, results[2])
	assert.Equal(t, "test-model", got.Model)

	single, err := adapter.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Len(t, single, 2)
}

func TestOllamaAdapter_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"embeddings": [][]float32{{1}}})
	}))
	defer server.Close()

	_, err := NewOllamaAdapter(server.URL, "", quietLogger()).EmbedBatch(context.Background(), []string{"a", "b"})
	assert.Error(t, err)
}

func TestOllamaAdapter_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewOllamaAdapter(server.URL, "test", quietLogger()).Embed(context.Background(), "test")
	assert.Error(t, err)
}

func TestOpenAIEmbedder_EmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		// out of order on purpose: results are placed by index
		io.WriteString(w, `{"object":"list","model":"m","usage":{"prompt_tokens":1,"total_tokens":1},"data":[
			{"object":"embedding","index":1,"embedding":[0.0,1.0]},
			{"object":"embedding","index":0,"embedding":[1.0,0.0]}]}`)
	}))
	defer server.Close()

	e := NewOpenAIEmbedder("k", server.URL, "")
	out, err := e.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, out)
}

func TestHashingEmbedder(t *testing.T) {
	h := NewHashingEmbedder(0)
	ctx := context.Background()

	a, _ := h.Embed(ctx, "The code is ALPHA-999-BETA")
	b, _ := h.Embed(ctx, "the CODE is alpha-999-beta!")
	c, _ := h.Embed(ctx, "bananas grow in tropical climates")

	assert.Len(t, a, DefaultHashingDims)
	assert.Equal(t, a, b, "embedding ignores case and punctuation")
	assert.InDelta(t, 1.0, norm(a), 1e-5)
	assert.Greater(t, dot(a, b), dot(a, c))

	empty, _ := h.Embed(ctx, "  ")
	assert.Zero(t, norm(empty))

	batch, err := h.EmbedBatch(ctx, []string{"x", "y"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"code", "alpha-999-beta", "x"}, tokenize("Code: --ALPHA-999-BETA-- (x)"))
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

func norm(a []float32) float64 {
	return math.Sqrt(dot(a, a))
}
