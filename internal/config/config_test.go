package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "ollama", cfg.LLM.Provider)
	assert.Equal(t, "hashing", cfg.Embedding.Provider)
	assert.Equal(t, "sqlite", cfg.VectorStore.Type)
	assert.Equal(t, 1000, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 100, cfg.Ingest.DirectThreshold)
	assert.Equal(t, 3, cfg.Orchestrator.MaxAttempts)
	assert.Equal(t, 5, cfg.Orchestrator.TopK)
	assert.Equal(t, "pdfcpu", cfg.OCR.Rasterizer)
	assert.False(t, cfg.RemoteOCREnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileAndDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("EMBEDDING_PROVIDER", "")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
llm:
  provider: OpenAI
  openai:
    api_key: sk-file
    model: gpt-test
  timeout: 45s
ingest:
  chunk_size: 500
  chunk_overlap: 50
embedding:
  provider: ollama
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-test", cfg.LLM.OpenAI.Model)
	assert.Equal(t, 45*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, 500, cfg.Ingest.ChunkSize)
	assert.Equal(t, 50, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, "nomic-embed-text", cfg.Embedding.Model)
	assert.Equal(t, cfg.LLM.Ollama.BaseURL, cfg.Embedding.BaseURL)
	assert.Equal(t, 3, cfg.Orchestrator.MaxAttempts)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", cfg.Server.Addr)
	assert.NotEmpty(t, cfg.Server.UploadDir)
	assert.Empty(t, cfg.Server.DocumentsRoot)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unclosed"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"LLM_PROVIDER":          "vertex",
		"GOOGLE_CLOUD_PROJECT":  "my-project",
		"VERTEX_AI_REGION":      "europe-west4",
		"GEMINI_MODEL":          "gemini-test",
		"DEEPSEEK_API_KEY":      "ds-key",
		"DEEPSEEK_OCR_ENDPOINT": "https://ocr.example.com/v1",
		"DEFAULT_HEADERS_ID":    "route-7",
		"LLM_TEMPERATURE":       "0.3",
		"OPENAI_MODEL":          "   ",
		"DOCUMENTS_ROOT":        "/srv/docs",
	}
	cfg := &Config{LLM: LLMConfig{OpenAI: OpenAIConfig{Model: "from-file"}}}
	applyEnv(cfg, func(k string) string { return env[k] })
	applyDefaults(cfg)

	assert.Equal(t, "vertex", cfg.LLM.Provider)
	assert.Equal(t, "my-project", cfg.LLM.Vertex.Project)
	assert.Equal(t, "europe-west4", cfg.LLM.Vertex.Region)
	assert.Equal(t, "gemini-test", cfg.LLM.Vertex.Model)
	assert.Equal(t, "route-7", cfg.OCR.HeaderID)
	assert.Equal(t, "/srv/docs", cfg.Server.DocumentsRoot)
	assert.Equal(t, "https://ocr.example.com/v1", cfg.OCR.Endpoint)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.Equal(t, "from-file", cfg.LLM.OpenAI.Model, "blank env values do not override")
	assert.True(t, cfg.RemoteOCREnabled())
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"openai without key", func(c *Config) { c.LLM.Provider = "openai" }, "OPENAI_API_KEY"},
		{"vertex without project", func(c *Config) { c.LLM.Provider = "vertex" }, "GOOGLE_CLOUD_PROJECT"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "claude" }, `unknown llm.provider "claude"`},
		{"unknown store", func(c *Config) { c.VectorStore.Type = "chroma" }, "vector_store.type"},
		{"unknown rasterizer", func(c *Config) { c.OCR.Rasterizer = "ghostscript" }, "ocr.rasterizer"},
		{"overlap too large", func(c *Config) { c.Ingest.ChunkOverlap = 1000 }, "chunk_overlap"},
		{"openai embeddings without key", func(c *Config) { c.Embedding.Provider = "openai" }, "openai embeddings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	cfg := Default()
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())

	cfg.Log.Level = "debug"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	cfg.Log.Level = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, Save(path, Default()))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Ingest, cfg.Ingest)
}
