// Package config loads application settings from a YAML file, a .env file
// and environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// LLMConfig selects and configures the chat model.
type LLMConfig struct {
	Provider    string        `yaml:"provider"` // ollama | openai | vertex
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	Ollama      OllamaConfig  `yaml:"ollama"`
	OpenAI      OpenAIConfig  `yaml:"openai"`
	Vertex      VertexConfig  `yaml:"vertex"`
}

// OllamaConfig holds connection details for a local Ollama server.
type OllamaConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// OpenAIConfig holds credentials for an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// VertexConfig identifies the Vertex AI project hosting Gemini.
type VertexConfig struct {
	Project string `yaml:"project"`
	Region  string `yaml:"region"`
	Model   string `yaml:"model"`
}

// EmbeddingConfig selects the text embedder.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"` // hashing | ollama | openai
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	Dims      int    `yaml:"dims"`
	BatchSize int    `yaml:"batch_size"`
}

// VectorStoreConfig selects where embeddings live.
type VectorStoreConfig struct {
	Type string `yaml:"type"` // sqlite | memory
	Path string `yaml:"path"`
}

// IngestConfig controls extraction and chunking.
type IngestConfig struct {
	ChunkSize       int      `yaml:"chunk_size"`
	ChunkOverlap    int      `yaml:"chunk_overlap"`
	DirectThreshold int      `yaml:"direct_threshold"`
	Workers         int      `yaml:"workers"`
	Extensions      []string `yaml:"extensions"`
}

// OCRConfig configures the remote OCR service and its local fallbacks.
type OCRConfig struct {
	Endpoint   string        `yaml:"endpoint"`
	APIKey     string        `yaml:"api_key"`
	Model      string        `yaml:"model"`
	HeaderID   string        `yaml:"header_id"`
	Timeout    time.Duration `yaml:"timeout"`
	Tesseract  string        `yaml:"tesseract"`
	Language   string        `yaml:"language"`
	Rasterizer string        `yaml:"rasterizer"` // pdfcpu | pdftoppm
	DPI        int           `yaml:"dpi"`
}

// OrchestratorConfig bounds the answer loop.
type OrchestratorConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	TopK        int `yaml:"top_k"`
}

// ServerConfig configures the HTTP front-end. JSON ingestion requests may
// only name paths under UploadDir or DocumentsRoot.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	UploadDir      string   `yaml:"upload_dir"`
	DocumentsRoot  string   `yaml:"documents_root"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text | json
}

// Config is the root application configuration.
type Config struct {
	LLM          LLMConfig          `yaml:"llm"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	VectorStore  VectorStoreConfig  `yaml:"vector_store"`
	Ingest       IngestConfig       `yaml:"ingest"`
	OCR          OCRConfig          `yaml:"ocr"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
}

// Load reads path (a missing file yields defaults), loads .env if present,
// applies environment overrides and fills remaining zero values.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()
	applyEnv(cfg, os.Getenv)
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the configuration used when no file or env is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Save writes cfg as YAML, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate reports settings the selected providers cannot run without.
func (c *Config) Validate() error {
	var errs []error
	switch c.LLM.Provider {
	case "ollama":
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("llm.openai.api_key (OPENAI_API_KEY) is required for the openai provider"))
		}
	case "vertex":
		if c.LLM.Vertex.Project == "" {
			errs = append(errs, errors.New("llm.vertex.project (GOOGLE_CLOUD_PROJECT) is required for the vertex provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown llm.provider %q", c.LLM.Provider))
	}

	switch c.Embedding.Provider {
	case "hashing", "ollama":
	case "openai":
		if c.LLM.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required for openai embeddings"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider))
	}

	switch c.VectorStore.Type {
	case "sqlite", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown vector_store.type %q", c.VectorStore.Type))
	}

	switch c.OCR.Rasterizer {
	case "pdfcpu", "pdftoppm":
	default:
		errs = append(errs, fmt.Errorf("unknown ocr.rasterizer %q", c.OCR.Rasterizer))
	}

	if c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		errs = append(errs, fmt.Errorf("ingest.chunk_overlap (%d) must be smaller than ingest.chunk_size (%d)",
			c.Ingest.ChunkOverlap, c.Ingest.ChunkSize))
	}
	return errors.Join(errs...)
}

// RemoteOCREnabled reports whether the remote OCR service should be tried.
func (c *Config) RemoteOCREnabled() bool {
	return c.OCR.APIKey != ""
}

// SlogLevel maps Log.Level to a slog.Level; unknown names mean Info.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

func applyEnv(cfg *Config, getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}

	set(&cfg.LLM.Provider, "LLM_PROVIDER")
	set(&cfg.LLM.OpenAI.APIKey, "OPENAI_API_KEY")
	set(&cfg.LLM.OpenAI.Model, "OPENAI_MODEL")
	set(&cfg.LLM.OpenAI.BaseURL, "OPENAI_BASE_URL")
	set(&cfg.LLM.Ollama.BaseURL, "OLLAMA_BASE_URL")
	set(&cfg.LLM.Ollama.Model, "OLLAMA_MODEL")
	set(&cfg.LLM.Vertex.Project, "GOOGLE_CLOUD_PROJECT")
	set(&cfg.LLM.Vertex.Region, "VERTEX_AI_REGION")
	set(&cfg.LLM.Vertex.Model, "GEMINI_MODEL")
	set(&cfg.Embedding.Provider, "EMBEDDING_PROVIDER")
	set(&cfg.OCR.APIKey, "DEEPSEEK_API_KEY")
	set(&cfg.OCR.Endpoint, "DEEPSEEK_OCR_ENDPOINT")
	set(&cfg.OCR.HeaderID, "DEFAULT_HEADERS_ID")
	set(&cfg.VectorStore.Path, "VECTOR_DB_PATH")
	set(&cfg.Server.Addr, "SERVER_ADDR")
	set(&cfg.Server.DocumentsRoot, "DOCUMENTS_ROOT")
	set(&cfg.Log.Level, "LOG_LEVEL")

	if v := getenv("LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LLM.Temperature = t
		}
	}
}

func applyDefaults(cfg *Config) {
	def := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	defInt := func(dst *int, v int) {
		if *dst <= 0 {
			*dst = v
		}
	}

	def(&cfg.LLM.Provider, "ollama")
	cfg.LLM.Provider = strings.ToLower(cfg.LLM.Provider)
	if cfg.LLM.Timeout <= 0 {
		cfg.LLM.Timeout = 300 * time.Second
	}
	def(&cfg.LLM.Ollama.BaseURL, "http://localhost:11434")
	def(&cfg.LLM.Ollama.Model, "llama3.2")
	def(&cfg.LLM.OpenAI.Model, "gpt-4o-mini")
	def(&cfg.LLM.Vertex.Region, "us-central1")
	def(&cfg.LLM.Vertex.Model, "gemini-1.5-flash")

	def(&cfg.Embedding.Provider, "hashing")
	cfg.Embedding.Provider = strings.ToLower(cfg.Embedding.Provider)
	defInt(&cfg.Embedding.Dims, 512)
	defInt(&cfg.Embedding.BatchSize, 32)
	if cfg.Embedding.Provider == "ollama" {
		def(&cfg.Embedding.BaseURL, cfg.LLM.Ollama.BaseURL)
		def(&cfg.Embedding.Model, "nomic-embed-text")
	}
	if cfg.Embedding.Provider == "openai" {
		def(&cfg.Embedding.BaseURL, cfg.LLM.OpenAI.BaseURL)
		def(&cfg.Embedding.Model, "text-embedding-3-small")
	}

	def(&cfg.VectorStore.Type, "sqlite")
	def(&cfg.VectorStore.Path, "./vector_db")

	defInt(&cfg.Ingest.ChunkSize, 1000)
	if cfg.Ingest.ChunkOverlap < 0 {
		cfg.Ingest.ChunkOverlap = 0
	} else if cfg.Ingest.ChunkOverlap == 0 {
		cfg.Ingest.ChunkOverlap = 200
	}
	defInt(&cfg.Ingest.DirectThreshold, 100)
	defInt(&cfg.Ingest.Workers, 4)
	if len(cfg.Ingest.Extensions) == 0 {
		cfg.Ingest.Extensions = []string{".pdf", ".txt", ".md"}
	}

	def(&cfg.OCR.Endpoint, "https://api.deepseek.com/v1")
	def(&cfg.OCR.Model, "deepseek-ai/DeepSeek-OCR")
	if cfg.OCR.Timeout <= 0 {
		cfg.OCR.Timeout = 120 * time.Second
	}
	def(&cfg.OCR.Tesseract, "tesseract")
	def(&cfg.OCR.Language, "eng")
	def(&cfg.OCR.Rasterizer, "pdfcpu")
	cfg.OCR.Rasterizer = strings.ToLower(cfg.OCR.Rasterizer)
	defInt(&cfg.OCR.DPI, 200)

	defInt(&cfg.Orchestrator.MaxAttempts, 3)
	defInt(&cfg.Orchestrator.TopK, 5)

	def(&cfg.Server.Addr, "127.0.0.1:8080")
	def(&cfg.Server.UploadDir, filepath.Join(os.TempDir(), "agentic-rag-uploads"))
	def(&cfg.Log.Level, "info")
	def(&cfg.Log.Format, "text")
}
