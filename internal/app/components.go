package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/NiteeshPutla/agentic-rag/internal/adapters/embedding"
	"github.com/NiteeshPutla/agentic-rag/internal/adapters/llm"
	"github.com/NiteeshPutla/agentic-rag/internal/adapters/loader"
	"github.com/NiteeshPutla/agentic-rag/internal/adapters/ocr"
	"github.com/NiteeshPutla/agentic-rag/internal/adapters/pdf"
	"github.com/NiteeshPutla/agentic-rag/internal/adapters/source"
	"github.com/NiteeshPutla/agentic-rag/internal/adapters/vectordb"
	"github.com/NiteeshPutla/agentic-rag/internal/config"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/usecases"
)

// NewComponents builds the collaborators selected by cfg.
func NewComponents(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Components, error) {
	var c Components

	chat, closeChat, err := NewLLM(ctx, cfg)
	if err != nil {
		return Components{}, err
	}
	c.LLM = chat
	if closeChat != nil {
		c.Closers = append(c.Closers, closeChat)
	}

	c.Embedder, err = NewEmbedder(cfg, logger)
	if err != nil {
		c.close()
		return Components{}, err
	}

	switch cfg.VectorStore.Type {
	case "memory":
		c.Store = vectordb.NewInMemoryStore()
	default:
		store, err := vectordb.NewSQLiteStore(cfg.VectorStore.Path, logger)
		if err != nil {
			c.close()
			return Components{}, fmt.Errorf("opening vector store: %w", err)
		}
		c.Store = store
		c.Closers = append(c.Closers, store.Close)
	}

	resolver := source.NewResolver(logger)
	c.Resolver = resolver
	c.Closers = append(c.Closers, resolver.Close)

	c.Extractor = NewExtractor(cfg, logger)
	return c, nil
}

func (c Components) close() {
	for _, fn := range c.Closers {
		fn()
	}
}

// NewLLM returns the chat model for cfg.LLM.Provider and an optional closer.
func NewLLM(ctx context.Context, cfg *config.Config) (ports.LLM, func() error, error) {
	switch cfg.LLM.Provider {
	case "ollama":
		return llm.NewOllamaChat(cfg.LLM.Ollama.BaseURL, cfg.LLM.Ollama.Model, cfg.LLM.Temperature), nil, nil
	case "openai":
		return ports.FromText(llm.NewOpenAIChat(llm.OpenAIConfig{
			APIKey:      cfg.LLM.OpenAI.APIKey,
			BaseURL:     cfg.LLM.OpenAI.BaseURL,
			Model:       cfg.LLM.OpenAI.Model,
			Temperature: cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		})), nil, nil
	case "vertex":
		chat, err := llm.NewVertexChat(ctx, cfg.LLM.Vertex.Project, cfg.LLM.Vertex.Region,
			cfg.LLM.Vertex.Model, float32(cfg.LLM.Temperature))
		if err != nil {
			return nil, nil, fmt.Errorf("creating Vertex AI client: %w", err)
		}
		return ports.FromText(chat), chat.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", cfg.LLM.Provider)
	}
}

// NewEmbedder returns the embedding service for cfg.Embedding.Provider.
func NewEmbedder(cfg *config.Config, logger *slog.Logger) (ports.EmbeddingService, error) {
	switch cfg.Embedding.Provider {
	case "hashing":
		return embedding.NewHashingEmbedder(cfg.Embedding.Dims), nil
	case "ollama":
		return embedding.NewOllamaAdapter(cfg.Embedding.BaseURL, cfg.Embedding.Model, logger), nil
	case "openai":
		return embedding.NewOpenAIEmbedder(cfg.LLM.OpenAI.APIKey, cfg.Embedding.BaseURL, cfg.Embedding.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}

// NewExtractor builds the per-document extractor: PDFs go through the
// direct/OCR strategist, text files are read as-is.
func NewExtractor(cfg *config.Config, logger *slog.Logger) *loader.MultiLoader {
	var rasterizer ports.Rasterizer
	switch cfg.OCR.Rasterizer {
	case "pdftoppm":
		rasterizer = pdf.NewPopplerRasterizer("", cfg.OCR.DPI)
	default:
		rasterizer = pdf.NewImageRasterizer(logger)
	}

	strategist := usecases.NewStrategist(
		pdf.NewTextLayerExtractor(logger),
		rasterizer,
		NewOCR(cfg, logger),
		cfg.Ingest.DirectThreshold,
		logger,
	)
	return loader.NewMultiLoader(strategist, logger)
}

// NewOCR chains the remote OCR service (only when an API key is set) in
// front of the local Tesseract engine.
func NewOCR(cfg *config.Config, logger *slog.Logger) ports.OCR {
	local := ocr.NewTesseract(cfg.OCR.Tesseract, cfg.OCR.Language)

	var remote ports.OCR
	if cfg.RemoteOCREnabled() {
		remote = ocr.NewRemoteOCR(ocr.RemoteConfig{
			Endpoint: cfg.OCR.Endpoint,
			APIKey:   cfg.OCR.APIKey,
			Model:    cfg.OCR.Model,
			HeaderID: cfg.OCR.HeaderID,
			Timeout:  cfg.OCR.Timeout,
		})
	}
	return ocr.NewFallback(remote, local, logger)
}

// NewLogger builds the process logger from cfg.Log.
func NewLogger(cfg config.LogConfig, level slog.Level, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
