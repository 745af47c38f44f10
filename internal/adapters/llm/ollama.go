// Package llm provides chat model adapters: Ollama, OpenAI-compatible
// endpoints and Vertex AI Gemini. Every adapter yields exactly one
// assistant turn per call.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

// OllamaChat implements ports.LLM using the Ollama chat API.
type OllamaChat struct {
	baseURL     string
	model       string
	temperature float64
	client      *http.Client
}

// NewOllamaChat creates a new Ollama chat adapter.
func NewOllamaChat(baseURL, model string, temperature float64) *OllamaChat {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaChat{
		baseURL:     baseURL,
		model:       model,
		temperature: temperature,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// Invoke implements ports.LLM.
func (a *OllamaChat) Invoke(ctx context.Context, messages []entities.Turn) (entities.Turn, error) {
	reqBody := ollamaChatRequest{
		Model:    a.model,
		Messages: make([]ollamaMessage, len(messages)),
		Stream:   false,
		Options:  map[string]any{"temperature": a.temperature},
	}
	for i, m := range messages {
		reqBody.Messages[i] = ollamaMessage{Role: string(m.Role), Content: m.Content}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return entities.Turn{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return entities.Turn{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return entities.Turn{}, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return entities.Turn{}, fmt.Errorf("Ollama returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return entities.Turn{}, fmt.Errorf("decoding response: %w", err)
	}
	if chatResp.Error != "" {
		return entities.Turn{}, fmt.Errorf("Ollama error: %s", chatResp.Error)
	}

	return ports.Normalize(entities.Turn{
		Role:    entities.Role(chatResp.Message.Role),
		Content: chatResp.Message.Content,
	}), nil
}
