package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// OpenAIConfig configures OpenAIChat. BaseURL may point at any
// OpenAI-compatible server.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OpenAIChat implements ports.TextModel with the chat completions API.
type OpenAIChat struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIChat creates an OpenAIChat.
func NewOpenAIChat(cfg OpenAIConfig) *OpenAIChat {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIChat{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Complete implements ports.TextModel.
func (c *OpenAIChat) Complete(ctx context.Context, messages []entities.Turn) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    make([]openai.ChatCompletionMessageParamUnion, 0, len(messages)),
		Temperature: openai.Float(c.temperature),
	}
	for _, m := range messages {
		if m.Role == entities.RoleAssistant {
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		} else {
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("OpenAI returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
