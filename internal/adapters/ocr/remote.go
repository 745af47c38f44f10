// Package ocr provides page-image text recognition: a remote vision model
// behind an OpenAI-compatible API, local Tesseract, and a fallback chain.
package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	DefaultRemoteModel = "deepseek-ai/DeepSeek-OCR"
	defaultPrompt      = "Free OCR."
	defaultMaxTokens   = 2048
)

// ErrMissingHeaderID is returned when the remote endpoint's routing header is not configured.
var ErrMissingHeaderID = errors.New("missing DEFAULT_HEADERS_ID for remote OCR")

// RemoteConfig configures RemoteOCR.
type RemoteConfig struct {
	Endpoint string // base URL; requests go to {Endpoint}/chat/completions
	APIKey   string
	Model    string
	HeaderID string // sent as the "id" header
	Timeout  time.Duration
}

// RemoteOCR implements ports.OCR with a vision chat-completions model.
type RemoteOCR struct {
	client   openai.Client
	model    string
	headerID string
}

// NewRemoteOCR creates a RemoteOCR client.
func NewRemoteOCR(cfg RemoteConfig) *RemoteOCR {
	if cfg.Model == "" {
		cfg.Model = DefaultRemoteModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.HeaderID != "" {
		opts = append(opts, option.WithHeader("id", cfg.HeaderID))
	}
	return &RemoteOCR{
		client:   openai.NewClient(opts...),
		model:    cfg.Model,
		headerID: cfg.HeaderID,
	}
}

// ExtractText sends one page image to the model and returns its transcription.
func (r *RemoteOCR) ExtractText(ctx context.Context, image []byte) (string, error) {
	if r.headerID == "" {
		return "", ErrMissingHeaderID
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(defaultPrompt),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURL(image),
		}),
	}
	resp, err := r.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       r.model,
		Messages:    []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		MaxTokens:   openai.Int(defaultMaxTokens),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return "", fmt.Errorf("calling remote OCR: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("remote OCR returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// dataURL encodes an image as a base64 data URL, sniffing its media type.
func dataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}
