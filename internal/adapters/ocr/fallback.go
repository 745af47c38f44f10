package ocr

import (
	"context"
	"errors"
	"log/slog"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

// Fallback tries a primary engine and falls back to a secondary one on error.
// A nil primary always uses the secondary.
type Fallback struct {
	primary   ports.OCR
	secondary ports.OCR
	logger    *slog.Logger
}

// NewFallback creates a Fallback chain.
func NewFallback(primary, secondary ports.OCR, logger *slog.Logger) *Fallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

// ExtractText implements ports.OCR.
func (f *Fallback) ExtractText(ctx context.Context, image []byte) (string, error) {
	if f.primary != nil {
		text, err := f.primary.ExtractText(ctx, image)
		if err == nil {
			return text, nil
		}
		if f.secondary == nil {
			return "", err
		}
		f.logger.Warn("remote OCR failed, falling back to local engine", "error", err)
	}
	if f.secondary == nil {
		return "", errors.New("no OCR engine configured")
	}
	return f.secondary.ExtractText(ctx, image)
}
