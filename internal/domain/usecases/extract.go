package usecases

import (
	"context"
	"log/slog"
	"strings"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
	"github.com/NiteeshPutla/agentic-rag/internal/domain/ports"
)

// DefaultDirectThreshold is the minimum trimmed length at which the text
// layer of a PDF is trusted without running OCR.
const DefaultDirectThreshold = 100

// Strategist decides, per document, between direct text-layer extraction
// and page-by-page OCR.
type Strategist struct {
	direct     ports.PageTextExtractor
	rasterizer ports.Rasterizer
	ocr        ports.OCR
	threshold  int
	logger     *slog.Logger
}

// NewStrategist wires the extraction collaborators. rasterizer and ocr may be
// nil, in which case short documents keep their direct text.
func NewStrategist(direct ports.PageTextExtractor, rasterizer ports.Rasterizer, ocr ports.OCR, threshold int, logger *slog.Logger) *Strategist {
	if threshold <= 0 {
		threshold = DefaultDirectThreshold
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Strategist{
		direct:     direct,
		rasterizer: rasterizer,
		ocr:        ocr,
		threshold:  threshold,
		logger:     logger,
	}
}

// Extract returns the best available text for the PDF at path. It never
// fails: every failure mode degrades to whatever direct text was found.
func (s *Strategist) Extract(ctx context.Context, path string) entities.ExtractionResult {
	log := s.logger.With("path", path)

	pages, err := s.direct.ExtractPages(ctx, path)
	if err != nil {
		log.Warn("direct extraction failed", "error", err)
	}
	direct := joinNonEmpty(pages)

	if len([]rune(strings.TrimSpace(direct))) >= s.threshold {
		log.Debug("text layer accepted", "chars", len(direct), "pages", len(pages))
		return s.result(direct, entities.MethodDirect, false, len(pages))
	}

	if s.rasterizer == nil || s.ocr == nil {
		log.Warn("text layer below threshold and OCR unavailable", "chars", len(direct))
		return s.result(direct, entities.MethodDirect, true, len(pages))
	}

	log.Info("text layer below threshold, running OCR", "chars", len(direct), "threshold", s.threshold)
	images, err := s.rasterizer.Rasterize(ctx, path)
	if err != nil {
		log.Warn("rasterizing failed, keeping direct text", "error", err)
		return s.result(direct, entities.MethodDirect, true, len(pages))
	}

	texts := make([]string, 0, len(images))
	for i, img := range images {
		if ctx.Err() != nil {
			log.Warn("OCR interrupted", "error", ctx.Err(), "page", i+1)
			break
		}
		text, err := s.ocr.ExtractText(ctx, img)
		if err != nil {
			log.Warn("OCR failed for page", "page", i+1, "error", err)
			continue
		}
		texts = append(texts, text)
	}

	ocrText := strings.Join(texts, "\n")
	if strings.TrimSpace(ocrText) == "" {
		log.Warn("OCR produced no text, keeping direct text", "pages", len(images))
		return s.result(direct, entities.MethodDirect, true, max(len(pages), len(images)))
	}
	return s.result(ocrText, entities.MethodOCR, false, len(images))
}

func (s *Strategist) result(text string, method entities.ExtractionMethod, degraded bool, pages int) entities.ExtractionResult {
	return entities.ExtractionResult{
		Text:       text,
		Method:     method,
		Confidence: entities.ConfidenceFor(text, s.threshold),
		Degraded:   degraded,
		Pages:      pages,
	}
}

func joinNonEmpty(pages []string) string {
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "\n")
}
