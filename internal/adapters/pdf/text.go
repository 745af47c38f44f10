// Package pdf reads PDF documents: the embedded text layer page by page,
// and page images for documents that need OCR.
package pdf

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ledongthuc/pdf"
)

// TextLayerExtractor implements ports.PageTextExtractor with ledongthuc/pdf.
type TextLayerExtractor struct {
	logger *slog.Logger
}

// NewTextLayerExtractor creates a TextLayerExtractor.
func NewTextLayerExtractor(logger *slog.Logger) *TextLayerExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextLayerExtractor{logger: logger}
}

// ExtractPages returns the text of every page in order. Pages that fail to
// decode come back empty so page positions are preserved.
func (e *TextLayerExtractor) ExtractPages(ctx context.Context, path string) (pages []string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("reading PDF info: %w", err)
	}

	// the parser panics on some malformed cross-reference tables
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("parsing PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("parsing PDF: %w", err)
	}

	count := reader.NumPage()
	pages = make([]string, 0, count)
	fonts := make(map[string]*pdf.Font)
	for i := 1; i <= count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			e.logger.Warn("failed to extract text from page", "path", path, "page", i, "error", err)
			text = ""
		}
		pages = append(pages, text)
	}
	return pages, nil
}
