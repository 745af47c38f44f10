// Package loader dispatches document extraction by file type.
package loader

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// Extractor produces text for a single document. It never fails; problems
// surface as an empty or degraded result.
type Extractor interface {
	Extract(ctx context.Context, path string) entities.ExtractionResult
}

// TextLoader reads plain text documents (.txt, .md) as-is.
type TextLoader struct {
	logger *slog.Logger
}

// NewTextLoader creates a new text document loader.
func NewTextLoader(logger *slog.Logger) *TextLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextLoader{logger: logger}
}

// Extract reads a text document from the given path.
func (l *TextLoader) Extract(ctx context.Context, path string) entities.ExtractionResult {
	content, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("reading text document failed", "path", path, "error", err)
		content = nil
	}
	text := string(content)
	return entities.ExtractionResult{
		Text:       text,
		Method:     entities.MethodDirect,
		Confidence: entities.ConfidenceFor(text, 1),
		Pages:      1,
	}
}

// SupportedExtensions returns file extensions this loader handles.
func (l *TextLoader) SupportedExtensions() []string {
	return []string{".txt", ".md", ".markdown"}
}

// MultiLoader routes PDFs to a PDF extractor and text files to a TextLoader.
// Paths without a known extension are sniffed for the PDF header.
type MultiLoader struct {
	loaders map[string]Extractor
	pdf     Extractor
	text    Extractor
}

// NewMultiLoader creates a loader that handles PDFs and plain text.
func NewMultiLoader(pdf Extractor, logger *slog.Logger) *MultiLoader {
	text := NewTextLoader(logger)
	m := &MultiLoader{
		loaders: map[string]Extractor{".pdf": pdf},
		pdf:     pdf,
		text:    text,
	}
	for _, ext := range text.SupportedExtensions() {
		m.loaders[ext] = text
	}
	return m
}

// Extract dispatches to the appropriate extractor based on extension.
func (m *MultiLoader) Extract(ctx context.Context, path string) entities.ExtractionResult {
	ext := strings.ToLower(filepath.Ext(path))
	if loader, ok := m.loaders[ext]; ok {
		return loader.Extract(ctx, path)
	}
	if isPDF(path) {
		return m.pdf.Extract(ctx, path)
	}
	return m.text.Extract(ctx, path)
}

// SupportedExtensions returns all supported extensions.
func (m *MultiLoader) SupportedExtensions() []string {
	exts := make([]string, 0, len(m.loaders))
	for ext := range m.loaders {
		exts = append(exts, ext)
	}
	return exts
}

var pdfMagic = []byte("%PDF-")

func isPDF(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	head := make([]byte, len(pdfMagic))
	if _, err := io.ReadFull(f, head); err != nil {
		return false
	}
	return bytes.Equal(head, pdfMagic)
}
