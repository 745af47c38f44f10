package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ErrNoPageImages is returned when a PDF carries no extractable page images.
var ErrNoPageImages = errors.New("no page images found")

// ImageRasterizer implements ports.Rasterizer for scanned PDFs by pulling
// the embedded page scans out with pdfcpu. When a page holds several
// images the largest one is taken as the scan.
type ImageRasterizer struct {
	conf   *model.Configuration
	logger *slog.Logger
}

// NewImageRasterizer creates an ImageRasterizer with relaxed validation.
func NewImageRasterizer(logger *slog.Logger) *ImageRasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &ImageRasterizer{conf: conf, logger: logger}
}

// Rasterize returns one image per page that has one, in page order.
func (r *ImageRasterizer) Rasterize(ctx context.Context, path string) ([][]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	pages, err := api.ExtractImagesRaw(f, nil, r.conf)
	if err != nil {
		return nil, fmt.Errorf("extracting page images: %w", err)
	}

	best := make(map[int][]byte)
	for _, imgs := range pages {
		for _, img := range imgs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := io.ReadAll(img)
			if err != nil {
				r.logger.Warn("skipping unreadable page image", "path", path, "page", img.PageNr, "error", err)
				continue
			}
			if len(data) > len(best[img.PageNr]) {
				best[img.PageNr] = data
			}
		}
	}
	if len(best) == 0 {
		return nil, ErrNoPageImages
	}

	pageNrs := make([]int, 0, len(best))
	for nr := range best {
		pageNrs = append(pageNrs, nr)
	}
	sort.Ints(pageNrs)

	out := make([][]byte, len(pageNrs))
	for i, nr := range pageNrs {
		out[i] = best[nr]
	}
	r.logger.Debug("page images extracted", "path", path, "pages", len(out))
	return out, nil
}

// PopplerRasterizer implements ports.Rasterizer by rendering every page
// with poppler's pdftoppm, which also handles vector-only pages.
type PopplerRasterizer struct {
	Command string
	DPI     int
}

// NewPopplerRasterizer creates a PopplerRasterizer; empty command means "pdftoppm".
func NewPopplerRasterizer(command string, dpi int) *PopplerRasterizer {
	if command == "" {
		command = "pdftoppm"
	}
	if dpi <= 0 {
		dpi = 200
	}
	return &PopplerRasterizer{Command: command, DPI: dpi}
}

// Rasterize renders each page to PNG and returns the images in page order.
func (p *PopplerRasterizer) Rasterize(ctx context.Context, path string) ([][]byte, error) {
	dir, err := os.MkdirTemp("", "agentic-rag-pages-*")
	if err != nil {
		return nil, fmt.Errorf("creating page directory: %w", err)
	}
	defer os.RemoveAll(dir)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.Command, "-r", strconv.Itoa(p.DPI), "-png", path, filepath.Join(dir, "page"))
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w: %s", p.Command, err, bytes.TrimSpace(stderr.Bytes()))
	}

	files, err := filepath.Glob(filepath.Join(dir, "page-*.png"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoPageImages
	}
	// pdftoppm zero-pads page numbers to a common width
	sort.Strings(files)

	out := make([][]byte, 0, len(files))
	for _, name := range files {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("reading rendered page: %w", err)
		}
		out = append(out, data)
	}
	return out, nil
}
