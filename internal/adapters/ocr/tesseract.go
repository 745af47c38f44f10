package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// Tesseract implements ports.OCR by running the tesseract CLI on a temp file.
type Tesseract struct {
	Command  string
	Language string
}

// NewTesseract creates a Tesseract engine; empty command means "tesseract".
func NewTesseract(command, language string) *Tesseract {
	if command == "" {
		command = "tesseract"
	}
	if language == "" {
		language = "eng"
	}
	return &Tesseract{Command: command, Language: language}
}

// ExtractText implements ports.OCR.
func (t *Tesseract) ExtractText(ctx context.Context, image []byte) (string, error) {
	f, err := os.CreateTemp("", "agentic-rag-ocr-*")
	if err != nil {
		return "", fmt.Errorf("creating OCR input: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(image); err != nil {
		f.Close()
		return "", fmt.Errorf("writing OCR input: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("writing OCR input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.Command, f.Name(), "stdout", "-l", t.Language)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("running %s: %w: %s", t.Command, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return stdout.String(), nil
}
