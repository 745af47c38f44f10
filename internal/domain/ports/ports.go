// Package ports defines the boundaries between the domain and its collaborators.
// Usecases depend on these interfaces; adapters implement them.
package ports

import (
	"context"
	"strings"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

// Retriever returns the chunks most relevant to a query, best first.
// An empty query yields an empty result, not an error.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]entities.DocumentChunk, error)
}

// LLM maps a message sequence to exactly one assistant turn.
// All backend reply shapes are normalized before they reach the domain.
type LLM interface {
	Invoke(ctx context.Context, messages []entities.Turn) (entities.Turn, error)
}

// TextModel is a chat backend that replies with bare text.
type TextModel interface {
	Complete(ctx context.Context, messages []entities.Turn) (string, error)
}

// TextLLM adapts a TextModel to the LLM port.
type TextLLM struct {
	Model TextModel
}

// FromText wraps a bare-text backend.
func FromText(m TextModel) *TextLLM {
	return &TextLLM{Model: m}
}

// Invoke implements LLM.
func (t *TextLLM) Invoke(ctx context.Context, messages []entities.Turn) (entities.Turn, error) {
	text, err := t.Model.Complete(ctx, messages)
	if err != nil {
		return entities.Turn{}, err
	}
	return Normalize(entities.AssistantTurn(text)), nil
}

// Normalize coerces any reply into an assistant turn with trimmed content.
func Normalize(reply entities.Turn) entities.Turn {
	return entities.Turn{
		Role:    entities.RoleAssistant,
		Content: strings.TrimSpace(reply.Content),
	}
}

// LLMFunc adapts a function to the LLM port.
type LLMFunc func(ctx context.Context, messages []entities.Turn) (entities.Turn, error)

// Invoke implements LLM.
func (f LLMFunc) Invoke(ctx context.Context, messages []entities.Turn) (entities.Turn, error) {
	turn, err := f(ctx, messages)
	if err != nil {
		return entities.Turn{}, err
	}
	return Normalize(turn), nil
}

// OCR recognizes text in a single page image.
type OCR interface {
	ExtractText(ctx context.Context, image []byte) (string, error)
}

// PageTextExtractor reads the embedded text layer of a PDF, one string per page.
type PageTextExtractor interface {
	ExtractPages(ctx context.Context, path string) ([]string, error)
}

// Rasterizer renders (or extracts) one image per PDF page, in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string) ([][]byte, error)
}

// SourceResolver turns a document path (local or remote) into a readable local file.
// cleanup must be called once the file is no longer needed.
type SourceResolver interface {
	Resolve(ctx context.Context, path string) (local string, cleanup func(), err error)
}

// EmbeddingService generates vector embeddings for text.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorStore persists and queries chunk embeddings.
type VectorStore interface {
	Store(ctx context.Context, chunks []entities.EmbeddedChunk) error
	Search(ctx context.Context, embedding []float32, topK int) ([]entities.QueryResult, error)
	// Delete removes all chunks that came from source.
	Delete(ctx context.Context, source string) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

func (op FileOperation) String() string {
	switch op {
	case FileCreated:
		return "created"
	case FileModified:
		return "modified"
	case FileDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}
