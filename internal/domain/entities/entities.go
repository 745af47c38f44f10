// Package entities contains the core domain values of the RAG pipeline.
// Pure domain objects: no knowledge of storage, models or transports.
package entities

import "strings"

// DocumentChunk is a bounded piece of cleaned document text ready for indexing.
// Chunks are values; once produced they are never mutated.
type DocumentChunk struct {
	Content     string
	SourceIndex int // Zero-based position within the source document
	TotalChunks int // Number of chunks the source document produced
	Overlap     int // Leading runes of Content repeated from the previous chunk
	Source      string
}

// Unique returns the part of the chunk not shared with its predecessor.
// Concatenating Unique() over a document's chunks yields the cleaned text.
func (c DocumentChunk) Unique() string {
	if c.Overlap <= 0 {
		return c.Content
	}
	runes := []rune(c.Content)
	if c.Overlap >= len(runes) {
		return ""
	}
	return string(runes[c.Overlap:])
}

// EmbeddedChunk is a DocumentChunk paired with its vector representation.
type EmbeddedChunk struct {
	ID        string
	Chunk     DocumentChunk
	Embedding []float32
}

// QueryResult is a similarity search hit.
type QueryResult struct {
	Chunk DocumentChunk
	Score float64
}

// Contents extracts chunk contents in order.
func Contents(chunks []DocumentChunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

// Role tags a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the orchestration log.
type Turn struct {
	Role    Role
	Content string
}

// UserTurn builds a user turn.
func UserTurn(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// AssistantTurn builds an assistant turn.
func AssistantTurn(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }

// FirstTurn returns the earliest turn with the given role.
func FirstTurn(turns []Turn, role Role) (Turn, bool) {
	for _, t := range turns {
		if t.Role == role {
			return t, true
		}
	}
	return Turn{}, false
}

// LastTurn returns the most recent turn with the given role.
func LastTurn(turns []Turn, role Role) (Turn, bool) {
	for i := len(turns) - 1; i >= 0; i-- {
		if turns[i].Role == role {
			return turns[i], true
		}
	}
	return Turn{}, false
}

// ExtractionMethod records how a document's text was obtained.
type ExtractionMethod string

const (
	MethodDirect ExtractionMethod = "direct"
	MethodOCR    ExtractionMethod = "ocr"
)

// Confidence is a coarse quality signal for extracted text.
type Confidence string

const (
	ConfidenceNone Confidence = "none"
	ConfidenceLow  Confidence = "low"
	ConfidenceHigh Confidence = "high"
)

// ExtractionResult is the outcome of reading one document.
type ExtractionResult struct {
	Text       string
	Method     ExtractionMethod
	Confidence Confidence
	Degraded   bool // OCR was attempted but the direct text was kept
	Pages      int
}

// ConfidenceFor grades text against the direct-acceptance threshold.
func ConfidenceFor(text string, threshold int) Confidence {
	n := len([]rune(strings.TrimSpace(text)))
	switch {
	case n == 0:
		return ConfidenceNone
	case n < threshold:
		return ConfidenceLow
	default:
		return ConfidenceHigh
	}
}
