package usecases

import (
	"unicode"

	"github.com/NiteeshPutla/agentic-rag/internal/domain/entities"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200
)

// separatorLevels lists split points from most to least semantic.
// Separators stay attached to the text before them so pieces tile the input.
var separatorLevels = [][]string{
	{"\n\n"},
	{"\n"},
	{". ", "! ", "? "},
	{"; ", ", "},
	{" "},
}

// Chunker splits cleaned text into overlapping chunks of at most MaxSize runes.
type Chunker struct {
	MaxSize int
	Overlap int
}

// NewChunker creates a Chunker, falling back to defaults for invalid sizes.
// Overlap is clamped to [0, maxSize-1].
func NewChunker(maxSize, overlap int) *Chunker {
	if maxSize < 1 {
		maxSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxSize {
		overlap = maxSize - 1
	}
	return &Chunker{MaxSize: maxSize, Overlap: overlap}
}

type span struct{ start, end int }

// Chunk cleans text and splits it. Empty input yields no chunks.
func (c *Chunker) Chunk(text string) []entities.DocumentChunk {
	return c.ChunkDocument("", text)
}

// ChunkDocument is Chunk with every chunk tagged with its source path.
func (c *Chunker) ChunkDocument(source, text string) []entities.DocumentChunk {
	cleaned := Clean(text)
	if cleaned == "" {
		return nil
	}
	runes := []rune(cleaned)
	budget := c.MaxSize - c.Overlap

	segments := c.split(runes, span{0, len(runes)}, 0, budget)

	chunks := make([]entities.DocumentChunk, 0, len(segments))
	for i, seg := range segments {
		from := seg.start
		if i > 0 && c.Overlap > 0 {
			from = overlapStart(runes, seg.start, c.Overlap)
		}
		chunks = append(chunks, entities.DocumentChunk{
			Content:     string(runes[from:seg.end]),
			SourceIndex: i,
			Overlap:     seg.start - from,
			Source:      source,
		})
	}
	for i := range chunks {
		chunks[i].TotalChunks = len(chunks)
	}
	return chunks
}

// split tiles s with pieces of at most budget runes, preferring the
// separators at level and descending a level for pieces that stay too long.
func (c *Chunker) split(runes []rune, s span, level, budget int) []span {
	if s.end-s.start <= budget {
		return []span{s}
	}
	if level >= len(separatorLevels) {
		var out []span
		for i := s.start; i < s.end; i += budget {
			out = append(out, span{i, min(i+budget, s.end)})
		}
		return out
	}

	pieces := cutAfter(runes, s, separatorLevels[level])
	if len(pieces) == 1 {
		return c.split(runes, s, level+1, budget)
	}

	var out []span
	cur := span{s.start, s.start}
	for _, p := range pieces {
		if p.end-p.start > budget {
			if cur.end > cur.start {
				out = append(out, cur)
			}
			out = append(out, c.split(runes, p, level+1, budget)...)
			cur = span{p.end, p.end}
			continue
		}
		if p.end-cur.start > budget {
			out = append(out, cur)
			cur = span{p.start, p.start}
		}
		cur.end = p.end
	}
	if cur.end > cur.start {
		out = append(out, cur)
	}
	return out
}

// cutAfter splits s right after every occurrence of any separator.
func cutAfter(runes []rune, s span, seps []string) []span {
	var out []span
	from := s.start
	for i := s.start; i < s.end; {
		n := matchAt(runes, i, s.end, seps)
		if n == 0 {
			i++
			continue
		}
		i += n
		out = append(out, span{from, i})
		from = i
	}
	if from < s.end {
		out = append(out, span{from, s.end})
	}
	return out
}

func matchAt(runes []rune, i, end int, seps []string) int {
	for _, sep := range seps {
		sr := []rune(sep)
		if i+len(sr) > end {
			continue
		}
		ok := true
		for j, r := range sr {
			if runes[i+j] != r {
				ok = false
				break
			}
		}
		if ok {
			return len(sr)
		}
	}
	return 0
}

// overlapStart picks where the repeated prefix of the chunk at pos begins:
// at most overlap runes back, moved forward to a word start when one exists.
func overlapStart(runes []rune, pos, overlap int) int {
	from := max(0, pos-overlap)
	if from == 0 || unicode.IsSpace(runes[from-1]) {
		return skipSpace(runes, from, pos)
	}
	for i := from; i < pos; i++ {
		if unicode.IsSpace(runes[i]) {
			return skipSpace(runes, i, pos)
		}
	}
	return from
}

func skipSpace(runes []rune, i, limit int) int {
	for i < limit && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}
