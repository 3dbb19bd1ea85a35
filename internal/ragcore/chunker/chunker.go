// Package chunker implements the Chunker: splitting a document into
// overlapping, sentence-aligned chunks of bounded size.
package chunker

import (
	"fmt"

	"github.com/tmc/langchaingo/textsplitter"
)

// Config carries the chunk_size/chunk_overlap knobs (defaults 512/50).
type Config struct {
	ChunkSize    int
	ChunkOverlap int
}

// Chunker splits text into chunk strings.
type Chunker interface {
	// Split breaks text into an ordered list of chunk texts. Preserves order;
	// never splits inside a Unicode codepoint (guaranteed by operating on the
	// decoded rune stream internally, see textsplitter.RecursiveCharacter).
	Split(text string) ([]string, error)
}

// RecursiveCharacterChunker splits on a cascade of separators (paragraph,
// sentence, word) before falling back to a hard character split, preferring
// sentence boundaries wherever possible.
type RecursiveCharacterChunker struct {
	splitter textsplitter.RecursiveCharacter
}

// New builds a RecursiveCharacterChunker. A size of 0 or less falls back to
// 512; a negative overlap is treated as 0, and an overlap of 0 is kept as is.
func New(cfg Config) (*RecursiveCharacterChunker, error) {
	size := cfg.ChunkSize
	if size <= 0 {
		size = 512
	}
	overlap := cfg.ChunkOverlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunker: chunk_overlap (%d) must be smaller than chunk_size (%d)", overlap, size)
	}

	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	)
	return &RecursiveCharacterChunker{splitter: splitter}, nil
}

// Split implements Chunker.
func (c *RecursiveCharacterChunker) Split(text string) ([]string, error) {
	chunks, err := c.splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("chunker: split failed: %w", err)
	}
	return chunks, nil
}
