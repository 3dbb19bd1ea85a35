// Package retrieval implements the Retrieval Engine: embedding a
// question and running a filtered top-K similarity search against the
// vector store, producing Source records with bounded-length snippets.
package retrieval

import (
	"context"
	"unicode/utf8"

	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/embedder"
	"github.com/coursewise/ragcore/internal/ragcore/vectorstore"
)

const (
	defaultTopK    = 6
	snippetByteCap = 200
)

// Engine runs filtered similarity search over embedded questions.
type Engine struct {
	store vectorstore.Store
	embed embedder.Embedder
	topK  int
}

// New builds an Engine. topK of 0 falls back to the configured default (6).
func New(store vectorstore.Store, embed embedder.Embedder, topK int) *Engine {
	if topK <= 0 {
		topK = defaultTopK
	}
	return &Engine{store: store, embed: embed, topK: topK}
}

// Retrieve embeds question and searches collection under filter, returning
// hits ordered by descending score with chunk text truncated to at most 200
// bytes, cut back to a rune boundary so no codepoint is split (an ellipsis is
// appended when truncated).
func (e *Engine) Retrieve(ctx context.Context, collection, question string, filter domain.FilterSpec) ([]domain.Source, error) {
	vector, err := e.embed.Embed(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := e.store.Search(ctx, collection, vector, filter, e.topK)
	if err != nil {
		return nil, err
	}

	sources := make([]domain.Source, len(hits))
	for i, h := range hits {
		sources[i] = domain.Source{
			CourseID:         h.CourseID,
			CourseMaterialID: h.CourseMaterialID,
			MaterialName:     h.MaterialName,
			ChunkText:        truncate(h.Text, snippetByteCap),
			Score:            h.Score,
		}
	}
	return sources, nil
}

func truncate(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
