// Package indexing implements the Indexing Engine: turning one document
// into chunks, embedding them, and upserting them into the vector store
// under a single (course_id, course_material_id) tenant key.
package indexing

import (
	"context"
	"fmt"
	"time"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/chunker"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/embedder"
	"github.com/coursewise/ragcore/internal/ragcore/vectorstore"
	"github.com/google/uuid"
)

// Engine splits, embeds, and upserts one document's chunks.
type Engine struct {
	store vectorstore.Store
	embed embedder.Embedder
	chunk chunker.Chunker
}

// New builds an Engine from its three collaborators.
func New(store vectorstore.Store, embed embedder.Embedder, chunk chunker.Chunker) *Engine {
	return &Engine{store: store, embed: embed, chunk: chunk}
}

// Result reports what build_index did.
type Result struct {
	ChunksIndexed int
}

// BuildIndex splits doc.Text, embeds every chunk, and upserts them into
// collection under doc.Tenant, replacing any chunks already indexed for that
// course_material_id. Uniqueness is enforced here, at indexing time, by
// deleting every existing chunk whose course_material_id matches, whatever
// its course_id, before the new upsert (rather than relying on the store to dedupe)
// so a single course_material_id is never indexed twice in the same
// collection.
func (e *Engine) BuildIndex(ctx context.Context, collection string, doc domain.Document) (Result, error) {
	if doc.Tenant.CourseID == "" || doc.Tenant.CourseMaterialID == "" {
		return Result{}, errors.NewInvariantViolationError("indexing: course_id and course_material_id are required")
	}

	if err := e.store.EnsureCollection(ctx, collection); err != nil {
		return Result{}, err
	}

	texts, err := e.chunk.Split(doc.Text)
	if err != nil {
		return Result{}, errors.NewEmbedFailedError(fmt.Sprintf("indexing: split document: %v", err))
	}
	if len(texts) == 0 {
		return Result{}, nil
	}

	vectors, err := e.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return Result{}, err
	}
	if len(vectors) != len(texts) {
		return Result{}, errors.NewInvariantViolationError("indexing: embedder returned mismatched vector count")
	}

	now := time.Now()
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			ChunkID:      uuid.NewString(),
			Tenant:       doc.Tenant,
			MaterialName: doc.MaterialName,
			ChunkIndex:   i,
			Text:         text,
			Embedding:    vectors[i],
			CreatedAt:    now,
		}
	}

	existingFilter := domain.FilterSpec{Kind: domain.FilterByMaterial, CourseMaterialID: doc.Tenant.CourseMaterialID}
	if _, err := e.store.DeleteByFilter(ctx, collection, existingFilter); err != nil {
		return Result{}, err
	}

	if err := e.store.Upsert(ctx, collection, chunks); err != nil {
		return Result{}, err
	}

	return Result{ChunksIndexed: len(chunks)}, nil
}
