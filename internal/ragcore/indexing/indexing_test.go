package indexing

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/chunker"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/embedder"
	"github.com/coursewise/ragcore/internal/ragcore/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ vectorstore.Store = (*fakeStore)(nil)
	_ embedder.Embedder = (*fakeEmbedder)(nil)
	_ chunker.Chunker   = (*fakeChunker)(nil)
)

type fakeStore struct {
	ensured       []string
	upserted      []domain.Chunk
	deletedFilter []domain.FilterSpec
	deleteReturns int
	upsertErr     error
}

func (f *fakeStore) EnsureCollection(ctx context.Context, collection string) error {
	f.ensured = append(f.ensured, collection)
	return nil
}

func (f *fakeStore) DeleteCollection(ctx context.Context, collection string) error { return nil }

func (f *fakeStore) ListCollections(ctx context.Context) ([]string, error) { return nil, nil }

func (f *fakeStore) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, chunks...)
	return nil
}

func (f *fakeStore) Search(ctx context.Context, collection string, vector []float32, filter domain.FilterSpec, topK int) ([]vectorstore.ScoredPoint, error) {
	return nil, nil
}

func (f *fakeStore) DeleteByFilter(ctx context.Context, collection string, filter domain.FilterSpec) (int, error) {
	f.deletedFilter = append(f.deletedFilter, filter)
	return f.deleteReturns, nil
}

func (f *fakeStore) Count(ctx context.Context, collection string, filter domain.FilterSpec) (int, error) {
	return 0, nil
}

type fakeEmbedder struct {
	dims int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return make([]float32, f.dims), nil
}

func (f *fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = make([]float32, f.dims)
	}
	return out, nil
}

func (f *fakeEmbedder) GetModelName() string { return "fake-model" }
func (f *fakeEmbedder) GetDimensions() int   { return f.dims }

// failingEmbedder mimics the real embedder attaching the failing chunk's
// starting index as the AppError's Details.
type failingEmbedder struct {
	failAtIndex int
}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, apperrors.NewEmbedFailedError("embedder: request failed").WithDetails(f.failAtIndex)
}

func (f *failingEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	return nil, apperrors.NewEmbedFailedError("embedder: request failed").WithDetails(f.failAtIndex)
}

func (f *failingEmbedder) GetModelName() string { return "failing-model" }
func (f *failingEmbedder) GetDimensions() int   { return 0 }

type fakeChunker struct {
	chunks []string
}

func (f *fakeChunker) Split(text string) ([]string, error) {
	return f.chunks, nil
}

func TestBuildIndex_RequiresTenantKey(t *testing.T) {
	eng := New(&fakeStore{}, &fakeEmbedder{dims: 4}, &fakeChunker{chunks: []string{"a"}})
	_, err := eng.BuildIndex(context.Background(), "collection", domain.Document{})
	require.Error(t, err)
}

func TestBuildIndex_SplitsEmbedsAndUpserts(t *testing.T) {
	store := &fakeStore{deleteReturns: 3}
	eng := New(store, &fakeEmbedder{dims: 4}, &fakeChunker{chunks: []string{"chunk one", "chunk two"}})

	doc := domain.Document{
		Tenant:       domain.TenantKey{CourseID: "course-1", CourseMaterialID: "material-1"},
		MaterialName: "lecture.pdf",
		Text:         "irrelevant, chunker is faked",
		UploadedAt:   time.Now(),
	}

	result, err := eng.BuildIndex(context.Background(), "collection-a", doc)
	require.NoError(t, err)
	assert.Equal(t, 2, result.ChunksIndexed)

	assert.Equal(t, []string{"collection-a"}, store.ensured)
	require.Len(t, store.deletedFilter, 1)
	assert.Equal(t, domain.FilterByMaterial, store.deletedFilter[0].Kind)
	assert.Equal(t, "material-1", store.deletedFilter[0].CourseMaterialID)

	require.Len(t, store.upserted, 2)
	for i, c := range store.upserted {
		assert.Equal(t, doc.Tenant, c.Tenant)
		assert.Equal(t, "lecture.pdf", c.MaterialName)
		assert.Equal(t, i, c.ChunkIndex)
		assert.Len(t, c.Embedding, 4)
		assert.NotEmpty(t, c.ChunkID)
	}
}

func TestBuildIndex_EmbedFailurePropagatesChunkIndex(t *testing.T) {
	store := &fakeStore{}
	eng := New(store, &failingEmbedder{failAtIndex: 2}, &fakeChunker{chunks: []string{"a", "b", "c"}})

	doc := domain.Document{Tenant: domain.TenantKey{CourseID: "c", CourseMaterialID: "m"}}
	_, err := eng.BuildIndex(context.Background(), "collection", doc)
	require.Error(t, err)

	appErr, ok := apperrors.IsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrEmbedFailed, appErr.Code)
	assert.Equal(t, 2, appErr.Details)
	assert.Empty(t, store.upserted)
}

func TestBuildIndex_NoChunksIsANoop(t *testing.T) {
	store := &fakeStore{}
	eng := New(store, &fakeEmbedder{dims: 4}, &fakeChunker{chunks: nil})

	doc := domain.Document{Tenant: domain.TenantKey{CourseID: "c", CourseMaterialID: "m"}}
	result, err := eng.BuildIndex(context.Background(), "collection", doc)
	require.NoError(t, err)
	assert.Equal(t, 0, result.ChunksIndexed)
	assert.Empty(t, store.upserted)
	assert.Empty(t, store.deletedFilter)
}
