package handler

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/coursewise/ragcore/internal/config"
	"github.com/coursewise/ragcore/internal/lock"
	"github.com/coursewise/ragcore/internal/middleware"
	"github.com/coursewise/ragcore/internal/ragcore/cleanup"
	"github.com/coursewise/ragcore/internal/ragcore/convmemory"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/generator"
	"github.com/coursewise/ragcore/internal/ragcore/indexing"
	"github.com/coursewise/ragcore/internal/ragcore/memorystore"
	"github.com/coursewise/ragcore/internal/ragcore/orchestrator"
	"github.com/coursewise/ragcore/internal/ragcore/prompts"
	"github.com/coursewise/ragcore/internal/ragcore/retrieval"
	"github.com/coursewise/ragcore/internal/ragcore/vectorstore"
	"github.com/coursewise/ragcore/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	return r
}

// fakeVectorStore is a map-backed vectorstore.Store used across handler tests.
type fakeVectorStore struct {
	collections   []string
	upserted      []domain.Chunk
	hits          []vectorstore.ScoredPoint
	deleteReturns int
	counts        map[string]int
}

var _ vectorstore.Store = (*fakeVectorStore)(nil)

func (f *fakeVectorStore) EnsureCollection(ctx context.Context, collection string) error {
	f.collections = append(f.collections, collection)
	return nil
}
func (f *fakeVectorStore) DeleteCollection(ctx context.Context, collection string) error { return nil }
func (f *fakeVectorStore) ListCollections(ctx context.Context) ([]string, error) {
	return f.collections, nil
}
func (f *fakeVectorStore) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	f.upserted = append(f.upserted, chunks...)
	return nil
}
func (f *fakeVectorStore) Search(ctx context.Context, collection string, vector []float32, filter domain.FilterSpec, topK int) ([]vectorstore.ScoredPoint, error) {
	return f.hits, nil
}
func (f *fakeVectorStore) DeleteByFilter(ctx context.Context, collection string, filter domain.FilterSpec) (int, error) {
	return f.deleteReturns, nil
}
func (f *fakeVectorStore) Count(ctx context.Context, collection string, filter domain.FilterSpec) (int, error) {
	if f.counts == nil {
		return 0, nil
	}
	return f.counts[collection], nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2}, nil
}
func (fakeEmbedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{0.1, 0.2}
	}
	return out, nil
}
func (fakeEmbedder) GetModelName() string { return "fake" }
func (fakeEmbedder) GetDimensions() int   { return 2 }

type fakeGenerator struct {
	answer string
}

func (g fakeGenerator) Complete(ctx context.Context, messages []generator.Message, temperature float64) (string, error) {
	return g.answer, nil
}

type fakeChunker struct{}

func (fakeChunker) Split(text string) ([]string, error) {
	if text == "" {
		return nil, nil
	}
	return []string{text}, nil
}

type fakeMemoryStore struct {
	records map[string]domain.ConversationMemory
}

var _ memorystore.Store = (*fakeMemoryStore)(nil)

func newFakeMemoryStore() *fakeMemoryStore {
	return &fakeMemoryStore{records: map[string]domain.ConversationMemory{}}
}
func (f *fakeMemoryStore) Load(ctx context.Context, id string) (domain.ConversationMemory, bool, error) {
	mem, ok := f.records[id]
	return mem, ok, nil
}
func (f *fakeMemoryStore) Overwrite(ctx context.Context, mem domain.ConversationMemory) error {
	f.records[mem.ConversationID] = mem
	return nil
}
func (f *fakeMemoryStore) Delete(ctx context.Context, id string) error {
	delete(f.records, id)
	return nil
}

// newTestServices builds a Services struct wired entirely with in-memory
// fakes, suitable for exercising handlers end-to-end through gin.
func newTestServices(t *testing.T, vs *fakeVectorStore, ms *fakeMemoryStore, gen fakeGenerator) *services.Services {
	t.Helper()

	reg, err := prompts.Load(prompts.Source{})
	require.NoError(t, err)

	retr := retrieval.New(vs, fakeEmbedder{}, 5)
	convMem := convmemory.New(ms, gen, reg, convmemory.Config{})
	orch := orchestrator.New(retr, gen, convMem, reg)

	return &services.Services{
		Config: &config.Config{
			Qdrant: &config.QdrantConfig{DefaultCollection: "course_materials"},
		},
		VectorStore:       vs,
		MemoryStore:       ms,
		Embedder:          fakeEmbedder{},
		Generator:         gen,
		Prompts:           reg,
		Indexing:          indexing.New(vs, fakeEmbedder{}, fakeChunker{}),
		Retrieval:         retr,
		ConvMemory:        convMem,
		Orchestrator:      orch,
		Cleanup:           cleanup.New(vs, ms, t.TempDir()),
		ConversationLocks: lock.New(),
		TenantLocks:       lock.New(),
	}
}

func httpRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}
