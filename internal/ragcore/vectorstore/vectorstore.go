// Package vectorstore implements the Vector Store Gateway: a thin,
// tenant-aware wrapper over Qdrant collections. Every operation translates a
// domain.FilterSpec into Qdrant's native filter grammar rather than leaking
// Qdrant types to callers.
package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/qdrant/go-client/qdrant"
)

const (
	payloadCourseID         = "course_id"
	payloadCourseMaterialID = "course_material_id"
	payloadMaterialName     = "material_name"
	payloadChunkIndex       = "chunk_index"
	payloadText             = "text"
	payloadCreatedAt        = "created_at"
)

// Config configures a Store.
type Config struct {
	Host            string
	Port            int
	PreferGRPC      bool
	APIKey          string
	Timeout         time.Duration
	VectorDimension int
}

// Store is a tenant-aware wrapper over vector collections.
type Store interface {
	EnsureCollection(ctx context.Context, collection string) error
	DeleteCollection(ctx context.Context, collection string) error
	ListCollections(ctx context.Context) ([]string, error)
	Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error
	Search(ctx context.Context, collection string, vector []float32, filter domain.FilterSpec, topK int) ([]ScoredPoint, error)
	DeleteByFilter(ctx context.Context, collection string, filter domain.FilterSpec) (int, error)
	Count(ctx context.Context, collection string, filter domain.FilterSpec) (int, error)
}

// ScoredPoint is a single search hit; retrieval.go converts these into
// domain.Source records, attaching material names and truncated text.
type ScoredPoint struct {
	ChunkID          string
	CourseID         string
	CourseMaterialID string
	MaterialName     string
	Text             string
	Score            float32
}

// QdrantStore implements Store against a real Qdrant deployment.
type QdrantStore struct {
	client     *qdrant.Client
	dimensions int
}

// New builds a QdrantStore. Mirrors the construction pattern used elsewhere
// in this codebase for other remote-API clients: build the client once at
// startup, skip the SDK's version compatibility probe since this service
// pins both sides independently.
func New(cfg Config) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:                   cfg.Host,
		Port:                   cfg.Port,
		APIKey:                 cfg.APIKey,
		UseTLS:                 false,
		SkipCompatibilityCheck: true,
	})
	if err != nil {
		return nil, errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: failed to create qdrant client: %v", err))
	}
	return &QdrantStore{client: client, dimensions: cfg.VectorDimension}, nil
}

// EnsureCollection creates the named collection with cosine-distance vectors
// of the configured dimension if it does not already exist. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context, collection string) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: list collections: %v", err))
	}
	for _, c := range collections {
		if c == collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: create collection %s: %v", collection, err))
	}
	return nil
}

// Close is a no-op: the qdrant-go client has no explicit teardown method,
// its connection is released when the client is garbage collected. Kept as
// a named step so the composition root has a uniform shutdown hook for
// every external client.
func (s *QdrantStore) Close() error {
	return nil
}

// DeleteCollection drops a collection entirely. Treats "collection does not
// exist" as success, matching the idempotent delete semantics the cleanup
// coordinator relies on.
func (s *QdrantStore) DeleteCollection(ctx context.Context, collection string) error {
	if err := s.client.DeleteCollection(ctx, collection); err != nil {
		return errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: delete collection %s: %v", collection, err))
	}
	return nil
}

// ListCollections returns every collection name known to the store.
func (s *QdrantStore) ListCollections(ctx context.Context) ([]string, error) {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: list collections: %v", err))
	}
	return collections, nil
}

// Upsert writes chunks as points, one point per chunk, keyed by ChunkID.
func (s *QdrantStore) Upsert(ctx context.Context, collection string, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	points := make([]*qdrant.PointStruct, len(chunks))
	for i, c := range chunks {
		points[i] = &qdrant.PointStruct{
			Id:      &qdrant.PointId{PointIdOptions: &qdrant.PointId_Uuid{Uuid: c.ChunkID}},
			Vectors: &qdrant.Vectors{VectorsOptions: &qdrant.Vectors_Vector{Vector: &qdrant.Vector{Data: c.Embedding}}},
			Payload: map[string]*qdrant.Value{
				payloadCourseID:         stringValue(c.Tenant.CourseID),
				payloadCourseMaterialID: stringValue(c.Tenant.CourseMaterialID),
				payloadMaterialName:     stringValue(c.MaterialName),
				payloadChunkIndex:       intValue(c.ChunkIndex),
				payloadText:             stringValue(c.Text),
				payloadCreatedAt:        intValue(int(c.CreatedAt.Unix())),
			},
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: upsert into %s: %v", collection, err))
	}
	return nil
}

// Search runs a top-K similarity search constrained by filter.
func (s *QdrantStore) Search(ctx context.Context, collection string, vector []float32, filter domain.FilterSpec, topK int) ([]ScoredPoint, error) {
	if topK <= 0 {
		topK = 6
	}

	result, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         toQdrantFilter(filter),
	})
	if err != nil {
		return nil, errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: search in %s: %v", collection, err))
	}

	hits := make([]ScoredPoint, 0, len(result))
	for _, point := range result {
		payload := point.GetPayload()
		hits = append(hits, ScoredPoint{
			ChunkID:          pointIDToString(point.GetId()),
			CourseID:         stringFromPayload(payload, payloadCourseID),
			CourseMaterialID: stringFromPayload(payload, payloadCourseMaterialID),
			MaterialName:     stringFromPayload(payload, payloadMaterialName),
			Text:             stringFromPayload(payload, payloadText),
			Score:            point.GetScore(),
		})
	}
	return hits, nil
}

// DeleteByFilter removes every point matching filter, returning the count of
// points that matched before deletion (so callers can report how many were
// removed). FilterNone is rejected: deleting an entire collection's points
// by "no filter" is not a supported gateway operation; use DeleteCollection.
func (s *QdrantStore) DeleteByFilter(ctx context.Context, collection string, filter domain.FilterSpec) (int, error) {
	if filter.Kind == domain.FilterNone {
		return 0, errors.NewInvariantViolationError("vectorstore: delete_by_filter requires a non-empty filter")
	}

	qf := toQdrantFilter(filter)
	count, err := s.Count(ctx, collection, filter)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}

	_, err = s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{Filter: qf},
		},
	})
	if err != nil {
		return 0, errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: delete by filter in %s: %v", collection, err))
	}
	return count, nil
}

// Count returns the number of points matching filter.
func (s *QdrantStore) Count(ctx context.Context, collection string, filter domain.FilterSpec) (int, error) {
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Filter:         toQdrantFilter(filter),
	})
	if err != nil {
		return 0, errors.NewStoreUnavailableError(fmt.Sprintf("vectorstore: count in %s: %v", collection, err))
	}
	return int(n), nil
}

// toQdrantFilter translates a domain.FilterSpec into Qdrant's native filter
// grammar: NONE -> nil (no constraint), BY_COURSE -> equality on course_id,
// BY_MATERIAL -> equality on course_material_id.
func toQdrantFilter(filter domain.FilterSpec) *qdrant.Filter {
	switch filter.Kind {
	case domain.FilterByCourse:
		return &qdrant.Filter{Must: []*qdrant.Condition{matchKeyword(payloadCourseID, filter.CourseID)}}
	case domain.FilterByMaterial:
		return &qdrant.Filter{Must: []*qdrant.Condition{matchKeyword(payloadCourseMaterialID, filter.CourseMaterialID)}}
	default:
		return nil
	}
}

func matchKeyword(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   key,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func intValue(i int) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(i)}}
}

func stringFromPayload(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func pointIDToString(id *qdrant.PointId) string {
	if uuid := id.GetUuid(); uuid != "" {
		return uuid
	}
	return fmt.Sprintf("%d", id.GetNum())
}
