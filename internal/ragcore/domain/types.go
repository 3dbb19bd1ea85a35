// Package domain holds the data model shared across the RAG core components:
// tenant keys, chunks, documents, conversation memory, chat requests/responses
// and filter specs. None of these types own any I/O; the gateways and engines
// that operate on them live in sibling packages.
package domain

import "time"

// TenantKey partitions the corpus: course_id selects a customer's corpus,
// course_material_id selects one document within it. Both are opaque,
// non-empty strings of at most 50 bytes.
type TenantKey struct {
	CourseID         string
	CourseMaterialID string
}

// Document is an ingested unit. Immutable after ingestion; replaced only via
// delete-then-insert.
type Document struct {
	Tenant       TenantKey
	MaterialName string
	Text         string
	FileSize     int64
	UploadedAt   time.Time
}

// Chunk is one segment of a Document's text together with its embedding and
// payload metadata. ChunkID is a random 128-bit identifier, globally unique.
type Chunk struct {
	ChunkID      string
	Tenant       TenantKey
	MaterialName string
	ChunkIndex   int
	Text         string
	Embedding    []float32
	CreatedAt    time.Time
}

// FilterKind distinguishes the three retrieval filter shapes.
type FilterKind int

const (
	// FilterNone means no metadata constraint: the caller asked for neither
	// course_id nor course_material_id.
	FilterNone FilterKind = iota
	// FilterByCourse constrains retrieval to payload.course_id == CourseID.
	FilterByCourse
	// FilterByMaterial constrains retrieval to payload.course_material_id == CourseMaterialID.
	FilterByMaterial
)

// FilterSpec is the intended metadata constraint on retrieval, derived from a
// ChatRequest at entry. If both course_id and course_material_id are supplied,
// BY_COURSE wins (see NewFilterSpec).
type FilterSpec struct {
	Kind             FilterKind
	CourseID         string
	CourseMaterialID string
}

// NewFilterSpec derives a FilterSpec from the optional course_id/course_material_id
// of a request, applying the course_id-wins tie-break. tieBreakWarning is true iff
// both were supplied (the caller should log a warning in that case).
func NewFilterSpec(courseID, courseMaterialID string) (spec FilterSpec, tieBreakWarning bool) {
	switch {
	case courseID != "" && courseMaterialID != "":
		return FilterSpec{Kind: FilterByCourse, CourseID: courseID}, true
	case courseID != "":
		return FilterSpec{Kind: FilterByCourse, CourseID: courseID}, false
	case courseMaterialID != "":
		return FilterSpec{Kind: FilterByMaterial, CourseMaterialID: courseMaterialID}, false
	default:
		return FilterSpec{Kind: FilterNone}, false
	}
}

// Describe renders the filter_info description specified for chat responses.
// tieBreak reflects whether both ids were originally supplied (course_id wins but
// is annotated "(优先使用)").
func (f FilterSpec) Describe(tieBreak bool) string {
	switch f.Kind {
	case FilterByCourse:
		if tieBreak {
			return "course_id = " + f.CourseID + " (优先使用)"
		}
		return "course_id = " + f.CourseID
	case FilterByMaterial:
		return "course_material_id = " + f.CourseMaterialID
	default:
		return "无过滤条件，搜索全部文档"
	}
}

// Role values for conversation turns.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one message in a conversation's rolling history.
type Turn struct {
	Role    string
	Content string
}

// ConversationMemory is the per-conversation rolling state owned exclusively
// by the Conversation Memory component.
type ConversationMemory struct {
	ConversationID string
	Messages       []Turn
	Summary        string
	TokenEstimate  int
}

// EngineMode is a tagged variant over the two chat orchestration modes. There
// are exactly two; the orchestrator switches on this value rather than
// dispatching through an interface registry.
type EngineMode string

const (
	EngineRetrievalAugmented EngineMode = "RETRIEVAL_AUGMENTED"
	EngineDirect             EngineMode = "DIRECT"
)

// ChatRequest is the input to the Chat Orchestrator.
type ChatRequest struct {
	ConversationID   string
	Question         string
	EngineMode       EngineMode
	CourseID         string
	CourseMaterialID string
	CollectionName   string
}

// Source is one retrieval hit surfaced in a ChatResponse.
type Source struct {
	CourseID         string
	CourseMaterialID string
	MaterialName     string
	ChunkText        string
	Score            float32
}

// ChatResponse is the output of the Chat Orchestrator.
type ChatResponse struct {
	Answer         string
	Sources        []Source
	ConversationID string
	EngineMode     EngineMode
	FilterInfo     string
	ProcessingTime time.Duration
}

// Literal answer strings that are part of the external contract.
const (
	RefusalAnswer  = "检索必须携带过滤条件，不支持无过滤条件检索"
	EmptyHitAnswer = "检索的课程和材料不在数据库中"
)

// GenFailedAnswer formats the friendly generation-failure answer surfaced to
// the caller in place of a raw error when the generator call fails.
func GenFailedAnswer(reason string) string {
	return "抱歉，处理您的问题时出现错误: " + reason
}

// CleanupOperation records the outcome of one cleanup target.
type CleanupOperation struct {
	OperationType string
	Target        string
	Success       bool
	Message       string
}

// CleanupReport aggregates a cleanup run over a tenant key.
type CleanupReport struct {
	Operations         []CleanupOperation
	FilesDeleted       int
	VectorsDeleted     int
	DirectoriesCleaned int
	Success            bool
}
