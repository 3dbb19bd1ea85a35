// Package orchestrator implements the Chat Orchestrator: the two
// engine-mode state machines (RETRIEVAL_AUGMENTED and DIRECT) that tie
// together retrieval, generation, and conversation memory for one chat turn.
//
// EngineMode is a plain string enum with exactly two values; dispatch below
// is a switch, not an interface registry — a third mode is added by adding a
// case, not by implementing a new type.
package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/coursewise/ragcore/internal/errors"
	"github.com/coursewise/ragcore/internal/ragcore/convmemory"
	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/generator"
	"github.com/coursewise/ragcore/internal/ragcore/prompts"
	"github.com/coursewise/ragcore/internal/ragcore/retrieval"
)

// Orchestrator ties retrieval, generation, and conversation memory together.
type Orchestrator struct {
	retrieval *retrieval.Engine
	generator generator.Generator
	memory    *convmemory.Manager
	prompts   *prompts.Registry
}

// New builds an Orchestrator from its collaborators.
func New(retr *retrieval.Engine, gen generator.Generator, mem *convmemory.Manager, reg *prompts.Registry) *Orchestrator {
	return &Orchestrator{retrieval: retr, generator: gen, memory: mem, prompts: reg}
}

// Chat runs one chat turn end to end.
func (o *Orchestrator) Chat(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	start := time.Now()

	if req.ConversationID == "" || req.Question == "" {
		return domain.ChatResponse{}, errors.NewBadRequestError("conversation_id and question are required")
	}

	filter, tieBreak := domain.NewFilterSpec(req.CourseID, req.CourseMaterialID)
	filterInfo := filter.Describe(tieBreak)

	mem, err := o.memory.Open(ctx, req.ConversationID)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	var resp domain.ChatResponse
	switch req.EngineMode {
	case domain.EngineDirect:
		resp, err = o.direct(ctx, req, mem, filterInfo)
	default:
		resp, err = o.retrievalAugmented(ctx, req, mem, filter, filterInfo)
	}
	if err != nil {
		return domain.ChatResponse{}, err
	}

	resp.ConversationID = req.ConversationID
	resp.EngineMode = req.EngineMode
	resp.ProcessingTime = time.Since(start)
	return resp, nil
}

// retrievalAugmented runs PARSED -> FILTER_CHECK -> (REFUSED | RETRIEVING) ->
// (EMPTY | ANSWERING) -> PERSISTED.
func (o *Orchestrator) retrievalAugmented(ctx context.Context, req domain.ChatRequest, mem domain.ConversationMemory, filter domain.FilterSpec, filterInfo string) (domain.ChatResponse, error) {
	// FILTER_CHECK -> REFUSED
	if filter.Kind == domain.FilterNone {
		return domain.ChatResponse{
			Answer:     domain.RefusalAnswer,
			Sources:    nil,
			FilterInfo: domain.RefusalAnswer,
		}, nil
	}

	// FILTER_CHECK -> RETRIEVING
	collection := req.CollectionName
	sources, err := o.retrieval.Retrieve(ctx, collection, req.Question, filter)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	// RETRIEVING -> EMPTY
	if len(sources) == 0 {
		return domain.ChatResponse{
			Answer:     domain.EmptyHitAnswer,
			Sources:    nil,
			FilterInfo: domain.EmptyHitAnswer,
		}, nil
	}

	// RETRIEVING -> ANSWERING
	chatHistory := formatHistory(mem)
	condensePrompt, err := o.prompts.Render(prompts.CondenseQuestion, struct {
		ChatHistory string
		Question    string
	}{ChatHistory: chatHistory, Question: req.Question})
	if err != nil {
		return domain.ChatResponse{}, err
	}

	if _, genErr := o.generator.Complete(ctx, []generator.Message{{Role: "user", Content: condensePrompt}}, 0.1); genErr != nil {
		return domain.ChatResponse{Answer: friendlyGenFailure(genErr), FilterInfo: filterInfo}, nil
	}

	contextStr := buildContext(sources)
	answerPrompt, err := o.prompts.Render(prompts.ContextIntegration, struct {
		Context  string
		Question string
	}{Context: contextStr, Question: req.Question})
	if err != nil {
		return domain.ChatResponse{}, err
	}

	answer, genErr := o.generator.Complete(ctx, []generator.Message{{Role: "user", Content: answerPrompt}}, 0.1)
	if genErr != nil {
		return domain.ChatResponse{Answer: friendlyGenFailure(genErr), FilterInfo: filterInfo}, nil
	}

	// PERSISTED
	if _, err := o.memory.AppendTurn(ctx, mem, req.Question, answer); err != nil {
		return domain.ChatResponse{}, err
	}

	return domain.ChatResponse{
		Answer:     answer,
		Sources:    sources,
		FilterInfo: filterInfo,
	}, nil
}

// direct runs PARSED -> GENERATING -> PERSISTED.
func (o *Orchestrator) direct(ctx context.Context, req domain.ChatRequest, mem domain.ConversationMemory, filterInfo string) (domain.ChatResponse, error) {
	systemPrompt, err := o.prompts.Render(prompts.SimpleSystem, nil)
	if err != nil {
		return domain.ChatResponse{}, err
	}

	messages := make([]generator.Message, 0, len(mem.Messages)+2)
	messages = append(messages, generator.Message{Role: "system", Content: systemPrompt})
	for _, t := range mem.Messages {
		messages = append(messages, generator.Message{Role: t.Role, Content: t.Content})
	}
	messages = append(messages, generator.Message{Role: domain.RoleUser, Content: req.Question})

	answer, genErr := o.generator.Complete(ctx, messages, 0.1)
	if genErr != nil {
		return domain.ChatResponse{Answer: friendlyGenFailure(genErr), FilterInfo: filterInfo}, nil
	}

	if _, err := o.memory.AppendTurn(ctx, mem, req.Question, answer); err != nil {
		return domain.ChatResponse{}, err
	}

	return domain.ChatResponse{
		Answer:     answer,
		Sources:    []domain.Source{},
		FilterInfo: filterInfo,
	}, nil
}

func formatHistory(mem domain.ConversationMemory) string {
	var buf bytes.Buffer
	if mem.Summary != "" {
		buf.WriteString(mem.Summary)
		buf.WriteString("\n")
	}
	for _, t := range mem.Messages {
		fmt.Fprintf(&buf, "%s: %s\n", t.Role, t.Content)
	}
	return buf.String()
}

func buildContext(sources []domain.Source) string {
	var buf bytes.Buffer
	for _, s := range sources {
		buf.WriteString(s.ChunkText)
		buf.WriteString("\n---\n")
	}
	return buf.String()
}

// friendlyGenFailure turns a GEN_FAILED error into the friendly answer text
// rather than propagating it as an HTTP error.
func friendlyGenFailure(err error) string {
	if appErr, ok := errors.IsAppError(err); ok {
		return domain.GenFailedAnswer(appErr.Message)
	}
	return domain.GenFailedAnswer(err.Error())
}
