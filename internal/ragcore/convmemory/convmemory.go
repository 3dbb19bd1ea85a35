// Package convmemory implements the Conversation Memory component: a
// token-bounded rolling chat buffer with summary compaction, persisted
// through the memory store gateway.
package convmemory

import (
	"bytes"
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/generator"
	"github.com/coursewise/ragcore/internal/ragcore/memorystore"
	"github.com/coursewise/ragcore/internal/ragcore/prompts"
)

const (
	defaultTokenLimit  = 4000
	defaultMaxMessages = 20
	defaultTailKeep    = 4
)

// Config carries the compaction thresholds (defaults: token_limit 4000,
// max_messages 20, tail_keep 4).
type Config struct {
	TokenLimit  int
	MaxMessages int
	TailKeep    int
}

// Manager owns one conversation's rolling memory.
type Manager struct {
	store   memorystore.Store
	gen     generator.Generator
	prompts *prompts.Registry
	cfg     Config
}

// New builds a Manager, filling in any zero-valued Config fields with the
// spec defaults.
func New(store memorystore.Store, gen generator.Generator, reg *prompts.Registry, cfg Config) *Manager {
	if cfg.TokenLimit <= 0 {
		cfg.TokenLimit = defaultTokenLimit
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = defaultMaxMessages
	}
	if cfg.TailKeep <= 0 {
		cfg.TailKeep = defaultTailKeep
	}
	return &Manager{store: store, gen: gen, prompts: reg, cfg: cfg}
}

// Open loads a conversation's memory, returning a fresh empty Memory if none
// is stored yet.
func (m *Manager) Open(ctx context.Context, conversationID string) (domain.ConversationMemory, error) {
	mem, ok, err := m.store.Load(ctx, conversationID)
	if err != nil {
		return domain.ConversationMemory{}, err
	}
	if !ok {
		return domain.ConversationMemory{ConversationID: conversationID}, nil
	}
	return mem, nil
}

// AppendTurn appends a user/assistant message pair, compacts if the token
// estimate or message-count cap is exceeded, and persists the result.
func (m *Manager) AppendTurn(ctx context.Context, mem domain.ConversationMemory, userMsg, assistantMsg string) (domain.ConversationMemory, error) {
	mem.Messages = append(mem.Messages,
		domain.Turn{Role: domain.RoleUser, Content: userMsg},
		domain.Turn{Role: domain.RoleAssistant, Content: assistantMsg},
	)
	mem.TokenEstimate = m.estimateTokens(mem)

	if mem.TokenEstimate > m.cfg.TokenLimit || len(mem.Messages) > m.cfg.MaxMessages {
		compacted, err := m.compact(ctx, mem)
		if err != nil {
			return domain.ConversationMemory{}, err
		}
		mem = compacted
	}

	if err := m.store.Overwrite(ctx, mem); err != nil {
		return domain.ConversationMemory{}, err
	}
	return mem, nil
}

// Clear deletes a conversation's stored memory.
func (m *Manager) Clear(ctx context.Context, conversationID string) error {
	return m.store.Delete(ctx, conversationID)
}

// compact summarizes every message except the most recent tail_keep,
// concatenating them with the existing summary (if any) via the summary
// compaction prompt, then replaces M with just the retained tail.
func (m *Manager) compact(ctx context.Context, mem domain.ConversationMemory) (domain.ConversationMemory, error) {
	tailKeep := m.cfg.TailKeep
	if tailKeep > len(mem.Messages) {
		tailKeep = len(mem.Messages)
	}
	toSummarize := mem.Messages[:len(mem.Messages)-tailKeep]
	tail := mem.Messages[len(mem.Messages)-tailKeep:]

	prompt, err := m.prompts.Render(prompts.SummaryCompaction, struct {
		PriorSummary string
		Conversation string
	}{
		PriorSummary: mem.Summary,
		Conversation: formatTurns(toSummarize),
	})
	if err != nil {
		return domain.ConversationMemory{}, err
	}

	summary, err := m.gen.Complete(ctx, []generator.Message{{Role: "user", Content: prompt}}, 0.1)
	if err != nil {
		return domain.ConversationMemory{}, err
	}

	mem.Summary = summary
	mem.Messages = tail
	mem.TokenEstimate = m.estimateTokens(mem)
	return mem, nil
}

// estimateTokens uses a rune-count/4 heuristic: no tokenizer dependency in
// the available library surface fits a lightweight per-message estimate
// this narrowly, so a fixed divisor stands in for a real tokenizer.
func (m *Manager) estimateTokens(mem domain.ConversationMemory) int {
	total := utf8.RuneCountInString(mem.Summary)
	for _, t := range mem.Messages {
		total += utf8.RuneCountInString(t.Content)
	}
	return total / 4
}

func formatTurns(turns []domain.Turn) string {
	var buf bytes.Buffer
	for _, t := range turns {
		fmt.Fprintf(&buf, "%s: %s\n", t.Role, t.Content)
	}
	return buf.String()
}
