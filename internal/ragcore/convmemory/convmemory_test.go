package convmemory

import (
	"context"
	"fmt"
	"testing"

	"github.com/coursewise/ragcore/internal/ragcore/domain"
	"github.com/coursewise/ragcore/internal/ragcore/generator"
	"github.com/coursewise/ragcore/internal/ragcore/memorystore"
	"github.com/coursewise/ragcore/internal/ragcore/prompts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ memorystore.Store   = (*fakeStore)(nil)
	_ generator.Generator = (*fakeGenerator)(nil)
)

type fakeStore struct {
	records map[string]domain.ConversationMemory
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]domain.ConversationMemory{}}
}

func (f *fakeStore) Load(ctx context.Context, conversationID string) (domain.ConversationMemory, bool, error) {
	mem, ok := f.records[conversationID]
	return mem, ok, nil
}

func (f *fakeStore) Overwrite(ctx context.Context, mem domain.ConversationMemory) error {
	f.records[mem.ConversationID] = mem
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, conversationID string) error {
	delete(f.records, conversationID)
	return nil
}

type fakeGenerator struct {
	calls      int
	completion string
}

func (f *fakeGenerator) Complete(ctx context.Context, messages []generator.Message, temperature float64) (string, error) {
	f.calls++
	return f.completion, nil
}

func testRegistry(t *testing.T) *prompts.Registry {
	t.Helper()
	reg, err := prompts.Load(prompts.Source{})
	require.NoError(t, err)
	return reg
}

func TestOpen_ReturnsFreshMemoryWhenAbsent(t *testing.T) {
	store := newFakeStore()
	m := New(store, &fakeGenerator{}, testRegistry(t), Config{})

	mem, err := m.Open(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", mem.ConversationID)
	assert.Empty(t, mem.Messages)
}

func TestAppendTurn_PersistsWithoutCompactionUnderLimits(t *testing.T) {
	store := newFakeStore()
	m := New(store, &fakeGenerator{}, testRegistry(t), Config{TokenLimit: 4000, MaxMessages: 20, TailKeep: 4})

	mem, _ := m.Open(context.Background(), "conv-1")
	mem, err := m.AppendTurn(context.Background(), mem, "hello", "hi there")
	require.NoError(t, err)
	assert.Len(t, mem.Messages, 2)
	assert.Empty(t, mem.Summary)

	stored, ok, err := store.Load(context.Background(), "conv-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, stored.Messages, 2)
}

func TestAppendTurn_CompactsWhenMessageCountExceedsLimit(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{completion: "condensed summary"}
	m := New(store, gen, testRegistry(t), Config{TokenLimit: 100000, MaxMessages: 4, TailKeep: 2})

	mem, _ := m.Open(context.Background(), "conv-2")
	for i := 0; i < 5; i++ {
		var err error
		mem, err = m.AppendTurn(context.Background(), mem, fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, len(mem.Messages), 2+2)
	assert.NotEmpty(t, mem.Summary)
	assert.Equal(t, "condensed summary", mem.Summary)
	assert.GreaterOrEqual(t, gen.calls, 1)
}

func TestAppendTurn_CompactsWhenTokenEstimateExceedsLimit(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{completion: "short summary"}
	m := New(store, gen, testRegistry(t), Config{TokenLimit: 10, MaxMessages: 1000, TailKeep: 1})

	mem, _ := m.Open(context.Background(), "conv-3")
	mem, err := m.AppendTurn(context.Background(), mem, "a fairly long question that exceeds the tiny token budget", "a fairly long answer that also exceeds it")
	require.NoError(t, err)

	assert.Equal(t, "short summary", mem.Summary)
	assert.LessOrEqual(t, len(mem.Messages), 1)
}

// TestAppendTurn_TenDirectChatsCompactDownToTailPlusCurrent mirrors a
// DIRECT-mode conversation driven entirely through chat turns: ten rounds of
// ~50-token question/answer pairs against a 200-token budget and a 2-message
// tail, which must compact well before the tenth turn.
func TestAppendTurn_TenDirectChatsCompactDownToTailPlusCurrent(t *testing.T) {
	store := newFakeStore()
	gen := &fakeGenerator{completion: "rolling summary"}
	m := New(store, gen, testRegistry(t), Config{TokenLimit: 200, TailKeep: 2, MaxMessages: 1000})

	fiftyTokenText := func(label string) string {
		word := label + "-word "
		text := ""
		for i := 0; i < 50; i++ {
			text += word
		}
		return text
	}

	mem, err := m.Open(context.Background(), "cv3")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		mem, err = m.AppendTurn(context.Background(), mem,
			fiftyTokenText(fmt.Sprintf("question%d", i)),
			fiftyTokenText(fmt.Sprintf("answer%d", i)))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, len(mem.Messages), 2+2, "tail_keep=2 plus the current turn's two messages")
	assert.NotEmpty(t, mem.Summary)

	stored, ok, err := store.Load(context.Background(), "cv3")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, mem.Summary, stored.Summary)
}

func TestClear_DeletesStoredRecord(t *testing.T) {
	store := newFakeStore()
	m := New(store, &fakeGenerator{}, testRegistry(t), Config{})

	mem, _ := m.Open(context.Background(), "conv-4")
	mem, err := m.AppendTurn(context.Background(), mem, "q", "a")
	require.NoError(t, err)
	_ = mem

	require.NoError(t, m.Clear(context.Background(), "conv-4"))
	_, ok, err := store.Load(context.Background(), "conv-4")
	require.NoError(t, err)
	assert.False(t, ok)
}
