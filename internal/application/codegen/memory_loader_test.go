package codegen

import (
	"context"
	"errors"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-code-mother/internal/domain/entity"
)

func TestMemoryLoader_DiscardsNewestAndReplaysInOrder(t *testing.T) {
	history := &fakeHistory{records: historyOf(7,
		"user", "u1",
		"assistant", "a1",
		"user", "u2",
		"assistant", "a2",
		"user", "u3",
	)}
	memory := NewConversationMemory(20)

	loaded := NewMemoryLoader(history).Load(context.Background(), 7, memory, 4)

	assert.Equal(t, 4, loaded)
	assert.Equal(t, 5, history.lastLimit)

	msgs := memory.Messages()
	require.Len(t, msgs, 4)
	want := []struct {
		role    schema.RoleType
		content string
	}{
		{schema.User, "u1"},
		{schema.Assistant, "a1"},
		{schema.User, "u2"},
		{schema.Assistant, "a2"},
	}
	for i, w := range want {
		assert.Equal(t, w.role, msgs[i].Role, "message %d", i)
		assert.Equal(t, w.content, msgs[i].Content, "message %d", i)
	}
}

func TestMemoryLoader_SkipsUnknownTypesAndAcceptsLegacyAI(t *testing.T) {
	history := &fakeHistory{records: historyOf(1,
		"user", "hello",
		"ai", "legacy reply",
		"system", "ignored",
		"tool", "ignored too",
		"user", "current",
	)}
	memory := NewConversationMemory(20)

	loaded := NewMemoryLoader(history).Load(context.Background(), 1, memory, 20)

	assert.Equal(t, 2, loaded)
	msgs := memory.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.User, msgs[0].Role)
	assert.Equal(t, schema.Assistant, msgs[1].Role)
	assert.Equal(t, "legacy reply", msgs[1].Content)
}

func TestMemoryLoader_ClearsExistingMemory(t *testing.T) {
	history := &fakeHistory{records: historyOf(1, "user", "old", "assistant", "reply", "user", "current")}
	memory := NewConversationMemory(20)
	memory.Add(schema.UserMessage("stale"))

	loaded := NewMemoryLoader(history).Load(context.Background(), 1, memory, 20)

	assert.Equal(t, 2, loaded)
	assert.Equal(t, "old", memory.Messages()[0].Content)
}

func TestMemoryLoader_OnlyCurrentMessage(t *testing.T) {
	history := &fakeHistory{records: historyOf(1, "user", "current")}
	memory := NewConversationMemory(20)

	assert.Equal(t, 0, NewMemoryLoader(history).Load(context.Background(), 1, memory, 20))
	assert.Zero(t, memory.Len())
}

func TestMemoryLoader_FetchErrorIsSwallowed(t *testing.T) {
	history := &fakeHistory{err: errors.New("connection refused")}
	memory := NewConversationMemory(20)
	memory.Add(schema.UserMessage("kept"))

	loaded := NewMemoryLoader(history).Load(context.Background(), 1, memory, 20)

	assert.Equal(t, 0, loaded)
	assert.Equal(t, 1, memory.Len())
}

type panickingHistory struct{}

func (panickingHistory) FetchRecent(context.Context, int64, int) ([]*entity.ChatHistory, error) {
	panic("boom")
}

func TestMemoryLoader_PanicIsRecovered(t *testing.T) {
	memory := NewConversationMemory(20)
	loaded := NewMemoryLoader(panickingHistory{}).Load(context.Background(), 1, memory, 20)
	assert.Equal(t, 0, loaded)
}

func TestConversationMemory_Window(t *testing.T) {
	memory := NewConversationMemory(3)
	for _, c := range []string{"1", "2", "3", "4"} {
		memory.Add(schema.UserMessage(c))
	}
	msgs := memory.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "2", msgs[0].Content)
	assert.Equal(t, "4", msgs[2].Content)
}

func TestConversationMemory_DropsOrphanToolResults(t *testing.T) {
	memory := NewConversationMemory(2)
	memory.Add(schema.AssistantMessage("", []schema.ToolCall{{ID: "call-1"}}))
	memory.Add(schema.ToolMessage("ok", "call-1"))
	memory.Add(schema.AssistantMessage("done", nil))

	msgs := memory.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "done", msgs[0].Content)
}
