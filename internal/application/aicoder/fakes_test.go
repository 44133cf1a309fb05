package aicoder

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"ai-code-mother/internal/workflow/prompt"
)

// fakeRound 一次 Stream 调用的脚本：依次输出 chunks，最后可选地返回 err
type fakeRound struct {
	chunks []*schema.Message
	err    error
}

// fakeChatModel 按脚本回放流式输出，并记录每次调用的输入
type fakeChatModel struct {
	mu     sync.Mutex
	rounds []fakeRound
	inputs [][]*schema.Message
	tools  []*schema.ToolInfo
	err    error
}

func (m *fakeChatModel) Generate(context.Context, []*schema.Message, ...model.Option) (*schema.Message, error) {
	return nil, errors.New("generate is not used")
}

func (m *fakeChatModel) Stream(_ context.Context, in []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inputs = append(m.inputs, append([]*schema.Message(nil), in...))
	if m.err != nil {
		return nil, m.err
	}
	if len(m.rounds) == 0 {
		return nil, errors.New("no scripted round left")
	}
	round := m.rounds[0]
	m.rounds = m.rounds[1:]

	sr, sw := schema.Pipe[*schema.Message](len(round.chunks) + 1)
	go func() {
		defer sw.Close()
		for _, c := range round.chunks {
			if closed := sw.Send(c, nil); closed {
				return
			}
		}
		if round.err != nil {
			sw.Send(nil, round.err)
		}
	}()
	return sr, nil
}

func (m *fakeChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	m.mu.Lock()
	m.tools = tools
	m.mu.Unlock()
	return m, nil
}

func (m *fakeChatModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.inputs)
}

func (m *fakeChatModel) input(i int) []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inputs[i]
}

type fakeFactory struct {
	model     *fakeChatModel
	err       error
	requested []string
}

func (f *fakeFactory) Get(_ context.Context, name string) (model.ToolCallingChatModel, error) {
	f.requested = append(f.requested, name)
	if f.err != nil {
		return nil, f.err
	}
	return f.model, nil
}

func (f *fakeFactory) Resolve(name string) string {
	if name == "" {
		return "default"
	}
	return name
}

func newTestBuilder(root string, chat *fakeChatModel, maxRounds int) (*Builder, *fakeFactory) {
	factory := &fakeFactory{model: chat}
	return NewBuilder(factory, prompt.NewRegistry(), Options{
		OutputRoot:      root,
		ProjectProvider: "reasoning",
		MaxToolRounds:   maxRounds,
	}), factory
}

func assistantChunk(content string) *schema.Message {
	return schema.AssistantMessage(content, nil)
}

func toolCallChunk(index int, id, name, args string) *schema.Message {
	i := index
	return schema.AssistantMessage("", []schema.ToolCall{{
		Index:    &i,
		ID:       id,
		Function: schema.FunctionCall{Name: name, Arguments: args},
	}})
}

func collect[T any](t *testing.T, sr *schema.StreamReader[T]) ([]T, error) {
	t.Helper()
	defer sr.Close()
	var out []T
	for {
		v, err := sr.Recv()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
}

func requireNoStreamError[T any](t *testing.T, sr *schema.StreamReader[T]) []T {
	t.Helper()
	out, err := collect(t, sr)
	require.NoError(t, err)
	return out
}
