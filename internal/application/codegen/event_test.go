package codegen

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamEvent_FirstToolCallKeepsIndex(t *testing.T) {
	ev, ok := (&AgentEvent{
		Kind:     AgentPartialToolCall,
		ToolCall: &ToolCallDelta{Index: 0, ID: "call-1", Name: "writeFile", ArgumentsDelta: `{"rel`},
	}).toStreamEvent()
	require.True(t, ok)

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"tool_call_partial","index":0,"id":"call-1","name":"writeFile","arguments":"{\"rel"}`, string(b))

	b, err = json.Marshal(TextChunk("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"text_chunk","data":"hi"}`, string(b))
}

func TestStreamEvent_ToStreamEvent(t *testing.T) {
	_, ok := (&AgentEvent{Kind: AgentPartialToolCall}).toStreamEvent()
	assert.False(t, ok)
	_, ok = (&AgentEvent{Kind: AgentToolExecuted}).toStreamEvent()
	assert.False(t, ok)

	ev, ok := (&AgentEvent{Kind: AgentPartialResponse, Text: "hi"}).toStreamEvent()
	require.True(t, ok)
	assert.Equal(t, TextChunk("hi"), ev)
	assert.False(t, ev.Terminal())
	assert.True(t, Done().Terminal())
}
