package codegen

// EventKind 下游事件类型，同时作为 SSE 事件名
type EventKind string

const (
	EventTextChunk        EventKind = "text_chunk"
	EventToolCallPartial  EventKind = "tool_call_partial"
	EventToolCallExecuted EventKind = "tool_call_executed"
	EventError            EventKind = "error"
	EventDone             EventKind = "done"
)

// StreamEvent 下游流事件
//
// 每条流恰好以一个 error 或 done 事件结束；消费方取消时流直接关闭，不再发送终止事件。
type StreamEvent struct {
	Kind EventKind `json:"type"`

	// Payload 文本片段（text_chunk）
	Payload string `json:"data,omitempty"`

	// Index 仅 tool_call_partial 携带，首个调用为 0
	Index *int `json:"index,omitempty"`

	// 工具调用相关字段（tool_call_partial / tool_call_executed）
	ToolCallID string `json:"id,omitempty"`
	Name       string `json:"name,omitempty"`
	Arguments  string `json:"arguments,omitempty"`
	Result     string `json:"result,omitempty"`

	// Message 错误描述（error）
	Message string `json:"message,omitempty"`
}

// TextChunk 文本片段事件
func TextChunk(payload string) StreamEvent {
	return StreamEvent{Kind: EventTextChunk, Payload: payload}
}

// ToolCallPartial 工具调用参数增量事件
func ToolCallPartial(index int, id, name, partialArguments string) StreamEvent {
	return StreamEvent{Kind: EventToolCallPartial, Index: &index, ToolCallID: id, Name: name, Arguments: partialArguments}
}

// ToolCallExecuted 工具执行完成事件
func ToolCallExecuted(id, name, arguments, result string) StreamEvent {
	return StreamEvent{Kind: EventToolCallExecuted, ToolCallID: id, Name: name, Arguments: arguments, Result: result}
}

// ErrorEvent 错误终止事件
func ErrorEvent(message string) StreamEvent {
	return StreamEvent{Kind: EventError, Message: message}
}

// Done 正常结束事件
func Done() StreamEvent {
	return StreamEvent{Kind: EventDone}
}

// Terminal 是否为终止事件
func (e StreamEvent) Terminal() bool {
	return e.Kind == EventError || e.Kind == EventDone
}

// AgentEventKind 上游结构化事件类型
type AgentEventKind string

const (
	AgentPartialResponse AgentEventKind = "partial_response"
	AgentPartialToolCall AgentEventKind = "partial_tool_call"
	AgentToolExecuted    AgentEventKind = "tool_executed"
)

// AgentEvent 工程模式下 AI 服务产出的结构化事件
type AgentEvent struct {
	Kind AgentEventKind

	// Text 模型输出的文本增量
	Text string

	// ToolCall 工具调用增量，按 Index 归属同一次调用
	ToolCall *ToolCallDelta

	// Execution 工具执行结果
	Execution *ToolExecution
}

// ToolCallDelta 工具调用参数增量
type ToolCallDelta struct {
	Index          int
	ID             string
	Name           string
	ArgumentsDelta string
}

// ToolExecution 一次工具执行
type ToolExecution struct {
	ID        string
	Name      string
	Arguments string
	Result    string
}

// toStreamEvent 将上游事件映射为下游事件
func (e *AgentEvent) toStreamEvent() (StreamEvent, bool) {
	switch e.Kind {
	case AgentPartialResponse:
		return TextChunk(e.Text), true
	case AgentPartialToolCall:
		if e.ToolCall == nil {
			return StreamEvent{}, false
		}
		return ToolCallPartial(e.ToolCall.Index, e.ToolCall.ID, e.ToolCall.Name, e.ToolCall.ArgumentsDelta), true
	case AgentToolExecuted:
		if e.Execution == nil {
			return StreamEvent{}, false
		}
		x := e.Execution
		return ToolCallExecuted(x.ID, x.Name, x.Arguments, x.Result), true
	default:
		return StreamEvent{}, false
	}
}
