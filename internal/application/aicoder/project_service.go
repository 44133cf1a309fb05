package aicoder

import (
	"context"
	"errors"
	"io"

	"github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/service"
	"ai-code-mother/internal/workflow/prompt"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// DefaultMaxToolRounds 单次生成允许的最大工具调用轮数
const DefaultMaxToolRounds = 20

const cancelledToolResult = "Error: tool call cancelled before execution"

// projectService 工程模式的 AI 服务：流式工具调用循环
type projectService struct {
	key       codegen.SessionKey
	provider  string
	chat      model.BaseChatModel // 已绑定工具
	template  einoprompt.ChatTemplate
	memory    *codegen.ConversationMemory
	tools     *ToolRegistry
	maxRounds int
}

// StreamAgent 运行工具调用循环，以结构化事件流输出
//
// 每一轮把模型的文本与工具调用增量实时转发，本轮结束后依次执行工具并回填结果。
// 模型不再调用工具、调用 exit 或达到轮数上限时结束。
func (s *projectService) StreamAgent(ctx context.Context, message string) (*schema.StreamReader[*codegen.AgentEvent], error) {
	if err := CheckInput(message); err != nil {
		return nil, err
	}

	messages, err := s.template.Format(ctx, prompt.Variables(s.memory.Messages(), message))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to render prompt")
	}
	s.memory.Add(schema.UserMessage(message))

	sr, sw := schema.Pipe[*codegen.AgentEvent](16)
	go s.run(service.WithModeProvider(ctx, s.key.Mode.String(), s.provider), messages, sw)
	return sr, nil
}

func (s *projectService) run(ctx context.Context, messages []*schema.Message, sw *schema.StreamWriter[*codegen.AgentEvent]) {
	defer sw.Close()
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "agent loop panicked", nil, "panic", r, "session", s.key.String())
			sw.Send(nil, apperrors.New(apperrors.CodeGenerationFailed, "生成过程发生内部错误"))
		}
	}()

	for round := 1; round <= s.maxRounds; round++ {
		reply, closed, err := s.streamRound(ctx, messages, sw)
		if closed || err != nil {
			s.memory.Add(schema.AssistantMessage(interruptedReply, nil))
			if err != nil {
				sw.Send(nil, err)
			}
			return
		}

		messages = append(messages, reply)
		if len(reply.ToolCalls) == 0 {
			s.memory.Add(reply)
			logger.Debug(ctx, "agent loop finished", "session", s.key.String(), "rounds", round)
			return
		}

		results, exit, stopped := s.invokeTools(ctx, reply.ToolCalls, sw)
		s.commitRound(reply, results)
		if stopped {
			return
		}
		messages = append(messages, results...)
		if exit {
			logger.Debug(ctx, "agent loop exited by tool", "session", s.key.String(), "rounds", round)
			return
		}
	}

	logger.Warn(ctx, "agent loop hit max tool rounds", "session", s.key.String(), "max_rounds", s.maxRounds)
	sw.Send(nil, apperrors.Newf(apperrors.CodeGenerationFailed, "工具调用次数超过上限 %d", s.maxRounds))
}

// invokeTools 依次执行本轮的工具调用；取消或下游关闭时 stopped 为 true，
// 此时 results 只包含已执行的调用
func (s *projectService) invokeTools(ctx context.Context, calls []schema.ToolCall, sw *schema.StreamWriter[*codegen.AgentEvent]) (results []*schema.Message, exit, stopped bool) {
	for _, call := range calls {
		if ctx.Err() != nil {
			return results, exit, true
		}
		result, isExit := s.tools.Invoke(ctx, call.Function.Name, call.Function.Arguments)
		results = append(results, schema.ToolMessage(result, call.ID))
		exit = exit || isExit

		event := &codegen.AgentEvent{
			Kind: codegen.AgentToolExecuted,
			Execution: &codegen.ToolExecution{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
				Result:    result,
			},
		}
		if closed := sw.Send(event, nil); closed {
			return results, exit, true
		}
	}
	return results, exit, false
}

// commitRound 将助手回复与它的全部工具结果一起写入 memory。
// 未执行的调用补一条取消结果，保证每个 tool call 都有对应的 tool 消息。
func (s *projectService) commitRound(reply *schema.Message, results []*schema.Message) {
	s.memory.Add(reply)
	for i, call := range reply.ToolCalls {
		if i < len(results) {
			s.memory.Add(results[i])
			continue
		}
		s.memory.Add(schema.ToolMessage(cancelledToolResult, call.ID))
	}
}

// streamRound 执行一轮模型调用，返回合并后的完整回复
func (s *projectService) streamRound(ctx context.Context, messages []*schema.Message, sw *schema.StreamWriter[*codegen.AgentEvent]) (*schema.Message, bool, error) {
	upstream, err := s.chat.Stream(ctx, messages)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "模型调用失败")
	}
	defer upstream.Close()

	var chunks []*schema.Message
	for {
		chunk, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, false, err
		}
		if chunk == nil {
			continue
		}
		chunks = append(chunks, chunk)

		if chunk.Content != "" {
			if closed := sw.Send(&codegen.AgentEvent{Kind: codegen.AgentPartialResponse, Text: chunk.Content}, nil); closed {
				return nil, true, nil
			}
		}
		for _, tc := range chunk.ToolCalls {
			index := 0
			if tc.Index != nil {
				index = *tc.Index
			}
			event := &codegen.AgentEvent{
				Kind: codegen.AgentPartialToolCall,
				ToolCall: &codegen.ToolCallDelta{
					Index:          index,
					ID:             tc.ID,
					Name:           tc.Function.Name,
					ArgumentsDelta: tc.Function.Arguments,
				},
			}
			if closed := sw.Send(event, nil); closed {
				return nil, true, nil
			}
		}
	}

	if len(chunks) == 0 {
		return schema.AssistantMessage("", nil), false, nil
	}
	reply, err := schema.ConcatMessages(chunks)
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.CodeGenerationFailed, "failed to merge model output")
	}
	return reply, false, nil
}
