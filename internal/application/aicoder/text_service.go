package aicoder

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/cloudwego/eino/components/model"
	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/service"
	"ai-code-mother/internal/workflow/prompt"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// interruptedReply 生成中断且没有任何输出时写入 memory 的助手消息
const interruptedReply = "（生成已中断）"

// textService 线性模式（SingleFile / MultiFile）的 AI 服务
type textService struct {
	key      codegen.SessionKey
	provider string
	chat     model.BaseChatModel
	template einoprompt.ChatTemplate
	memory   *codegen.ConversationMemory
}

// StreamText 以流的形式返回模型输出的文本增量
//
// 用户消息在调用模型前写入 memory，完整回复在上游结束后写入。
func (s *textService) StreamText(ctx context.Context, message string) (*schema.StreamReader[string], error) {
	if err := CheckInput(message); err != nil {
		return nil, err
	}

	messages, err := s.template.Format(ctx, prompt.Variables(s.memory.Messages(), message))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeInternalError, "failed to render prompt")
	}
	s.memory.Add(schema.UserMessage(message))

	callCtx := service.WithModeProvider(ctx, s.key.Mode.String(), s.provider)
	upstream, err := s.chat.Stream(callCtx, messages)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMCallFailed, "模型调用失败")
	}

	sr, sw := schema.Pipe[string](16)
	go func() {
		defer sw.Close()
		defer upstream.Close()
		defer func() {
			if r := recover(); r != nil {
				logger.Error(ctx, "text stream panicked", nil, "panic", r, "session", s.key.String())
				sw.Send("", apperrors.New(apperrors.CodeGenerationFailed, "生成过程发生内部错误"))
			}
		}()

		var reply strings.Builder
		completed := false
		// 中断时也写入助手消息，避免 memory 中出现连续的用户消息
		defer func() {
			content := reply.String()
			if !completed && content == "" {
				content = interruptedReply
			}
			s.memory.Add(schema.AssistantMessage(content, nil))
		}()

		for {
			chunk, err := upstream.Recv()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				sw.Send("", err)
				return
			}
			if chunk == nil || chunk.Content == "" {
				continue
			}
			reply.WriteString(chunk.Content)
			if closed := sw.Send(chunk.Content, nil); closed {
				return
			}
		}
		completed = true
	}()
	return sr, nil
}
