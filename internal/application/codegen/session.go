package codegen

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// TextService 线性模式的 AI 服务：输入一条用户消息，输出文本增量流
type TextService interface {
	StreamText(ctx context.Context, message string) (*schema.StreamReader[string], error)
}

// AgentService 工程模式的 AI 服务：输出文本、工具调用增量与工具执行结果
type AgentService interface {
	StreamAgent(ctx context.Context, message string) (*schema.StreamReader[*AgentEvent], error)
}

// ServiceBuilder 为会话构建 AI 服务，服务与 memory 绑定
type ServiceBuilder interface {
	BuildText(ctx context.Context, key SessionKey, memory *ConversationMemory) (TextService, error)
	BuildAgent(ctx context.Context, key SessionKey, memory *ConversationMemory) (AgentService, error)
}

// Session 一个 (appId, mode) 的生成会话
type Session struct {
	Key       SessionKey
	Memory    *ConversationMemory
	Text      TextService
	Agent     AgentService
	CreatedAt time.Time
}
