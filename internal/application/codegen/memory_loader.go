package codegen

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
)

// HistoryFetcher 读取应用的持久化历史，按创建时间倒序返回
type HistoryFetcher interface {
	FetchRecent(ctx context.Context, appID int64, limit int) ([]*entity.ChatHistory, error)
}

// MemoryLoader 将持久化历史回放到新建会话的对话窗口
type MemoryLoader struct {
	history HistoryFetcher
}

// NewMemoryLoader 创建历史回放器
func NewMemoryLoader(history HistoryFetcher) *MemoryLoader {
	return &MemoryLoader{history: history}
}

// Load 回放最多 maxCount 条历史到 memory，返回实际回放条数。
//
// 最新的一条记录会被丢弃：调用方在生成前已将本轮用户消息写入历史，
// 该消息随后作为本轮输入单独发送。任何错误只记录日志并返回 0。
func (l *MemoryLoader) Load(ctx context.Context, appID int64, memory *ConversationMemory, maxCount int) (loaded int) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "history replay panicked", fmt.Errorf("%v", r), "app_id", appID)
			loaded = 0
		}
	}()

	if l == nil || l.history == nil || memory == nil || maxCount <= 0 {
		return 0
	}

	records, err := l.history.FetchRecent(ctx, appID, maxCount+1)
	if err != nil {
		logger.Error(ctx, "failed to load chat history", err, "app_id", appID)
		return 0
	}
	if len(records) == 0 {
		return 0
	}

	// 丢弃最新一条（本轮用户消息）
	records = records[1:]
	if len(records) == 0 {
		return 0
	}

	memory.Clear()
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec == nil {
			continue
		}
		role, ok := rec.Role()
		if !ok {
			continue
		}
		switch role {
		case entity.RoleUser:
			memory.Add(schema.UserMessage(rec.Message))
			loaded++
		case entity.RoleAssistant:
			memory.Add(schema.AssistantMessage(rec.Message, nil))
			loaded++
		}
	}

	metrics.HistoryReplayed.Observe(float64(loaded))
	logger.Info(ctx, "chat history replayed", "app_id", appID, "count", loaded)
	return loaded
}
