// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"ai-code-mother/internal/domain/entity"
)

// ChatHistoryRepository 对话历史仓储接口
type ChatHistoryRepository interface {
	// Create 追加一条历史消息
	Create(ctx context.Context, history *entity.ChatHistory) error

	// FetchRecent 获取最近的消息，按创建时间倒序
	FetchRecent(ctx context.Context, appID int64, limit int) ([]*entity.ChatHistory, error)

	// ListBefore 游标分页：返回早于 before 的消息，按创建时间倒序；before 为空时从最新开始
	ListBefore(ctx context.Context, appID int64, before *time.Time, limit int) ([]*entity.ChatHistory, error)

	// DeleteByApp 删除应用下的全部历史
	DeleteByApp(ctx context.Context, appID int64) error
}
