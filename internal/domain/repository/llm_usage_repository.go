// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"ai-code-mother/internal/domain/entity"
)

// LLMUsageEventRepository 模型用量流水仓储
type LLMUsageEventRepository interface {
	Create(ctx context.Context, event *entity.LLMUsageEvent) error

	// GetTokenUsage 统计用户在时间范围内的 Token 用量（prompt + completion）
	GetTokenUsage(ctx context.Context, userID int64, startInclusive, endExclusive time.Time) (int64, error)
}
