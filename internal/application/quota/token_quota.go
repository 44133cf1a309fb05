// Package quota 提供用户 Token 配额相关能力
package quota

import (
	"context"
	"time"

	"ai-code-mother/internal/domain/repository"
	apperrors "ai-code-mother/pkg/errors"
)

// TokenQuotaChecker 用于检查用户 Token 日配额
type TokenQuotaChecker struct {
	llmRepo repository.LLMUsageEventRepository
	max     int64
	now     func() time.Time
}

// NewTokenQuotaChecker max <= 0 表示不限额
func NewTokenQuotaChecker(llmRepo repository.LLMUsageEventRepository, max int64) *TokenQuotaChecker {
	return &TokenQuotaChecker{
		llmRepo: llmRepo,
		max:     max,
		now:     time.Now,
	}
}

// CheckDailyTokens 检查用户是否还有当日 Token 配额。
// 返回：used/max（便于客户端展示），以及是否超过配额的 error。
func (c *TokenQuotaChecker) CheckDailyTokens(ctx context.Context, userID int64) (used int64, max int64, err error) {
	if c == nil || c.max <= 0 || c.llmRepo == nil {
		return 0, 0, nil
	}

	now := c.now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	used, err = c.llmRepo.GetTokenUsage(ctx, userID, start, end)
	if err != nil {
		return 0, c.max, apperrors.Wrap(err, apperrors.CodeDatabaseError, "failed to load token usage")
	}
	if used >= c.max {
		return used, c.max, apperrors.Newf(apperrors.CodeTooManyRequests, "今日 Token 配额已用尽 (%d/%d)", used, c.max)
	}
	return used, c.max, nil
}
