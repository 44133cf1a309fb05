package quota

import (
	"context"
	"fmt"
	"strings"

	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/domain/service"
)

// LLMUsageRecorder 将模型调用用量写入流水表
type LLMUsageRecorder struct {
	usageRepo repository.LLMUsageEventRepository
}

var _ service.LLMUsageRecorder = (*LLMUsageRecorder)(nil)

// NewLLMUsageRecorder 创建用量记录器
func NewLLMUsageRecorder(usageRepo repository.LLMUsageEventRepository) *LLMUsageRecorder {
	return &LLMUsageRecorder{usageRepo: usageRepo}
}

// Record 写入一条用量流水；无归属或零用量的调用不落库
func (r *LLMUsageRecorder) Record(ctx context.Context, in service.LLMUsageInput) error {
	if r == nil || r.usageRepo == nil {
		return nil
	}
	if in.UserID <= 0 {
		return nil
	}
	if in.PromptTokens < 0 || in.CompletionTokens < 0 {
		return fmt.Errorf("invalid token usage")
	}
	if in.TotalTokens() == 0 {
		return nil
	}

	evt := &entity.LLMUsageEvent{
		UserID:           in.UserID,
		AppID:            in.AppID,
		Mode:             strings.TrimSpace(in.Mode),
		Provider:         strings.TrimSpace(in.Provider),
		Model:            strings.TrimSpace(in.Model),
		TokensPrompt:     in.PromptTokens,
		TokensCompletion: in.CompletionTokens,
		DurationMs:       in.DurationMs,
	}
	return r.usageRepo.Create(ctx, evt)
}
