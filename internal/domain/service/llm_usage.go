package service

import "context"

// LLMUsageInput 一次模型调用的用量，UserID 为 0 时表示调用没有归属（不计入配额）
type LLMUsageInput struct {
	UserID int64
	AppID  int64

	Mode     string
	Provider string
	Model    string

	PromptTokens     int
	CompletionTokens int
	DurationMs       int
}

// TotalTokens 计入每日配额的 token 数
func (in LLMUsageInput) TotalTokens() int {
	return in.PromptTokens + in.CompletionTokens
}

// LLMUsageRecorder 记录模型用量流水，失败只影响统计，不影响生成
type LLMUsageRecorder interface {
	Record(ctx context.Context, in LLMUsageInput) error
}
