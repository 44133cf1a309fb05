// Package entity 定义领域实体
package entity

import "time"

// LLMUsageEvent 一次模型调用的 Token 用量流水
type LLMUsageEvent struct {
	ID               int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID           int64     `json:"user_id" gorm:"index:idx_llm_usage_user_created,priority:1;not null"`
	AppID            int64     `json:"app_id" gorm:"index"`
	Mode             string    `json:"mode" gorm:"type:varchar(32)"`
	Provider         string    `json:"provider" gorm:"type:varchar(32);not null"`
	Model            string    `json:"model" gorm:"type:varchar(64);not null"`
	TokensPrompt     int       `json:"tokens_prompt" gorm:"not null;default:0"`
	TokensCompletion int       `json:"tokens_completion" gorm:"not null;default:0"`
	DurationMs       int       `json:"duration_ms" gorm:"not null;default:0"`
	CreatedAt        time.Time `json:"created_at" gorm:"index:idx_llm_usage_user_created,priority:2;autoCreateTime"`
}

func (LLMUsageEvent) TableName() string {
	return "llm_usage_events"
}

// TotalTokens prompt + completion
func (e *LLMUsageEvent) TotalTokens() int {
	return e.TokensPrompt + e.TokensCompletion
}
