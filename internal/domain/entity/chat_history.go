// Package entity 定义领域实体
package entity

import (
	"time"
)

// ChatHistory 应用对话历史
type ChatHistory struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	AppID       int64     `json:"app_id" gorm:"index:idx_chat_history_app_created,priority:1;not null"`
	UserID      int64     `json:"user_id" gorm:"index;not null"`
	Message     string    `json:"message" gorm:"type:text;not null"`
	MessageType string    `json:"message_type" gorm:"type:varchar(32);not null"`
	CreatedAt   time.Time `json:"created_at" gorm:"index:idx_chat_history_app_created,priority:2;autoCreateTime"`
}

// TableName 指定表名
func (ChatHistory) TableName() string {
	return "chat_history"
}

// NewChatHistory 创建历史消息
func NewChatHistory(appID, userID int64, message string, role Role) *ChatHistory {
	return &ChatHistory{
		AppID:       appID,
		UserID:      userID,
		Message:     message,
		MessageType: string(role),
		CreatedAt:   time.Now(),
	}
}

// Role 返回消息角色，未知类型返回 false
func (h *ChatHistory) Role() (Role, bool) {
	return ParseRole(h.MessageType)
}
