// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-code-mother/internal/domain/entity"
)

// ChatHistoryResponse 对话历史条目
type ChatHistoryResponse struct {
	ID          int64     `json:"id,string"`
	AppID       int64     `json:"appId,string"`
	UserID      int64     `json:"userId,string"`
	Message     string    `json:"message"`
	MessageType string    `json:"messageType"`
	CreatedAt   time.Time `json:"createTime"`
}

// ChatHistoryPage 游标分页结果，next_cursor 为最后一条的创建时间
type ChatHistoryPage struct {
	Items      []*ChatHistoryResponse `json:"items"`
	NextCursor *time.Time             `json:"nextCursor,omitempty"`
}

// ToChatHistoryPage 将历史列表转换为响应 DTO
func ToChatHistoryPage(rows []*entity.ChatHistory, pageSize int) *ChatHistoryPage {
	page := &ChatHistoryPage{Items: make([]*ChatHistoryResponse, 0, len(rows))}
	for _, h := range rows {
		page.Items = append(page.Items, &ChatHistoryResponse{
			ID:          h.ID,
			AppID:       h.AppID,
			UserID:      h.UserID,
			Message:     h.Message,
			MessageType: h.MessageType,
			CreatedAt:   h.CreatedAt,
		})
	}
	if n := len(rows); n > 0 && n == pageSize {
		last := rows[n-1].CreatedAt
		page.NextCursor = &last
	}
	return page
}
