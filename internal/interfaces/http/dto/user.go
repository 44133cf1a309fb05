// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strings"
	"time"

	"ai-code-mother/internal/domain/entity"
)

// UserResponse 用户响应
type UserResponse struct {
	ID          int64           `json:"id,string"`
	Email       string          `json:"email"`
	Name        string          `json:"name"`
	AvatarURL   string          `json:"avatar_url,omitempty"`
	Role        entity.UserRole `json:"role"`
	LastLoginAt *time.Time      `json:"last_login_at,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToUserResponse 实体转换为响应
func ToUserResponse(u *entity.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		AvatarURL:   u.AvatarURL,
		Role:        u.Role,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// UpdateProfileRequest 更新个人资料，省略的字段保持不变
type UpdateProfileRequest struct {
	Name      string `json:"name" binding:"omitempty,max=100"`
	AvatarURL string `json:"avatar_url" binding:"omitempty,url,max=512"`
}

// IsEmpty 没有任何待更新字段
func (r *UpdateProfileRequest) IsEmpty() bool {
	return strings.TrimSpace(r.Name) == "" && strings.TrimSpace(r.AvatarURL) == ""
}
