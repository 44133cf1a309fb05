// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/interfaces/http/dto"
	"ai-code-mother/pkg/logger"
)

// SessionInvalidator 清空生成会话缓存
type SessionInvalidator interface {
	InvalidateAll(ctx context.Context) int
}

// AppCacheInvalidator 清空应用缓存
type AppCacheInvalidator interface {
	InvalidateAll(ctx context.Context) (int, error)
}

// AdminHandler 管理处理器
type AdminHandler struct {
	sessions SessionInvalidator
	appCache AppCacheInvalidator
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(sessions SessionInvalidator, appCache AppCacheInvalidator) *AdminHandler {
	return &AdminHandler{sessions: sessions, appCache: appCache}
}

// InvalidateSessionsResponse 清理结果
type InvalidateSessionsResponse struct {
	Sessions   int `json:"sessions"`
	CachedApps int `json:"cached_apps"`
}

// InvalidateSessions 清空全部生成会话与应用缓存
// @Summary 清空会话缓存
// @Description 仅管理员；下次请求将从对话历史重建会话
// @Tags Admin
// @Produce json
// @Success 200 {object} dto.Response[InvalidateSessionsResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Router /api/v1/admin/sessions/invalidate [post]
func (h *AdminHandler) InvalidateSessions(c *gin.Context) {
	ctx := c.Request.Context()
	resp := &InvalidateSessionsResponse{}

	if h.sessions != nil {
		resp.Sessions = h.sessions.InvalidateAll(ctx)
	}
	if h.appCache != nil {
		n, err := h.appCache.InvalidateAll(ctx)
		if err != nil {
			logger.Warn(ctx, "failed to invalidate app cache", "error", err)
		}
		resp.CachedApps = n
	}

	logger.Info(ctx, "caches invalidated by admin", "sessions", resp.Sessions, "cached_apps", resp.CachedApps)
	dto.Success(c, resp)
}
