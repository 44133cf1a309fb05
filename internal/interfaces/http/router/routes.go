// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/interfaces/http/middleware"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(v1 *gin.RouterGroup, h *Handlers) {
	// 认证管理
	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.RefreshToken)
		auth.POST("/logout", h.Auth.Logout)
	}

	// 用户
	v1.GET("/users/me", h.User.GetMe)
	v1.PATCH("/users/me", h.User.UpdateMe)

	// 应用管理
	apps := v1.Group("/apps")
	{
		apps.GET("", h.App.ListMyApps)
		apps.POST("", h.App.CreateApp)
		apps.GET("/:id", h.App.GetApp)
		apps.PUT("/:id", h.App.UpdateApp)
		apps.DELETE("/:id", h.App.DeleteApp)

		// 生成、部署与下载
		apps.GET("/:id/chat/gen/code", h.Chat.GenCode) // SSE
		apps.GET("/:id/chat/history", h.Chat.ListHistory)
		apps.POST("/:id/deploy", h.App.DeployApp)
		apps.POST("/:id/build", h.App.BuildApp)
		apps.GET("/:id/download", h.App.DownloadApp)
		apps.GET("/:id/jobs", h.App.ListAppJobs)
	}

	// 管理
	admin := v1.Group("/admin", middleware.RequireAdmin())
	{
		admin.POST("/sessions/invalidate", h.Admin.InvalidateSessions)
	}
}
