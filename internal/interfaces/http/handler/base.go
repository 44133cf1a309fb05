// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/application/apps"
	"ai-code-mother/internal/application/chathistory"
	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/interfaces/http/dto"
	"ai-code-mother/internal/interfaces/http/middleware"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// AppService 应用服务
type AppService interface {
	Create(ctx context.Context, user *entity.User, initPrompt, mode string) (*entity.App, error)
	Get(ctx context.Context, appID int64) (*entity.App, error)
	GetVisible(ctx context.Context, appID int64, user *entity.User) (*entity.App, error)
	ListMine(ctx context.Context, user *entity.User, filter *repository.AppFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.App], error)
	UpdateName(ctx context.Context, appID int64, user *entity.User, name string) (*entity.App, error)
	Delete(ctx context.Context, appID int64, user *entity.User) error

	ChatToGenCode(ctx context.Context, appID int64, user *entity.User, message string) (<-chan codegen.StreamEvent, error)
	Deploy(ctx context.Context, appID int64, user *entity.User) (string, error)
	PrepareDownload(ctx context.Context, appID int64, user *entity.User) (*apps.Archive, error)
	EnqueueBuild(ctx context.Context, appID int64, user *entity.User) (*entity.GenerationJob, error)
	ListJobs(ctx context.Context, appID int64, user *entity.User, filter *repository.JobFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.GenerationJob], error)
}

// HistoryService 对话历史查询
type HistoryService interface {
	ListByCursor(ctx context.Context, app *entity.App, user *entity.User, lastCreatedAt *time.Time, pageSize int) ([]*entity.ChatHistory, error)
}

var (
	_ AppService     = (*apps.Service)(nil)
	_ HistoryService = (*chathistory.Service)(nil)
)

// requireUser 获取当前用户，未登录时写入 401
func requireUser(c *gin.Context) (*entity.User, bool) {
	user := middleware.CurrentUser(c)
	if user == nil {
		dto.FromError(c, apperrors.New(apperrors.CodeUnauthorized, "未登录"))
		return nil, false
	}
	return user, true
}

// fail 写入错误响应，非业务错误记录日志
func fail(c *gin.Context, msg string, err error) {
	if !apperrors.IsAppError(err) {
		logger.Error(c.Request.Context(), msg, err)
	} else if appErr := apperrors.AsAppError(err); appErr.HTTPStatus >= 500 {
		logger.Error(c.Request.Context(), msg, err)
	}
	dto.FromError(c, err)
}
