// Package chathistory 提供应用对话历史的读写
package chathistory

import (
	"context"
	"strings"
	"time"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	apperrors "ai-code-mother/pkg/errors"
)

const (
	MaxPageSize     = 50
	DefaultPageSize = 10
)

// Service 对话历史服务
type Service struct {
	repo repository.ChatHistoryRepository
}

var _ codegen.HistoryFetcher = (*Service)(nil)

// NewService 创建对话历史服务
func NewService(repo repository.ChatHistoryRepository) *Service {
	return &Service{repo: repo}
}

// Append 追加一条用户或 AI 消息
func (s *Service) Append(ctx context.Context, appID, userID int64, message string, role entity.Role) error {
	if appID <= 0 {
		return apperrors.New(apperrors.CodeInvalidParam, "应用 ID 不能为空")
	}
	if userID <= 0 {
		return apperrors.New(apperrors.CodeInvalidParam, "用户 ID 不能为空")
	}
	if strings.TrimSpace(message) == "" {
		return apperrors.New(apperrors.CodeInvalidParam, "消息内容不能为空")
	}
	if !role.IsChatRole() {
		return apperrors.Newf(apperrors.CodeInvalidParam, "不支持的消息类型: %s", role)
	}

	if err := s.repo.Create(ctx, entity.NewChatHistory(appID, userID, message, role)); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "保存对话历史失败")
	}
	return nil
}

// FetchRecent 最近的消息，新的在前
func (s *Service) FetchRecent(ctx context.Context, appID int64, limit int) ([]*entity.ChatHistory, error) {
	if appID <= 0 || limit <= 0 {
		return nil, nil
	}
	return s.repo.FetchRecent(ctx, appID, limit)
}

// ListByCursor 游标分页查询，仅应用创建者或管理员可见
func (s *Service) ListByCursor(ctx context.Context, app *entity.App, user *entity.User, lastCreatedAt *time.Time, pageSize int) ([]*entity.ChatHistory, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		return nil, apperrors.Newf(apperrors.CodeInvalidParam, "页面大小必须在 1-%d 之间", MaxPageSize)
	}
	if app == nil {
		return nil, apperrors.New(apperrors.CodeAppNotFound, "应用不存在")
	}
	if user == nil || (!app.IsOwnedBy(user.ID) && !user.IsAdmin()) {
		return nil, apperrors.New(apperrors.CodeForbidden, "无权查看该应用的对话历史")
	}

	records, err := s.repo.ListBefore(ctx, app.ID, lastCreatedAt, pageSize)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询对话历史失败")
	}
	return records, nil
}

// DeleteByApp 删除应用的全部历史，在调用方事务中执行
func (s *Service) DeleteByApp(ctx context.Context, appID int64) error {
	if err := s.repo.DeleteByApp(ctx, appID); err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "删除对话历史失败")
	}
	return nil
}
