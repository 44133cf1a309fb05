// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"
	"time"

	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
)

// ChatHistoryRepository 对话历史仓储实现
type ChatHistoryRepository struct {
	client *Client
}

var _ repository.ChatHistoryRepository = (*ChatHistoryRepository)(nil)

// NewChatHistoryRepository 创建对话历史仓储
func NewChatHistoryRepository(client *Client) *ChatHistoryRepository {
	return &ChatHistoryRepository{client: client}
}

// Create 追加一条历史消息
func (r *ChatHistoryRepository) Create(ctx context.Context, history *entity.ChatHistory) error {
	ctx, span := tracer.Start(ctx, "postgres.ChatHistoryRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(history).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create chat history: %w", err)
	}
	return nil
}

// FetchRecent 获取最近的消息，按创建时间倒序
func (r *ChatHistoryRepository) FetchRecent(ctx context.Context, appID int64, limit int) ([]*entity.ChatHistory, error) {
	return r.ListBefore(ctx, appID, nil, limit)
}

// ListBefore 游标分页
func (r *ChatHistoryRepository) ListBefore(ctx context.Context, appID int64, before *time.Time, limit int) ([]*entity.ChatHistory, error) {
	ctx, span := tracer.Start(ctx, "postgres.ChatHistoryRepository.ListBefore")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.ChatHistory{}).Where("app_id = ?", appID)
	if before != nil {
		query = query.Where("created_at < ?", *before)
	}

	var records []*entity.ChatHistory
	// id 作为同一时间戳下的次序
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&records).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list chat history: %w", err)
	}
	return records, nil
}

// DeleteByApp 删除应用下的全部历史
func (r *ChatHistoryRepository) DeleteByApp(ctx context.Context, appID int64) error {
	ctx, span := tracer.Start(ctx, "postgres.ChatHistoryRepository.DeleteByApp")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("app_id = ?", appID).Delete(&entity.ChatHistory{}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete chat history: %w", err)
	}
	return nil
}
