// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
)

// AppRepository 应用仓储实现
type AppRepository struct {
	client *Client
}

var _ repository.AppRepository = (*AppRepository)(nil)

// NewAppRepository 创建应用仓储
func NewAppRepository(client *Client) *AppRepository {
	return &AppRepository{client: client}
}

// Create 创建应用
func (r *AppRepository) Create(ctx context.Context, app *entity.App) error {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(app).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create app: %w", err)
	}
	return nil
}

// GetByID 根据 ID 获取应用
func (r *AppRepository) GetByID(ctx context.Context, id int64) (*entity.App, error) {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.GetByID")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var app entity.App
	if err := db.First(&app, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get app: %w", err)
	}
	return &app, nil
}

// Update 更新应用
func (r *AppRepository) Update(ctx context.Context, app *entity.App) error {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Save(app).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update app: %w", err)
	}
	return nil
}

// Delete 软删除应用
func (r *AppRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Delete(&entity.App{}, "id = ?", id).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to delete app: %w", err)
	}
	return nil
}

// ListByUser 获取用户的应用列表
func (r *AppRepository) ListByUser(ctx context.Context, userID int64, filter *repository.AppFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.App], error) {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.ListByUser")
	defer span.End()

	db := getDB(ctx, r.client.db)
	query := db.Model(&entity.App{}).Where("user_id = ?", userID)

	// 应用过滤条件
	if filter != nil {
		if name := strings.TrimSpace(filter.Name); name != "" {
			query = query.Where("name ILIKE ?", "%"+name+"%")
		}
		if tag := strings.TrimSpace(filter.Tag); tag != "" {
			query = query.Where("? = ANY(tags)", tag)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to count apps: %w", err)
	}

	var apps []*entity.App
	if err := query.Order("priority DESC").Order("created_at DESC").
		Offset(pagination.Offset()).
		Limit(pagination.Limit()).
		Find(&apps).Error; err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list apps: %w", err)
	}

	return repository.NewPagedResult(apps, total, pagination), nil
}

// UpdateDeployment 记录部署信息
func (r *AppRepository) UpdateDeployment(ctx context.Context, id int64, deployKey string, deployedAt time.Time) error {
	ctx, span := tracer.Start(ctx, "postgres.AppRepository.UpdateDeployment")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Model(&entity.App{}).Where("id = ?", id).Updates(map[string]any{
		"deploy_key":  deployKey,
		"deployed_at": deployedAt,
	}).Error; err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to update deployment: %w", err)
	}
	return nil
}
