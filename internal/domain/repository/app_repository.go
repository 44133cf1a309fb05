// Package repository 定义数据访问层接口
package repository

import (
	"context"
	"time"

	"ai-code-mother/internal/domain/entity"
)

// AppFilter 应用过滤条件
type AppFilter struct {
	Name string
	Tag  string
}

// AppRepository 应用仓储接口
type AppRepository interface {
	// Create 创建应用
	Create(ctx context.Context, app *entity.App) error

	// GetByID 根据 ID 获取应用，不存在时返回 nil
	GetByID(ctx context.Context, id int64) (*entity.App, error)

	// Update 更新应用
	Update(ctx context.Context, app *entity.App) error

	// Delete 删除应用（软删除）
	Delete(ctx context.Context, id int64) error

	// ListByUser 获取用户的应用列表
	ListByUser(ctx context.Context, userID int64, filter *AppFilter, pagination Pagination) (*PagedResult[*entity.App], error)

	// UpdateDeployment 记录部署信息
	UpdateDeployment(ctx context.Context, id int64, deployKey string, deployedAt time.Time) error
}
