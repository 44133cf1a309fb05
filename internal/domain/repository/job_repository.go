// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ai-code-mother/internal/domain/entity"
)

// JobFilter 任务过滤条件
type JobFilter struct {
	JobType entity.JobType
	Status  entity.JobStatus
}

// JobRepository 生成任务仓储接口
type JobRepository interface {
	// Create 创建任务
	Create(ctx context.Context, job *entity.GenerationJob) error

	// GetByID 根据 ID 获取任务，不存在时返回 nil
	GetByID(ctx context.Context, id int64) (*entity.GenerationJob, error)

	// Update 更新任务
	Update(ctx context.Context, job *entity.GenerationJob) error

	// ListByApp 获取应用的任务列表，按创建时间倒序
	ListByApp(ctx context.Context, appID int64, filter *JobFilter, pagination Pagination) (*PagedResult[*entity.GenerationJob], error)

	// LatestByApp 获取应用最近一次指定类型的任务
	LatestByApp(ctx context.Context, appID int64, jobType entity.JobType) (*entity.GenerationJob, error)

	// GetJobStats 获取应用的任务统计
	GetJobStats(ctx context.Context, appID int64) (*JobStats, error)
}

// JobStats 任务统计信息
type JobStats struct {
	TotalJobs     int64 `json:"total_jobs"`
	PendingJobs   int64 `json:"pending_jobs"`
	RunningJobs   int64 `json:"running_jobs"`
	CompletedJobs int64 `json:"completed_jobs"`
	FailedJobs    int64 `json:"failed_jobs"`
}
