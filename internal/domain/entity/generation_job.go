// Package entity 定义领域实体
package entity

import (
	"time"
)

// JobType 任务类型
type JobType string

const (
	JobTypeGenerate JobType = "generate"
	JobTypeBuild    JobType = "build"
)

// JobStatus 任务状态
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// GenerationJob 一次代码生成或工程构建的执行记录
type GenerationJob struct {
	ID           int64      `json:"id" gorm:"primaryKey;autoIncrement"`
	AppID        int64      `json:"app_id" gorm:"index:idx_generation_jobs_app_created,priority:1;not null"`
	UserID       int64      `json:"user_id" gorm:"index"`
	JobType      JobType    `json:"job_type" gorm:"type:varchar(32);not null"`
	Mode         string     `json:"mode" gorm:"type:varchar(32);not null"`
	Status       JobStatus  `json:"status" gorm:"type:varchar(32);index;not null"`
	OutputDir    string     `json:"output_dir,omitempty" gorm:"type:varchar(512)"`
	ErrorMessage string     `json:"error_message,omitempty" gorm:"type:text"`
	BuildError   string     `json:"build_error,omitempty" gorm:"type:text"`
	DurationMs   int        `json:"duration_ms,omitempty"`
	RetryCount   int        `json:"retry_count"`
	CreatedAt    time.Time  `json:"created_at" gorm:"index:idx_generation_jobs_app_created,priority:2;autoCreateTime"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"autoUpdateTime"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

// TableName 指定表名
func (GenerationJob) TableName() string {
	return "generation_jobs"
}

// NewGenerationJob 创建新任务
func NewGenerationJob(appID, userID int64, jobType JobType, mode string) *GenerationJob {
	return &GenerationJob{
		AppID:     appID,
		UserID:    userID,
		JobType:   jobType,
		Mode:      mode,
		Status:    JobStatusPending,
		CreatedAt: time.Now(),
	}
}

// Start 开始执行任务
func (j *GenerationJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
}

// Complete 完成任务
func (j *GenerationJob) Complete() {
	j.finish(JobStatusCompleted)
}

// Fail 任务失败
func (j *GenerationJob) Fail(errMsg string) {
	j.ErrorMessage = errMsg
	j.finish(JobStatusFailed)
}

// Cancel 任务取消
func (j *GenerationJob) Cancel() {
	j.finish(JobStatusCancelled)
}

func (j *GenerationJob) finish(status JobStatus) {
	now := time.Now()
	j.Status = status
	j.CompletedAt = &now
	if j.StartedAt != nil {
		j.DurationMs = int(now.Sub(*j.StartedAt).Milliseconds())
	}
}

// Retry 重试任务
func (j *GenerationJob) Retry() {
	j.RetryCount++
	j.Status = JobStatusPending
	j.StartedAt = nil
	j.CompletedAt = nil
	j.ErrorMessage = ""
	j.BuildError = ""
}

// CanRetry 检查是否可以重试
func (j *GenerationJob) CanRetry(maxRetries int) bool {
	return j.RetryCount < maxRetries && j.Status == JobStatusFailed
}

// IsFinished 是否已进入终态
func (j *GenerationJob) IsFinished() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	default:
		return false
	}
}
