// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-code-mother/internal/domain/entity"
)

// JobResponse 任务响应
type JobResponse struct {
	ID          int64      `json:"id,string"`
	AppID       int64      `json:"app_id,string"`
	JobType     string     `json:"job_type"`
	Mode        string     `json:"mode"`
	Status      string     `json:"status"`
	ErrorMsg    string     `json:"error_msg,omitempty"`
	BuildError  string     `json:"build_error,omitempty"`
	DurationMs  int        `json:"duration_ms,omitempty"`
	RetryCount  int        `json:"retry_count"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// JobListResponse 任务列表响应
type JobListResponse struct {
	Jobs []*JobResponse `json:"jobs"`
}

// ToJobResponse 将领域实体转换为响应 DTO
func ToJobResponse(j *entity.GenerationJob) *JobResponse {
	if j == nil {
		return nil
	}
	return &JobResponse{
		ID:          j.ID,
		AppID:       j.AppID,
		JobType:     string(j.JobType),
		Mode:        j.Mode,
		Status:      string(j.Status),
		ErrorMsg:    j.ErrorMessage,
		BuildError:  j.BuildError,
		DurationMs:  j.DurationMs,
		RetryCount:  j.RetryCount,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
		CreatedAt:   j.CreatedAt,
	}
}

// ToJobListResponse 将领域实体列表转换为响应 DTO
func ToJobListResponse(jobs []*entity.GenerationJob) *JobListResponse {
	resp := &JobListResponse{Jobs: make([]*JobResponse, 0, len(jobs))}
	for _, j := range jobs {
		resp.Jobs = append(resp.Jobs, ToJobResponse(j))
	}
	return resp
}
