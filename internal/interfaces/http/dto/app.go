// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-code-mother/internal/domain/entity"
)

// CreateAppRequest 创建应用请求
type CreateAppRequest struct {
	InitPrompt  string `json:"initPrompt" binding:"required"`
	CodeGenType string `json:"codeGenType"`
}

// UpdateAppRequest 更新应用请求
type UpdateAppRequest struct {
	Name string `json:"name" binding:"required,max=255"`
}

// AppResponse 应用响应
type AppResponse struct {
	ID          int64      `json:"id,string"`
	Name        string     `json:"name"`
	Cover       string     `json:"cover,omitempty"`
	InitPrompt  string     `json:"initPrompt"`
	CodeGenType string     `json:"codeGenType"`
	DeployKey   string     `json:"deployKey,omitempty"`
	DeployedAt  *time.Time `json:"deployedTime,omitempty"`
	Priority    int        `json:"priority"`
	Tags        []string   `json:"tags,omitempty"`
	UserID      int64      `json:"userId,string"`
	CreatedAt   time.Time  `json:"createTime"`
	UpdatedAt   time.Time  `json:"updateTime"`
}

// AppListResponse 应用列表响应
type AppListResponse struct {
	Items []*AppResponse `json:"items"`
}

// DeployResponse 部署响应
type DeployResponse struct {
	URL string `json:"url"`
}

// ToAppResponse 将领域实体转换为响应 DTO
func ToAppResponse(a *entity.App) *AppResponse {
	if a == nil {
		return nil
	}
	return &AppResponse{
		ID:          a.ID,
		Name:        a.Name,
		Cover:       a.Cover,
		InitPrompt:  a.InitPrompt,
		CodeGenType: a.CodeGenType,
		DeployKey:   a.DeployKey,
		DeployedAt:  a.DeployedAt,
		Priority:    a.Priority,
		Tags:        a.Tags,
		UserID:      a.UserID,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}

// ToAppListResponse 将领域实体列表转换为响应 DTO
func ToAppListResponse(apps []*entity.App) *AppListResponse {
	resp := &AppListResponse{Items: make([]*AppResponse, 0, len(apps))}
	for _, a := range apps {
		resp.Items = append(resp.Items, ToAppResponse(a))
	}
	return resp
}
