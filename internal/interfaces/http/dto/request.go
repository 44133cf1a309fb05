// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/domain/repository"
	apperrors "ai-code-mother/pkg/errors"
)

// PageRequest 分页请求参数
type PageRequest struct {
	Page     int `form:"page" json:"page"`
	PageSize int `form:"page_size" json:"page_size"`
}

// Normalize 规范化分页参数
func (r *PageRequest) Normalize() {
	if r.Page < 1 {
		r.Page = 1
	}
	if r.PageSize < 1 {
		r.PageSize = repository.DefaultPageSize
	}
	if r.PageSize > repository.MaxPageSize {
		r.PageSize = repository.MaxPageSize
	}
}

// Pagination 转换为仓储分页参数
func (r PageRequest) Pagination() repository.Pagination {
	return repository.NewPagination(r.Page, r.PageSize)
}

// BindPage 从 Gin Context 绑定分页参数
func BindPage(c *gin.Context) PageRequest {
	req := PageRequest{
		Page:     parseIntWithDefault(c.Query("page"), 1),
		PageSize: parseIntWithDefault(c.Query("page_size"), 20),
	}
	req.Normalize()
	return req
}

// parseIntWithDefault 解析整数，失败时返回默认值
func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// BindAppID 从 URI 绑定应用 ID
func BindAppID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.CodeInvalidParam, "应用 ID 无效")
	}
	return id, nil
}

// HistoryQuery 对话历史游标查询
type HistoryQuery struct {
	PageSize      int
	LastCreatedAt *time.Time
}

// BindHistoryQuery 解析 pageSize 与 lastCreatedAt，游标支持 RFC3339 与 "2006-01-02 15:04:05"
func BindHistoryQuery(c *gin.Context) (HistoryQuery, error) {
	q := HistoryQuery{PageSize: parseIntWithDefault(c.Query("pageSize"), 0)}

	raw := strings.TrimSpace(c.Query("lastCreatedAt"))
	if raw == "" {
		return q, nil
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, raw, time.Local); err == nil {
			q.LastCreatedAt = &t
			return q, nil
		}
	}
	return q, apperrors.Newf(apperrors.CodeInvalidParam, "lastCreatedAt 格式无效: %q", raw)
}
