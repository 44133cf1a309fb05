package dto

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ai-code-mother/pkg/errors"
)

// Response 成功响应外壳，code 与 HTTP 状态码一致
type Response[T any] struct {
	Code    int       `json:"code"`
	Message string    `json:"message"`
	Data    T         `json:"data,omitempty"`
	Meta    *PageMeta `json:"meta,omitempty"`
	TraceID string    `json:"trace_id,omitempty"`
}

// PageMeta 页码分页元数据
type PageMeta struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ErrorDetail 业务错误码与补充说明
type ErrorDetail struct {
	ErrorCode string `json:"error_code,omitempty"`
	Details   string `json:"details,omitempty"`
}

// ErrorResponse 错误响应外壳
type ErrorResponse struct {
	Code    int          `json:"code"`
	Message string       `json:"message"`
	Error   *ErrorDetail `json:"error,omitempty"`
	TraceID string       `json:"trace_id,omitempty"`
}

// 未携带业务错误码的快捷错误按状态码归入通用错误码
var statusCodes = map[int]apperrors.ErrorCode{
	http.StatusBadRequest:          apperrors.CodeInvalidParam,
	http.StatusUnauthorized:        apperrors.CodeUnauthorized,
	http.StatusNotFound:            apperrors.CodeNotFound,
	http.StatusConflict:            apperrors.CodeConflict,
	http.StatusInternalServerError: apperrors.CodeInternalError,
}

func respond[T any](c *gin.Context, status int, message string, data T, meta *PageMeta) {
	c.JSON(status, Response[T]{
		Code:    status,
		Message: message,
		Data:    data,
		Meta:    meta,
		TraceID: c.GetString("trace_id"),
	})
}

func Success[T any](c *gin.Context, data T) {
	respond(c, http.StatusOK, "success", data, nil)
}

func SuccessWithPage[T any](c *gin.Context, data T, meta *PageMeta) {
	respond(c, http.StatusOK, "success", data, meta)
}

func Created[T any](c *gin.Context, data T) {
	respond(c, http.StatusCreated, "created", data, nil)
}

// Accepted 异步任务已入队
func Accepted[T any](c *gin.Context, data T) {
	respond(c, http.StatusAccepted, "accepted", data, nil)
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func fail(c *gin.Context, status int, message string, detail *ErrorDetail) {
	c.JSON(status, ErrorResponse{
		Code:    status,
		Message: message,
		Error:   detail,
		TraceID: c.GetString("trace_id"),
	})
}

func failStatus(c *gin.Context, status int, message string) {
	fail(c, status, message, &ErrorDetail{ErrorCode: string(statusCodes[status])})
}

func BadRequest(c *gin.Context, message string) {
	failStatus(c, http.StatusBadRequest, message)
}

func Unauthorized(c *gin.Context, message string) {
	failStatus(c, http.StatusUnauthorized, message)
}

func NotFound(c *gin.Context, message string) {
	failStatus(c, http.StatusNotFound, message)
}

func Conflict(c *gin.Context, message string) {
	failStatus(c, http.StatusConflict, message)
}

func InternalError(c *gin.Context, message string) {
	failStatus(c, http.StatusInternalServerError, message)
}

// FromError AppError 按其错误码与状态码输出，其余错误不暴露细节，统一为 500
func FromError(c *gin.Context, err error) {
	if !apperrors.IsAppError(err) {
		InternalError(c, "internal server error")
		return
	}
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}
	fail(c, status, appErr.Message, &ErrorDetail{
		ErrorCode: string(appErr.Code),
		Details:   appErr.Detail,
	})
}

// NewPageMeta pageSize 非正时不计算总页数
func NewPageMeta(page, pageSize, total int) *PageMeta {
	meta := &PageMeta{Page: page, Total: total}
	if pageSize > 0 {
		meta.PageSize = pageSize
		meta.TotalPages = (total + pageSize - 1) / pageSize
	}
	return meta
}
