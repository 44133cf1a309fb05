package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// Recovery Panic 恢复中间件
//
// SSE 响应头已发出时只能中断连接，无法再写 JSON 错误体。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			logger.Error(c.Request.Context(), "panic recovered", fmt.Errorf("%v", r),
				"stack", string(debug.Stack()),
				"path", c.Request.URL.Path,
				"method", c.Request.Method,
			)
			if c.Writer.Written() {
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     http.StatusInternalServerError,
				"message":  "internal server error",
				"error":    gin.H{"error_code": string(apperrors.CodeInternalError)},
				"trace_id": c.GetString("trace_id"),
			})
		}()

		c.Next()
	}
}
