// Package middleware 提供 HTTP 中间件
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ai-code-mother/pkg/errors"
)

// RequireAdmin 仅管理员可访问
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthorized(c, apperrors.CodeTokenMissing, "authentication required")
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"code":     http.StatusForbidden,
				"message":  "admin role required",
				"error":    gin.H{"error_code": string(apperrors.CodeForbidden)},
				"trace_id": c.GetString("trace_id"),
			})
			return
		}
		c.Next()
	}
}
