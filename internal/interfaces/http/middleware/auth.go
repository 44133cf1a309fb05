// Package middleware 提供 HTTP 中间件
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/domain/entity"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/utils"
)

// ContextKeyUser 当前登录用户在 Gin Context 中的键
const ContextKeyUser = "current_user"

// AuthConfig 认证配置
type AuthConfig struct {
	// Secret JWT 密钥
	Secret string
	// Issuer JWT 签发者
	Issuer string
	// SkipPaths 跳过认证的路径前缀
	SkipPaths []string
	// Enabled 是否启用认证
	Enabled bool
}

// UserLoader 按 ID 加载用户
type UserLoader interface {
	GetByID(ctx context.Context, id int64) (*entity.User, error)
}

// Auth 认证中间件：校验 AccessToken 并加载当前用户
func Auth(cfg AuthConfig, users UserLoader) gin.HandlerFunc {
	jwtManager := utils.NewJWTManager(cfg.Secret, cfg.Issuer)

	return func(c *gin.Context) {
		if !cfg.Enabled || skipped(c.Request.URL.Path, cfg.SkipPaths) {
			c.Next()
			return
		}

		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, apperrors.CodeTokenMissing, "missing authorization header")
			return
		}

		claims, err := jwtManager.ParseToken(token)
		if err != nil {
			if errors.Is(err, utils.ErrExpiredToken) {
				abortUnauthorized(c, apperrors.CodeTokenExpired, "token expired")
				return
			}
			abortUnauthorized(c, apperrors.CodeTokenInvalid, "invalid token")
			return
		}
		if claims.Type != utils.TokenTypeAccess {
			abortUnauthorized(c, apperrors.CodeTokenInvalid, "invalid token type")
			return
		}
		userID, err := claims.UserID()
		if err != nil {
			abortUnauthorized(c, apperrors.CodeTokenInvalid, "invalid token subject")
			return
		}

		ctx := c.Request.Context()
		user, err := users.GetByID(ctx, userID)
		if err != nil {
			logger.Error(ctx, "failed to load current user", err, "user_id", userID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"code":     http.StatusInternalServerError,
				"message":  "failed to load user",
				"trace_id": c.GetString("trace_id"),
			})
			return
		}
		if user == nil {
			abortUnauthorized(c, apperrors.CodeUserNotFound, "user not found")
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set("user_id", user.ID)
		c.Set("role", string(user.Role))
		c.Request = c.Request.WithContext(logger.WithContext(ctx, logger.UserIDKey, strconv.FormatInt(user.ID, 10)))

		c.Next()
	}
}

// CurrentUser 获取当前登录用户，未登录返回 nil
func CurrentUser(c *gin.Context) *entity.User {
	v, ok := c.Get(ContextKeyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*entity.User)
	return u
}

func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

func skipped(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// abortUnauthorized 终止请求并返回 401
func abortUnauthorized(c *gin.Context, code apperrors.ErrorCode, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"code":     http.StatusUnauthorized,
		"message":  msg,
		"error":    gin.H{"error_code": string(code)},
		"trace_id": c.GetString("trace_id"),
	})
}

// DefaultSkipPaths 默认跳过认证的路径
var DefaultSkipPaths = []string{
	"/health",
	"/ready",
	"/live",
	"/metrics",
	"/static/",
	"/deploy/",
	"/api/v1/auth/",
}
