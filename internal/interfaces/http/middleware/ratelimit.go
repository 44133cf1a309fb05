package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/infrastructure/persistence/redis"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
)

const defaultRequestsPerSecond = 100

// RateLimitConfig 按客户端 IP 的全局限流，窗口固定为一秒
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond int
}

// RateLimiter 由 redis.RateLimiter 实现
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 超限返回 429 并附带 Retry-After；限流器不可用时放行
func RateLimit(cfg RateLimitConfig, limiter RateLimiter) gin.HandlerFunc {
	if !cfg.Enabled || limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	limit := cfg.RequestsPerSecond
	if limit <= 0 {
		limit = defaultRequestsPerSecond
	}
	const window = time.Second

	return func(c *gin.Context) {
		ctx := c.Request.Context()

		allowed, err := limiter.Allow(ctx, redis.IPRateLimitKey(c.ClientIP()), limit, window)
		if err != nil {
			logger.Warn(ctx, "ip rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if allowed {
			c.Next()
			return
		}

		metrics.RateLimitRejected.WithLabelValues("ip").Inc()
		c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"code":     http.StatusTooManyRequests,
			"message":  "rate limit exceeded",
			"error":    gin.H{"error_code": string(apperrors.CodeTooManyRequests)},
			"trace_id": c.GetString("trace_id"),
		})
	}
}
