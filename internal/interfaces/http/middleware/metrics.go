package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ai-code-mother/pkg/metrics"
)

// Metrics Prometheus 指标采集中间件
//
// 路由模板作为 path 标签；预览与部署站点按站点前缀归并，避免文件路径撑爆标签基数。
// SSE 生成流的耗时即整次生成的耗时。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := routeLabel(c.FullPath())
		method := c.Request.Method

		if size := c.Request.ContentLength; size > 0 {
			metrics.HTTPRequestSize.WithLabelValues(method, path).Observe(float64(size))
		}

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		metrics.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			metrics.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
		}
	}
}

func routeLabel(fullPath string) string {
	switch {
	case fullPath == "":
		return "unknown"
	case strings.HasPrefix(fullPath, "/static/"):
		return "/static"
	case strings.HasPrefix(fullPath, "/deploy/"):
		return "/deploy"
	default:
		return fullPath
	}
}
