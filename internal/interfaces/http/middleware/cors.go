// Package middleware 提供 HTTP 中间件
package middleware

import (
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	defaultCORSHeaders = []string{"Origin", "Content-Type", "Authorization", RequestIDHeader, "Last-Event-ID"}
)

// CORS 跨域中间件
//
// refresh token 走 Cookie，请求需携带凭证；浏览器不接受通配来源搭配凭证，
// 配置为 "*" 时改为回显请求来源。
func CORS(cfg CORSConfig) gin.HandlerFunc {
	conf := cors.Config{
		AllowMethods: cfg.AllowedMethods,
		AllowHeaders: cfg.AllowedHeaders,
		// 下载接口通过 Content-Disposition 给出文件名
		ExposeHeaders:    []string{RequestIDHeader, TraceIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(conf.AllowMethods) == 0 {
		conf.AllowMethods = defaultCORSMethods
	}
	if len(conf.AllowHeaders) == 0 {
		conf.AllowHeaders = defaultCORSHeaders
	}

	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		conf.AllowOriginFunc = func(string) bool { return true }
	} else {
		conf.AllowOrigins = cfg.AllowedOrigins
	}
	return cors.New(conf)
}
