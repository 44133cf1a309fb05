// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
)

const readinessTimeout = 2 * time.Second

// HealthChecker 依赖的连通性检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	checks     map[string]HealthChecker
	outputRoot string
	version    string
}

// NewHealthHandler 创建健康检查处理器，outputRoot 为生成产物根目录
func NewHealthHandler(pg, redisClient HealthChecker, outputRoot, version string) *HealthHandler {
	return &HealthHandler{
		checks: map[string]HealthChecker{
			"postgres": pg,
			"redis":    redisClient,
		},
		outputRoot: outputRoot,
		version:    version,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: h.version})
}

// Ready 就绪检查：数据库、Redis 可达且产物目录可写
// @Summary 就绪检查
// @Tags System
// @Produce json
// @Success 200 {object} readinessResponse
// @Failure 503 {object} readinessResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := readinessResponse{Status: "ok", Checks: make(map[string]*readinessCheck, len(h.checks)+1)}
	for name, checker := range h.checks {
		check := probe(ctx, checker)
		resp.Checks[name] = check
		if check.Status != "ok" {
			resp.Status = "not_ready"
		}
	}

	output := &readinessCheck{Status: "ok"}
	if err := writableDir(h.outputRoot); err != nil {
		output.Status, output.Error = "error", err.Error()
		resp.Status = "not_ready"
	}
	resp.Checks["output_root"] = output

	if resp.Status != "ok" {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func probe(ctx context.Context, checker HealthChecker) *readinessCheck {
	if checker == nil {
		return &readinessCheck{Status: "missing", Error: "client not configured"}
	}
	start := time.Now()
	err := checker.HealthCheck(ctx)
	check := &readinessCheck{Status: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		check.Status, check.Error = "error", err.Error()
	}
	return check
}

// writableDir 确保目录存在且可以创建文件
func writableDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("output root not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, ".ready-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
