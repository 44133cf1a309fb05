// Package build 提供工程模式产物的构建执行器
package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/config"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
)

var tracer = otel.Tracer("build")

const (
	RunnerLocal  = "local"
	RunnerDocker = "docker"

	// DistDir 构建产物目录
	DistDir = "dist"

	defaultTimeout = 5 * time.Minute
	// 错误信息中保留的输出尾部长度
	outputTailBytes = 2048
)

// NewRunner 按配置选择构建方式
func NewRunner(cfg *config.BuildConfig) (codegen.BuildRunner, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Runner)) {
	case "", RunnerLocal:
		return NewLocalRunner(cfg), nil
	case RunnerDocker:
		return NewDockerRunner(cfg)
	default:
		return nil, fmt.Errorf("unknown build runner: %q", cfg.Runner)
	}
}

// DistPath 构建产物路径
func DistPath(dir string) string {
	return filepath.Join(dir, DistDir)
}

// instrument 为一次构建加上超时、链路与指标
func instrument(ctx context.Context, runner string, timeout time.Duration, dir string, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ctx, span := tracer.Start(ctx, "build.Run", trace.WithAttributes(
		attribute.String("build.runner", runner),
		attribute.String("build.dir", dir),
	))
	defer span.End()

	start := time.Now()
	err := checkProject(dir)
	if err == nil {
		err = fn(ctx)
	}
	if err == nil {
		err = checkDist(dir)
	}
	metrics.BuildDuration.WithLabelValues(runner).Observe(time.Since(start).Seconds())

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = fmt.Errorf("build timed out after %s: %w", timeout, err)
		}
		metrics.BuildTotal.WithLabelValues(runner, "error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	metrics.BuildTotal.WithLabelValues(runner, "success").Inc()
	logger.Debug(ctx, "build succeeded", "runner", runner, "dir", dir, "elapsed", time.Since(start).String())
	return nil
}

func checkProject(dir string) error {
	if _, err := os.Stat(filepath.Join(dir, "package.json")); err != nil {
		return fmt.Errorf("package.json not found in %s: %w", dir, err)
	}
	return nil
}

func checkDist(dir string) error {
	info, err := os.Stat(DistPath(dir))
	if err != nil {
		return fmt.Errorf("build produced no %s directory: %w", DistDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", DistPath(dir))
	}
	return nil
}

// tail 截取输出末尾，便于错误信息定位
func tail(out []byte) string {
	s := strings.TrimSpace(string(out))
	if len(s) > outputTailBytes {
		s = "..." + s[len(s)-outputTailBytes:]
	}
	return s
}
