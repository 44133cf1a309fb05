package build

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/config"
)

const waitDelay = time.Second

// LocalRunner 在本机执行 npm install 与 npm run build
type LocalRunner struct {
	npm string
	cfg *config.BuildConfig
}

var _ codegen.BuildRunner = (*LocalRunner)(nil)

// NewLocalRunner 创建本地构建器
func NewLocalRunner(cfg *config.BuildConfig) *LocalRunner {
	npm := cfg.NpmCommand
	if npm == "" {
		npm = "npm"
	}
	return &LocalRunner{npm: npm, cfg: cfg}
}

// Build 安装依赖并打包，成功要求生成 dist/
func (r *LocalRunner) Build(ctx context.Context, dir string) error {
	return instrument(ctx, RunnerLocal, r.cfg.Timeout, dir, func(ctx context.Context) error {
		if err := r.run(ctx, dir, "install"); err != nil {
			return err
		}
		return r.run(ctx, dir, "run", "build")
	})
}

func (r *LocalRunner) run(ctx context.Context, dir string, args ...string) error {
	cmd := exec.CommandContext(ctx, r.npm, args...)
	cmd.Dir = dir
	// npm 的子进程可能继续占用输出管道
	cmd.WaitDelay = waitDelay
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %v failed: %w\n%s", r.npm, args, err, tail(out))
	}
	return nil
}
