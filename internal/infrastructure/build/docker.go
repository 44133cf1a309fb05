package build

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/config"
	"ai-code-mother/pkg/logger"
)

const (
	defaultImage = "node:20-alpine"
	workDir      = "/app"
	buildScript  = "npm install && npm run build"
)

// DockerRunner 在一次性 node 容器中构建，工程目录挂载到 /app
type DockerRunner struct {
	cli   *client.Client
	image string
	cfg   *config.BuildConfig
}

var _ codegen.BuildRunner = (*DockerRunner)(nil)

// NewDockerRunner 使用环境变量中的 Docker 配置创建构建器
func NewDockerRunner(cfg *config.BuildConfig) (*DockerRunner, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	image := cfg.DockerImage
	if image == "" {
		image = defaultImage
	}
	return &DockerRunner{cli: cli, image: image, cfg: cfg}, nil
}

// Close 关闭 Docker 客户端
func (r *DockerRunner) Close() error {
	return r.cli.Close()
}

// Build 在容器内执行构建，容器结束后删除
func (r *DockerRunner) Build(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return instrument(ctx, RunnerDocker, r.cfg.Timeout, abs, func(ctx context.Context) error {
		if err := r.ensureImage(ctx); err != nil {
			return err
		}
		return r.run(ctx, abs)
	})
}

func (r *DockerRunner) ensureImage(ctx context.Context) error {
	if _, _, err := r.cli.ImageInspectWithRaw(ctx, r.image); err == nil {
		return nil
	}
	logger.Info(ctx, "pulling build image", "image", r.image)
	rc, err := r.cli.ImagePull(ctx, r.image, types.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", r.image, err)
	}
	defer rc.Close()
	// 拉取进度需要读完才算完成
	_, err = io.Copy(io.Discard, rc)
	return err
}

func (r *DockerRunner) run(ctx context.Context, dir string) error {
	resp, err := r.cli.ContainerCreate(ctx,
		&container.Config{
			Image:      r.image,
			Cmd:        []string{"sh", "-c", buildScript},
			WorkingDir: workDir,
		},
		&container.HostConfig{
			Mounts: []mount.Mount{{
				Type:   mount.TypeBind,
				Source: dir,
				Target: workDir,
			}},
		},
		nil, nil, "")
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}
	defer func() {
		// 构建超时后 ctx 已取消，清理需要独立的 context
		if err := r.cli.ContainerRemove(context.WithoutCancel(ctx), resp.ID, types.ContainerRemoveOptions{Force: true}); err != nil {
			logger.Warn(ctx, "failed to remove build container", "container_id", resp.ID, "error", err)
		}
	}()

	if err := r.cli.ContainerStart(ctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	statusCh, errCh := r.cli.ContainerWait(ctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed waiting for container: %w", err)
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return fmt.Errorf("build container exited with code %d\n%s", status.StatusCode, r.logs(ctx, resp.ID))
		}
	}
	return nil
}

// logs 读取容器输出的末尾
func (r *DockerRunner) logs(ctx context.Context, id string) string {
	rc, err := r.cli.ContainerLogs(context.WithoutCancel(ctx), id, types.ContainerLogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return ""
	}
	defer rc.Close()
	var buf bytes.Buffer
	if _, err := stdcopy.StdCopy(&buf, &buf, rc); err != nil {
		return ""
	}
	return tail(buf.Bytes())
}
