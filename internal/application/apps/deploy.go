package apps

import (
	"context"
	"crypto/rand"
	"io"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/infrastructure/build"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

const (
	deployKeyLength   = 6
	deployKeyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Deploy 发布应用产物，返回访问地址 {host}/{deployKey}/
//
// 已部署过的应用沿用原 deployKey 并覆盖目录内容；工程模式先构建再发布 dist。
func (s *Service) Deploy(ctx context.Context, appID int64, user *entity.User) (string, error) {
	app, err := s.getOwned(ctx, appID, user)
	if err != nil {
		return "", err
	}
	mode, err := appMode(app)
	if err != nil {
		return "", err
	}
	ctx = logger.WithApp(ctx, app.ID, mode.Tag())

	release, err := s.lockApp(ctx, app.ID)
	if err != nil {
		return "", err
	}
	defer release()

	sourceDir, err := s.sourceDir(mode, app.ID)
	if err != nil {
		return "", err
	}

	if mode == codegen.ModeProject {
		if s.Builder == nil {
			return "", apperrors.New(apperrors.CodeArtifactNotReady, "工程构建未启用")
		}
		if err := s.Builder.Build(ctx, sourceDir); err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeArtifactNotReady, "工程构建失败，请重新生成代码")
		}
		sourceDir = build.DistPath(sourceDir)
		if !isDir(sourceDir) {
			return "", apperrors.New(apperrors.CodeArtifactNotReady, "构建产物不存在")
		}
	}

	deployKey := app.DeployKey
	if deployKey == "" {
		if deployKey, err = newDeployKey(); err != nil {
			return "", apperrors.Wrap(err, apperrors.CodeDeployFailed, "生成部署标识失败")
		}
	}

	target := filepath.Join(s.opts.DeployRoot, deployKey)
	if err := os.RemoveAll(target); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDeployFailed, "清理部署目录失败")
	}
	if err := copyTree(sourceDir, target); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDeployFailed, "部署失败")
	}

	now := time.Now()
	if err := s.Apps.UpdateDeployment(ctx, app.ID, deployKey, now); err != nil {
		return "", apperrors.Wrap(err, apperrors.CodeDatabaseError, "更新部署信息失败")
	}
	app.MarkDeployed(deployKey, now)
	s.invalidate(ctx, app.ID)

	logger.Info(ctx, "app deployed", "deploy_key", deployKey)
	return DeployURL(s.opts.DeployHost, deployKey), nil
}

// DeployURL 部署访问地址
func DeployURL(host, deployKey string) string {
	return strings.TrimRight(host, "/") + "/" + deployKey + "/"
}

// sourceDir 应用产物目录，不存在时返回 3002
func (s *Service) sourceDir(mode codegen.GenerationMode, appID int64) (string, error) {
	dir := codegen.OutputDir(s.opts.OutputRoot, mode, appID)
	if !isDir(dir) {
		return "", apperrors.New(apperrors.CodeAppCodeNotFound, "应用代码不存在，请先生成代码")
	}
	return dir, nil
}

func newDeployKey() (string, error) {
	b := make([]byte, deployKeyLength)
	limit := big.NewInt(int64(len(deployKeyAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = deployKeyAlphabet[n.Int64()]
	}
	return string(b), nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// copyTree 递归复制目录
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
