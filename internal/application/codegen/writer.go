package codegen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
)

// fileTarget 字段到文件名的映射
type fileTarget struct {
	field    ArtifactField
	filename string
	required bool
}

// layouts 每种线性模式的落盘布局
var layouts = map[GenerationMode][]fileTarget{
	ModeSingleFile: {
		{field: FieldHTML, filename: "index.html", required: true},
	},
	ModeMultiFile: {
		{field: FieldHTML, filename: "index.html", required: true},
		{field: FieldJS, filename: "script.js"},
		{field: FieldCSS, filename: "style.css"},
	},
}

// ArtifactWriter 将产物写入 {root}/{modeTag}_{appId}
type ArtifactWriter struct {
	root string
}

// NewArtifactWriter 创建产物写入器
func NewArtifactWriter(root string) *ArtifactWriter {
	return &ArtifactWriter{root: root}
}

// Root 产物根目录
func (w *ArtifactWriter) Root() string {
	return w.root
}

// Dir 应用在指定模式下的产物目录
func (w *ArtifactWriter) Dir(mode GenerationMode, appID int64) string {
	return OutputDir(w.root, mode, appID)
}

// Write 校验并写出产物，返回产物目录
func (w *ArtifactWriter) Write(ctx context.Context, appID int64, artifact CodeArtifact) (string, error) {
	if artifact == nil {
		return "", apperrors.New(apperrors.CodeInvalidParam, "artifact is required")
	}
	if appID <= 0 {
		return "", apperrors.New(apperrors.CodeInvalidParam, "app id must be positive")
	}
	mode := artifact.Mode()
	targets, ok := layouts[mode]
	if !ok {
		return "", apperrors.Newf(apperrors.CodeUnsupportedMode, "no file layout for mode %q", mode)
	}

	fields := artifact.Fields()
	for _, target := range targets {
		if target.required && strings.TrimSpace(fields[target.field]) == "" {
			return "", apperrors.Newf(apperrors.CodeInvalidParam, "%s code must not be empty", target.field)
		}
	}

	dir := w.Dir(mode, appID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		metrics.ArtifactWritesTotal.WithLabelValues(mode.Tag(), "error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeArtifactWriteFailed, "failed to create output directory")
	}

	if err := writeAll(dir, targets, fields); err != nil {
		metrics.ArtifactWritesTotal.WithLabelValues(mode.Tag(), "error").Inc()
		return "", apperrors.Wrap(err, apperrors.CodeArtifactWriteFailed, "failed to write artifact files")
	}

	metrics.ArtifactWritesTotal.WithLabelValues(mode.Tag(), "success").Inc()
	logger.Info(ctx, "artifact written", "app_id", appID, "mode", mode.Tag(), "dir", dir)
	return dir, nil
}

// writeAll 先写临时文件，全部成功后再逐个重命名
func writeAll(dir string, targets []fileTarget, fields map[ArtifactField]string) error {
	type pending struct{ tmp, final string }
	var staged []pending

	cleanup := func() {
		for _, p := range staged {
			_ = os.Remove(p.tmp)
		}
	}

	for _, target := range targets {
		content := fields[target.field]
		if strings.TrimSpace(content) == "" {
			continue
		}
		f, err := os.CreateTemp(dir, "."+target.filename+".*.tmp")
		if err != nil {
			cleanup()
			return fmt.Errorf("create temp for %s: %w", target.filename, err)
		}
		staged = append(staged, pending{tmp: f.Name(), final: filepath.Join(dir, target.filename)})
		if _, err := f.WriteString(content); err != nil {
			_ = f.Close()
			cleanup()
			return fmt.Errorf("write %s: %w", target.filename, err)
		}
		if err := f.Close(); err != nil {
			cleanup()
			return fmt.Errorf("close %s: %w", target.filename, err)
		}
		if err := os.Chmod(f.Name(), 0o644); err != nil {
			cleanup()
			return fmt.Errorf("chmod %s: %w", target.filename, err)
		}
	}

	for i, p := range staged {
		if err := os.Rename(p.tmp, p.final); err != nil {
			for _, rest := range staged[i:] {
				_ = os.Remove(rest.tmp)
			}
			return fmt.Errorf("rename %s: %w", filepath.Base(p.final), err)
		}
	}
	return nil
}
