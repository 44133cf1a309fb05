// Package codegen 实现代码生成编排核心：会话缓存、历史回放、流式编排、代码提取与落盘
package codegen

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	apperrors "ai-code-mother/pkg/errors"
)

// GenerationMode 生成模式
type GenerationMode string

const (
	// ModeSingleFile 单个 HTML 文件
	ModeSingleFile GenerationMode = "SingleFile"
	// ModeMultiFile HTML/JS/CSS 三个文件
	ModeMultiFile GenerationMode = "MultiFile"
	// ModeProject 由工具调用逐文件写出的前端工程
	ModeProject GenerationMode = "Project"
)

// Modes 全部受支持的模式
var Modes = []GenerationMode{ModeSingleFile, ModeMultiFile, ModeProject}

// ParseMode 解析模式字符串，兼容 html / multi_file / vue_project 旧取值
func ParseMode(s string) (GenerationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "singlefile", "single_file", "html":
		return ModeSingleFile, nil
	case "multifile", "multi_file":
		return ModeMultiFile, nil
	case "project", "vue_project":
		return ModeProject, nil
	default:
		return "", apperrors.Newf(apperrors.CodeUnsupportedMode, "unsupported generation mode: %q", s)
	}
}

// Valid 是否为受支持的模式
func (m GenerationMode) Valid() bool {
	switch m {
	case ModeSingleFile, ModeMultiFile, ModeProject:
		return true
	}
	return false
}

// Tag 目录名中使用的模式标识
func (m GenerationMode) Tag() string {
	return string(m)
}

// Linear 是否产出线性文本流，否则为结构化事件流
func (m GenerationMode) Linear() bool {
	return m == ModeSingleFile || m == ModeMultiFile
}

// String 实现 fmt.Stringer
func (m GenerationMode) String() string {
	return string(m)
}

// SessionKey 会话缓存键
type SessionKey struct {
	AppID int64
	Mode  GenerationMode
}

// String 形如 "42-SingleFile"
func (k SessionKey) String() string {
	return strconv.FormatInt(k.AppID, 10) + "-" + k.Mode.Tag()
}

// DirName 产物目录名 {modeTag}_{appId}
func DirName(mode GenerationMode, appID int64) string {
	return fmt.Sprintf("%s_%d", mode.Tag(), appID)
}

// OutputDir 产物目录的完整路径
func OutputDir(root string, mode GenerationMode, appID int64) string {
	return filepath.Join(root, DirName(mode, appID))
}
