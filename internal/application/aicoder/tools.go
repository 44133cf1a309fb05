package aicoder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/cloudwego/eino/schema"
	"github.com/kaptinlin/jsonrepair"

	"ai-code-mother/pkg/logger"
)

// 工具名称，与提示词中的描述保持一致
const (
	ToolWriteFile  = "writeFile"
	ToolReadFile   = "readFile"
	ToolReadDir    = "readDir"
	ToolModifyFile = "modifyFile"
	ToolDeleteFile = "deleteFile"
	ToolExit       = "exit"
)

// exitResult 模型调用 exit 后收到的回复
const exitResult = "不要继续调用工具，可以输出最终结果了"

// protectedFiles 工程骨架文件，不允许被删除
var protectedFiles = map[string]struct{}{
	"package.json":      {},
	"package-lock.json": {},
	"yarn.lock":         {},
	"pnpm-lock.yaml":    {},
	"vite.config.js":    {},
	"vite.config.ts":    {},
	"vue.config.js":     {},
	"tsconfig.json":     {},
	"index.html":        {},
	"main.js":           {},
	"main.ts":           {},
	"App.vue":           {},
	".gitignore":        {},
	"README.md":         {},
}

// skippedDirs readDir 不展开的目录
var skippedDirs = map[string]struct{}{
	"node_modules": {},
	"dist":         {},
	".git":         {},
	".vite":        {},
}

type writeFileInput struct {
	RelativeFilePath string `json:"relativeFilePath" jsonschema:"required,description=文件相对项目根目录的路径，例如 src/App.vue"`
	Content          string `json:"content" jsonschema:"required,description=要写入的完整文件内容"`
}

type readFileInput struct {
	RelativeFilePath string `json:"relativeFilePath" jsonschema:"required,description=文件相对项目根目录的路径"`
}

type readDirInput struct {
	RelativeDirPath string `json:"relativeDirPath,omitempty" jsonschema:"description=目录相对项目根目录的路径，为空时读取项目根目录"`
}

type modifyFileInput struct {
	RelativeFilePath string `json:"relativeFilePath" jsonschema:"required,description=文件相对项目根目录的路径"`
	OldContent       string `json:"oldContent" jsonschema:"required,description=要被替换的原内容"`
	NewContent       string `json:"newContent" jsonschema:"required,description=替换后的新内容"`
}

type deleteFileInput struct {
	RelativeFilePath string `json:"relativeFilePath" jsonschema:"required,description=文件相对项目根目录的路径"`
}

type exitInput struct{}

// ToolRegistry 工程模式的工具注册表，所有文件操作都限制在项目根目录内
type ToolRegistry struct {
	root  string
	tools map[string]tool.InvokableTool
	infos []*schema.ToolInfo
}

// NewToolRegistry 为项目目录创建工具注册表
func NewToolRegistry(ctx context.Context, root string) (*ToolRegistry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	r := &ToolRegistry{root: abs, tools: make(map[string]tool.InvokableTool)}

	marshal := utils.WithMarshalOutput(func(_ context.Context, output any) (string, error) {
		s, ok := output.(string)
		if !ok {
			return "", fmt.Errorf("unexpected tool output %T", output)
		}
		return s, nil
	})

	builders := []func() (tool.InvokableTool, error){
		func() (tool.InvokableTool, error) {
			return utils.InferTool(ToolWriteFile, "写入文件到指定的相对路径，文件已存在时覆盖", r.writeFile, marshal)
		},
		func() (tool.InvokableTool, error) {
			return utils.InferTool(ToolReadFile, "读取指定相对路径的文件内容", r.readFile, marshal)
		},
		func() (tool.InvokableTool, error) {
			return utils.InferTool(ToolReadDir, "列出目录结构，不展开 node_modules 和 dist", r.readDir, marshal)
		},
		func() (tool.InvokableTool, error) {
			return utils.InferTool(ToolModifyFile, "把文件中的一段旧内容替换为新内容", r.modifyFile, marshal)
		},
		func() (tool.InvokableTool, error) {
			return utils.InferTool(ToolDeleteFile, "删除指定相对路径的文件", r.deleteFile, marshal)
		},
		func() (tool.InvokableTool, error) {
			return utils.InferTool(ToolExit, "所有文件都已完成时调用，结束本轮工具调用", r.exit, marshal)
		},
	}

	for _, build := range builders {
		t, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to build tool: %w", err)
		}
		info, err := t.Info(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to read tool info: %w", err)
		}
		r.tools[info.Name] = t
		r.infos = append(r.infos, info)
	}
	return r, nil
}

// Root 项目根目录（绝对路径）
func (r *ToolRegistry) Root() string {
	return r.root
}

// Infos 提供给模型的工具描述
func (r *ToolRegistry) Infos() []*schema.ToolInfo {
	return r.infos
}

// Invoke 执行一次工具调用
//
// 失败以字符串形式返回给模型，不会中断生成；exit 为 true 表示模型请求结束。
func (r *ToolRegistry) Invoke(ctx context.Context, name, arguments string) (result string, exit bool) {
	t, ok := r.tools[name]
	if !ok {
		logger.Warn(ctx, "model called unknown tool", "tool", name)
		return fmt.Sprintf("Error: there is no tool called %s", name), false
	}

	args := repairArguments(arguments)

	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      name,
		Type:      name,
		Component: components.ComponentOfTool,
	})
	ctx = callbacks.OnStart(ctx, &tool.CallbackInput{ArgumentsInJSON: args})

	out, err := t.InvokableRun(ctx, args)
	if err != nil {
		callbacks.OnError(ctx, err)
		logger.Warn(ctx, "tool call failed", "tool", name, "error", err.Error())
		return "Error: " + err.Error(), false
	}

	callbacks.OnEnd(ctx, &tool.CallbackOutput{Response: out})
	return out, name == ToolExit
}

// repairArguments 模型偶尔输出不合法的 JSON 参数，先尝试修复
func repairArguments(arguments string) string {
	s := strings.TrimSpace(arguments)
	if s == "" {
		return "{}"
	}
	if json.Valid([]byte(s)) {
		return s
	}
	repaired, err := jsonrepair.JSONRepair(s)
	if err != nil {
		return s
	}
	return repaired
}

// resolve 把相对路径解析到项目根目录内
func (r *ToolRegistry) resolve(rel string, allowRoot bool) (string, error) {
	rel = strings.TrimSpace(rel)
	if rel == "" {
		if allowRoot {
			return r.root, nil
		}
		return "", errors.New("relativeFilePath is required")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("path %s must be relative to the project root", rel)
	}

	full := filepath.Join(r.root, rel)
	inside, err := filepath.Rel(r.root, full)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the project root", rel)
	}
	if inside == "." && !allowRoot {
		return "", fmt.Errorf("path %s is the project root", rel)
	}
	return full, nil
}

func (r *ToolRegistry) writeFile(ctx context.Context, in *writeFileInput) (string, error) {
	path, err := r.resolve(in.RelativeFilePath, false)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("文件写入失败: %s, 错误: %w", in.RelativeFilePath, err)
	}
	if err := os.WriteFile(path, []byte(in.Content), 0o644); err != nil {
		return "", fmt.Errorf("文件写入失败: %s, 错误: %w", in.RelativeFilePath, err)
	}
	logger.Debug(ctx, "tool wrote file", "path", path, "bytes", len(in.Content))
	return "文件写入成功: " + in.RelativeFilePath, nil
}

func (r *ToolRegistry) readFile(_ context.Context, in *readFileInput) (string, error) {
	path, err := r.resolve(in.RelativeFilePath, false)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("文件不存在: %s", in.RelativeFilePath)
	}
	if err != nil {
		return "", fmt.Errorf("文件读取失败: %s, 错误: %w", in.RelativeFilePath, err)
	}
	if len(b) == 0 {
		return "(空文件)", nil
	}
	return string(b), nil
}

func (r *ToolRegistry) readDir(_ context.Context, in *readDirInput) (string, error) {
	dir, err := r.resolve(in.RelativeDirPath, true)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "目录不存在或为空", nil
	}
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s 不是目录", in.RelativeDirPath)
	}

	var lines []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == dir {
			return nil
		}
		if _, skip := skippedDirs[d.Name()]; skip && d.IsDir() {
			return filepath.SkipDir
		}
		rel, _ := filepath.Rel(dir, path)
		depth := strings.Count(rel, string(filepath.Separator))
		name := d.Name()
		if d.IsDir() {
			name += "/"
		}
		lines = append(lines, strings.Repeat("  ", depth)+name)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("目录读取失败: %w", err)
	}
	if len(lines) == 0 {
		return "目录不存在或为空", nil
	}
	return "项目目录结构:\n" + strings.Join(lines, "\n"), nil
}

func (r *ToolRegistry) modifyFile(ctx context.Context, in *modifyFileInput) (string, error) {
	path, err := r.resolve(in.RelativeFilePath, false)
	if err != nil {
		return "", err
	}
	if in.OldContent == "" {
		return "", errors.New("oldContent is required")
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("文件不存在: %s", in.RelativeFilePath)
	}
	if err != nil {
		return "", err
	}
	original := string(b)
	if !strings.Contains(original, in.OldContent) {
		return "", fmt.Errorf("文件中未找到要替换的内容: %s", in.RelativeFilePath)
	}
	updated := strings.ReplaceAll(original, in.OldContent, in.NewContent)
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return "", fmt.Errorf("文件修改失败: %s, 错误: %w", in.RelativeFilePath, err)
	}
	logger.Debug(ctx, "tool modified file", "path", path)
	return "文件修改成功: " + in.RelativeFilePath, nil
}

func (r *ToolRegistry) deleteFile(ctx context.Context, in *deleteFileInput) (string, error) {
	path, err := r.resolve(in.RelativeFilePath, false)
	if err != nil {
		return "", err
	}
	if _, protected := protectedFiles[filepath.Base(path)]; protected {
		return "", fmt.Errorf("不允许删除重要文件: %s", in.RelativeFilePath)
	}
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("文件不存在: %s", in.RelativeFilePath)
	}
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s 是目录，只能删除文件", in.RelativeFilePath)
	}
	if err := os.Remove(path); err != nil {
		return "", fmt.Errorf("文件删除失败: %s, 错误: %w", in.RelativeFilePath, err)
	}
	logger.Debug(ctx, "tool deleted file", "path", path)
	return "文件删除成功: " + in.RelativeFilePath, nil
}

func (r *ToolRegistry) exit(ctx context.Context, _ *exitInput) (string, error) {
	logger.Debug(ctx, "model requested exit", "root", r.root)
	return exitResult, nil
}

// toolDisplayNames 工具调用在对话历史中的展示名
var toolDisplayNames = map[string]string{
	ToolWriteFile:  "写入文件",
	ToolReadFile:   "读取文件",
	ToolReadDir:    "读取目录",
	ToolModifyFile: "修改文件",
	ToolDeleteFile: "删除文件",
	ToolExit:       "退出工具调用",
}

// DescribeExecution 把一次已执行的工具调用渲染为写入对话历史的 markdown
func DescribeExecution(name, arguments string) string {
	display, ok := toolDisplayNames[name]
	if !ok {
		return fmt.Sprintf("[工具调用] %s", name)
	}

	var args map[string]any
	_ = json.Unmarshal([]byte(repairArguments(arguments)), &args)
	str := func(key string) string {
		v, _ := args[key].(string)
		return v
	}

	switch name {
	case ToolWriteFile:
		path := str("relativeFilePath")
		return fmt.Sprintf("[工具调用] %s %s\n```%s\n%s\n```", display, path, fileSuffix(path), str("content"))
	case ToolModifyFile:
		path := str("relativeFilePath")
		return fmt.Sprintf("[工具调用] %s %s\n替换前:\n```\n%s\n```\n替换后:\n```\n%s\n```", display, path, str("oldContent"), str("newContent"))
	case ToolReadDir:
		dir := str("relativeDirPath")
		if dir == "" {
			dir = "根目录"
		}
		return fmt.Sprintf("[工具调用] %s %s", display, dir)
	case ToolExit:
		return fmt.Sprintf("[工具调用] %s", display)
	default:
		return fmt.Sprintf("[工具调用] %s %s", display, str("relativeFilePath"))
	}
}

func fileSuffix(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

// toolNames 已注册的工具名（排序后），用于日志
func (r *ToolRegistry) toolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
