package aicoder

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*ToolRegistry, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Project_1")
	r, err := NewToolRegistry(context.Background(), root)
	require.NoError(t, err)
	return r, root
}

func TestToolRegistry_FileLifecycle(t *testing.T) {
	r, root := newTestRegistry(t)
	ctx := context.Background()

	res, exit := r.Invoke(ctx, ToolWriteFile, `{"relativeFilePath":"src/main.js","content":"console.log('a')"}`)
	assert.Equal(t, "文件写入成功: src/main.js", res)
	assert.False(t, exit)
	assert.FileExists(t, filepath.Join(root, "src", "main.js"))

	res, _ = r.Invoke(ctx, ToolReadFile, `{"relativeFilePath":"src/main.js"}`)
	assert.Equal(t, "console.log('a')", res)

	res, _ = r.Invoke(ctx, ToolModifyFile, `{"relativeFilePath":"src/main.js","oldContent":"'a'","newContent":"'b'"}`)
	assert.Equal(t, "文件修改成功: src/main.js", res)
	b, err := os.ReadFile(filepath.Join(root, "src", "main.js"))
	require.NoError(t, err)
	assert.Equal(t, "console.log('b')", string(b))

	res, _ = r.Invoke(ctx, ToolWriteFile, `{"relativeFilePath":"src/old.css","content":"a{}"}`)
	require.False(t, strings.HasPrefix(res, "Error:"), res)
	res, _ = r.Invoke(ctx, ToolDeleteFile, `{"relativeFilePath":"src/old.css"}`)
	assert.Equal(t, "文件删除成功: src/old.css", res)
	assert.NoFileExists(t, filepath.Join(root, "src", "old.css"))
}

func TestToolRegistry_RejectsPathsOutsideRoot(t *testing.T) {
	r, root := newTestRegistry(t)
	ctx := context.Background()

	for _, args := range []string{
		`{"relativeFilePath":"../escape.txt","content":"x"}`,
		`{"relativeFilePath":"src/../../escape.txt","content":"x"}`,
		`{"relativeFilePath":"/etc/passwd","content":"x"}`,
		`{"relativeFilePath":"","content":"x"}`,
	} {
		res, exit := r.Invoke(ctx, ToolWriteFile, args)
		assert.True(t, strings.HasPrefix(res, "Error:"), args)
		assert.False(t, exit)
	}
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), "escape.txt"))

	res, _ := r.Invoke(ctx, ToolReadFile, `{"relativeFilePath":"../../etc/hosts"}`)
	assert.True(t, strings.HasPrefix(res, "Error:"))
}

func TestToolRegistry_UnknownTool(t *testing.T) {
	r, _ := newTestRegistry(t)

	res, exit := r.Invoke(context.Background(), "execShell", `{}`)
	assert.Equal(t, "Error: there is no tool called execShell", res)
	assert.False(t, exit)
}

func TestToolRegistry_RepairsMalformedArguments(t *testing.T) {
	r, root := newTestRegistry(t)

	res, _ := r.Invoke(context.Background(), ToolWriteFile, `{"relativeFilePath":"index.html","content":"<div></div>"`)
	assert.Equal(t, "文件写入成功: index.html", res)
	assert.FileExists(t, filepath.Join(root, "index.html"))
}

func TestToolRegistry_ProtectsSkeletonFiles(t *testing.T) {
	r, root := newTestRegistry(t)
	ctx := context.Background()

	r.Invoke(ctx, ToolWriteFile, `{"relativeFilePath":"package.json","content":"{}"}`)
	res, _ := r.Invoke(ctx, ToolDeleteFile, `{"relativeFilePath":"package.json"}`)

	assert.True(t, strings.HasPrefix(res, "Error:"))
	assert.FileExists(t, filepath.Join(root, "package.json"))
}

func TestToolRegistry_ReadDirSkipsDependencies(t *testing.T) {
	r, root := newTestRegistry(t)
	ctx := context.Background()

	res, _ := r.Invoke(ctx, ToolReadDir, `{}`)
	assert.Equal(t, "目录不存在或为空", res)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "node_modules", "vue"), 0o755))
	r.Invoke(ctx, ToolWriteFile, `{"relativeFilePath":"src/components/Header.vue","content":"<template/>"}`)

	res, _ = r.Invoke(ctx, ToolReadDir, `{"relativeDirPath":""}`)
	assert.Contains(t, res, "src/")
	assert.Contains(t, res, "    Header.vue")
	assert.NotContains(t, res, "vue/")
	assert.NotContains(t, res, "node_modules/")
}

func TestToolRegistry_ModifyMissingContent(t *testing.T) {
	r, _ := newTestRegistry(t)
	ctx := context.Background()

	r.Invoke(ctx, ToolWriteFile, `{"relativeFilePath":"a.txt","content":"hello"}`)
	res, _ := r.Invoke(ctx, ToolModifyFile, `{"relativeFilePath":"a.txt","oldContent":"bye","newContent":"x"}`)
	assert.True(t, strings.HasPrefix(res, "Error:"))
}

func TestToolRegistry_Exit(t *testing.T) {
	r, _ := newTestRegistry(t)

	res, exit := r.Invoke(context.Background(), ToolExit, "")
	assert.True(t, exit)
	assert.Equal(t, exitResult, res)
}

func TestDescribeExecution(t *testing.T) {
	got := DescribeExecution(ToolWriteFile, `{"relativeFilePath":"src/App.vue","content":"<template/>"}`)
	assert.Equal(t, "[工具调用] 写入文件 src/App.vue\n```vue\n<template/>\n```", got)

	assert.Equal(t, "[工具调用] 读取目录 根目录", DescribeExecution(ToolReadDir, `{}`))
	assert.Equal(t, "[工具调用] 删除文件 a.css", DescribeExecution(ToolDeleteFile, `{"relativeFilePath":"a.css"}`))
	assert.Equal(t, "[工具调用] mystery", DescribeExecution("mystery", `{}`))
}
