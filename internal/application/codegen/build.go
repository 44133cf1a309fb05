package codegen

import (
	"context"
	"time"
)

// BuildRunner 构建工程目录（安装依赖并打包），同步执行
type BuildRunner interface {
	Build(ctx context.Context, dir string) error
}

// 生成结果状态
const (
	StatusSuccess   = "success"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)

// GenerationReport 一次生成的结果摘要
type GenerationReport struct {
	AppID      int64
	Mode       GenerationMode
	Status     string
	Dir        string
	Error      string
	BuildError string
	Duration   time.Duration
	FinishedAt time.Time
}

// ReportSink 接收生成结果摘要，实现方不得阻塞调用方
type ReportSink interface {
	Report(ctx context.Context, report GenerationReport)
}
