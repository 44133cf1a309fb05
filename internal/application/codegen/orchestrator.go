package codegen

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/cloudwego/eino/schema"

	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
	"ai-code-mother/pkg/tracer"
)

// eventBuffer 下游通道缓冲
const eventBuffer = 16

// Orchestrator 消费上游流，向调用方转发规范化事件，并在完成后落盘或构建
type Orchestrator struct {
	writer *ArtifactWriter
	runner BuildRunner
	sink   ReportSink
}

// NewOrchestrator 创建流编排器，runner 与 sink 可为空
func NewOrchestrator(writer *ArtifactWriter, runner BuildRunner, sink ReportSink) *Orchestrator {
	return &Orchestrator{writer: writer, runner: runner, sink: sink}
}

// RunLinear 处理线性文本流：逐块转发并累积，流结束后提取并写出产物
func (o *Orchestrator) RunLinear(ctx context.Context, key SessionKey, upstream *schema.StreamReader[string]) <-chan StreamEvent {
	out := make(chan StreamEvent, eventBuffer)
	go o.runLinear(ctx, key, upstream, out)
	return out
}

// RunStructured 处理结构化事件流：逐条翻译转发，流结束后同步构建再发送 done
func (o *Orchestrator) RunStructured(ctx context.Context, key SessionKey, upstream *schema.StreamReader[*AgentEvent]) <-chan StreamEvent {
	out := make(chan StreamEvent, eventBuffer)
	go o.runStructured(ctx, key, upstream, out)
	return out
}

func (o *Orchestrator) runLinear(ctx context.Context, key SessionKey, upstream *schema.StreamReader[string], out chan<- StreamEvent) {
	defer close(out)
	defer upstream.Close()

	ctx = logger.WithApp(ctx, key.AppID, key.Mode.Tag())
	ctx, span := tracer.StartGeneration(ctx, key.AppID, key.Mode.Tag())
	defer span.End()
	start := time.Now()

	var acc strings.Builder
	for {
		chunk, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				o.finish(ctx, key, StatusCancelled, "", nil, nil, start)
				return
			}
			tracer.RecordError(span, err)
			logger.Error(ctx, "generation stream failed", err)
			o.finish(ctx, key, StatusError, "", err, nil, start)
			emit(ctx, out, ErrorEvent(errorMessage(err)))
			return
		}
		acc.WriteString(chunk)
		if !emit(ctx, out, TextChunk(chunk)) {
			o.finish(ctx, key, StatusCancelled, "", nil, nil, start)
			return
		}
	}

	// 取消后不落盘
	if ctx.Err() != nil {
		o.finish(ctx, key, StatusCancelled, "", nil, nil, start)
		return
	}

	dir := o.persist(ctx, key, acc.String())
	o.finish(ctx, key, StatusSuccess, dir, nil, nil, start)
	emit(ctx, out, Done())
}

// persist 提取并写出产物，失败只记录日志
func (o *Orchestrator) persist(ctx context.Context, key SessionKey, text string) string {
	artifact, err := Extract(key.Mode, text)
	if err != nil {
		logger.Error(ctx, "failed to extract code artifact", err)
		return ""
	}
	dir, err := o.writer.Write(ctx, key.AppID, artifact)
	if err != nil {
		logger.Error(ctx, "failed to persist code artifact", err)
		return ""
	}
	return dir
}

func (o *Orchestrator) runStructured(ctx context.Context, key SessionKey, upstream *schema.StreamReader[*AgentEvent], out chan<- StreamEvent) {
	defer close(out)
	defer upstream.Close()

	ctx = logger.WithApp(ctx, key.AppID, key.Mode.Tag())
	ctx, span := tracer.StartGeneration(ctx, key.AppID, key.Mode.Tag())
	defer span.End()
	start := time.Now()

	for {
		ev, err := upstream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				o.finish(ctx, key, StatusCancelled, "", nil, nil, start)
				return
			}
			tracer.RecordError(span, err)
			logger.Error(ctx, "agent stream failed", err)
			o.finish(ctx, key, StatusError, "", err, nil, start)
			emit(ctx, out, ErrorEvent(errorMessage(err)))
			return
		}
		if ev == nil {
			continue
		}
		se, ok := ev.toStreamEvent()
		if !ok {
			logger.Warn(ctx, "dropping malformed agent event", "kind", string(ev.Kind))
			continue
		}
		if !emit(ctx, out, se) {
			o.finish(ctx, key, StatusCancelled, "", nil, nil, start)
			return
		}
	}

	if ctx.Err() != nil {
		o.finish(ctx, key, StatusCancelled, "", nil, nil, start)
		return
	}

	dir := o.writer.Dir(key.Mode, key.AppID)
	buildErr := o.build(ctx, dir)
	o.finish(ctx, key, StatusSuccess, dir, nil, buildErr, start)
	emit(ctx, out, Done())
}

// build 同步构建工程目录，失败只记录日志
func (o *Orchestrator) build(ctx context.Context, dir string) error {
	if o.runner == nil {
		return nil
	}
	if err := o.runner.Build(ctx, dir); err != nil {
		logger.Error(ctx, "project build failed", err, "dir", dir)
		return err
	}
	logger.Info(ctx, "project build finished", "dir", dir)
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, key SessionKey, status, dir string, genErr, buildErr error, start time.Time) {
	elapsed := time.Since(start)
	metrics.GenerationTotal.WithLabelValues(key.Mode.Tag(), status).Inc()
	metrics.GenerationDuration.WithLabelValues(key.Mode.Tag()).Observe(elapsed.Seconds())

	if status == StatusCancelled {
		logger.Info(ctx, "generation cancelled by caller")
	}
	if o.sink == nil {
		return
	}
	report := GenerationReport{
		AppID:      key.AppID,
		Mode:       key.Mode,
		Status:     status,
		Dir:        dir,
		Duration:   elapsed,
		FinishedAt: time.Now(),
	}
	if genErr != nil {
		report.Error = genErr.Error()
	}
	if buildErr != nil {
		report.BuildError = buildErr.Error()
	}
	o.sink.Report(context.WithoutCancel(ctx), report)
}

// emit 发送事件，调用方取消时返回 false
func emit(ctx context.Context, out chan<- StreamEvent, ev StreamEvent) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// errorMessage 面向调用方的错误描述
func errorMessage(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "generation timed out"
	}
	return err.Error()
}
