package callback

import (
	"context"
	"errors"
	"io"
	"time"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ai-code-mother/internal/domain/service"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
)

type startTimeKey struct{}

func newChatModelCallbackHandler(recorder service.LLMUsageRecorder) *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			attrs := []attribute.KeyValue{
				attribute.String("codegen.mode", service.ModeFromContext(ctx)),
				attribute.String("llm.provider", service.ProviderFromContext(ctx)),
				attribute.String("llm.model", modelNameFromInput(input)),
			}
			if info != nil {
				attrs = append(attrs,
					attribute.String("eino.node_name", info.Name),
					attribute.String("eino.type", info.Type),
				)
			}
			if input != nil {
				attrs = append(attrs, attribute.Int("llm.messages", len(input.Messages)))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, _ *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			var usage *model.TokenUsage
			modelName := ""
			if output != nil {
				usage = output.TokenUsage
				modelName = modelNameFromOutput(output)
			}
			recordModelSuccess(ctx, recorder, modelName, usage)
			return ctx
		},

		// 流式调用的用量在最后一个分片上，需要读完输出流再统计
		OnEndWithStreamOutput: func(ctx context.Context, _ *einocb.RunInfo, output *schema.StreamReader[*model.CallbackOutput]) context.Context {
			go func() {
				defer func() {
					if r := recover(); r != nil {
						logger.Warn(ctx, "eino stream callback panicked", "panic", r)
					}
				}()
				defer output.Close()

				var usage *model.TokenUsage
				modelName := ""
				for {
					chunk, err := output.Recv()
					if errors.Is(err, io.EOF) {
						break
					}
					if err != nil {
						recordModelError(ctx, modelName, err)
						return
					}
					if chunk == nil {
						continue
					}
					if chunk.TokenUsage != nil {
						usage = chunk.TokenUsage
					}
					if name := modelNameFromOutput(chunk); name != "" {
						modelName = name
					}
				}
				recordModelSuccess(ctx, recorder, modelName, usage)
			}()
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			modelName := ""
			if info != nil {
				modelName = info.Type
			}
			recordModelError(ctx, modelName, err)
			return ctx
		},
	}
}

func recordModelSuccess(ctx context.Context, recorder service.LLMUsageRecorder, modelName string, usage *model.TokenUsage) {
	mode := service.ModeFromContext(ctx)
	provider := service.ProviderFromContext(ctx)

	metrics.LLMCallTotal.WithLabelValues(mode, provider, modelName, "success").Inc()
	d := elapsedSeconds(ctx)
	if d > 0 {
		metrics.LLMCallDuration.WithLabelValues(mode, provider, modelName).Observe(d)
	}
	recordUsage(ctx, recorder, mode, provider, modelName, usage, d)
	if usage != nil {
		metrics.LLMTokensUsed.WithLabelValues(mode, provider, modelName, "prompt").Add(float64(usage.PromptTokens))
		metrics.LLMTokensUsed.WithLabelValues(mode, provider, modelName, "completion").Add(float64(usage.CompletionTokens))
	}

	span := trace.SpanFromContext(ctx)
	if usage != nil {
		span.SetAttributes(
			attribute.Int("llm.prompt_tokens", usage.PromptTokens),
			attribute.Int("llm.completion_tokens", usage.CompletionTokens),
		)
	}
	span.End()
}

// recordUsage 按调用归属写入用量流水，失败只记日志
func recordUsage(ctx context.Context, recorder service.LLMUsageRecorder, mode, provider, modelName string, usage *model.TokenUsage, seconds float64) {
	if recorder == nil || usage == nil {
		return
	}
	owner, ok := service.OwnerFromContext(ctx)
	if !ok {
		return
	}
	in := service.LLMUsageInput{
		UserID:           owner.UserID,
		AppID:            owner.AppID,
		Mode:             mode,
		Provider:         provider,
		Model:            modelName,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		DurationMs:       int(seconds * 1000),
	}
	// 流式调用结束时请求可能已返回
	if err := recorder.Record(context.WithoutCancel(ctx), in); err != nil {
		logger.Warn(ctx, "failed to record llm usage", "error", err, "user_id", owner.UserID)
	}
}

func recordModelError(ctx context.Context, modelName string, err error) {
	mode := service.ModeFromContext(ctx)
	provider := service.ProviderFromContext(ctx)

	metrics.LLMCallTotal.WithLabelValues(mode, provider, modelName, "error").Inc()
	if d := elapsedSeconds(ctx); d > 0 {
		metrics.LLMCallDuration.WithLabelValues(mode, provider, modelName).Observe(d)
	}

	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.End()
}

func newToolCallbackHandler() *cbtemplate.ToolCallbackHandler {
	return &cbtemplate.ToolCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, _ *tool.CallbackInput) context.Context {
			ctx = context.WithValue(ctx, startTimeKey{}, time.Now())

			ctx, _ = otel.Tracer("eino").Start(ctx, "tool.invoke",
				trace.WithAttributes(
					attribute.String("codegen.mode", service.ModeFromContext(ctx)),
					attribute.String("tool.name", toolNameOf(info)),
				),
			)
			return ctx
		},

		OnEnd: func(ctx context.Context, info *einocb.RunInfo, _ *tool.CallbackOutput) context.Context {
			toolName := toolNameOf(info)

			metrics.ToolCallTotal.WithLabelValues(toolName, "success").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.ToolCallDuration.WithLabelValues(toolName).Observe(d)
			}

			trace.SpanFromContext(ctx).End()
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			toolName := toolNameOf(info)

			metrics.ToolCallTotal.WithLabelValues(toolName, "error").Inc()
			if d := elapsedSeconds(ctx); d > 0 {
				metrics.ToolCallDuration.WithLabelValues(toolName).Observe(d)
			}

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		},
	}
}

func toolNameOf(info *einocb.RunInfo) string {
	if info == nil {
		return ""
	}
	return info.Type
}

func elapsedSeconds(ctx context.Context) float64 {
	start, ok := ctx.Value(startTimeKey{}).(time.Time)
	if !ok || start.IsZero() {
		return 0
	}
	return time.Since(start).Seconds()
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
