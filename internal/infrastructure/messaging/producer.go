package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-code-mother/pkg/logger"
)

var tracer = otel.Tracer("messaging")

const defaultMaxLen = 10000

// Producer 向 Redis Stream 追加消息，流长度按 maxLen 近似裁剪
type Producer struct {
	client *redis.Client
	maxLen int64
}

func NewProducer(client *redis.Client, maxLen int64) *Producer {
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{client: client, maxLen: maxLen}
}

// Publish 返回 Stream 分配的条目 ID
func (p *Producer) Publish(ctx context.Context, stream Stream, msg *Message) (string, error) {
	ctx, span := tracer.Start(ctx, "producer.Publish", trace.WithAttributes(
		attribute.String("stream", string(stream)),
		attribute.String("message.id", msg.ID),
		attribute.String("message.type", msg.Type),
	))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("marshal %s message: %w", msg.Type, err)
	}

	entryID, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: string(stream),
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]any{"data": string(data)},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("xadd %s: %w", stream, err)
	}

	span.SetAttributes(attribute.String("stream.entry_id", entryID))
	return entryID, nil
}

// PublishBuildJob 投递工程构建任务，请求 ID 与 trace ID 随消息传给 worker
func (p *Producer) PublishBuildJob(ctx context.Context, userID int64, job *ProjectBuildMessage) (string, error) {
	msg, err := NewMessage(MessageTypeProjectBuild, userID, job.AppID, job)
	if err != nil {
		return "", err
	}
	propagate(ctx, msg)
	return p.Publish(ctx, StreamProjectBuild, msg)
}

// propagate 与 Consumer 侧从元数据恢复日志字段相对应
func propagate(ctx context.Context, msg *Message) {
	if reqID, ok := ctx.Value(logger.RequestIDKey).(string); ok && reqID != "" {
		msg.SetMetadata("request_id", reqID)
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		msg.SetMetadata("trace_id", sc.TraceID().String())
	}
}
