package messaging

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-code-mother/internal/config"
	"ai-code-mother/pkg/logger"
)

func TestNewMessage(t *testing.T) {
	msg, err := NewMessage(MessageTypeProjectBuild, 3, 42, &ProjectBuildMessage{JobID: 9, AppID: 42, Dir: "/tmp/Project_42"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, int64(42), msg.AppID)

	var payload ProjectBuildMessage
	require.NoError(t, msg.UnmarshalPayload(&payload))
	assert.Equal(t, int64(9), payload.JobID)
	assert.Equal(t, "/tmp/Project_42", payload.Dir)

	msg.SetMetadata("request_id", "")
	assert.Nil(t, msg.Metadata)
	msg.SetMetadata("request_id", "req-1")
	assert.Equal(t, "req-1", msg.GetMetadata("request_id"))
}

func TestCalculateBackoff(t *testing.T) {
	b := BackoffConfig{Initial: time.Second, Max: 10 * time.Second, Multiplier: 2}

	assert.Equal(t, time.Second, b.CalculateBackoff(0))
	assert.Equal(t, 4*time.Second, b.CalculateBackoff(2))
	assert.Equal(t, 10*time.Second, b.CalculateBackoff(5))
}

func TestBackoffFromConfig(t *testing.T) {
	b := BackoffFromConfig(config.BackoffConfig{Initial: 2 * time.Second, Multiplier: 0.5})
	assert.Equal(t, 2*time.Second, b.Initial)
	assert.Equal(t, time.Minute, b.Max)
	assert.Equal(t, 2.0, b.Multiplier)
}

func TestDecode(t *testing.T) {
	_, ok := decode(redis.XMessage{ID: "1-0", Values: map[string]any{"data": 12}})
	assert.False(t, ok)

	_, ok = decode(redis.XMessage{ID: "1-0", Values: map[string]any{"data": "{not json"}})
	assert.False(t, ok)

	msg, ok := decode(redis.XMessage{ID: "1-0", Values: map[string]any{"data": `{"id":"m1","type":"project_build","app_id":5,"payload":{}}`}})
	require.True(t, ok)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, int64(5), msg.AppID)
}

func TestMessageContext(t *testing.T) {
	msg := &Message{UserID: 3, AppID: 42, Metadata: map[string]string{"request_id": "req-9"}}
	ctx := messageContext(context.Background(), msg)

	assert.Equal(t, int64(3), ctx.Value(logger.UserIDKey))
	assert.Equal(t, int64(42), ctx.Value(logger.AppIDKey))
	assert.Equal(t, "req-9", ctx.Value(logger.RequestIDKey))
	assert.Nil(t, ctx.Value(logger.TraceIDKey))
}

func TestPropagateRoundTrip(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.RequestIDKey, "req-7")
	msg, err := NewMessage(MessageTypeProjectBuild, 3, 42, &ProjectBuildMessage{JobID: 1, AppID: 42})
	require.NoError(t, err)

	propagate(ctx, msg)
	assert.Equal(t, "req-7", msg.GetMetadata("request_id"))
	assert.Empty(t, msg.GetMetadata("trace_id"))

	restored := messageContext(context.Background(), msg)
	assert.Equal(t, "req-7", restored.Value(logger.RequestIDKey))
}
