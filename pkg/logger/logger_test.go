package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHandler_AddsContextFields(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(contextHandler{slog.NewJSONHandler(&buf, nil)})

	ctx := WithContext(context.Background(), RequestIDKey, "req-1")
	ctx = WithApp(ctx, 42, "vue_project")
	l.InfoContext(ctx, "generation started", "attempt", 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "generation started", rec["msg"])
	assert.Equal(t, "req-1", rec["request_id"])
	assert.EqualValues(t, 42, rec["app_id"])
	assert.Equal(t, "vue_project", rec["gen_mode"])
	assert.EqualValues(t, 1, rec["attempt"])
	assert.NotContains(t, rec, "trace_id")
}

func TestWithApp_EmptyModeIsOmitted(t *testing.T) {
	ctx := WithApp(context.Background(), 7, "")
	assert.Equal(t, int64(7), ctx.Value(AppIDKey))
	assert.Nil(t, ctx.Value(ModeKey))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		" error ": slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
