// Package logger 基于 slog 的结构化日志，context 中的请求/应用字段自动附加到每条记录
package logger

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// ContextKey 日志字段在 context 中的键
type ContextKey string

const (
	TraceIDKey   ContextKey = "trace_id"
	SpanIDKey    ContextKey = "span_id"
	RequestIDKey ContextKey = "request_id"
	UserIDKey    ContextKey = "user_id"
	AppIDKey     ContextKey = "app_id"
	ModeKey      ContextKey = "gen_mode"
)

// contextKeys 按输出顺序排列
var contextKeys = []ContextKey{TraceIDKey, SpanIDKey, RequestIDKey, UserIDKey, AppIDKey, ModeKey}

var defaultLogger *slog.Logger

// contextHandler 在 Handle 时从 context 读取字段，调用方无需预先 With
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if ctx != nil {
		for _, key := range contextKeys {
			if v := ctx.Value(key); v != nil {
				r.AddAttrs(slog.Any(string(key), v))
			}
		}
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// Init 初始化全局日志器，format 为 json 或 text
func Init(level string, format string) {
	opts := &slog.HandlerOptions{
		Level:     parseLevel(level),
		AddSource: true,
	}

	var base slog.Handler
	if strings.EqualFold(format, "json") {
		base = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		base = slog.NewTextHandler(os.Stdout, opts)
	}

	defaultLogger = slog.New(contextHandler{base})
	slog.SetDefault(defaultLogger)
}

// parseLevel 无法识别时回退到 info；接受 warning 作为 warn 的别名
func parseLevel(level string) slog.Level {
	level = strings.TrimSpace(level)
	if strings.EqualFold(level, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// Default 返回全局日志器，未初始化时按 info/json 初始化
func Default() *slog.Logger {
	if defaultLogger == nil {
		Init("info", "json")
	}
	return defaultLogger
}

// FromContext 返回已绑定 context 字段的日志器，适合传给不感知 context 的组件
func FromContext(ctx context.Context) *slog.Logger {
	l := Default()
	if ctx == nil {
		return l
	}
	for _, key := range contextKeys {
		if v := ctx.Value(key); v != nil {
			l = l.With(string(key), v)
		}
	}
	return l
}

// WithContext 写入一个日志字段
func WithContext(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

// WithApp 写入应用 ID 与生成模式
func WithApp(ctx context.Context, appID int64, mode string) context.Context {
	ctx = context.WithValue(ctx, AppIDKey, appID)
	if mode != "" {
		ctx = context.WithValue(ctx, ModeKey, mode)
	}
	return ctx
}

func Info(ctx context.Context, msg string, args ...any) {
	Default().InfoContext(orBackground(ctx), msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	Default().DebugContext(orBackground(ctx), msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	Default().WarnContext(orBackground(ctx), msg, args...)
}

// Error err 非空时以 error 字段输出
func Error(ctx context.Context, msg string, err error, args ...any) {
	if err != nil {
		args = append(args, "error", err.Error())
	}
	Default().ErrorContext(orBackground(ctx), msg, args...)
}

// Fatal 记录后以状态码 1 退出
func Fatal(ctx context.Context, msg string, err error, args ...any) {
	Error(ctx, msg, err, args...)
	os.Exit(1)
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
