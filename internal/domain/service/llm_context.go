// Package service 定义跨层共享的 LLM 调用上下文
package service

import (
	"context"
	"strings"
)

type llmCtxKey string

const (
	llmCtxKeyMode     llmCtxKey = "llm_gen_mode"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
)

const unknown = "unknown"

type ownerCtxKey struct{}

// Owner 模型调用的归属，用于用量记账
type Owner struct {
	UserID int64
	AppID  int64
}

// WithOwner 标记本次模型调用的用户与应用
func WithOwner(ctx context.Context, userID, appID int64) context.Context {
	if ctx == nil || userID <= 0 {
		return ctx
	}
	return context.WithValue(ctx, ownerCtxKey{}, Owner{UserID: userID, AppID: appID})
}

// OwnerFromContext 读取调用归属
func OwnerFromContext(ctx context.Context) (Owner, bool) {
	if ctx == nil {
		return Owner{}, false
	}
	o, ok := ctx.Value(ownerCtxKey{}).(Owner)
	return o, ok
}

// WithMode 标记本次模型调用所属的生成模式
func WithMode(ctx context.Context, mode string) context.Context {
	return withValue(ctx, llmCtxKeyMode, mode)
}

// WithProvider 标记本次模型调用使用的 provider
func WithProvider(ctx context.Context, provider string) context.Context {
	return withValue(ctx, llmCtxKeyProvider, provider)
}

// WithModeProvider 同时标记生成模式与 provider
func WithModeProvider(ctx context.Context, mode, provider string) context.Context {
	return WithProvider(WithMode(ctx, mode), provider)
}

// ModeFromContext 读取生成模式，缺省为 unknown
func ModeFromContext(ctx context.Context) string {
	return valueOf(ctx, llmCtxKeyMode)
}

// ProviderFromContext 读取 provider，缺省为 unknown
func ProviderFromContext(ctx context.Context) string {
	return valueOf(ctx, llmCtxKeyProvider)
}

func withValue(ctx context.Context, key llmCtxKey, value string) context.Context {
	if ctx == nil {
		return nil
	}
	v := strings.TrimSpace(value)
	if v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func valueOf(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknown
	}
	s, ok := ctx.Value(key).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return unknown
	}
	return s
}
