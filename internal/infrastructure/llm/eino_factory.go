// Package llm 提供基于 Eino 的 LLM 客户端工厂
package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"

	"ai-code-mother/internal/config"
)

// EinoFactory 按 provider 名称懒加载并复用 ChatModel
type EinoFactory struct {
	config *config.LLMConfig
	models map[string]model.ToolCallingChatModel
	mu     sync.RWMutex
}

// NewEinoFactory 创建 Eino 工厂
func NewEinoFactory(cfg *config.Config) *EinoFactory {
	return &EinoFactory{
		config: &cfg.LLM,
		models: make(map[string]model.ToolCallingChatModel),
	}
}

// Get 获取指定 provider 的 ChatModel，name 为空时使用默认 provider
//
// 返回的实例只读共享：需要绑定工具时调用 WithTools 得到新实例，不影响其他调用方。
func (f *EinoFactory) Get(ctx context.Context, name string) (model.ToolCallingChatModel, error) {
	name = f.resolve(name)

	f.mu.RLock()
	if m, ok := f.models[name]; ok {
		f.mu.RUnlock()
		return m, nil
	}
	f.mu.RUnlock()

	f.mu.Lock()
	defer f.mu.Unlock()

	// 双重检查
	if m, ok := f.models[name]; ok {
		return m, nil
	}

	providerCfg, ok := f.config.Providers[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", name)
	}
	if strings.TrimSpace(providerCfg.Model) == "" {
		return nil, fmt.Errorf("provider %s has no model", name)
	}

	chatCfg := &openai.ChatModelConfig{
		APIKey:      providerCfg.APIKey,
		BaseURL:     providerCfg.BaseURL,
		Model:       providerCfg.Model,
		Temperature: ptrFloat32(float32(providerCfg.Temperature)),
		Timeout:     providerCfg.Timeout,
	}
	if providerCfg.MaxTokens > 0 {
		maxTokens := providerCfg.MaxTokens
		chatCfg.MaxTokens = &maxTokens
	}

	m, err := openai.NewChatModel(ctx, chatCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model for %s: %w", name, err)
	}

	f.models[name] = m
	return m, nil
}

// Default 获取默认 provider 的 ChatModel
func (f *EinoFactory) Default(ctx context.Context) (model.ToolCallingChatModel, error) {
	return f.Get(ctx, "")
}

// Resolve 返回实际使用的 provider 名称
func (f *EinoFactory) Resolve(name string) string {
	return f.resolve(name)
}

func (f *EinoFactory) resolve(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return f.config.DefaultProvider
	}
	return name
}

func ptrFloat32(v float32) *float32 {
	return &v
}
