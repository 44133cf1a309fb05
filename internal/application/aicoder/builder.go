// Package aicoder 基于 Eino 实现代码生成会话使用的 AI 服务
package aicoder

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/model"

	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/config"
	"ai-code-mother/internal/workflow/prompt"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// ChatModelFactory 应用层对 LLM ChatModel 的最小依赖（port）
// 由基础设施层提供具体实现（例如 EinoFactory）。
type ChatModelFactory interface {
	Get(ctx context.Context, name string) (model.ToolCallingChatModel, error)
	Resolve(name string) string
}

// Options 服务构建参数
type Options struct {
	OutputRoot      string
	TextProvider    string
	ProjectProvider string
	MaxToolRounds   int
}

// OptionsFromConfig 从配置读取构建参数
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputRoot:      cfg.CodeGen.OutputRoot,
		TextProvider:    cfg.CodeGen.TextProvider,
		ProjectProvider: cfg.CodeGen.ProjectProvider,
		MaxToolRounds:   cfg.CodeGen.MaxToolRounds,
	}
}

// Builder 实现 codegen.ServiceBuilder
type Builder struct {
	factory ChatModelFactory
	prompts *prompt.Registry
	opts    Options
}

var _ codegen.ServiceBuilder = (*Builder)(nil)

// NewBuilder 创建 AI 服务构建器
func NewBuilder(factory ChatModelFactory, prompts *prompt.Registry, opts Options) *Builder {
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	return &Builder{factory: factory, prompts: prompts, opts: opts}
}

// BuildText 构建线性模式的文本服务
func (b *Builder) BuildText(ctx context.Context, key codegen.SessionKey, memory *codegen.ConversationMemory) (codegen.TextService, error) {
	var id prompt.PromptID
	switch key.Mode {
	case codegen.ModeSingleFile:
		id = prompt.PromptSingleFileV1
	case codegen.ModeMultiFile:
		id = prompt.PromptMultiFileV1
	default:
		return nil, apperrors.Newf(apperrors.CodeUnsupportedMode, "mode %q has no text service", key.Mode)
	}

	tpl, err := b.prompts.ChatTemplate(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt %s: %w", id, err)
	}
	chat, err := b.factory.Get(ctx, b.opts.TextProvider)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model unavailable")
	}

	logger.Debug(ctx, "text service built", "session", key.String(), "prompt", string(id))
	return &textService{
		key:      key,
		provider: b.factory.Resolve(b.opts.TextProvider),
		chat:     chat,
		template: tpl,
		memory:   memory,
	}, nil
}

// BuildAgent 构建工程模式的工具调用服务，工具限定在该应用的输出目录内
func (b *Builder) BuildAgent(ctx context.Context, key codegen.SessionKey, memory *codegen.ConversationMemory) (codegen.AgentService, error) {
	if key.Mode != codegen.ModeProject {
		return nil, apperrors.Newf(apperrors.CodeUnsupportedMode, "mode %q has no agent service", key.Mode)
	}

	tpl, err := b.prompts.ChatTemplate(prompt.PromptProjectV1)
	if err != nil {
		return nil, fmt.Errorf("failed to load prompt %s: %w", prompt.PromptProjectV1, err)
	}
	tools, err := NewToolRegistry(ctx, codegen.OutputDir(b.opts.OutputRoot, key.Mode, key.AppID))
	if err != nil {
		return nil, err
	}
	base, err := b.factory.Get(ctx, b.opts.ProjectProvider)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeLLMProviderError, "chat model unavailable")
	}
	chat, err := base.WithTools(tools.Infos())
	if err != nil {
		return nil, fmt.Errorf("failed to bind tools: %w", err)
	}

	logger.Debug(ctx, "agent service built", "session", key.String(), "root", tools.Root(), "tools", tools.toolNames())
	return &projectService{
		key:       key,
		provider:  b.factory.Resolve(b.opts.ProjectProvider),
		chat:      chat,
		template:  tpl,
		memory:    memory,
		tools:     tools,
		maxRounds: b.opts.MaxToolRounds,
	}, nil
}
