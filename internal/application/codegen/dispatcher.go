package codegen

import (
	"context"
	"strings"

	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// SessionProvider 提供生成会话
type SessionProvider interface {
	Get(ctx context.Context, appID int64, mode GenerationMode) (*Session, error)
}

// Dispatcher 代码生成入口：取会话、按模式发起调用并交给编排器
type Dispatcher struct {
	sessions     SessionProvider
	orchestrator *Orchestrator
}

// NewDispatcher 创建生成调度器
func NewDispatcher(sessions SessionProvider, orchestrator *Orchestrator) *Dispatcher {
	return &Dispatcher{sessions: sessions, orchestrator: orchestrator}
}

// Dispatch 发起一次生成。
//
// 参数或模式非法时同步返回错误，不启动任何流；上游调用失败以 error 终止事件的形式出现在返回的流中。
func (d *Dispatcher) Dispatch(ctx context.Context, appID int64, mode GenerationMode, message string) (<-chan StreamEvent, error) {
	if appID <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "app id must be positive")
	}
	if !mode.Valid() {
		return nil, apperrors.Newf(apperrors.CodeUnsupportedMode, "unsupported generation mode: %q", mode)
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "message must not be empty")
	}

	session, err := d.sessions.Get(ctx, appID, mode)
	if err != nil {
		return nil, err
	}
	key := session.Key
	ctx = logger.WithApp(ctx, appID, mode.Tag())

	switch mode {
	case ModeSingleFile, ModeMultiFile:
		upstream, err := session.Text.StreamText(ctx, message)
		if err != nil {
			return failed(ctx, err)
		}
		return d.orchestrator.RunLinear(ctx, key, upstream), nil
	case ModeProject:
		upstream, err := session.Agent.StreamAgent(ctx, message)
		if err != nil {
			return failed(ctx, err)
		}
		return d.orchestrator.RunStructured(ctx, key, upstream), nil
	default:
		return nil, apperrors.Newf(apperrors.CodeUnsupportedMode, "unsupported generation mode: %q", mode)
	}
}

// failed 上游在开始前就失败：校验类错误同步返回，其它作为单个 error 事件
func failed(ctx context.Context, err error) (<-chan StreamEvent, error) {
	if apperrors.HasCode(err, apperrors.CodeInvalidParam) || apperrors.HasCode(err, apperrors.CodePromptRejected) {
		return nil, err
	}
	logger.Error(ctx, "failed to start generation", err)
	out := make(chan StreamEvent, 1)
	out <- ErrorEvent(errorMessage(err))
	close(out)
	return out, nil
}
