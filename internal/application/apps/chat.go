package apps

import (
	"context"
	"strings"
	"time"

	"ai-code-mother/internal/application/aicoder"
	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/service"
	"ai-code-mother/internal/infrastructure/persistence/redis"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
)

const generationWindow = time.Minute

// failedReplyPrefix 生成失败时写入对话历史的前缀
const failedReplyPrefix = "AI回复失败: "

// ChatToGenCode 基于对话生成代码，返回下游事件流
//
// 同一应用同时只允许一个生成，锁在上游事件流结束后释放。
// 用户消息在调用模型前写入历史；流正常结束时写入完整回复，出错时写入失败说明，调用方取消时不写。
func (s *Service) ChatToGenCode(ctx context.Context, appID int64, user *entity.User, message string) (<-chan codegen.StreamEvent, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "用户消息不能为空")
	}
	app, err := s.getOwned(ctx, appID, user)
	if err != nil {
		return nil, err
	}
	mode, err := appMode(app)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithApp(ctx, app.ID, mode.Tag())

	if err := s.allowGeneration(ctx, user.ID); err != nil {
		return nil, err
	}
	if s.Quota != nil {
		if _, _, err := s.Quota.CheckDailyTokens(ctx, user.ID); err != nil {
			return nil, err
		}
	}

	release, err := s.lockApp(ctx, app.ID)
	if err != nil {
		return nil, err
	}

	if err := s.History.Append(ctx, app.ID, user.ID, message, entity.RoleUser); err != nil {
		release()
		return nil, err
	}

	upstream, err := s.Generator.Dispatch(service.WithOwner(ctx, user.ID, app.ID), app.ID, mode, message)
	if err != nil {
		release()
		return nil, err
	}

	out := make(chan codegen.StreamEvent)
	go func() {
		defer release()
		s.forward(ctx, app.ID, user.ID, upstream, out)
	}()
	return out, nil
}

// allowGeneration 按用户限流，限流器故障时放行
func (s *Service) allowGeneration(ctx context.Context, userID int64) error {
	if s.Limiter == nil || s.opts.GenerationsPerMinute <= 0 {
		return nil
	}
	ok, err := s.Limiter.Allow(ctx, redis.GenerationRateLimitKey(userID), s.opts.GenerationsPerMinute, generationWindow)
	if err != nil {
		logger.Warn(ctx, "generation rate limiter unavailable", "error", err)
		return nil
	}
	if !ok {
		metrics.RateLimitRejected.WithLabelValues("generation").Inc()
		return apperrors.New(apperrors.CodeTooManyRequests, "请求过于频繁，请稍后再试")
	}
	return nil
}

// forward 转发事件并累积 AI 回复
func (s *Service) forward(ctx context.Context, appID, userID int64, upstream <-chan codegen.StreamEvent, out chan<- codegen.StreamEvent) {
	defer close(out)

	var reply strings.Builder
	for ev := range upstream {
		switch ev.Kind {
		case codegen.EventTextChunk:
			reply.WriteString(ev.Payload)
		case codegen.EventToolCallExecuted:
			reply.WriteString("\n\n")
			reply.WriteString(aicoder.DescribeExecution(ev.Name, ev.Arguments))
			reply.WriteString("\n\n")
		case codegen.EventDone:
			s.saveReply(ctx, appID, userID, reply.String())
		case codegen.EventError:
			s.saveReply(ctx, appID, userID, failedReplyPrefix+ev.Message)
		}

		select {
		case out <- ev:
		case <-ctx.Done():
			// 排空上游，使生成侧的 goroutine 能够退出
			for range upstream {
			}
			return
		}
	}
}

func (s *Service) saveReply(ctx context.Context, appID, userID int64, reply string) {
	if strings.TrimSpace(reply) == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	if err := s.History.Append(ctx, appID, userID, reply, entity.RoleAssistant); err != nil {
		logger.Error(ctx, "failed to save ai reply", err)
	}
}
