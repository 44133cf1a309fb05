// Package handler 提供 HTTP 请求处理器
package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/application/chathistory"
	"ai-code-mother/internal/interfaces/http/dto"
)

// ChatHandler 代码生成对话处理器
type ChatHandler struct {
	apps    AppService
	history HistoryService
}

// NewChatHandler 创建对话处理器
func NewChatHandler(apps AppService, history HistoryService) *ChatHandler {
	return &ChatHandler{apps: apps, history: history}
}

// GenCode 流式生成代码
// @Summary 对话生成代码
// @Description SSE 推送生成事件，事件名为 text_chunk / tool_call_partial / tool_call_executed / error / done，数据为 JSON
// @Tags Chat
// @Produce text/event-stream
// @Param id path int true "应用 ID"
// @Param message query string true "用户消息"
// @Success 200 "SSE stream"
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Router /api/v1/apps/{id}/chat/gen/code [get]
func (h *ChatHandler) GenCode(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	events, err := h.apps.ChatToGenCode(ctx, appID, user, c.Query("message"))
	if err != nil {
		fail(c, "failed to start generation", err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(string(ev.Kind), ev)
			return !ev.Terminal()

		case <-ctx.Done():
			// 客户端断开
			return false
		}
	})
}

// ListHistory 游标分页查询对话历史
// @Summary 对话历史
// @Tags Chat
// @Produce json
// @Param id path int true "应用 ID"
// @Param pageSize query int false "每页数量，最大 50"
// @Param lastCreatedAt query string false "游标：上一页最后一条的创建时间"
// @Success 200 {object} dto.Response[dto.ChatHistoryPage]
// @Router /api/v1/apps/{id}/chat/history [get]
func (h *ChatHandler) ListHistory(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	q, err := dto.BindHistoryQuery(c)
	if err != nil {
		dto.FromError(c, err)
		return
	}
	ctx := c.Request.Context()

	app, err := h.apps.Get(ctx, appID)
	if err != nil {
		fail(c, "failed to get app", err)
		return
	}
	rows, err := h.history.ListByCursor(ctx, app, user, q.LastCreatedAt, q.PageSize)
	if err != nil {
		fail(c, "failed to list chat history", err)
		return
	}

	pageSize := q.PageSize
	if pageSize <= 0 {
		pageSize = chathistory.DefaultPageSize
	}
	dto.Success(c, dto.ToChatHistoryPage(rows, pageSize))
}
