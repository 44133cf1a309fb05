// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/interfaces/http/dto"
)

// AppHandler 应用处理器
type AppHandler struct {
	apps AppService
}

// NewAppHandler 创建应用处理器
func NewAppHandler(apps AppService) *AppHandler {
	return &AppHandler{apps: apps}
}

// CreateApp 创建应用
// @Summary 创建应用
// @Description 以初始提示词创建应用，名称取提示词前 12 个字符
// @Tags Apps
// @Accept json
// @Produce json
// @Param body body dto.CreateAppRequest true "创建应用请求"
// @Success 201 {object} dto.Response[dto.AppResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /api/v1/apps [post]
func (h *AppHandler) CreateApp(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}

	var req dto.CreateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	mode := req.CodeGenType
	if strings.TrimSpace(mode) == "" {
		mode = "vue_project"
	}

	app, err := h.apps.Create(c.Request.Context(), user, req.InitPrompt, mode)
	if err != nil {
		fail(c, "failed to create app", err)
		return
	}
	dto.Created(c, dto.ToAppResponse(app))
}

// ListMyApps 我的应用列表
// @Summary 我的应用列表
// @Tags Apps
// @Produce json
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Param name query string false "名称模糊匹配"
// @Param tag query string false "标签"
// @Success 200 {object} dto.Response[dto.AppListResponse]
// @Router /api/v1/apps [get]
func (h *AppHandler) ListMyApps(c *gin.Context) {
	user, ok := requireUser(c)
	if !ok {
		return
	}
	page := dto.BindPage(c)
	filter := &repository.AppFilter{
		Name: strings.TrimSpace(c.Query("name")),
		Tag:  strings.TrimSpace(c.Query("tag")),
	}

	result, err := h.apps.ListMine(c.Request.Context(), user, filter, page.Pagination())
	if err != nil {
		fail(c, "failed to list apps", err)
		return
	}
	dto.SuccessWithPage(c, dto.ToAppListResponse(result.Items), dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

// GetApp 获取应用详情
// @Summary 获取应用详情
// @Tags Apps
// @Produce json
// @Param id path int true "应用 ID"
// @Success 200 {object} dto.Response[dto.AppResponse]
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/v1/apps/{id} [get]
func (h *AppHandler) GetApp(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	app, err := h.apps.GetVisible(c.Request.Context(), appID, user)
	if err != nil {
		fail(c, "failed to get app", err)
		return
	}
	dto.Success(c, dto.ToAppResponse(app))
}

// UpdateApp 修改应用名称
// @Summary 修改应用名称
// @Tags Apps
// @Accept json
// @Produce json
// @Param id path int true "应用 ID"
// @Param body body dto.UpdateAppRequest true "更新内容"
// @Success 200 {object} dto.Response[dto.AppResponse]
// @Router /api/v1/apps/{id} [put]
func (h *AppHandler) UpdateApp(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	var req dto.UpdateAppRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	app, err := h.apps.UpdateName(c.Request.Context(), appID, user, req.Name)
	if err != nil {
		fail(c, "failed to update app", err)
		return
	}
	dto.Success(c, dto.ToAppResponse(app))
}

// DeleteApp 删除应用
// @Summary 删除应用
// @Description 删除应用及其对话历史，创建者或管理员
// @Tags Apps
// @Param id path int true "应用 ID"
// @Success 204
// @Router /api/v1/apps/{id} [delete]
func (h *AppHandler) DeleteApp(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	if err := h.apps.Delete(c.Request.Context(), appID, user); err != nil {
		fail(c, "failed to delete app", err)
		return
	}
	dto.NoContent(c)
}

// DeployApp 部署应用
// @Summary 部署应用
// @Description 发布生成产物，返回可访问地址
// @Tags Apps
// @Produce json
// @Param id path int true "应用 ID"
// @Success 200 {object} dto.Response[dto.DeployResponse]
// @Failure 400 {object} dto.ErrorResponse "代码尚未生成"
// @Failure 409 {object} dto.ErrorResponse "构建产物未就绪"
// @Router /api/v1/apps/{id}/deploy [post]
func (h *AppHandler) DeployApp(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	url, err := h.apps.Deploy(c.Request.Context(), appID, user)
	if err != nil {
		fail(c, "failed to deploy app", err)
		return
	}
	dto.Success(c, &dto.DeployResponse{URL: url})
}

// BuildApp 投递异步构建任务
// @Summary 异步构建工程
// @Tags Apps
// @Produce json
// @Param id path int true "应用 ID"
// @Success 202 {object} dto.Response[dto.JobResponse]
// @Router /api/v1/apps/{id}/build [post]
func (h *AppHandler) BuildApp(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	job, err := h.apps.EnqueueBuild(c.Request.Context(), appID, user)
	if err != nil {
		fail(c, "failed to enqueue build", err)
		return
	}
	dto.Accepted(c, dto.ToJobResponse(job))
}

// DownloadApp 下载应用源码
// @Summary 下载应用源码
// @Tags Apps
// @Produce application/zip
// @Param id path int true "应用 ID"
// @Success 200 "zip 文件"
// @Router /api/v1/apps/{id}/download [get]
func (h *AppHandler) DownloadApp(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()
	archive, err := h.apps.PrepareDownload(ctx, appID, user)
	if err != nil {
		fail(c, "failed to prepare download", err)
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+archive.Filename+`"`)
	c.Status(http.StatusOK)
	// 响应头已写出，失败时只能中断连接
	if err := archive.WriteTo(ctx, c.Writer); err != nil {
		c.Abort()
	}
}

// ListAppJobs 应用的任务列表
// @Summary 应用的任务列表
// @Tags Jobs
// @Produce json
// @Param id path int true "应用 ID"
// @Param job_type query string false "generate / build"
// @Param status query string false "任务状态"
// @Success 200 {object} dto.Response[dto.JobListResponse]
// @Router /api/v1/apps/{id}/jobs [get]
func (h *AppHandler) ListAppJobs(c *gin.Context) {
	user, appID, ok := bindUserAndApp(c)
	if !ok {
		return
	}
	page := dto.BindPage(c)
	filter := &repository.JobFilter{
		JobType: entity.JobType(c.Query("job_type")),
		Status:  entity.JobStatus(c.Query("status")),
	}

	result, err := h.apps.ListJobs(c.Request.Context(), appID, user, filter, page.Pagination())
	if err != nil {
		fail(c, "failed to list jobs", err)
		return
	}
	dto.SuccessWithPage(c, dto.ToJobListResponse(result.Items), dto.NewPageMeta(result.Page, result.PageSize, int(result.Total)))
}

func bindUserAndApp(c *gin.Context) (*entity.User, int64, bool) {
	user, ok := requireUser(c)
	if !ok {
		return nil, 0, false
	}
	appID, err := dto.BindAppID(c)
	if err != nil {
		dto.FromError(c, err)
		return nil, 0, false
	}
	return user, appID, true
}
