// Package apps 提供应用的管理、代码生成、部署与下载
package apps

import (
	"context"
	"strings"
	"time"

	"ai-code-mother/internal/application/chathistory"
	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/config"
	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/infrastructure/messaging"
	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
)

// Generator 代码生成入口
type Generator interface {
	Dispatch(ctx context.Context, appID int64, mode codegen.GenerationMode, message string) (<-chan codegen.StreamEvent, error)
}

// AppCache 应用读穿缓存
type AppCache interface {
	GetOrLoad(ctx context.Context, appID int64, loader func(ctx context.Context) (*entity.App, error)) (*entity.App, error)
	Invalidate(ctx context.Context, appIDs ...int64) error
}

// RateLimiter 滑动窗口限流
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// GenerationLocker 应用级互斥：同一应用同一时刻只允许一次生成或构建
type GenerationLocker interface {
	Acquire(ctx context.Context, appID int64) (release func(), ok bool, err error)
}

// QuotaChecker 每日 Token 配额
type QuotaChecker interface {
	CheckDailyTokens(ctx context.Context, userID int64) (used int64, max int64, err error)
}

// BuildPublisher 投递异步构建任务
type BuildPublisher interface {
	PublishBuildJob(ctx context.Context, userID int64, job *messaging.ProjectBuildMessage) (string, error)
}

// Options 路径与限流配置
type Options struct {
	OutputRoot           string
	DeployRoot           string
	DeployHost           string
	GenerationsPerMinute int
}

// OptionsFromConfig 从配置构造
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		OutputRoot: cfg.CodeGen.OutputRoot,
		DeployRoot: cfg.CodeGen.DeployRoot,
		DeployHost: cfg.CodeGen.DeployHost,
	}
	if cfg.Security.RateLimit.Enabled {
		opts.GenerationsPerMinute = cfg.Security.RateLimit.GenerationsPerMinute
	}
	return opts
}

// Deps 服务依赖，可选项为 nil 时对应能力关闭
type Deps struct {
	Apps      repository.AppRepository
	Jobs      repository.JobRepository
	Tx        repository.Transactor
	History   *chathistory.Service
	Generator Generator
	Builder   codegen.BuildRunner

	Cache     AppCache
	Limiter   RateLimiter
	Locks     GenerationLocker
	Quota     QuotaChecker
	Publisher BuildPublisher
}

// Service 应用服务
type Service struct {
	Deps
	opts Options
}

// NewService 创建应用服务
func NewService(deps Deps, opts Options) *Service {
	return &Service{Deps: deps, opts: opts}
}

// lockApp 获取应用互斥锁，未配置时返回空操作
func (s *Service) lockApp(ctx context.Context, appID int64) (func(), error) {
	return acquireAppLock(ctx, s.Locks, appID)
}

func acquireAppLock(ctx context.Context, locks GenerationLocker, appID int64) (func(), error) {
	if locks == nil {
		return func() {}, nil
	}
	release, ok, err := locks.Acquire(ctx, appID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeCacheError, "获取应用锁失败")
	}
	if !ok {
		return nil, apperrors.New(apperrors.CodeConflict, "该应用正在生成或构建中，请稍后再试")
	}
	return release, nil
}

// Create 创建应用，名称取初始提示词前 12 个字符
func (s *Service) Create(ctx context.Context, user *entity.User, initPrompt, mode string) (*entity.App, error) {
	if strings.TrimSpace(initPrompt) == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "初始化 prompt 不能为空")
	}
	genMode, err := codegen.ParseMode(mode)
	if err != nil {
		return nil, err
	}

	app := entity.NewApp(user.ID, initPrompt, string(genMode))
	if err := s.Apps.Create(ctx, app); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "创建应用失败")
	}
	logger.Info(ctx, "app created", "app_id", app.ID, "mode", genMode.Tag())
	return app, nil
}

// Get 读取应用（经缓存），不存在返回 3001
func (s *Service) Get(ctx context.Context, appID int64) (*entity.App, error) {
	if appID <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "应用 ID 无效")
	}

	load := func(ctx context.Context) (*entity.App, error) {
		return s.Apps.GetByID(ctx, appID)
	}
	var (
		app *entity.App
		err error
	)
	if s.Cache != nil {
		app, err = s.Cache.GetOrLoad(ctx, appID, load)
	} else {
		app, err = load(ctx)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询应用失败")
	}
	if app == nil {
		return nil, apperrors.New(apperrors.CodeAppNotFound, "应用不存在")
	}
	return app, nil
}

// GetVisible 读取应用，仅创建者或管理员可见
func (s *Service) GetVisible(ctx context.Context, appID int64, user *entity.User) (*entity.App, error) {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.IsOwnedBy(user.ID) && !user.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "无权限访问该应用")
	}
	return app, nil
}

// getOwned 读取应用，仅创建者可操作
func (s *Service) getOwned(ctx context.Context, appID int64, user *entity.User) (*entity.App, error) {
	app, err := s.Get(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.IsOwnedBy(user.ID) {
		return nil, apperrors.New(apperrors.CodeForbidden, "无权限操作该应用")
	}
	return app, nil
}

// ListMine 当前用户的应用列表
func (s *Service) ListMine(ctx context.Context, user *entity.User, filter *repository.AppFilter, pagination repository.Pagination) (*repository.PagedResult[*entity.App], error) {
	result, err := s.Apps.ListByUser(ctx, user.ID, filter, pagination)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询应用列表失败")
	}
	return result, nil
}

// UpdateName 修改应用名称，仅创建者
func (s *Service) UpdateName(ctx context.Context, appID int64, user *entity.User, name string) (*entity.App, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "应用名称不能为空")
	}
	app, err := s.getOwned(ctx, appID, user)
	if err != nil {
		return nil, err
	}

	app.Name = name
	app.UpdatedAt = time.Now()
	if err := s.Apps.Update(ctx, app); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "更新应用失败")
	}
	s.invalidate(ctx, app.ID)
	return app, nil
}

// Delete 删除应用及其对话历史，创建者或管理员
func (s *Service) Delete(ctx context.Context, appID int64, user *entity.User) error {
	app, err := s.GetVisible(ctx, appID, user)
	if err != nil {
		return err
	}

	err = s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.History.DeleteByApp(ctx, app.ID); err != nil {
			return err
		}
		return s.Apps.Delete(ctx, app.ID)
	})
	if err != nil {
		if apperrors.IsAppError(err) {
			return err
		}
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "删除应用失败")
	}
	s.invalidate(ctx, app.ID)
	logger.Info(ctx, "app deleted", "app_id", app.ID)
	return nil
}

func (s *Service) invalidate(ctx context.Context, appID int64) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.Invalidate(ctx, appID); err != nil {
		logger.Warn(ctx, "failed to invalidate app cache", "app_id", appID, "error", err)
	}
}

// appMode 解析应用保存的生成模式
func appMode(app *entity.App) (codegen.GenerationMode, error) {
	mode, err := codegen.ParseMode(app.CodeGenType)
	if err != nil {
		return "", apperrors.Newf(apperrors.CodeUnsupportedMode, "应用的代码生成类型无效: %q", app.CodeGenType)
	}
	return mode, nil
}
