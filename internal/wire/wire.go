//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ai-code-mother/internal/application/aicoder"
	"ai-code-mother/internal/application/apps"
	"ai-code-mother/internal/application/chathistory"
	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/application/quota"
	"ai-code-mother/internal/config"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/infrastructure/llm"
	"ai-code-mother/internal/infrastructure/messaging"
	"ai-code-mother/internal/infrastructure/persistence/postgres"
	"ai-code-mother/internal/infrastructure/persistence/redis"
	"ai-code-mother/internal/interfaces/http/handler"
	"ai-code-mother/internal/interfaces/http/middleware"
	"ai-code-mother/internal/interfaces/http/router"
	"ai-code-mother/internal/workflow/prompt"
)

// InitializePostgresOnly 仅初始化 PostgreSQL 数据层（用于 bootstrap）
func InitializePostgresOnly(ctx context.Context, cfg *config.Config) (*PostgresOnlyDataLayer, func(), error) {
	wire.Build(
		PostgresSet,
		wire.Struct(new(PostgresOnlyDataLayer), "*"),
	)
	return nil, nil, nil
}

// InitializeApp 初始化 API 进程（路由、会话缓存、任务记录器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		RepoSet,
		RedisSet,
		MessagingSet,
		CodeGenSet,
		RouterSet,
		wire.Struct(new(App), "*"),
	)
	return nil, nil, nil
}

// InitializeBuildWorker 初始化构建 worker
func InitializeBuildWorker(ctx context.Context, cfg *config.Config) (*BuildWorker, func(), error) {
	wire.Build(
		RepoSet,
		ProvideRedisClient,
		ProvideBuildRunner,
		ProvideBuildConsumer,
		ProvideGenerationLock,
		wire.Bind(new(apps.GenerationLocker), new(*redis.GenerationLock)),
		apps.NewBuildJobHandler,
		wire.Struct(new(BuildWorker), "*"),
	)
	return nil, nil, nil
}

// PostgresSet PostgreSQL 提供者集合
var PostgresSet = wire.NewSet(
	ProvidePostgresClient,
	postgres.NewTxManager,
	postgres.NewUserRepository,
	postgres.NewAppRepository,
	postgres.NewChatHistoryRepository,
	postgres.NewJobRepository,
	postgres.NewLLMUsageEventRepository,
)

// RepoSet 整合了具体实现与接口绑定的集合
var RepoSet = wire.NewSet(
	PostgresSet,
	wire.Bind(new(repository.Transactor), new(*postgres.TxManager)),
	wire.Bind(new(repository.UserRepository), new(*postgres.UserRepository)),
	wire.Bind(new(repository.AppRepository), new(*postgres.AppRepository)),
	wire.Bind(new(repository.ChatHistoryRepository), new(*postgres.ChatHistoryRepository)),
	wire.Bind(new(repository.JobRepository), new(*postgres.JobRepository)),
	wire.Bind(new(repository.LLMUsageEventRepository), new(*postgres.LLMUsageEventRepository)),
)

// RedisSet Redis 提供者集合
var RedisSet = wire.NewSet(
	ProvideRedisClient,
	ProvideAppCache,
	redis.NewRateLimiter,
	ProvideGenerationLock,
	wire.Bind(new(apps.AppCache), new(*redis.AppCache)),
	wire.Bind(new(apps.GenerationLocker), new(*redis.GenerationLock)),
	wire.Bind(new(handler.AppCacheInvalidator), new(*redis.AppCache)),
	wire.Bind(new(apps.RateLimiter), new(*redis.RateLimiter)),
	wire.Bind(new(middleware.RateLimiter), new(*redis.RateLimiter)),
)

// MessagingSet 消息队列提供者集合
var MessagingSet = wire.NewSet(
	ProvideMessagingProducer,
	wire.Bind(new(apps.BuildPublisher), new(*messaging.Producer)),
)

// CodeGenSet 代码生成链路：模型工厂、会话缓存、编排与调度
var CodeGenSet = wire.NewSet(
	llm.NewEinoFactory,
	prompt.NewRegistry,
	aicoder.OptionsFromConfig,
	aicoder.NewBuilder,
	chathistory.NewService,
	codegen.NewMemoryLoader,
	ProvideSessionCacheConfig,
	codegen.NewSessionCache,
	ProvideArtifactWriter,
	ProvideBuildRunner,
	apps.NewJobRecorder,
	codegen.NewOrchestrator,
	codegen.NewDispatcher,
	ProvideTokenQuotaChecker,
	quota.NewLLMUsageRecorder,
	apps.OptionsFromConfig,
	wire.Struct(new(apps.Deps), "*"),
	apps.NewService,
	wire.Bind(new(aicoder.ChatModelFactory), new(*llm.EinoFactory)),
	wire.Bind(new(codegen.ServiceBuilder), new(*aicoder.Builder)),
	wire.Bind(new(codegen.HistoryFetcher), new(*chathistory.Service)),
	wire.Bind(new(codegen.SessionProvider), new(*codegen.SessionCache)),
	wire.Bind(new(codegen.ReportSink), new(*apps.JobRecorder)),
	wire.Bind(new(apps.Generator), new(*codegen.Dispatcher)),
	wire.Bind(new(apps.QuotaChecker), new(*quota.TokenQuotaChecker)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideAuthHandler,
	ProvideStaticHandler,
	handler.NewUserHandler,
	handler.NewAppHandler,
	handler.NewChatHandler,
	handler.NewAdminHandler,
	wire.Bind(new(handler.AppService), new(*apps.Service)),
	wire.Bind(new(handler.HistoryService), new(*chathistory.Service)),
	wire.Bind(new(handler.SessionInvalidator), new(*codegen.SessionCache)),
	wire.Bind(new(middleware.UserLoader), new(*postgres.UserRepository)),
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
