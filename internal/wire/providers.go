package wire

import (
	"os"

	"ai-code-mother/internal/application/apps"
	"ai-code-mother/internal/application/codegen"
	"ai-code-mother/internal/application/quota"
	"ai-code-mother/internal/config"
	"ai-code-mother/internal/domain/repository"
	"ai-code-mother/internal/infrastructure/build"
	"ai-code-mother/internal/infrastructure/messaging"
	"ai-code-mother/internal/infrastructure/persistence/postgres"
	"ai-code-mother/internal/infrastructure/persistence/redis"
	"ai-code-mother/internal/interfaces/http/handler"
	"ai-code-mother/internal/interfaces/http/router"
)

// PostgresOnlyDataLayer 仅包含 PostgreSQL 的数据层（用于 bootstrap）
type PostgresOnlyDataLayer struct {
	PgClient        *postgres.Client
	TxManager       *postgres.TxManager
	UserRepo        *postgres.UserRepository
	AppRepo         *postgres.AppRepository
	ChatHistoryRepo *postgres.ChatHistoryRepository
	JobRepo         *postgres.JobRepository
	LLMUsageRepo    *postgres.LLMUsageEventRepository
}

// App API 进程需要在启动与退出时单独处理的组件
type App struct {
	Router   *router.Router
	Sessions *codegen.SessionCache
	Jobs     *apps.JobRecorder
	Usage    *quota.LLMUsageRecorder
}

// BuildWorker 构建 worker 组件
type BuildWorker struct {
	Consumer *messaging.Consumer
	Handler  *apps.BuildJobHandler
}

// ProvidePostgresClient 提供 PostgreSQL 客户端
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		client.Close()
	}
	return client, cleanup, nil
}

// ProvideAppCache 提供应用读穿缓存
func ProvideAppCache(client *redis.Client, cfg *config.Config) *redis.AppCache {
	return redis.NewAppCache(client, cfg.Cache.AppTTL)
}

// ProvideGenerationLock 提供应用级生成互斥锁
func ProvideGenerationLock(client *redis.Client, cfg *config.Config) *redis.GenerationLock {
	return redis.NewGenerationLock(client, cfg.CodeGen.GenerationLockTTL)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(redisClient *redis.Client, cfg *config.Config) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 100000
	}
	return messaging.NewProducer(redisClient.Redis(), int64(maxLen))
}

// ProvideBuildConsumer 提供构建任务消费者
func ProvideBuildConsumer(redisClient *redis.Client, cfg *config.Config) *messaging.Consumer {
	rs := cfg.Messaging.RedisStream
	group := messaging.ConsumerGroupBuildWorker
	if rs.ConsumerGroupPrefix != "" {
		group = messaging.ConsumerGroup(rs.ConsumerGroupPrefix + "-build-worker")
	}
	return messaging.NewConsumer(redisClient.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamProjectBuild,
		Group:         group,
		ConsumerName:  consumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff:       messaging.BackoffFromConfig(rs.RetryBackoff),
	})
}

func consumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "build-worker"
	}
	return "build-worker-" + host
}

// ProvideBuildRunner 按配置选择本地或容器构建
func ProvideBuildRunner(cfg *config.Config) (codegen.BuildRunner, error) {
	return build.NewRunner(&cfg.CodeGen.Build)
}

// ProvideArtifactWriter 提供产物写入器
func ProvideArtifactWriter(cfg *config.Config) *codegen.ArtifactWriter {
	return codegen.NewArtifactWriter(cfg.CodeGen.OutputRoot)
}

// ProvideSessionCacheConfig 提供会话缓存配置
func ProvideSessionCacheConfig(cfg *config.Config) codegen.SessionCacheConfig {
	sc := cfg.CodeGen.SessionCache
	return codegen.SessionCacheConfig{
		MaxSize:      sc.MaxSize,
		MaxAge:       sc.MaxAge,
		IdleTTL:      sc.IdleTTL,
		MemoryWindow: cfg.CodeGen.MemoryWindow,
	}
}

// ProvideTokenQuotaChecker 提供每日 Token 配额检查
func ProvideTokenQuotaChecker(repo repository.LLMUsageEventRepository, cfg *config.Config) *quota.TokenQuotaChecker {
	return quota.NewTokenQuotaChecker(repo, cfg.CodeGen.DailyTokenQuota)
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(pg *postgres.Client, redisClient *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(pg, redisClient, cfg.CodeGen.OutputRoot, cfg.App.Version)
}

// ProvideAuthHandler 提供认证处理器
func ProvideAuthHandler(cfg *config.Config, users repository.UserRepository) *handler.AuthHandler {
	return handler.NewAuthHandler(cfg.Security.JWT, users)
}

// ProvideStaticHandler 提供预览与部署静态资源处理器
func ProvideStaticHandler(cfg *config.Config) *handler.StaticHandler {
	return handler.NewStaticHandler(cfg.CodeGen.OutputRoot, cfg.CodeGen.DeployRoot)
}
