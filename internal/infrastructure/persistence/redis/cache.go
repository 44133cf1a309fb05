package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"ai-code-mother/internal/domain/entity"
	"ai-code-mother/pkg/logger"
)

var cacheTracer = otel.Tracer("redis.cache")

const appKeyPrefix = "app:"

// AppKey 应用缓存键
func AppKey(appID int64) string {
	return fmt.Sprintf("%s%d", appKeyPrefix, appID)
}

// AppLoader 缓存未命中时从数据库加载应用，返回 nil 表示不存在
type AppLoader = func(ctx context.Context) (*entity.App, error)

// AppCache 应用读穿缓存
type AppCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewAppCache 创建应用缓存
func NewAppCache(client *Client, ttl time.Duration) *AppCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &AppCache{client: client, ttl: ttl}
}

// GetOrLoad 先读缓存，未命中时合并并发加载并回填。
// Redis 不可用时直接回源，不影响主流程。
func (c *AppCache) GetOrLoad(ctx context.Context, appID int64, loader AppLoader) (*entity.App, error) {
	key := AppKey(appID)
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if app, ok := c.read(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return app, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err, shared := c.group.Do(key, func() (any, error) {
		if app, ok := c.read(ctx, key); ok {
			return app, nil
		}
		app, err := loader(ctx)
		if err != nil || app == nil {
			return app, err
		}
		c.write(ctx, key, app)
		return app, nil
	})
	span.SetAttributes(attribute.Bool("cache.shared", shared))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	app, _ := result.(*entity.App)
	return app, nil
}

// Invalidate 删除应用缓存
func (c *AppCache) Invalidate(ctx context.Context, appIDs ...int64) error {
	if len(appIDs) == 0 {
		return nil
	}
	ctx, span := cacheTracer.Start(ctx, "cache.Invalidate",
		trace.WithAttributes(attribute.Int("cache.key_count", len(appIDs))))
	defer span.End()

	keys := make([]string, 0, len(appIDs))
	for _, id := range appIDs {
		keys = append(keys, AppKey(id))
	}
	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to invalidate app cache: %w", err)
	}
	return nil
}

// InvalidateAll 按前缀清空应用缓存
func (c *AppCache) InvalidateAll(ctx context.Context) (int, error) {
	ctx, span := cacheTracer.Start(ctx, "cache.InvalidateAll")
	defer span.End()

	iter := c.client.rdb.Scan(ctx, 0, appKeyPrefix+"*", 200).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		span.RecordError(err)
		return 0, err
	}
	if len(keys) == 0 {
		return 0, nil
	}

	span.SetAttributes(attribute.Int("cache.invalidated_count", len(keys)))
	if err := c.client.rdb.Del(ctx, keys...).Err(); err != nil {
		span.RecordError(err)
		return 0, err
	}
	return len(keys), nil
}

func (c *AppCache) read(ctx context.Context, key string) (*entity.App, bool) {
	raw, err := c.client.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !IsNil(err) {
			logger.Warn(ctx, "app cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	var app entity.App
	if err := json.Unmarshal(raw, &app); err != nil {
		logger.Warn(ctx, "app cache entry corrupted", "key", key, "error", err)
		return nil, false
	}
	return &app, true
}

func (c *AppCache) write(ctx context.Context, key string, app *entity.App) {
	raw, err := json.Marshal(app)
	if err != nil {
		return
	}
	if err := c.client.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		logger.Warn(ctx, "app cache write failed", "key", key, "error", err)
	}
}
