package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"ai-code-mother/pkg/logger"
)

// DefaultGenerationLockTTL 锁的兜底过期时间，覆盖一次生成加构建的最长耗时
const DefaultGenerationLockTTL = 15 * time.Minute

const releaseTimeout = 2 * time.Second

// releaseIfOwner 只删除自己持有的锁，过期后被他人重新获取的锁不受影响
var releaseIfOwner = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
  return redis.call('DEL', KEYS[1])
end
return 0
`)

// GenerationLockKey 应用生成互斥键，同一应用的生成、部署构建与异步构建共用
func GenerationLockKey(appID int64) string {
	return fmt.Sprintf("lock:gen:%d", appID)
}

// GenerationLock 基于 SET NX PX 的应用级互斥，API 进程与构建 worker 共享
type GenerationLock struct {
	client *Client
	ttl    time.Duration
}

func NewGenerationLock(client *Client, ttl time.Duration) *GenerationLock {
	if ttl <= 0 {
		ttl = DefaultGenerationLockTTL
	}
	return &GenerationLock{client: client, ttl: ttl}
}

// Acquire 获取应用的互斥锁；已被占用时 ok 为 false。
// release 可重复调用，且不受调用方 ctx 取消影响。
func (l *GenerationLock) Acquire(ctx context.Context, appID int64) (release func(), ok bool, err error) {
	ctx, span := tracer.Start(ctx, "lock.Acquire")
	defer span.End()

	key := GenerationLockKey(appID)
	token := uuid.NewString()
	ok, err = l.client.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return nil, false, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	released := false
	release = func() {
		if released {
			return
		}
		released = true
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		if err := releaseIfOwner.Run(rctx, l.client.rdb, []string{key}, token).Err(); err != nil {
			logger.Warn(rctx, "failed to release generation lock", "key", key, "error", err)
		}
	}
	return release, true, nil
}
