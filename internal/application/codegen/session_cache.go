package codegen

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	apperrors "ai-code-mother/pkg/errors"
	"ai-code-mother/pkg/logger"
	"ai-code-mother/pkg/metrics"
)

// 缓存默认参数
const (
	DefaultSessionCacheSize = 1000
	DefaultSessionMaxAge    = 30 * time.Minute
	DefaultSessionIdleTTL   = 10 * time.Minute
)

// 淘汰原因
const (
	evictCauseSize        = "size"
	evictCauseExpired     = "expired"
	evictCauseInvalidated = "invalidated"
)

// SessionCacheConfig 会话缓存配置
type SessionCacheConfig struct {
	MaxSize      int
	MaxAge       time.Duration
	IdleTTL      time.Duration
	MemoryWindow int
}

func (c *SessionCacheConfig) applyDefaults() {
	if c.MaxSize <= 0 {
		c.MaxSize = DefaultSessionCacheSize
	}
	if c.MaxAge <= 0 {
		c.MaxAge = DefaultSessionMaxAge
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultSessionIdleTTL
	}
	if c.MemoryWindow <= 0 {
		c.MemoryWindow = DefaultMemoryWindow
	}
}

type cacheEntry struct {
	session    *Session
	createdAt  time.Time
	lastAccess time.Time
}

// SessionCache 按 (appId, mode) 缓存生成会话
//
// 条目在写入 MaxAge 后或空闲 IdleTTL 后过期，容量超出时淘汰最久未使用的条目。
// 同一个键在任意时刻最多只有一次构建在进行。
type SessionCache struct {
	cfg     SessionCacheConfig
	loader  *MemoryLoader
	builder ServiceBuilder

	// mu 保护 entries 的全部读写；淘汰回调在持锁期间同步触发
	mu         sync.Mutex
	entries    *lru.Cache[SessionKey, *cacheEntry]
	evictCause string

	group singleflight.Group
	now   func() time.Time
}

// NewSessionCache 创建会话缓存
func NewSessionCache(cfg SessionCacheConfig, loader *MemoryLoader, builder ServiceBuilder) (*SessionCache, error) {
	cfg.applyDefaults()
	c := &SessionCache{
		cfg:        cfg,
		loader:     loader,
		builder:    builder,
		evictCause: evictCauseSize,
		now:        time.Now,
	}
	entries, err := lru.NewWithEvict[SessionKey, *cacheEntry](cfg.MaxSize, c.onEvict)
	if err != nil {
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	c.entries = entries
	return c, nil
}

// Get 返回缓存中的会话，未命中或已过期时构建新会话
func (c *SessionCache) Get(ctx context.Context, appID int64, mode GenerationMode) (*Session, error) {
	if appID <= 0 {
		return nil, apperrors.New(apperrors.CodeInvalidParam, "app id must be positive")
	}
	if !mode.Valid() {
		return nil, apperrors.Newf(apperrors.CodeUnsupportedMode, "unsupported generation mode: %q", mode)
	}

	key := SessionKey{AppID: appID, Mode: mode}
	if s := c.lookup(key); s != nil {
		metrics.SessionCacheRequests.WithLabelValues("hit").Inc()
		return s, nil
	}
	metrics.SessionCacheRequests.WithLabelValues("miss").Inc()

	// 构建不随首个调用方取消而中断，其它等待者共享结果
	buildCtx := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		if s := c.lookup(key); s != nil {
			return s, nil
		}
		s, err := c.build(buildCtx, key)
		if err != nil {
			return nil, err
		}
		c.store(key, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// InvalidateAll 清空全部会话
func (c *SessionCache) InvalidateAll(ctx context.Context) int {
	c.mu.Lock()
	n := c.entries.Len()
	c.evictCause = evictCauseInvalidated
	c.entries.Purge()
	c.evictCause = evictCauseSize
	c.mu.Unlock()

	metrics.SessionCacheSize.Set(0)
	logger.Info(ctx, "session cache cleared", "count", n)
	return n
}

// Sweep 主动清理已过期的会话
func (c *SessionCache) Sweep(ctx context.Context) int {
	c.mu.Lock()
	now := c.now()
	removed := 0
	for _, key := range c.entries.Keys() {
		e, ok := c.entries.Peek(key)
		if !ok || !c.expired(e, now) {
			continue
		}
		c.evictCause = evictCauseExpired
		c.entries.Remove(key)
		c.evictCause = evictCauseSize
		removed++
	}
	size := c.entries.Len()
	c.mu.Unlock()

	metrics.SessionCacheSize.Set(float64(size))
	if removed > 0 {
		logger.Debug(ctx, "expired sessions swept", "count", removed)
	}
	return removed
}

// RunJanitor 周期性清理过期会话，直到 ctx 结束
func (c *SessionCache) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

// Len 当前缓存的会话数
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries.Len()
}

func (c *SessionCache) lookup(key SessionKey) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Get(key)
	if !ok {
		return nil
	}
	now := c.now()
	if c.expired(e, now) {
		c.evictCause = evictCauseExpired
		c.entries.Remove(key)
		c.evictCause = evictCauseSize
		return nil
	}
	e.lastAccess = now
	return e.session
}

func (c *SessionCache) store(key SessionKey, s *Session) {
	c.mu.Lock()
	now := c.now()
	c.entries.Add(key, &cacheEntry{session: s, createdAt: now, lastAccess: now})
	size := c.entries.Len()
	c.mu.Unlock()

	metrics.SessionCacheSize.Set(float64(size))
}

func (c *SessionCache) expired(e *cacheEntry, now time.Time) bool {
	return now.Sub(e.createdAt) >= c.cfg.MaxAge || now.Sub(e.lastAccess) >= c.cfg.IdleTTL
}

// build 创建对话窗口、回放历史并绑定 AI 服务
func (c *SessionCache) build(ctx context.Context, key SessionKey) (*Session, error) {
	ctx = logger.WithApp(ctx, key.AppID, key.Mode.Tag())

	memory := NewConversationMemory(c.cfg.MemoryWindow)
	loaded := 0
	if c.loader != nil {
		loaded = c.loader.Load(ctx, key.AppID, memory, c.cfg.MemoryWindow)
	}

	s := &Session{Key: key, Memory: memory, CreatedAt: c.now()}
	var err error
	switch key.Mode {
	case ModeSingleFile, ModeMultiFile:
		s.Text, err = c.builder.BuildText(ctx, key, memory)
	case ModeProject:
		s.Agent, err = c.builder.BuildAgent(ctx, key, memory)
	default:
		err = apperrors.Newf(apperrors.CodeUnsupportedMode, "unsupported generation mode: %q", key.Mode)
	}
	if err != nil {
		logger.Error(ctx, "failed to build generation session", err, "session", key.String())
		return nil, err
	}

	logger.Info(ctx, "generation session created", "session", key.String(), "history_loaded", loaded)
	return s, nil
}

// onEvict 由 lru 在持有 c.mu 期间回调
func (c *SessionCache) onEvict(key SessionKey, _ *cacheEntry) {
	metrics.SessionCacheEvictions.WithLabelValues(c.evictCause).Inc()
	logger.Debug(context.Background(), "generation session evicted", "session", key.String(), "cause", c.evictCause)
}
