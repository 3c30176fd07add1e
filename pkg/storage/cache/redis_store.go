package cache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/redis/go-redis/v9"
)

// keyPrefix 防止和同一个 Redis 里的其他数据冲突
const keyPrefix = "ov:obj:"

// CachedStore 是一个装饰器，为底层 storage.Store 添加 Redis 存在性缓存
// 只缓存"对象存在"这一事实：对象不可变，所以缓存永远不会过时
type CachedStore struct {
	backend storage.Store
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger

	// 异步回填的生命周期，Close 会等它们结束
	mu     sync.Mutex
	closed bool
	fills  sync.WaitGroup
}

type Config struct {
	RedisURL string        // 标准连接字符串: redis://<user>:<password>@<host>:<port>/<db>
	TTL      time.Duration // 过期时间，0 表示不过期
	Logger   *slog.Logger
}

func NewCachedStore(backend storage.Store, cfg Config) (*CachedStore, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	// Fail-fast 连接检查
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{
		backend: backend,
		client:  client,
		ttl:     cfg.TTL,
		logger:  logger,
	}, nil
}

// Close 等待进行中的回填，然后释放 Redis 连接
func (s *CachedStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.fills.Wait()
	return s.client.Close()
}

func (s *CachedStore) cacheKey(hash types.Hash) string {
	return keyPrefix + string(hash)
}

// Has 优先查 Redis
func (s *CachedStore) Has(ctx context.Context, hash types.Hash) (bool, error) {
	key := s.cacheKey(hash)

	val, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		// Redis 故障时降级为无缓存模式，直接查底层
		s.logger.Warn("redis exists failed, falling back to backend", "hash", hash.Short(), "error", err)
	} else if val > 0 {
		return true, nil
	}

	found, err := s.backend.Has(ctx, hash)
	if err != nil {
		return false, err
	}

	if found {
		s.backfill(key, hash)
	}
	return found, nil
}

// backfill 异步写入 Redis，不阻塞主流程；Close 之后不再发起
func (s *CachedStore) backfill(key string, hash types.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	s.fills.Add(1)
	go func() {
		defer s.fills.Done()
		fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.client.Set(fillCtx, key, "1", s.ttl).Err(); err != nil {
			s.logger.Warn("redis backfill failed", "hash", hash.Short(), "error", err)
		}
	}()
}

// Put 利用 Has 的缓存预检，未命中时穿透到底层
func (s *CachedStore) Put(ctx context.Context, obj core.Object) error {
	exists, err := s.Has(ctx, obj.ID())
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := s.backend.Put(ctx, obj); err != nil {
		return err
	}

	// 只有底层写成功了才写 Redis；失败只影响性能
	if err := s.client.Set(ctx, s.cacheKey(obj.ID()), "1", s.ttl).Err(); err != nil {
		s.logger.Warn("redis set failed", "hash", obj.ID().Short(), "error", err)
	}
	return nil
}

// Get 透传，不缓存对象内容
func (s *CachedStore) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	return s.backend.Get(ctx, hash)
}

// ExpandHash 透传
func (s *CachedStore) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	return s.backend.ExpandHash(ctx, short)
}

// List 透传给支持枚举的底层存储
func (s *CachedStore) List(ctx context.Context, fn func(types.Hash) error) error {
	l, ok := s.backend.(storage.Lister)
	if !ok {
		return errors.New("backend does not support listing")
	}
	return l.List(ctx, fn)
}
