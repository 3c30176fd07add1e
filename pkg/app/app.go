package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"objvault/pkg/config"
	"objvault/pkg/exporter"
	"objvault/pkg/history"
	"objvault/pkg/meta"
	"objvault/pkg/refs"
	"objvault/pkg/storage"
	"objvault/pkg/storage/cache"
	"objvault/pkg/storage/disk"
	"objvault/pkg/storage/kv"
	"objvault/pkg/storage/s3"
	"objvault/pkg/storage/verify"

	"go.uber.org/multierr"
)

// App 是整个应用程序的依赖容器
// 它持有所有"单例"服务
type App struct {
	Settings config.Settings
	Logger   *slog.Logger

	Store    storage.Store
	Refs     *refs.Manager
	History  *history.Chain
	Exporter *exporter.Exporter
	Meta     *meta.Repository // meta.driver=none 时为 nil

	closers []io.Closer
}

// NewApp 是工厂函数，按配置组装各个组件
// 它不知道具体的 CLI 命令
func NewApp(ctx context.Context, s config.Settings, logger *slog.Logger) (_ *App, retErr error) {
	if s.RepoPath == "" {
		return nil, errors.New("repo path not set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{Settings: s, Logger: logger}
	defer func() {
		if retErr != nil {
			retErr = multierr.Append(retErr, a.Close())
		}
	}()

	store, err := a.initStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	a.Store = store

	if err := a.initMeta(ctx); err != nil {
		return nil, err
	}

	a.Refs = refs.NewManager(s.RepoPath)
	a.History = history.New(store, history.WithLogger(logger))
	a.Exporter = exporter.NewExporter(store)
	return a, nil
}

// initStore 根据 storage.type 选择后端，配置了 Redis 时再套一层缓存
func (a *App) initStore(ctx context.Context) (storage.Store, error) {
	base, err := initStore(ctx, a.Settings.Storage, a.Logger)
	if err != nil {
		return nil, err
	}
	if c, ok := base.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	if a.Settings.Cache.RedisURL == "" {
		return base, nil
	}
	cached, err := cache.NewCachedStore(base, cache.Config{
		RedisURL: a.Settings.Cache.RedisURL,
		TTL:      a.Settings.Cache.TTL,
		Logger:   a.Logger,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cached)
	return cached, nil
}

func initStore(ctx context.Context, s config.Storage, logger *slog.Logger) (storage.Store, error) {
	switch s.Type {
	case "", "disk":
		store, err := disk.NewAdapter(s.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "badger":
		store, err := kv.NewAdapter(kv.Config{Path: s.Path})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		if s.S3.Bucket == "" {
			return nil, errors.New("storage.s3.bucket is required")
		}
		store, err := s3.NewAdapter(ctx, s3.Config{
			Endpoint:        s.S3.Endpoint,
			Region:          s.S3.Region,
			Bucket:          s.S3.Bucket,
			AccessKeyID:     s.S3.AccessKey,
			SecretAccessKey: s.S3.SecretKey,
			Prefix:          s.S3.Prefix,
			Logger:          logger,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %q", s.Type)
	}
}

func (a *App) initMeta(ctx context.Context) error {
	if a.Settings.Meta.Driver == "" || a.Settings.Meta.Driver == "none" {
		return nil
	}
	db, err := meta.NewDB(ctx, meta.Config{
		Driver: a.Settings.Meta.Driver,
		DSN:    a.Settings.Meta.DSN,
		Debug:  strings.EqualFold(a.Settings.Log.Level, "debug"),
	})
	if err != nil {
		return fmt.Errorf("failed to init metadata index: %w", err)
	}
	a.closers = append(a.closers, db)
	a.Meta = meta.NewRepository(db)
	return nil
}

// Verifiable 返回支持枚举的存储 (fsck 使用)
func (a *App) Verifiable() (verify.Store, bool) {
	l, ok := a.Store.(verify.Store)
	return l, ok
}

// Close 释放所有持有的资源，逆序关闭
func (a *App) Close() error {
	var err error
	for i := len(a.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, a.closers[i].Close())
	}
	a.closers = nil
	return err
}

// NewLogger 构造全局 logger
// format: "json" 或 "text"；level: debug | info | warn | error
func NewLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.EqualFold(format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}
