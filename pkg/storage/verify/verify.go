package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrHashMismatch 表示文件内容的哈希和它的路径不一致
var ErrHashMismatch = errors.New("hash mismatch")

// Store 是 fsck 需要的能力：能读，能枚举
type Store interface {
	storage.Store
	storage.Lister
}

// Report 汇总一次检查的结果
type Report struct {
	Checked int
	Counts  map[core.ObjectType]int
	Bad     []types.Hash
	Err     error // 所有问题用 multierr 合并
}

// OK 表示没有发现损坏
func (r *Report) OK() bool { return r.Err == nil }

// Verifier 并发地重新计算每个对象的哈希并尝试解码
// 只读，不修复任何东西
type Verifier struct {
	store   Store
	workers int
	logger  *slog.Logger
}

type Option func(*Verifier)

func WithWorkers(n int) Option {
	return func(v *Verifier) {
		if n > 0 {
			v.workers = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

func NewVerifier(s Store, opts ...Option) *Verifier {
	v := &Verifier{store: s, workers: 8, logger: slog.Default()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run 检查全部对象
// 返回的 error 只表示检查本身失败 (比如枚举出错)；对象损坏记录在 Report 里
func (v *Verifier) Run(ctx context.Context) (*Report, error) {
	report := &Report{Counts: make(map[core.ObjectType]int)}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(v.workers)

	listErr := v.store.List(gctx, func(id types.Hash) error {
		g.Go(func() error {
			kind, err := v.checkOne(gctx, id)

			mu.Lock()
			defer mu.Unlock()
			report.Checked++
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				v.logger.Debug("corrupt object", "hash", id.Short(), "error", err)
				report.Bad = append(report.Bad, id)
				report.Err = multierr.Append(report.Err, fmt.Errorf("%s: %w", id, err))
				return nil
			}
			report.Counts[kind]++
			return nil
		})
		return nil
	})

	if err := multierr.Append(listErr, g.Wait()); err != nil {
		return report, fmt.Errorf("fsck aborted: %w", err)
	}
	return report, nil
}

// checkOne 校验 id == hex(sha256(bytes))，再完整解码一次
func (v *Verifier) checkOne(ctx context.Context, id types.Hash) (core.ObjectType, error) {
	data, err := storage.ReadRaw(ctx, v.store, id)
	if err != nil {
		return "", err
	}
	if got := core.HashBytes(data); got != id {
		return "", fmt.Errorf("%w: content hashes to %s", ErrHashMismatch, got.Short())
	}

	env, err := core.Deserialize(data)
	if err != nil {
		return "", err
	}
	switch env.Kind {
	case core.TypeTree:
		_, err = core.DecodeTree(env)
	case core.TypeCommit:
		_, err = core.DecodeCommit(env)
	}
	return env.Kind, err
}
