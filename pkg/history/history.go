package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"
)

// ErrIncompleteChain 表示历史链中途断了 (祖先缺失、损坏或不是 commit)
var ErrIncompleteChain = errors.New("incomplete commit chain")

// ErrStopWalk 由 Walk 的回调返回，用于提前结束遍历，不视为错误
var ErrStopWalk = errors.New("stop walk")

// IncompleteChainError 记录断在哪个 id 以及原因
type IncompleteChainError struct {
	Hash  types.Hash
	Cause error
}

func (e *IncompleteChainError) Error() string {
	return fmt.Sprintf("%v at %s: %v", ErrIncompleteChain, e.Hash.Short(), e.Cause)
}

func (e *IncompleteChainError) Unwrap() []error {
	return []error{ErrIncompleteChain, e.Cause}
}

// Entry 是遍历时产出的一条记录
type Entry struct {
	Hash   types.Hash
	Commit *core.Commit
}

// Chain 在 Store 上读写线性历史
// 它从不读写 HEAD，调用方负责维护分支指针
type Chain struct {
	store  storage.Store
	logger *slog.Logger
}

type Option func(*Chain)

func WithLogger(l *slog.Logger) Option {
	return func(c *Chain) { c.logger = l }
}

func New(store storage.Store, opts ...Option) *Chain {
	c := &Chain{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateCommit 构造并存储一个 commit，返回它的 id
// parent 为空表示根提交
func (c *Chain) CreateCommit(ctx context.Context, tree, parent types.Hash, author, message string) (types.Hash, error) {
	commit, err := core.NewCommit(tree, parent, author, message)
	if err != nil {
		return "", err
	}
	id, err := storage.Write(ctx, c.store, commit)
	if err != nil {
		return "", fmt.Errorf("failed to store commit: %w", err)
	}
	c.logger.Debug("created commit", "hash", id.Short(), "tree", tree.Short(), "parent", parent.Short())
	return id, nil
}

// Traverse 从 start 开始沿 parent 回溯，返回 [start, parent, ..., root]
// 如果链中途断了，返回已读到的部分以及 *IncompleteChainError
func (c *Chain) Traverse(ctx context.Context, start types.Hash) ([]Entry, error) {
	var out []Entry
	err := c.Walk(ctx, start, func(e Entry) error {
		out = append(out, e)
		return nil
	})
	return out, err
}

// Walk 按从新到旧的顺序把每个 commit 交给 fn
// fn 返回 ErrStopWalk 时提前结束并返回 nil；返回其他错误时原样返回
func (c *Chain) Walk(ctx context.Context, start types.Hash, fn func(Entry) error) error {
	seen := make(map[types.Hash]struct{})
	current := start

	for !current.IsZero() {
		if err := ctx.Err(); err != nil {
			return err
		}
		// 内容寻址下环不可能出现，除非存储被篡改
		if _, ok := seen[current]; ok {
			return &IncompleteChainError{Hash: current, Cause: errors.New("cycle detected")}
		}
		seen[current] = struct{}{}

		commit, err := storage.ReadCommit(ctx, c.store, current)
		if err != nil {
			return &IncompleteChainError{Hash: current, Cause: err}
		}

		if err := fn(Entry{Hash: current, Commit: commit}); err != nil {
			if errors.Is(err, ErrStopWalk) {
				return nil
			}
			return err
		}
		current = commit.Parent
	}
	return nil
}
