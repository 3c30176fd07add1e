package treebuilder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"objvault/pkg/core"
	"objvault/pkg/ignore"
	"objvault/pkg/ingester"
	"objvault/pkg/storage"
	"objvault/pkg/types"
)

// MetaDir 是仓库元数据目录，任何层级出现都不会被收录
const MetaDir = ".ov"

// Builder 负责把一个目录快照转换为 Merkle Tree
type Builder struct {
	store    storage.Store
	ingester *ingester.Ingester
	matcher  *ignore.Matcher
	logger   *slog.Logger
	excludes map[string]struct{} // 绝对路径
}

type Option func(*Builder)

// WithMatcher 设置忽略规则，路径相对于 Build 的根目录
func WithMatcher(m *ignore.Matcher) Option {
	return func(b *Builder) { b.matcher = m }
}

// WithExclude 按绝对路径排除目录或文件，用于名字不是 .ov 的仓库目录
func WithExclude(paths ...string) Option {
	return func(b *Builder) {
		for _, p := range paths {
			if p == "" {
				continue
			}
			if abs, err := filepath.Abs(p); err == nil {
				b.excludes[abs] = struct{}{}
			}
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

func NewBuilder(store storage.Store, opts ...Option) *Builder {
	b := &Builder{
		store:    store,
		ingester: ingester.NewIngester(store),
		logger:   slog.Default(),
		excludes: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build 递归地 (后序) 存储 dir 下的所有文件和子目录，返回根树的 Hash
// 普通文件 -> Blob，目录 -> Tree；符号链接和特殊文件被跳过
func (b *Builder) Build(ctx context.Context, dir string) (types.Hash, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrIO, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", storage.ErrIO, dir)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrIO, err)
	}
	return b.writeDir(ctx, root, "")
}

// writeDir 是核心递归：先处理所有子节点，再写自己
// rel 是相对于根的路径，用 "/" 分隔，根为 ""
func (b *Builder) writeDir(ctx context.Context, abs, rel string) (types.Hash, error) {
	dirEntries, err := os.ReadDir(abs)
	if err != nil {
		return "", fmt.Errorf("%w: read dir %s: %w", storage.ErrIO, abs, err)
	}

	var entries []core.TreeEntry
	for _, de := range dirEntries {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		name := de.Name()
		if name == MetaDir {
			continue
		}
		childAbs := filepath.Join(abs, name)
		childRel := path.Join(rel, name)
		if _, ok := b.excludes[childAbs]; ok {
			b.logger.Debug("excluded", "path", childRel)
			continue
		}

		mode := de.Type()
		switch {
		case mode.IsDir():
			if b.matcher.MatchesDir(childRel) {
				b.logger.Debug("ignored", "path", childRel)
				continue
			}
			id, err := b.writeDir(ctx, childAbs, childRel)
			if err != nil {
				return "", err
			}
			entries = append(entries, core.TreeEntry{Kind: core.TypeTree, Hash: id, Name: name})

		case mode.IsRegular():
			if b.matcher.Matches(childRel) {
				b.logger.Debug("ignored", "path", childRel)
				continue
			}
			blob, err := b.ingester.IngestPath(ctx, childAbs)
			if err != nil {
				return "", err
			}
			b.logger.Debug("stored blob", "path", childRel, "hash", blob.ID().Short(), "size", blob.Size())
			entries = append(entries, core.TreeEntry{Kind: core.TypeBlob, Hash: blob.ID(), Name: name})

		default:
			// 符号链接、设备文件、管道、socket
			b.logger.Debug("skipping non-regular file", "path", childRel, "mode", mode.String())
		}
	}

	tree, err := core.NewTree(entries)
	if err != nil {
		return "", fmt.Errorf("failed to create tree object for %q: %w", rel, err)
	}
	id, err := storage.Write(ctx, b.store, tree)
	if err != nil {
		return "", fmt.Errorf("failed to store tree: %w", err)
	}
	b.logger.Debug("stored tree", "path", rel, "hash", id.Short(), "entries", len(entries))
	return id, nil
}
