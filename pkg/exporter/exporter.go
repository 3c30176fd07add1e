package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"
)

// ErrUnsafePath 表示树条目的名字会让还原写到目标目录之外
var ErrUnsafePath = errors.New("unsafe path in tree")

type Exporter struct {
	store storage.Store
}

func NewExporter(store storage.Store) *Exporter {
	return &Exporter{store: store}
}

// ExportBlob 把 Blob 的内容写入 writer
func (e *Exporter) ExportBlob(ctx context.Context, hash types.Hash, writer io.Writer) error {
	blob, err := storage.ReadBlob(ctx, e.store, hash)
	if err != nil {
		return fmt.Errorf("failed to read blob %s: %w", hash.Short(), err)
	}
	if _, err := writer.Write(blob.Data); err != nil {
		return fmt.Errorf("failed to write blob %s: %w", hash.Short(), err)
	}
	return nil
}

// RestoreCallback 在每个文件写出后被调用
type RestoreCallback func(path string, hash types.Hash, size int64)

// RestoreCommit 把 commit 指向的树还原到目标目录，返回树的 Hash
func (e *Exporter) RestoreCommit(ctx context.Context, commitHash types.Hash, targetDir string, onRestore RestoreCallback) (types.Hash, error) {
	commit, err := storage.ReadCommit(ctx, e.store, commitHash)
	if err != nil {
		return "", fmt.Errorf("failed to read commit %s: %w", commitHash.Short(), err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create dir %s: %w", targetDir, err)
	}
	return commit.Tree, e.RestoreTree(ctx, commit.Tree, targetDir, onRestore)
}

// RestoreTree 递归地将 Merkle Tree 还原到目标目录
// 已存在的同名文件会被覆盖，目录中多余的文件不会被删除
func (e *Exporter) RestoreTree(ctx context.Context, treeHash types.Hash, targetDir string, onRestore RestoreCallback) error {
	tree, err := storage.ReadTree(ctx, e.store, treeHash)
	if err != nil {
		return fmt.Errorf("failed to read tree %s: %w", treeHash.Short(), err)
	}

	for _, entry := range tree.Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		// 解码时已经校验过名字，这里再兜一层，绝不写出 targetDir
		if !filepath.IsLocal(entry.Name) || filepath.Base(entry.Name) != entry.Name {
			return fmt.Errorf("%w: %q in tree %s", ErrUnsafePath, entry.Name, treeHash.Short())
		}
		fullPath := filepath.Join(targetDir, entry.Name)

		switch entry.Kind {
		case core.TypeTree:
			if err := os.MkdirAll(fullPath, 0755); err != nil {
				return fmt.Errorf("failed to create dir %s: %w", fullPath, err)
			}
			if err := e.RestoreTree(ctx, entry.Hash, fullPath, onRestore); err != nil {
				return err
			}

		case core.TypeBlob:
			size, err := e.restoreFile(ctx, entry.Hash, fullPath)
			if err != nil {
				return err
			}
			if onRestore != nil {
				onRestore(fullPath, entry.Hash, size)
			}
		}
	}
	return nil
}

func (e *Exporter) restoreFile(ctx context.Context, hash types.Hash, path string) (int64, error) {
	blob, err := storage.ReadBlob(ctx, e.store, hash)
	if err != nil {
		return 0, fmt.Errorf("failed to read blob for %s: %w", path, err)
	}
	if err := os.WriteFile(path, blob.Data, 0644); err != nil {
		return 0, fmt.Errorf("failed to write file %s: %w", path, err)
	}
	return blob.Size(), nil
}
