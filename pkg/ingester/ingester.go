package ingester

import (
	"context"
	"fmt"
	"io"
	"os"

	"objvault/pkg/core"
	"objvault/pkg/storage"
)

// Ingester 把文件内容变成 Blob 并写入存储
type Ingester struct {
	store storage.Store
}

func NewIngester(store storage.Store) *Ingester {
	return &Ingester{store: store}
}

// IngestFile 读取整个流，存储为一个 Blob
// Blob 是整文件存储，不切块
func (ing *Ingester) IngestFile(ctx context.Context, reader io.Reader) (*core.Blob, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %w", storage.ErrIO, err)
	}

	blob := core.NewBlob(data)
	if _, err := storage.Write(ctx, ing.store, blob); err != nil {
		return nil, fmt.Errorf("failed to store blob: %w", err)
	}
	return blob, nil
}

// IngestPath 打开并存储一个普通文件
func (ing *Ingester) IngestPath(ctx context.Context, path string) (*core.Blob, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrIO, err)
	}
	defer f.Close()

	blob, err := ing.IngestFile(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return blob, nil
}

// HashOnly 只计算 Blob id，不写存储 (ov hash-object 不带 -w)
func HashOnly(reader io.Reader) (*core.Blob, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read file: %w", storage.ErrIO, err)
	}
	return core.NewBlob(data), nil
}
