package storage

import (
	"context"
	"errors"
	"io"

	"objvault/pkg/core"
	"objvault/pkg/types"
)

var (
	ErrNotFound      = errors.New("object not found")
	ErrIO            = errors.New("object store i/o error")
	ErrAmbiguousHash = errors.New("ambiguous hash prefix")
	ErrHashTooShort  = errors.New("hash prefix too short")
)

// MinPrefixLen 是 ExpandHash 接受的最短前缀
const MinPrefixLen = 4

// Store defines the interface for a storage backend.
// Implementations can be local disk, cloud storage, or an embedded KV store.
//
// 对象一旦写入就不可变 (append-only)，同一个 id 永远只对应一份字节
type Store interface {
	// Put 将一个对象持久化
	// 它不需要返回 Hash，因为 Hash 已经在 core.Object 里了
	// 如果 id 已存在则直接返回 (去重只看存在性)
	Put(ctx context.Context, obj core.Object) error

	// Get 根据 Hash 读取完整的序列化数据
	// 对象不存在时返回 ErrNotFound
	Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error)

	// Has 检查对象是否存在 (用于去重逻辑)
	Has(ctx context.Context, hash types.Hash) (bool, error)

	// ExpandHash 把短哈希扩展成完整 id
	ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error)
}

// Lister 由可以枚举全部对象的后端实现 (fsck 使用)
type Lister interface {
	List(ctx context.Context, fn func(types.Hash) error) error
}

// CheckPrefix 校验短哈希的长度和字符集
func CheckPrefix(short types.HashPrefix) error {
	if len(short) < MinPrefixLen {
		return ErrHashTooShort
	}
	if !short.IsValid() {
		return ErrNotFound
	}
	return nil
}
