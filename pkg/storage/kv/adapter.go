package kv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"

	"github.com/dgraph-io/badger/v4"
)

// keyPrefix 给对象 key 加命名空间，同一个库以后可以放别的数据
const keyPrefix = "obj:"

// Adapter 把对象存进嵌入式的 Badger KV
// key = "obj:<hash>"，value = 完整序列化字节
type Adapter struct {
	db *badger.DB
}

type Config struct {
	Path     string
	InMemory bool // 测试用
}

func NewAdapter(cfg Config) (*Adapter, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	// badger 默认会往 stderr 打日志
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	return &Adapter{db: db}, nil
}

func (s *Adapter) Close() error { return s.db.Close() }

func objectKey(hash types.Hash) []byte {
	return []byte(keyPrefix + string(hash))
}

// Put 在同一个事务里检查并写入
func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	key := objectKey(obj.ID())
	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		if err == nil {
			return nil // 已存在
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, obj.Bytes())
	})
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(objectKey(hash))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(objectKey(hash))
		return err
	})
	if err == nil {
		return true, nil
	}
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return false, err
}

// ExpandHash 用前缀迭代，最多看两个 key
func (s *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	if err := storage.CheckPrefix(short); err != nil {
		return "", err
	}

	var matches []types.Hash
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix + string(short))
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(matches) < 2; it.Next() {
			matches = append(matches, types.Hash(bytes.TrimPrefix(it.Item().Key(), []byte(keyPrefix))))
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	switch len(matches) {
	case 0:
		return "", storage.ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", storage.ErrAmbiguousHash, short)
	}
}

// List 按 key 顺序 (即 id 升序) 枚举全部对象
func (s *Adapter) List(ctx context.Context, fn func(types.Hash) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			id := types.Hash(bytes.TrimPrefix(it.Item().KeyCopy(nil), []byte(keyPrefix)))
			if err := fn(id); err != nil {
				return err
			}
		}
		return nil
	})
}
