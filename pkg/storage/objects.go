package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"objvault/pkg/core"
	"objvault/pkg/types"
)

// Write 持久化一个对象并返回它的 id
// id 由对象的完整序列化字节决定，已存在时不会重复写入
func Write(ctx context.Context, s Store, obj core.Object) (types.Hash, error) {
	if err := s.Put(ctx, obj); err != nil {
		return "", fmt.Errorf("%w: write %s: %w", ErrIO, obj.ID().Short(), err)
	}
	return obj.ID(), nil
}

// Read 读取并解码一个对象
// 不存在返回 ErrNotFound；其他读取失败包装为 ErrIO；解码错误原样返回 (core.ErrCorrupt)
func Read(ctx context.Context, s Store, id types.Hash) (*core.Envelope, error) {
	data, err := ReadRaw(ctx, s, id)
	if err != nil {
		return nil, err
	}
	env, err := core.Deserialize(data)
	if err != nil {
		return nil, fmt.Errorf("object %s: %w", id.Short(), err)
	}
	return env, nil
}

// ReadRaw 返回未经解码的原始字节 (fsck 需要自己校验 Hash)
func ReadRaw(ctx context.Context, s Store, id types.Hash) ([]byte, error) {
	rc, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("object %s: %w", id.Short(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIO, id.Short(), err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIO, id.Short(), err)
	}
	return data, nil
}

// ReadBlob / ReadTree / ReadCommit 是带类型检查的便捷读取
func ReadBlob(ctx context.Context, s Store, id types.Hash) (*core.Blob, error) {
	env, err := Read(ctx, s, id)
	if err != nil {
		return nil, err
	}
	return core.DecodeBlob(env)
}

func ReadTree(ctx context.Context, s Store, id types.Hash) (*core.Tree, error) {
	env, err := Read(ctx, s, id)
	if err != nil {
		return nil, err
	}
	return core.DecodeTree(env)
}

func ReadCommit(ctx context.Context, s Store, id types.Hash) (*core.Commit, error) {
	env, err := Read(ctx, s, id)
	if err != nil {
		return nil, err
	}
	return core.DecodeCommit(env)
}
