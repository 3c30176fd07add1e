package disk

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"objvault/pkg/core"
	"objvault/pkg/storage"
	"objvault/pkg/types"
)

// Adapter 实现了 storage.Store 接口
type Adapter struct {
	rootPath string // 比如: /home/user/project/.ov/objects
}

// NewAdapter 创建一个新的磁盘存储适配器
func NewAdapter(root string) (*Adapter, error) {
	// 确保根目录存在
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create root storage dir: %w", err)
	}
	return &Adapter{rootPath: root}, nil
}

// Root 返回对象目录
func (s *Adapter) Root() string { return s.rootPath }

// layout 返回哈希对应的物理路径
// 策略：使用前 2 个字符作为子目录 (Sharding)
// Example: hash "aabbcc..." -> root/aa/bbcc...
func (s *Adapter) layout(hash types.Hash) string {
	dir, rest := hash.Shard()
	if rest == "" {
		return filepath.Join(s.rootPath, dir)
	}
	return filepath.Join(s.rootPath, dir, rest)
}

func (s *Adapter) Put(ctx context.Context, obj core.Object) error {
	targetPath := s.layout(obj.ID())

	// 1. 检查是否存在 (幂等性)
	// 只看路径是否存在，不比对内容
	_, err := os.Stat(targetPath)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", targetPath, err)
	}

	// 2. 准备目录
	dir := filepath.Dir(targetPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	// 3. 原子写入 (Atomic Write)
	// 先写到一个临时文件，然后 Rename。
	// 这样要么文件不存在，要么文件是完整的。
	tempFile, err := os.CreateTemp(dir, "temp-*")
	if err != nil {
		return err
	}
	// Rename 成功后这个删除会失败，无害
	defer os.Remove(tempFile.Name())

	if _, err := tempFile.Write(obj.Bytes()); err != nil {
		tempFile.Close()
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	// 4. 移动到最终位置
	return os.Rename(tempFile.Name(), targetPath)
}

func (s *Adapter) Get(ctx context.Context, hash types.Hash) (io.ReadCloser, error) {
	f, err := os.Open(s.layout(hash))
	if os.IsNotExist(err) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *Adapter) Has(ctx context.Context, hash types.Hash) (bool, error) {
	_, err := os.Stat(s.layout(hash))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// ExpandHash 在分片目录里按前缀查找
func (s *Adapter) ExpandHash(ctx context.Context, short types.HashPrefix) (types.Hash, error) {
	if err := storage.CheckPrefix(short); err != nil {
		return "", err
	}
	if short.IsFull() {
		ok, err := s.Has(ctx, types.Hash(short))
		if err != nil {
			return "", err
		}
		if !ok {
			return "", storage.ErrNotFound
		}
		return types.Hash(short), nil
	}

	prefix := string(short)
	dirName, filePrefix := prefix[:2], prefix[2:]

	entries, err := os.ReadDir(filepath.Join(s.rootPath, dirName))
	if os.IsNotExist(err) {
		return "", storage.ErrNotFound
	}
	if err != nil {
		return "", err
	}

	var matches []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, "temp-") {
			continue
		}
		if strings.HasPrefix(name, filePrefix) {
			matches = append(matches, name)
		}
	}

	switch len(matches) {
	case 0:
		return "", storage.ErrNotFound
	case 1:
		return types.Hash(dirName + matches[0]), nil
	default:
		return "", fmt.Errorf("%w: %s matches %d objects", storage.ErrAmbiguousHash, prefix, len(matches))
	}
}

// List 按 id 升序枚举全部对象
// 不符合布局的文件 (比如残留的 temp-*) 会被跳过
func (s *Adapter) List(ctx context.Context, fn func(types.Hash) error) error {
	var ids []types.Hash
	err := filepath.WalkDir(s.rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.rootPath, path)
		if err != nil {
			return err
		}
		id := types.Hash(strings.Replace(filepath.ToSlash(rel), "/", "", 1))
		if id.IsValid() && filepath.Dir(rel) == string(id[:2]) {
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(id); err != nil {
			return err
		}
	}
	return nil
}
