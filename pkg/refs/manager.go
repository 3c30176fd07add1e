package refs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"objvault/pkg/types"

	"github.com/gofrs/flock"
	"go.uber.org/multierr"
)

var (
	ErrNoHead     = errors.New("HEAD not found (clean repo)")
	ErrStaleHead  = errors.New("HEAD moved since it was read")
	ErrInvalidRef = errors.New("invalid ref")
)

const (
	DefaultBranch = "master"

	headsDir      = "refs/heads"
	headFile      = "HEAD"
	symbolicToken = "ref: "
)

// lockRetryDelay 是 TryLockContext 的重试间隔
const lockRetryDelay = 50 * time.Millisecond

// Manager 负责管理引用 (Refs)
//
//	<root>/refs/heads/HEAD     "ref: refs/heads/master\n"
//	<root>/refs/heads/master   分支最新 commit 的 id
type Manager struct {
	rootPath string
}

func NewManager(rootPath string) *Manager {
	return &Manager{rootPath: rootPath}
}

// headPath 返回 HEAD 文件的物理路径
func (m *Manager) headPath() string {
	return filepath.Join(m.rootPath, filepath.FromSlash(headsDir), headFile)
}

func (m *Manager) refPath(ref string) string {
	return filepath.Join(m.rootPath, filepath.FromSlash(ref))
}

// Init 创建 refs 目录并让 HEAD 指向默认分支
// HEAD 已存在时不做任何事
func (m *Manager) Init() error {
	if err := os.MkdirAll(filepath.Dir(m.headPath()), 0755); err != nil {
		return fmt.Errorf("failed to create refs dir: %w", err)
	}
	if _, err := os.Stat(m.headPath()); err == nil {
		return nil
	}
	content := symbolicToken + headsDir + "/" + DefaultBranch + "\n"
	return writeAtomic(m.headPath(), []byte(content))
}

// resolve 读取 HEAD，返回它最终指向的文件
// 符号引用 "ref: refs/heads/x" 指向分支文件；否则 HEAD 本身就存着 id (detached)
func (m *Manager) resolve() (string, error) {
	data, err := os.ReadFile(m.headPath())
	if os.IsNotExist(err) {
		return "", ErrNoHead
	}
	if err != nil {
		return "", fmt.Errorf("failed to read HEAD: %w", err)
	}

	// 清理换行符 (vim 编辑时可能会自动加 \n)
	content := strings.TrimSpace(string(data))
	if !strings.HasPrefix(content, symbolicToken) {
		return m.headPath(), nil
	}
	ref := strings.TrimSpace(strings.TrimPrefix(content, symbolicToken))
	if ref == "" || strings.Contains(ref, "..") || !strings.HasPrefix(ref, "refs/") {
		return "", fmt.Errorf("%w: HEAD points to %q", ErrInvalidRef, ref)
	}
	return m.refPath(ref), nil
}

// CurrentBranch 返回 HEAD 指向的分支名；detached 时返回空字符串
func (m *Manager) CurrentBranch() (string, error) {
	target, err := m.resolve()
	if err != nil {
		return "", err
	}
	if target == m.headPath() {
		return "", nil
	}
	return filepath.Base(target), nil
}

// GetHead 读取当前的 Commit Hash
// 如果是新仓库（没提交过），返回 ErrNoHead
func (m *Manager) GetHead(ctx context.Context) (types.Hash, error) {
	target, err := m.resolve()
	if err != nil {
		return "", err
	}
	return readHash(target)
}

func readHash(path string) (types.Hash, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return "", ErrNoHead
	}
	if err != nil {
		return "", fmt.Errorf("failed to read ref %s: %w", path, err)
	}
	h := types.Hash(strings.TrimSpace(string(data)))
	if h.IsZero() {
		return "", ErrNoHead
	}
	if !h.IsValid() {
		return "", fmt.Errorf("%w: %s holds %q", ErrInvalidRef, path, h)
	}
	return h, nil
}

// UpdateHead 把当前分支移动到 newHash (Compare-And-Swap)
// expectedOld 为空表示期望分支还没有任何 commit
// 读-比较-写在文件锁内完成，写入使用临时文件 + Rename
func (m *Manager) UpdateHead(ctx context.Context, newHash, expectedOld types.Hash) (retErr error) {
	if !newHash.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRef, newHash)
	}
	target, err := m.resolve()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return err
	}

	lockPath := target + ".lock"
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("could not get file lock %q: %w", lockPath, err)
	}
	if !locked {
		return fmt.Errorf("could not lock %q", lockPath)
	}
	defer func() {
		retErr = multierr.Append(retErr, lock.Unlock())
	}()

	current, err := readHash(target)
	if err != nil && !errors.Is(err, ErrNoHead) {
		return err
	}
	if current != expectedOld {
		return fmt.Errorf("%w: expected %q, found %q", ErrStaleHead, expectedOld.Short(), current.Short())
	}

	return writeAtomic(target, []byte(newHash.String()+"\n"))
}

// writeAtomic 先写临时文件再 Rename，读者永远看不到半截内容
func writeAtomic(path string, data []byte) (retErr error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if retErr != nil {
			retErr = multierr.Append(retErr, os.Remove(tmp.Name()))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return multierr.Append(err, tmp.Close())
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
