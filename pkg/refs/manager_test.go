package refs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"objvault/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hashOf(c byte) types.Hash {
	return types.Hash(strings.Repeat(string(c), types.HashLen))
}

func setupTestEnv(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	mgr := NewManager(root)
	require.NoError(t, mgr.Init())
	return mgr, root
}

func TestRefFlow_Lifecycle(t *testing.T) {
	mgr, root := setupTestEnv(t)
	ctx := context.Background()

	// 1. 初始状态
	raw, err := os.ReadFile(filepath.Join(root, "refs", "heads", "HEAD"))
	require.NoError(t, err)
	assert.Equal(t, "ref: refs/heads/master\n", string(raw))

	branch, err := mgr.CurrentBranch()
	require.NoError(t, err)
	assert.Equal(t, "master", branch)

	_, err = mgr.GetHead(ctx)
	assert.ErrorIs(t, err, ErrNoHead)

	// 2. 第一次提交
	require.NoError(t, mgr.UpdateHead(ctx, hashOf('a'), ""))
	head, err := mgr.GetHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashOf('a'), head)

	raw, err = os.ReadFile(filepath.Join(root, "refs", "heads", "master"))
	require.NoError(t, err)
	assert.Equal(t, hashOf('a').String()+"\n", string(raw))

	// 3. 正常推进
	require.NoError(t, mgr.UpdateHead(ctx, hashOf('b'), hashOf('a')))

	// 4. 过期的 expectedOld 被拒绝，HEAD 不变
	err = mgr.UpdateHead(ctx, hashOf('c'), hashOf('a'))
	assert.ErrorIs(t, err, ErrStaleHead)
	head, err = mgr.GetHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashOf('b'), head)

	// 5. 再次 Init 不会重置 HEAD
	require.NoError(t, mgr.Init())
	head, err = mgr.GetHead(ctx)
	require.NoError(t, err)
	assert.Equal(t, hashOf('b'), head)
}

func TestUpdateHead_InvalidHash(t *testing.T) {
	mgr, _ := setupTestEnv(t)
	err := mgr.UpdateHead(context.Background(), "not-a-hash", "")
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestGetHead_Detached(t *testing.T) {
	mgr, root := setupTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "refs", "heads", "HEAD"), []byte(hashOf('d').String()), 0644))

	head, err := mgr.GetHead(context.Background())
	require.NoError(t, err)
	assert.Equal(t, hashOf('d'), head)

	branch, err := mgr.CurrentBranch()
	require.NoError(t, err)
	assert.Empty(t, branch)
}

func TestGetHead_NotInitialized(t *testing.T) {
	_, err := NewManager(t.TempDir()).GetHead(context.Background())
	assert.ErrorIs(t, err, ErrNoHead)
}

func TestGetHead_Garbage(t *testing.T) {
	mgr, root := setupTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, "refs", "heads", "master"), []byte("garbage"), 0644))
	_, err := mgr.GetHead(context.Background())
	assert.ErrorIs(t, err, ErrInvalidRef)
}

func TestUpdateHead_ConcurrentCAS(t *testing.T) {
	mgr, _ := setupTestEnv(t)
	ctx := context.Background()

	// 多个写者同时基于 "空" 推进，只能有一个成功
	const writers = 8
	var wg sync.WaitGroup
	results := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = mgr.UpdateHead(ctx, hashOf("0123456789abcdef"[i]), "")
		}(i)
	}
	wg.Wait()

	var ok int
	for _, err := range results {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, ErrStaleHead)
		}
	}
	assert.Equal(t, 1, ok)
}
