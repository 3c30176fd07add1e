package app

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"objvault/pkg/config"
	"objvault/pkg/storage/disk"
	"objvault/pkg/storage/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitStore_Disk(t *testing.T) {
	store, err := initStore(context.Background(), config.Storage{
		Type: "disk",
		Path: filepath.Join(t.TempDir(), "objects"),
	}, nil)
	require.NoError(t, err)
	assert.IsType(t, &disk.Adapter{}, store)
}

func TestInitStore_Badger(t *testing.T) {
	store, err := initStore(context.Background(), config.Storage{
		Type: "badger",
		Path: filepath.Join(t.TempDir(), "badger"),
	}, nil)
	require.NoError(t, err)
	require.IsType(t, &kv.Adapter{}, store)
	assert.NoError(t, store.(*kv.Adapter).Close())
}

func TestInitStore_S3_MissingBucket(t *testing.T) {
	store, err := initStore(context.Background(), config.Storage{Type: "s3"}, nil)
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestInitStore_UnknownType(t *testing.T) {
	store, err := initStore(context.Background(), config.Storage{Type: "ftp"}, nil)
	assert.Error(t, err)
	assert.Nil(t, store)
	assert.Contains(t, err.Error(), "unsupported storage type")
}

func TestNewApp(t *testing.T) {
	repo := filepath.Join(t.TempDir(), ".ov")
	s := config.Settings{
		RepoPath: repo,
		Storage:  config.Storage{Type: "disk", Path: filepath.Join(repo, "objects")},
		Meta:     config.Meta{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "meta.db")},
	}

	a, err := NewApp(context.Background(), s, nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NotNil(t, a.Store)
	assert.NotNil(t, a.Refs)
	assert.NotNil(t, a.History)
	assert.NotNil(t, a.Meta)

	_, ok := a.Verifiable()
	assert.True(t, ok)
}

func TestNewApp_NoMeta(t *testing.T) {
	repo := filepath.Join(t.TempDir(), ".ov")
	a, err := NewApp(context.Background(), config.Settings{
		RepoPath: repo,
		Storage:  config.Storage{Path: filepath.Join(repo, "objects")},
		Meta:     config.Meta{Driver: "none"},
	}, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Meta)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "json", &buf)
	logger.Debug("hello", "k", "v")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "hello", rec["msg"])
	assert.Equal(t, "v", rec["k"])

	buf.Reset()
	NewLogger("bogus", "text", &buf).Debug("dropped")
	assert.Empty(t, buf.String(), "无效级别回退到 info")
}
