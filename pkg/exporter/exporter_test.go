package exporter

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"objvault/pkg/core"
	"objvault/pkg/history"
	"objvault/pkg/ingester"
	"objvault/pkg/storage"
	"objvault/pkg/storage/disk"
	"objvault/pkg/treebuilder"
	"objvault/pkg/types"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *disk.Adapter {
	t.Helper()
	store, err := disk.NewAdapter(filepath.Join(t.TempDir(), "objects"))
	require.NoError(t, err)
	return store
}

func TestIngestAndExport_RoundTrip(t *testing.T) {
	store := newStore(t)
	ing := ingester.NewIngester(store)
	exp := NewExporter(store)
	ctx := context.Background()

	originalData := make([]byte, 500*1024)
	_, err := rand.Read(originalData)
	require.NoError(t, err)

	blob, err := ing.IngestFile(ctx, bytes.NewReader(originalData))
	require.NoError(t, err)

	var restored bytes.Buffer
	require.NoError(t, exp.ExportBlob(ctx, blob.ID(), &restored))
	assert.True(t, bytes.Equal(originalData, restored.Bytes()), "数据应该完美还原")

	// 类型不对时报错
	tree, err := core.NewTree(nil)
	require.NoError(t, err)
	_, err = storage.Write(ctx, store, tree)
	require.NoError(t, err)
	assert.ErrorIs(t, exp.ExportBlob(ctx, tree.ID(), &restored), core.ErrKindMismatch)
}

func TestRestoreCommit(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	// 1. 构造工作目录并提交
	work := t.TempDir()
	files := map[string]string{
		"README.md":          "# demo",
		"src/main.go":        "package main",
		"src/pkg/util.go":    "package pkg",
		"docs/with space.md": "spaces are fine",
	}
	for rel, content := range files {
		p := filepath.Join(work, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}

	treeID, err := treebuilder.NewBuilder(store).Build(ctx, work)
	require.NoError(t, err)
	commitID, err := history.New(store).CreateCommit(ctx, treeID, "", "alice", "snapshot")
	require.NoError(t, err)

	// 2. 还原到新目录
	target := filepath.Join(t.TempDir(), "out")
	var restored []string
	gotTree, err := NewExporter(store).RestoreCommit(ctx, commitID, target, func(path string, hash types.Hash, size int64) {
		rel, _ := filepath.Rel(target, path)
		restored = append(restored, filepath.ToSlash(rel))
	})
	require.NoError(t, err)
	assert.Equal(t, treeID, gotTree)

	for rel, content := range files {
		data, err := os.ReadFile(filepath.Join(target, filepath.FromSlash(rel)))
		require.NoError(t, err, rel)
		assert.Equal(t, content, string(data))
	}
	assert.Len(t, restored, len(files))

	// 3. 还原出来的目录再次构建，得到同一棵树
	again, err := treebuilder.NewBuilder(store).Build(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, treeID, again)
}

func TestRestoreTree_RejectsEscapingNames(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	blob := core.NewBlob([]byte("outside"))
	_, err := storage.Write(ctx, store, blob)
	require.NoError(t, err)

	// 手写一棵哈希正确但名字越界的树，绕过 NewTree 的校验
	base := t.TempDir()
	for _, name := range []string{"../escaped.txt", "..", "sub/inner.txt"} {
		t.Run(name, func(t *testing.T) {
			env := core.NewEnvelope(core.TypeTree, []byte("blob "+blob.ID().String()+" "+name))
			treeID, err := storage.Write(ctx, store, env)
			require.NoError(t, err)

			target := filepath.Join(base, "checkout")
			err = NewExporter(store).RestoreTree(ctx, treeID, target, nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, core.ErrCorrupt)

			assert.NoFileExists(t, filepath.Join(base, "escaped.txt"))
			assert.NoFileExists(t, filepath.Join(target, "sub", "inner.txt"))
		})
	}
}

func TestPrintObject(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	exp := NewExporter(store)

	blob := core.NewBlob([]byte("Hello, world!"))
	_, err := storage.Write(ctx, store, blob)
	require.NoError(t, err)
	tree, err := core.NewTree([]core.TreeEntry{{Kind: core.TypeBlob, Hash: blob.ID(), Name: "hello.txt"}})
	require.NoError(t, err)
	_, err = storage.Write(ctx, store, tree)
	require.NoError(t, err)
	commitID, err := history.New(store).CreateCommit(ctx, tree.ID(), "", "alice", "first")
	require.NoError(t, err)

	t.Run("text blob", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.PrintObject(ctx, blob.ID(), &buf, FormatText))
		assert.Equal(t, "Hello, world!", buf.String())
	})

	t.Run("text tree", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.PrintObject(ctx, tree.ID(), &buf, FormatText))
		assert.Equal(t, "blob "+blob.ID().String()+" hello.txt\n", buf.String())
	})

	t.Run("text commit", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.PrintObject(ctx, commitID, &buf, FormatText))
		out := buf.String()
		assert.Contains(t, out, "tree    "+tree.ID().String())
		assert.Contains(t, out, "author  alice")
		assert.Contains(t, out, "first")
		assert.NotContains(t, out, "parent")
	})

	t.Run("json commit", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.PrintObject(ctx, commitID, &buf, FormatJSON))
		var v ObjectView
		require.NoError(t, json.Unmarshal(buf.Bytes(), &v))
		assert.Equal(t, core.TypeCommit, v.Kind)
		assert.Equal(t, commitID, v.Hash)
		require.NotNil(t, v.Commit)
		assert.Equal(t, tree.ID(), v.Commit.Tree)
	})

	t.Run("cbor tree", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.PrintObject(ctx, tree.ID(), &buf, FormatCBOR))
		var v ObjectView
		require.NoError(t, cbor.Unmarshal(buf.Bytes(), &v))
		require.Len(t, v.Entries, 1)
		assert.Equal(t, "hello.txt", v.Entries[0].Name)
	})

	t.Run("raw", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, exp.PrintObject(ctx, blob.ID(), &buf, FormatRaw))
		assert.Equal(t, "blob 13\x00Hello, world!", buf.String())
	})

	t.Run("missing", func(t *testing.T) {
		err := exp.PrintObject(ctx, types.Hash(strings.Repeat("f", 64)), &bytes.Buffer{}, FormatText)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("cbor")
	require.NoError(t, err)
	assert.Equal(t, FormatCBOR, f)

	_, err = ParseFormat("yaml")
	assert.Error(t, err)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "12B", FormatSize(12))
	assert.Equal(t, "1.5KB", FormatSize(1536))
	assert.Equal(t, "2.00MB", FormatSize(2*1024*1024))
}
