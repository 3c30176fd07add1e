package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeTree_Format(t *testing.T) {
	entries := []TreeEntry{
		{Kind: TypeTree, Hash: fakeHash('b'), Name: "src"},
		{Kind: TypeBlob, Hash: fakeHash('a'), Name: "README.md"},
	}
	want := "blob " + fakeHash('a').String() + " README.md\n" +
		"tree " + fakeHash('b').String() + " src"
	assert.Equal(t, want, string(SerializeTree(entries)))

	// 空目录的 payload 为空
	assert.Empty(t, SerializeTree(nil))
	assert.Equal(t, []byte("tree 0\x00"), mustTree(t).Bytes())
}

func TestNewTree_OrderIndependent(t *testing.T) {
	a := TreeEntry{Kind: TypeBlob, Hash: fakeHash('1'), Name: "a.txt"}
	b := TreeEntry{Kind: TypeBlob, Hash: fakeHash('2'), Name: "b.txt"}
	c := TreeEntry{Kind: TypeTree, Hash: fakeHash('3'), Name: "c"}

	t1 := mustTree(t, a, b, c)
	t2 := mustTree(t, c, a, b)
	assert.Equal(t, t1.ID(), t2.ID())
	assert.Equal(t, []TreeEntry{a, b, c}, t2.Entries)

	// 改名字会改变 Hash
	renamed := b
	renamed.Name = "B.txt"
	assert.NotEqual(t, t1.ID(), mustTree(t, a, renamed, c).ID())
}

func TestNewTree_Invalid(t *testing.T) {
	ok := TreeEntry{Kind: TypeBlob, Hash: fakeHash('a'), Name: "ok"}
	tests := []struct {
		name  string
		entry TreeEntry
	}{
		{"commit kind", TreeEntry{Kind: TypeCommit, Hash: fakeHash('a'), Name: "x"}},
		{"bad hash", TreeEntry{Kind: TypeBlob, Hash: "abc", Name: "x"}},
		{"empty name", TreeEntry{Kind: TypeBlob, Hash: fakeHash('a'), Name: ""}},
		{"newline in name", TreeEntry{Kind: TypeBlob, Hash: fakeHash('a'), Name: "a\nb"}},
		{"slash in name", TreeEntry{Kind: TypeBlob, Hash: fakeHash('a'), Name: "a/b"}},
		{"dot dot", TreeEntry{Kind: TypeTree, Hash: fakeHash('a'), Name: ".."}},
		{"duplicate", ok},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTree([]TreeEntry{ok, tt.entry})
			assert.ErrorIs(t, err, ErrInvalidTreeEntry)
		})
	}
}

func TestDeserializeTree_RoundTrip(t *testing.T) {
	tree := mustTree(t,
		TreeEntry{Kind: TypeBlob, Hash: fakeHash('a'), Name: "name with spaces.txt"},
		TreeEntry{Kind: TypeTree, Hash: fakeHash('b'), Name: "dir"},
	)

	env, err := Deserialize(tree.Bytes())
	require.NoError(t, err)
	got, err := DecodeTree(env)
	require.NoError(t, err)

	assert.Equal(t, tree.Entries, got.Entries)
	assert.Equal(t, tree.ID(), got.ID())

	e, ok := got.Lookup("name with spaces.txt")
	assert.True(t, ok)
	assert.Equal(t, fakeHash('a'), e.Hash)
	_, ok = got.Lookup("missing")
	assert.False(t, ok)
}

func TestDeserializeTree_Corrupt(t *testing.T) {
	h := fakeHash('a').String()
	tests := []struct {
		name    string
		payload string
		reason  error
	}{
		{"two fields", "blob " + h, ErrMalformedHeader},
		{"unknown kind", "chunk " + h + " x", ErrUnknownKind},
		{"commit entry", "commit " + h + " x", ErrUnknownKind},
		{"short id", "blob abcd x", ErrInvalidEncoding},
		{"invalid utf8", "blob " + h + " \xff", ErrInvalidEncoding},
		{"empty name", "blob " + h + " ", ErrMalformedHeader},
		{"dot", "tree " + h + " .", ErrMalformedHeader},
		{"dot dot", "tree " + h + " ..", ErrMalformedHeader},
		{"parent traversal", "blob " + h + " ../escaped.txt", ErrMalformedHeader},
		{"nested path", "blob " + h + " a/b", ErrMalformedHeader},
		{"nul in name", "blob " + h + " a\x00b", ErrMalformedHeader},
		{"duplicate name", "blob " + h + " x\nblob " + h + " x", ErrMalformedHeader},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DeserializeTree([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrCorrupt)
			assert.ErrorIs(t, err, tt.reason)
		})
	}
}

func TestNewTreeEntryFromObject(t *testing.T) {
	blob := NewBlob([]byte("x"))
	e, err := NewTreeEntryFromObject("x.txt", blob)
	require.NoError(t, err)
	assert.Equal(t, TreeEntry{Kind: TypeBlob, Hash: blob.ID(), Name: "x.txt"}, e)

	c := mustCommit(t, fakeHash('a'), "", "alice", "init")
	_, err = NewTreeEntryFromObject("c", c)
	assert.ErrorIs(t, err, ErrInvalidTreeEntry)
}
