package core

import (
	"strings"
	"testing"

	"objvault/pkg/types"

	"github.com/stretchr/testify/require"
)

// fakeHash 生成一个合法的 64 位 hex id，便于构造 Tree / Commit
func fakeHash(c byte) types.Hash {
	return types.Hash(strings.Repeat(string(c), types.HashLen))
}

func mustTree(t *testing.T, entries ...TreeEntry) *Tree {
	t.Helper()
	tree, err := NewTree(entries)
	require.NoError(t, err)
	return tree
}

func mustCommit(t *testing.T, tree, parent types.Hash, author, msg string) *Commit {
	t.Helper()
	c, err := NewCommit(tree, parent, author, msg)
	require.NoError(t, err)
	return c
}
