package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s := NewMemStore()
		t.Cleanup(func() { _ = s.Close() })
		require.NoError(t, s.InitSchema(context.Background()))
		return s
	})
}

func TestMemStore_ZeroDepth(t *testing.T) {
	s := NewMemStore()
	seedChain(t, s)

	chains, err := s.GetDependencies(context.Background(), "src/a.ts", DirectionUpstream, 0)
	require.NoError(t, err)
	assert.Nil(t, chains)
}

func TestMemStore_GetFileReturnsCopy(t *testing.T) {
	ctx := context.Background()
	s := NewMemStore()
	require.NoError(t, s.AddFile(ctx, FileNode{Path: "a.js", Size: 1}))

	got, err := s.GetFile(ctx, "a.js")
	require.NoError(t, err)
	got.Size = 99

	again, err := s.GetFile(ctx, "a.js")
	require.NoError(t, err)
	assert.Equal(t, int64(1), again.Size)
}
