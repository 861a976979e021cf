//go:build cgo

package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore creates a fresh in-memory KuzuStore with an initialized schema.
// It registers a cleanup function to close the store when the test finishes.
func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err, "NewKuzuStore should not fail")
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.InitSchema(context.Background()), "InitSchema should not fail")
	return s
}

func TestKuzuStore_InitSchemaIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.InitSchema(context.Background()))
}

func TestKuzuStore_QueryAfterClose(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.QueryFiles(context.Background(), "", 0)
	assert.ErrorIs(t, err, errKuzuClosed)
}

func TestKuzuStore_EmptyStore(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, GraphStats{}, *stats)

	clusters, err := s.GetClusters(ctx)
	require.NoError(t, err)
	assert.Empty(t, clusters)

	impact, err := s.AssessImpact(ctx, []string{"missing.ts"})
	require.NoError(t, err)
	assert.Zero(t, impact.RiskScore)
}

func TestKuzuStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return newTestStore(t) })
}

func TestKuzuStore_FileUpsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.AddFile(ctx, FileNode{Path: "src/index.ts", Size: 5}))
	require.NoError(t, s.AddFile(ctx, FileNode{Path: "src/index.ts", Size: 7, Entrypoint: true}))

	got, err := s.GetFile(ctx, "src/index.ts")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.Size)
	assert.True(t, got.Entrypoint)

	stats, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileCount)
}

func TestKuzuStore_UnsupportedEdgeKind(t *testing.T) {
	s := newTestStore(t)
	err := s.AddEdge(context.Background(), Edge{SourceID: "a", TargetID: "b", Kind: "CALLS"})
	assert.Error(t, err)
}

func TestKuzuStore_IndexStructure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	clusters, err := Index(ctx, s, sampleStructure())
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	stored, err := s.GetClusters(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, clusters[0].Members, stored[0].Members)
	assert.InDelta(t, clusters[0].CohesionScore, stored[0].CohesionScore, 1e-9)

	entry, err := s.GetFile(ctx, "src/index.ts")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Entrypoint)

	users, err := s.PackageUsers(ctx, "react")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/app.tsx"}, users)
}
