package graph

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedChain loads a -> b -> c plus d -> b into store, with a using lodash.
func seedChain(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	for _, f := range []FileNode{
		{Path: "src/a.ts", Size: 10, Entrypoint: true},
		{Path: "src/b.ts", Size: 20},
		{Path: "src/c.ts", Size: 30},
		{Path: "lib/d.js", Size: 40},
	} {
		require.NoError(t, store.AddFile(ctx, f))
	}
	require.NoError(t, store.AddPackage(ctx, PackageNode{Name: "lodash", Kind: PackageKindThirdParty}))
	require.NoError(t, store.AddPackage(ctx, PackageNode{Name: "fs", Kind: PackageKindBuiltin}))
	for _, e := range []Edge{
		{SourceID: "src/a.ts", TargetID: "src/b.ts", Kind: EdgeKindImports},
		{SourceID: "src/b.ts", TargetID: "src/c.ts", Kind: EdgeKindImports},
		{SourceID: "lib/d.js", TargetID: "src/b.ts", Kind: EdgeKindImports},
		{SourceID: "src/a.ts", TargetID: "lodash", Kind: EdgeKindUses},
		{SourceID: "lib/d.js", TargetID: "lodash", Kind: EdgeKindUses},
		{SourceID: "src/c.ts", TargetID: "fs", Kind: EdgeKindUses},
	} {
		require.NoError(t, store.AddEdge(ctx, e))
	}
}

func lastNodes(chains []DependencyChain) []string {
	out := make([]string, 0, len(chains))
	for _, c := range chains {
		out = append(out, c.Nodes[len(c.Nodes)-1])
	}
	return out
}

// runStoreContract exercises behavior every Store implementation shares.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("GetFile", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		got, err := s.GetFile(ctx, "src/a.ts")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, FileNode{Path: "src/a.ts", Size: 10, Entrypoint: true}, *got)

		missing, err := s.GetFile(ctx, "nope.ts")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("QueryFiles", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		got, err := s.QueryFiles(ctx, "SRC/", 0)
		require.NoError(t, err)
		paths := make([]string, 0, len(got))
		for _, f := range got {
			paths = append(paths, f.Path)
		}
		assert.Equal(t, []string{"src/a.ts", "src/b.ts", "src/c.ts"}, paths)

		limited, err := s.QueryFiles(ctx, "src/", 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("PackageUsers", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		users, err := s.PackageUsers(ctx, "lodash")
		require.NoError(t, err)
		assert.Equal(t, []string{"lib/d.js", "src/a.ts"}, users)

		none, err := s.PackageUsers(ctx, "react")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Upstream", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		chains, err := s.GetDependencies(ctx, "src/a.ts", DirectionUpstream, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/b.ts", "src/c.ts"}, lastNodes(chains))
		assert.Equal(t, []string{"src/a.ts", "src/b.ts", "src/c.ts"}, chains[1].Nodes)
		assert.Equal(t, 2, chains[1].Depth)

		shallow, err := s.GetDependencies(ctx, "src/a.ts", DirectionUpstream, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"src/b.ts"}, lastNodes(shallow))
	})

	t.Run("Downstream", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		chains, err := s.GetDependencies(ctx, "src/c.ts", DirectionDownstream, 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"src/b.ts", "src/a.ts", "lib/d.js"}, lastNodes(chains))
	})

	t.Run("AssessImpact", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		res, err := s.AssessImpact(ctx, []string{"src/c.ts"})
		require.NoError(t, err)
		assert.Equal(t, []string{"src/b.ts"}, res.DirectlyAffected)
		assert.Equal(t, []string{"lib/d.js", "src/a.ts", "src/b.ts"}, res.TransitivelyAffected)
		assert.InDelta(t, 0.75, res.RiskScore, 1e-9)

		leaf, err := s.AssessImpact(ctx, []string{"src/a.ts"})
		require.NoError(t, err)
		assert.Empty(t, leaf.DirectlyAffected)
		assert.Empty(t, leaf.TransitivelyAffected)
		assert.Zero(t, leaf.RiskScore)
	})

	t.Run("ClustersAndStats", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		clusters := []ClusterNode{
			{Name: "src", CohesionScore: 1, Members: []string{"src/a.ts", "src/b.ts"}},
			{Name: ".", CohesionScore: 0.5, Members: []string{"lib/d.js", "src/c.ts"}},
		}
		require.NoError(t, storeClusters(ctx, s, clusters))

		stored, err := s.GetClusters(ctx)
		require.NoError(t, err)
		require.Len(t, stored, 2)
		assert.Equal(t, ".", stored[0].Name, "clusters come back sorted by name")
		assert.Equal(t, []string{"lib/d.js", "src/c.ts"}, stored[0].Members)
		assert.InDelta(t, 0.5, stored[0].CohesionScore, 1e-9)
		assert.Equal(t, clusters[0], stored[1])

		stats, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.FileCount)
		assert.Equal(t, 2, stats.PackageCount)
		assert.Equal(t, 2, stats.ClusterCount)
		// 3 IMPORTS + 3 USES + 4 BELONGS
		assert.Equal(t, 10, stats.EdgeCount)
	})

	t.Run("GetAllEdges", func(t *testing.T) {
		s := newStore(t)
		seedChain(t, s)

		edges, err := s.GetAllEdges(ctx)
		require.NoError(t, err)
		counts := map[EdgeKind]int{}
		for _, e := range edges {
			counts[e.Kind]++
		}
		assert.Equal(t, map[EdgeKind]int{EdgeKindImports: 3, EdgeKindUses: 3}, counts)
	})
}
