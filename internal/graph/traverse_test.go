package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func adjacency(m map[string][]string) neighborFunc {
	return func(id string) ([]string, error) { return m[id], nil }
}

func TestWalkChains_Cycle(t *testing.T) {
	next := adjacency(map[string][]string{"a": {"b"}, "b": {"c"}, "c": {"a"}})

	chains, err := walkChains("a", 10, next)
	require.NoError(t, err)
	assert.Equal(t, []DependencyChain{
		{Nodes: []string{"a", "b"}, Depth: 1},
		{Nodes: []string{"a", "b", "c"}, Depth: 2},
	}, chains)
}

func TestWalkChains_SharedPrefixIsNotAliased(t *testing.T) {
	next := adjacency(map[string][]string{"a": {"b"}, "b": {"c", "d"}})

	chains, err := walkChains("a", 10, next)
	require.NoError(t, err)
	require.Len(t, chains, 3)
	assert.Equal(t, []string{"a", "b", "c"}, chains[1].Nodes)
	assert.Equal(t, []string{"a", "b", "d"}, chains[2].Nodes)
}

func TestWalkChains_Error(t *testing.T) {
	boom := errors.New("boom")
	_, err := walkChains("a", 3, func(string) ([]string, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
}

func TestImpactOf(t *testing.T) {
	// importers: c <- b <- a, b <- d, a <- c (cycle back into the changed file).
	importers := adjacency(map[string][]string{"c": {"b"}, "b": {"a", "d"}, "a": {"c"}})

	res, err := impactOf([]string{"c", "c"}, importers, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, res.DirectlyAffected)
	assert.Equal(t, []string{"a", "b", "d"}, res.TransitivelyAffected)
	assert.InDelta(t, 0.75, res.RiskScore, 1e-9)

	empty, err := impactOf(nil, importers, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{}, empty.DirectlyAffected)
	assert.Zero(t, empty.RiskScore)
}
