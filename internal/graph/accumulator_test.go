package graph

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depgraph/internal/errs"
)

func TestAccumulator_RegisterOnce(t *testing.T) {
	a := NewAccumulator()
	assert.True(t, a.Register("a.js"))
	assert.False(t, a.Register("a.js"))
	assert.True(t, a.Has("a.js"))
	assert.False(t, a.Has("b.js"))
	assert.Equal(t, 1, a.Len())
}

func TestAccumulator_EdgesIgnoreUnknownAndDuplicates(t *testing.T) {
	a := NewAccumulator()
	a.Register("a.js")
	a.Register("b.js")
	a.AddEdges("a.js", "b.js", "missing.js", "b.js")
	a.AddEdges("missing.js", "a.js")

	s := a.Freeze("pass", "")
	assert.Equal(t, []string{"b.js"}, s.Graph["a.js"].AdjacentTo)
	assert.Equal(t, []string{}, s.Graph["b.js"].AdjacentTo)
	assert.NotContains(t, s.Graph, "missing.js")
}

func TestAccumulator_FreezeIsDetached(t *testing.T) {
	a := NewAccumulator()
	a.Register("a.js")
	a.Register("b.js")
	a.SetBody("a.js", Body{Size: 3, ThirdPartyDependencies: []string{"lodash", "lodash"}})
	a.Diagnose(Diagnostic{File: "a.js", Specifier: "./x", Code: errs.CodeUnresolvedLocal, Reason: "not found"})

	s := a.Freeze("pass-1", "a.js")
	a.AddEdges("a.js", "b.js")
	a.Register("c.js")

	assert.Equal(t, "pass-1", s.ID)
	assert.Equal(t, "a.js", s.Entrypoint)
	assert.Equal(t, []string{"a.js", "b.js"}, s.Files)
	assert.Empty(t, s.Graph["a.js"].AdjacentTo)
	assert.Equal(t, int64(3), s.Graph["a.js"].Body.Size)
	assert.Equal(t, []string{"lodash"}, s.Graph["a.js"].Body.ThirdPartyDependencies)
	assert.Equal(t, []string{}, s.Graph["a.js"].Body.BuiltinDependencies)
	require.Len(t, s.Diagnostics, 1)
	assert.Equal(t, errs.CodeUnresolvedLocal, s.Diagnostics[0].Code)
	assert.Equal(t, []Cycle{}, s.Cycles)
}

func TestAccumulator_EmptyFreeze(t *testing.T) {
	s := NewAccumulator().Freeze("p", "")
	assert.Equal(t, []string{}, s.Files)
	assert.Empty(t, s.Graph)
}

func TestAccumulator_ConcurrentRegister(t *testing.T) {
	a := NewAccumulator()
	var wg sync.WaitGroup
	created := make(chan string, 800)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				id := fmt.Sprintf("m%d.js", i)
				if a.Register(id) {
					created <- id
				}
			}
		}()
	}
	wg.Wait()
	close(created)

	n := 0
	for range created {
		n++
	}
	assert.Equal(t, 100, n)
	assert.Equal(t, 100, a.Len())
}
