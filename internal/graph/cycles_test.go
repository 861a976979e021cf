package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// build freezes a Structure with the given files and edges.
func build(files []string, edges map[string][]string) *Structure {
	a := NewAccumulator()
	for _, f := range files {
		a.Register(f)
	}
	for _, f := range files {
		a.AddEdges(f, edges[f]...)
	}
	return a.Freeze("test", "")
}

func TestFindCycles(t *testing.T) {
	tests := []struct {
		name     string
		files    []string
		edges    map[string][]string
		maxDepth int
		want     []Cycle
	}{
		{
			name:     "three module loop",
			files:    []string{"a.js", "b.js", "c.js"},
			edges:    map[string][]string{"a.js": {"b.js"}, "b.js": {"c.js"}, "c.js": {"a.js"}},
			maxDepth: 10,
			want:     []Cycle{{"a.js", "b.js", "c.js"}},
		},
		{
			name:     "rotation starts at smallest",
			files:    []string{"c.js", "a.js", "b.js"},
			edges:    map[string][]string{"a.js": {"b.js"}, "b.js": {"c.js"}, "c.js": {"a.js"}},
			maxDepth: 10,
			want:     []Cycle{{"a.js", "b.js", "c.js"}},
		},
		{
			name:     "self import",
			files:    []string{"a.js"},
			edges:    map[string][]string{"a.js": {"a.js"}},
			maxDepth: 1,
			want:     []Cycle{{"a.js"}},
		},
		{
			name:     "acyclic",
			files:    []string{"a.js", "b.js", "c.js"},
			edges:    map[string][]string{"a.js": {"b.js", "c.js"}, "b.js": {"c.js"}},
			maxDepth: 10,
			want:     []Cycle{},
		},
		{
			name:     "longer than max depth",
			files:    []string{"a.js", "b.js", "c.js"},
			edges:    map[string][]string{"a.js": {"b.js"}, "b.js": {"c.js"}, "c.js": {"a.js"}},
			maxDepth: 2,
			want:     []Cycle{},
		},
		{
			name:  "two independent loops",
			files: []string{"a.js", "b.js", "x.js", "y.js"},
			edges: map[string][]string{
				"a.js": {"b.js"}, "b.js": {"a.js"},
				"x.js": {"y.js"}, "y.js": {"x.js"},
			},
			maxDepth: 5,
			want:     []Cycle{{"a.js", "b.js"}, {"x.js", "y.js"}},
		},
		{
			name:     "zero depth",
			files:    []string{"a.js"},
			edges:    map[string][]string{"a.js": {"a.js"}},
			maxDepth: 0,
			want:     []Cycle{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := build(tt.files, tt.edges)
			assert.Equal(t, tt.want, FindCycles(s, tt.maxDepth))
		})
	}
}

func TestFindCycles_EachCycleClosed(t *testing.T) {
	s := build(
		[]string{"a.js", "b.js", "c.js", "d.js"},
		map[string][]string{
			"a.js": {"b.js"},
			"b.js": {"c.js", "a.js"},
			"c.js": {"d.js"},
			"d.js": {"b.js"},
		},
	)
	cycles := FindCycles(s, 10)
	assert.NotEmpty(t, cycles)
	for _, c := range cycles {
		for i := range c {
			assert.True(t, s.HasEdge(c[i], c[(i+1)%len(c)]), "cycle %v is not closed", c)
		}
	}
}

func TestFindCycles_Nil(t *testing.T) {
	assert.Equal(t, []Cycle{}, FindCycles(nil, 5))
}
