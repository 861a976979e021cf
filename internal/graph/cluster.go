package graph

import (
	"context"
	"fmt"
	"path"
	"slices"
	"strings"
)

// Clusters groups the modules of s into the weakly connected components of
// the import graph. Single-module components are left out.
//
// Clusters come out in the Files order of their first member, members sorted.
// A cluster is named after the deepest directory its members share ("." for
// none), with a "#n" suffix when the name is taken. CohesionScore is the edge
// density of the component: imports between distinct members divided by the
// n*(n-1) possible ones.
func Clusters(s *Structure) []ClusterNode {
	uf := newUnionFind(s.Files)
	for _, id := range s.Files {
		for _, t := range s.Graph[id].AdjacentTo {
			uf.union(id, t)
		}
	}

	var roots []string
	groups := make(map[string][]string)
	for _, id := range s.Files {
		r := uf.find(id)
		if _, ok := groups[r]; !ok {
			roots = append(roots, r)
		}
		groups[r] = append(groups[r], id)
	}

	taken := make(map[string]int)
	var out []ClusterNode
	for _, r := range roots {
		members := groups[r]
		if len(members) < 2 {
			continue
		}
		slices.Sort(members)

		name := commonDir(members)
		taken[name]++
		if n := taken[name]; n > 1 {
			name = fmt.Sprintf("%s#%d", name, n)
		}
		out = append(out, ClusterNode{
			Name:          name,
			CohesionScore: density(s, members),
			Members:       members,
		})
	}
	return out
}

// storeClusters writes each cluster and a BELONGS edge per member.
func storeClusters(ctx context.Context, store Store, clusters []ClusterNode) error {
	for _, c := range clusters {
		if err := store.AddCluster(ctx, c); err != nil {
			return fmt.Errorf("add cluster %s: %w", c.Name, err)
		}
		for _, m := range c.Members {
			if err := store.AddEdge(ctx, Edge{SourceID: m, TargetID: c.Name, Kind: EdgeKindBelongs}); err != nil {
				return fmt.Errorf("add edge %s -> %s: %w", m, c.Name, err)
			}
		}
	}
	return nil
}

// density counts imports between distinct members over n*(n-1).
func density(s *Structure, members []string) float64 {
	in := make(map[string]bool, len(members))
	for _, m := range members {
		in[m] = true
	}
	edges := 0
	for _, m := range members {
		for _, t := range s.Graph[m].AdjacentTo {
			if t != m && in[t] {
				edges++
			}
		}
	}
	n := len(members)
	return float64(edges) / float64(n*(n-1))
}

// commonDir returns the deepest directory shared by every path, or ".".
func commonDir(paths []string) string {
	dir := strings.Split(path.Dir(paths[0]), "/")
	for _, p := range paths[1:] {
		other := strings.Split(path.Dir(p), "/")
		i := 0
		for i < len(dir) && i < len(other) && dir[i] == other[i] {
			i++
		}
		dir = dir[:i]
	}
	if len(dir) == 0 {
		return "."
	}
	return strings.Join(dir, "/")
}

// unionFind is a disjoint-set forest over module ids with path halving.
type unionFind struct {
	parent map[string]string
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{parent: make(map[string]string, len(ids))}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	for uf.parent[id] != id {
		uf.parent[id] = uf.parent[uf.parent[id]]
		id = uf.parent[id]
	}
	return id
}

// union joins the sets of a and b. Ids outside the forest are ignored.
func (uf *unionFind) union(a, b string) {
	if _, ok := uf.parent[a]; !ok {
		return
	}
	if _, ok := uf.parent[b]; !ok {
		return
	}
	ra, rb := uf.find(a), uf.find(b)
	if ra != rb {
		uf.parent[rb] = ra
	}
}
