package graph

import (
	"context"
	"fmt"
	"slices"
	"sort"
)

// Edges lists every import edge of s in Files order.
func (s *Structure) Edges() []Edge {
	var out []Edge
	for _, id := range s.Files {
		for _, t := range s.Graph[id].AdjacentTo {
			out = append(out, Edge{SourceID: id, TargetID: t, Kind: EdgeKindImports})
		}
	}
	return out
}

// Reachable returns the identities reachable from start, start included, in
// breadth-first order.
func (s *Structure) Reachable(start string) []string {
	if _, ok := s.Graph[start]; !ok {
		return nil
	}
	seen := map[string]bool{start: true}
	queue := []string{start}
	for i := 0; i < len(queue); i++ {
		for _, next := range s.Graph[queue[i]].AdjacentTo {
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return queue
}

// UnusedDependency is a declared dependency no module references.
type UnusedDependency struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// UnusedDependencies compares declared (package name to declaration kind)
// against the third-party dependencies recorded on the nodes of s. It is only
// meaningful when third-party tracking was enabled for the build.
func UnusedDependencies(s *Structure, declared map[string]string) []UnusedDependency {
	used := make(map[string]bool)
	for _, n := range s.Graph {
		for _, dep := range n.Body.ThirdPartyDependencies {
			used[dep] = true
		}
	}
	// Type packages count as used when their runtime package is.
	out := []UnusedDependency{}
	for name, kind := range declared {
		if used[name] || used[typesTarget(name)] {
			continue
		}
		out = append(out, UnusedDependency{Name: name, Kind: kind})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// typesTarget maps "@types/node" to "node" and "@types/babel__core" to
// "@babel/core".
func typesTarget(name string) string {
	const prefix = "@types/"
	if len(name) <= len(prefix) || name[:len(prefix)] != prefix {
		return ""
	}
	rest := name[len(prefix):]
	for i := 0; i+1 < len(rest); i++ {
		if rest[i] == '_' && rest[i+1] == '_' {
			return "@" + rest[:i] + "/" + rest[i+2:]
		}
	}
	return rest
}

// Index loads s into store: one File per node, IMPORTS edges, one Package per
// recorded dependency with USES edges, then the clusters of s.
func Index(ctx context.Context, store Store, s *Structure) ([]ClusterNode, error) {
	if err := store.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	for _, id := range s.Files {
		f := FileNode{Path: id, Size: s.Graph[id].Body.Size, Entrypoint: id == s.Entrypoint}
		if err := store.AddFile(ctx, f); err != nil {
			return nil, fmt.Errorf("add file %s: %w", id, err)
		}
	}

	packages := make(map[string]PackageKind)
	var uses []Edge
	for _, id := range s.Files {
		n := s.Graph[id]
		for _, t := range n.AdjacentTo {
			if err := store.AddEdge(ctx, Edge{SourceID: id, TargetID: t, Kind: EdgeKindImports}); err != nil {
				return nil, fmt.Errorf("add edge %s -> %s: %w", id, t, err)
			}
		}
		for _, dep := range n.Body.BuiltinDependencies {
			packages[dep] = PackageKindBuiltin
			uses = append(uses, Edge{SourceID: id, TargetID: dep, Kind: EdgeKindUses})
		}
		for _, dep := range n.Body.ThirdPartyDependencies {
			if _, ok := packages[dep]; !ok {
				packages[dep] = PackageKindThirdParty
			}
			uses = append(uses, Edge{SourceID: id, TargetID: dep, Kind: EdgeKindUses})
		}
	}

	names := make([]string, 0, len(packages))
	for name := range packages {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := store.AddPackage(ctx, PackageNode{Name: name, Kind: packages[name]}); err != nil {
			return nil, fmt.Errorf("add package %s: %w", name, err)
		}
	}
	for _, e := range uses {
		if err := store.AddEdge(ctx, e); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e.SourceID, e.TargetID, err)
		}
	}

	clusters := Clusters(s)
	if err := storeClusters(ctx, store, clusters); err != nil {
		return nil, err
	}
	return clusters, nil
}
