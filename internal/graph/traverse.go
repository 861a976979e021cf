package graph

import (
	"math"
	"slices"
)

// neighborFunc returns the files one IMPORTS hop away from id.
type neighborFunc func(id string) ([]string, error)

// walkChains runs a breadth-first search from start for at most maxDepth
// hops and returns the path to every file reached, in visit order. A file is
// reported once, through the first path that reaches it.
func walkChains(start string, maxDepth int, next neighborFunc) ([]DependencyChain, error) {
	if maxDepth <= 0 {
		return nil, nil
	}

	seen := map[string]bool{start: true}
	frontier := []DependencyChain{{Nodes: []string{start}}}
	var chains []DependencyChain

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var following []DependencyChain
		for _, c := range frontier {
			neighbors, err := next(c.Nodes[len(c.Nodes)-1])
			if err != nil {
				return nil, err
			}
			for _, nb := range neighbors {
				if seen[nb] {
					continue
				}
				seen[nb] = true
				chain := DependencyChain{Nodes: append(slices.Clip(c.Nodes), nb), Depth: depth}
				chains = append(chains, chain)
				following = append(following, chain)
			}
		}
		frontier = following
	}
	return chains, nil
}

// impactOf follows importers outward from changed. Changed files are never
// reported as affected. The risk score is the affected share of totalFiles.
func impactOf(changed []string, importers neighborFunc, totalFiles int) (*ImpactResult, error) {
	isChanged := make(map[string]bool, len(changed))
	for _, f := range changed {
		isChanged[f] = true
	}

	direct := make(map[string]bool)
	affected := make(map[string]bool)
	queue := slices.Clone(changed)
	for i := 0; i < len(queue); i++ {
		from := queue[i]
		users, err := importers(from)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if isChanged[u] {
				continue
			}
			if isChanged[from] {
				direct[u] = true
			}
			if !affected[u] {
				affected[u] = true
				queue = append(queue, u)
			}
		}
	}

	var risk float64
	if totalFiles > 0 {
		risk = math.Min(1, float64(len(affected))/float64(totalFiles))
	}
	return &ImpactResult{
		DirectlyAffected:     setToSlice(direct),
		TransitivelyAffected: setToSlice(affected),
		RiskScore:            risk,
	}, nil
}

// setToSlice converts a string bool map to a sorted slice.
func setToSlice(s map[string]bool) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}
