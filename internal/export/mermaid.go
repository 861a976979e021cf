package export

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/dusk-indust/depgraph/internal/graph"
)

// GenerateMermaid produces a Mermaid graph TD diagram from a graph store.
// Files are grouped by cluster; IMPORTS edges become arrows and the edges
// lying on one of cycles are drawn in red.
func GenerateMermaid(ctx context.Context, store graph.Store, cycles []graph.Cycle) (string, error) {
	clusters, err := store.GetClusters(ctx)
	if err != nil {
		return "", fmt.Errorf("get clusters: %w", err)
	}

	files, err := store.QueryFiles(ctx, "", 0)
	if err != nil {
		return "", fmt.Errorf("list files: %w", err)
	}

	edges, err := store.GetAllEdges(ctx)
	if err != nil {
		return "", fmt.Errorf("get edges: %w", err)
	}

	// Build node → ID mapping for Mermaid (alphanumeric only).
	nodeIDs := make(map[string]string)
	getID := func(key string) string {
		if id, ok := nodeIDs[key]; ok {
			return id
		}
		id := fmt.Sprintf("N%d", len(nodeIDs))
		nodeIDs[key] = id
		return id
	}

	var sb strings.Builder
	sb.WriteString("graph TD\n")

	clustered := make(map[string]bool)
	for _, c := range clusters {
		if len(c.Members) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "  subgraph %s[\"%.40s\"]\n", getID("cluster:"+c.Name), c.Name)
		for _, member := range c.Members {
			clustered[member] = true
			fmt.Fprintf(&sb, "    %s[\"%s\"]\n", getID(member), shortPath(member))
		}
		sb.WriteString("  end\n")
	}

	for _, f := range files {
		if clustered[f.Path] {
			continue
		}
		fmt.Fprintf(&sb, "  %s[\"%s\"]\n", getID(f.Path), shortPath(f.Path))
	}

	onCycle := cycleEdges(cycles)
	var red []int
	link := 0
	for _, e := range edges {
		if e.Kind != graph.EdgeKindImports {
			continue
		}
		fmt.Fprintf(&sb, "  %s --> %s\n", getID(e.SourceID), getID(e.TargetID))
		if onCycle[[2]string{e.SourceID, e.TargetID}] {
			red = append(red, link)
		}
		link++
	}

	for _, i := range red {
		fmt.Fprintf(&sb, "  linkStyle %d stroke:#d33,stroke-width:2px\n", i)
	}

	return sb.String(), nil
}

// cycleEdges returns the (from, to) pairs that lie on a cycle.
func cycleEdges(cycles []graph.Cycle) map[[2]string]bool {
	set := make(map[[2]string]bool)
	for _, c := range cycles {
		for i, from := range c {
			set[[2]string{from, c[(i+1)%len(c)]}] = true
		}
	}
	return set
}

// shortPath returns the last 2 path segments for readability.
func shortPath(p string) string {
	parts := strings.Split(p, "/")
	if len(parts) <= 2 {
		return p
	}
	return path.Join(parts[len(parts)-2:]...)
}
