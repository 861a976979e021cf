package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/dusk-indust/depgraph/internal/graph"
)

// WriteSummary prints a short human report of s: counts, each cycle and the
// recovered diagnostics.
func WriteSummary(w io.Writer, s *graph.Structure) error {
	var sb strings.Builder

	edges := 0
	for _, n := range s.Graph {
		edges += len(n.AdjacentTo)
	}
	fmt.Fprintf(&sb, "Modules: %d  Imports: %d  Cycles: %d\n", len(s.Files), edges, len(s.Cycles))
	if s.Entrypoint != "" {
		fmt.Fprintf(&sb, "Entrypoint: %s\n", s.Entrypoint)
	}

	if len(s.Cycles) > 0 {
		sb.WriteString("\nCircular dependencies:\n")
		for i, c := range s.Cycles {
			fmt.Fprintf(&sb, "  %d. %s -> %s\n", i+1, strings.Join(c, " -> "), c[0])
		}
	}

	if len(s.Diagnostics) > 0 {
		sb.WriteString("\nDiagnostics:\n")
		for _, d := range s.Diagnostics {
			if d.Specifier != "" {
				fmt.Fprintf(&sb, "  %-26s %s: %q (%s)\n", d.Code, d.File, d.Specifier, d.Reason)
			} else {
				fmt.Fprintf(&sb, "  %-26s %s (%s)\n", d.Code, d.File, d.Reason)
			}
		}
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
