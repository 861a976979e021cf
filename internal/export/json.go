// Package export renders a built module graph for people and other tools:
// indented JSON, a Mermaid diagram and a plain-text summary.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/dusk-indust/depgraph/internal/graph"
)

// WriteJSON writes s as indented JSON followed by a newline.
func WriteJSON(w io.Writer, s *graph.Structure) error {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = w.Write(append(out, '\n'))
	return err
}
