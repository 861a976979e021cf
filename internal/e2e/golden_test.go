//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dusk-indust/depgraph/internal/config"
	"github.com/dusk-indust/depgraph/internal/engine"
	"github.com/dusk-indust/depgraph/internal/export"
	"github.com/dusk-indust/depgraph/internal/fsys"
	"github.com/dusk-indust/depgraph/internal/graph"
)

var update = flag.Bool("update", false, "update golden files")

// goldenDir returns the path to the testdata/golden directory.
func goldenDir() string {
	return filepath.Join("..", "..", "testdata", "golden")
}

// fixtureDir returns the path to the JavaScript/TypeScript fixture project.
func fixtureDir() string {
	return filepath.Join("..", "..", "testdata", "fixtures", "js_project")
}

// goldenCases maps build configurations to golden filenames.
var goldenCases = []struct {
	golden string
	cfg    func() config.Config
}{
	{"js_project_flat.json", func() config.Config {
		cfg := config.Default()
		cfg.DependencyTracking.Builtin = true
		cfg.DependencyTracking.ThirdParty = true
		return cfg
	}},
}

// buildForGolden builds the fixture and renders the Structure the way the
// CLI's --json output does, with the pass id blanked.
func buildForGolden(t *testing.T, cfg config.Config) []byte {
	t.Helper()

	reader := fsys.NewRootedReader(fixtureDir(), fsys.Options{Cwd: cfg.Cwd, IgnorePattern: cfg.IgnorePattern})
	eng, err := engine.New(cfg, reader)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	s, err := eng.Initialize(ctx)
	require.NoError(t, err)

	out := *s
	out.ID = ""
	var buf bytes.Buffer
	require.NoError(t, export.WriteJSON(&buf, &out))
	return buf.Bytes()
}

// TestGolden compares the built structure against golden files. If golden
// files do not exist, the test is skipped with a message to run with -update.
func TestGolden(t *testing.T) {
	for _, gc := range goldenCases {
		t.Run(gc.golden, func(t *testing.T) {
			goldenPath := filepath.Join(goldenDir(), gc.golden)
			golden, err := os.ReadFile(goldenPath)
			if os.IsNotExist(err) {
				t.Skipf("golden file %s not found; run with -update to generate", gc.golden)
				return
			}
			require.NoError(t, err)

			actual := buildForGolden(t, gc.cfg())
			assert.Equal(t, string(golden), string(actual),
				"structure does not match golden file %s", gc.golden)
		})
	}
}

// TestUpdateGolden regenerates golden files from the current engine output.
// Run with: go test -tags e2e -run TestUpdateGolden ./internal/e2e/ -update
func TestUpdateGolden(t *testing.T) {
	if !*update {
		t.Skip("skipping golden file update; run with -update flag")
	}

	require.NoError(t, os.MkdirAll(goldenDir(), 0o755))
	for _, gc := range goldenCases {
		data := buildForGolden(t, gc.cfg())
		require.NoError(t, os.WriteFile(filepath.Join(goldenDir(), gc.golden), data, 0o644))
		t.Logf("updated %s", gc.golden)
	}
}

// TestEntrypoint_E2E builds the fixture from src/index.ts and checks
// reachability, identities and the derived queries.
func TestEntrypoint_E2E(t *testing.T) {
	cfg := config.Default()
	cfg.Entrypoint = "src/index.ts"
	cfg.DependencyTracking.ThirdParty = true

	reader := fsys.NewRootedReader(fixtureDir(), fsys.Options{Cwd: cfg.Cwd})
	eng, err := engine.New(cfg, reader)
	require.NoError(t, err)

	ctx := context.Background()
	s, err := eng.Initialize(ctx)
	require.NoError(t, err)

	assert.Equal(t, "index.ts", s.Entrypoint)
	assert.Equal(t, []string{
		"index.ts",
		"App.tsx",
		"utils/format.ts",
		"components/Button.tsx",
		"types.ts",
		"utils/parse.ts",
	}, s.Files)
	assert.NotContains(t, s.Graph, "legacy/loader.cjs")
	assert.Equal(t, []graph.Cycle{{"utils/format.ts", "utils/parse.ts"}}, s.Cycles)

	unused, err := eng.UnusedDependencies()
	require.NoError(t, err)
	assert.Equal(t, []graph.UnusedDependency{
		{Name: "lodash", Kind: "runtime"},
		{Name: "typescript", Kind: "dev"},
	}, unused)

	store := graph.NewMemStore()
	_, err = graph.Index(ctx, store, s)
	require.NoError(t, err)

	impact, err := store.AssessImpact(ctx, []string{"utils/parse.ts"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"utils/format.ts"}, impact.DirectlyAffected)
	assert.ElementsMatch(t, []string{"utils/format.ts", "components/Button.tsx", "App.tsx", "index.ts"}, impact.TransitivelyAffected)
}
