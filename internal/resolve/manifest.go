package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"slices"
	"strings"

	"github.com/tailscale/hujson"

	"github.com/dusk-indust/depgraph/internal/errs"
	"github.com/dusk-indust/depgraph/internal/fsys"
)

// DepKind is the section of package.json a dependency is declared in.
type DepKind string

const (
	DepRuntime  DepKind = "runtime"
	DepDev      DepKind = "dev"
	DepPeer     DepKind = "peer"
	DepOptional DepKind = "optional"
)

// packageJSON is the subset of package.json the resolver reads.
type packageJSON struct {
	Name                 string            `json:"name"`
	Main                 string            `json:"main"`
	Exports              json.RawMessage   `json:"exports"`
	Workspaces           json.RawMessage   `json:"workspaces"`
	Dependencies         map[string]string `json:"dependencies"`
	DevDependencies      map[string]string `json:"devDependencies"`
	PeerDependencies     map[string]string `json:"peerDependencies"`
	OptionalDependencies map[string]string `json:"optionalDependencies"`
}

// Package is one parsed package.json.
type Package struct {
	Dir          string
	Name         string
	Main         string
	Exports      json.RawMessage
	Workspaces   []string
	Dependencies map[string]DepKind
}

// TSConfig is the path-mapping part of one tsconfig.json.
type TSConfig struct {
	Dir string
	// BaseURL is the resolved base directory, empty when unset.
	BaseURL string
	Paths   map[string][]string
}

// Manifests holds every manifest found in the project. It is read-only once
// loaded.
type Manifests struct {
	Packages  []Package
	TSConfigs []TSConfig
}

// LoadManifests reads and parses each manifest path. Files that cannot be read
// or parsed are skipped and reported through the joined error; the returned
// Manifests is always usable.
func LoadManifests(ctx context.Context, r fsys.Reader, paths []string) (*Manifests, error) {
	m := &Manifests{}
	var problems []error

	for _, p := range paths {
		data, err := r.Read(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			problems = append(problems, err)
			continue
		}
		switch path.Base(p) {
		case "package.json":
			pkg, err := parsePackage(p, data)
			if err != nil {
				problems = append(problems, err)
				continue
			}
			m.Packages = append(m.Packages, pkg)
		case "tsconfig.json":
			tc, err := parseTSConfig(p, data)
			if err != nil {
				problems = append(problems, err)
				continue
			}
			m.TSConfigs = append(m.TSConfigs, tc)
		}
	}

	// Deepest directory first so nearest-manifest lookups hit the closest one.
	slices.SortStableFunc(m.Packages, func(a, b Package) int { return depthDesc(a.Dir, b.Dir) })
	slices.SortStableFunc(m.TSConfigs, func(a, b TSConfig) int { return depthDesc(a.Dir, b.Dir) })

	return m, errors.Join(problems...)
}

func parsePackage(p string, data []byte) (Package, error) {
	var raw packageJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return Package{}, errs.Wrap(errs.CodeParseError, err, "parse %s", p)
	}
	pkg := Package{
		Dir:          path.Dir(p),
		Name:         raw.Name,
		Main:         raw.Main,
		Exports:      raw.Exports,
		Workspaces:   parseWorkspacePatterns(raw.Workspaces),
		Dependencies: make(map[string]DepKind),
	}
	// Later sections override earlier ones, so a package listed as both
	// runtime and dev reports runtime.
	for _, sec := range []struct {
		deps map[string]string
		kind DepKind
	}{
		{raw.OptionalDependencies, DepOptional},
		{raw.PeerDependencies, DepPeer},
		{raw.DevDependencies, DepDev},
		{raw.Dependencies, DepRuntime},
	} {
		for name := range sec.deps {
			pkg.Dependencies[name] = sec.kind
		}
	}
	return pkg, nil
}

// parseWorkspacePatterns accepts both the array form and the
// {"packages": [...]} object form of the workspaces field.
func parseWorkspacePatterns(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		return arr
	}
	var obj struct {
		Packages []string `json:"packages"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return obj.Packages
	}
	return nil
}

type tsconfigJSON struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

// parseTSConfig reads tsconfig.json, which allows comments and trailing
// commas.
func parseTSConfig(p string, data []byte) (TSConfig, error) {
	std, err := hujson.Standardize(data)
	if err != nil {
		return TSConfig{}, errs.Wrap(errs.CodeParseError, err, "parse %s", p)
	}
	var raw tsconfigJSON
	if err := json.Unmarshal(std, &raw); err != nil {
		return TSConfig{}, errs.Wrap(errs.CodeParseError, err, "parse %s", p)
	}
	tc := TSConfig{Dir: path.Dir(p), Paths: raw.CompilerOptions.Paths}
	if raw.CompilerOptions.BaseURL != "" {
		tc.BaseURL = path.Join(tc.Dir, raw.CompilerOptions.BaseURL)
	}
	return tc, nil
}

// DependencyKind returns how pkg is declared by the package.json nearest to
// from, falling back to any manifest that declares it.
func (m *Manifests) DependencyKind(from, pkg string) (DepKind, bool) {
	if m == nil {
		return "", false
	}
	for _, p := range m.Packages {
		if within(from, p.Dir) {
			if k, ok := p.Dependencies[pkg]; ok {
				return k, true
			}
		}
	}
	for _, p := range m.Packages {
		if k, ok := p.Dependencies[pkg]; ok {
			return k, true
		}
	}
	return "", false
}

// Declared returns every declared dependency across all manifests. When the
// same package appears in several manifests the first (deepest) wins.
func (m *Manifests) Declared() map[string]DepKind {
	out := make(map[string]DepKind)
	if m == nil {
		return out
	}
	for _, p := range m.Packages {
		for name, kind := range p.Dependencies {
			if _, ok := out[name]; !ok {
				out[name] = kind
			}
		}
	}
	return out
}

// nearestTSConfig returns the tsconfig whose directory is the closest
// ancestor of from.
func (m *Manifests) nearestTSConfig(from string) (TSConfig, bool) {
	if m == nil {
		return TSConfig{}, false
	}
	for _, tc := range m.TSConfigs {
		if within(from, tc.Dir) {
			return tc, true
		}
	}
	return TSConfig{}, false
}

// within reports whether p is dir or lies below it.
func within(p, dir string) bool {
	if dir == "." || dir == "" {
		return !strings.HasPrefix(p, "../") && p != ".." && !strings.HasPrefix(p, "/")
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func depth(dir string) int {
	if dir == "." || dir == "" {
		return 0
	}
	return strings.Count(dir, "/") + 1
}

func depthDesc(a, b string) int {
	return depth(b) - depth(a)
}
