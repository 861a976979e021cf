// Package resolve turns raw import specifiers into graph edges and dependency
// metadata. A Resolver is built once per build pass from the set of known
// source files and the project's manifests, and is read-only afterwards, so
// one instance serves concurrent callers.
package resolve

import (
	"path"
	"slices"
	"strings"

	"github.com/dusk-indust/depgraph/internal/errs"
	"github.com/dusk-indust/depgraph/internal/walker"
)

// Options control which specifiers a Resolver retains.
type Options struct {
	// Extensions is the probe order for specifiers without an extension.
	Extensions []string

	TrackBuiltin    bool
	TrackThirdParty bool
	TrackTypeOnly   bool

	// Scope, when set, confines local edges to files at or below this
	// directory. Targets outside it are reported as out of scope.
	Scope string

	// Root is the directory absolute specifiers are resolved against.
	Root string
}

// Unresolved is a specifier that produced no edge.
type Unresolved struct {
	Specifier string    `json:"specifier"`
	Code      errs.Code `json:"code"`
	Reason    string    `json:"reason"`
}

// Resolution is the outcome of resolving one file's specifiers. Every slice
// keeps first-seen order without duplicates.
type Resolution struct {
	Edges      []string
	Builtin    []string
	ThirdParty []string
	Unresolved []Unresolved
}

// Unresolved reasons.
const (
	ReasonDynamic    = "dynamic"
	ReasonNotFound   = "not found"
	ReasonOutOfScope = "outside base directory"
)

// Resolver resolves specifiers against a fixed set of known files.
type Resolver struct {
	known      map[string]bool
	manifests  *Manifests
	workspaces map[string]*workspace
	opts       Options
}

// New builds a Resolver over known, the normalized paths of every source file
// that passed the extension and ignore filters.
func New(known []string, manifests *Manifests, opts Options) *Resolver {
	if manifests == nil {
		manifests = &Manifests{}
	}
	r := &Resolver{
		known:      make(map[string]bool, len(known)),
		manifests:  manifests,
		workspaces: make(map[string]*workspace),
		opts:       opts,
	}
	for _, f := range known {
		r.known[f] = true
	}
	r.indexWorkspaces()
	return r
}

// Known reports whether p is one of the resolver's known files.
func (r *Resolver) Known(p string) bool {
	return r.known[p]
}

// Resolve classifies and resolves every specifier found in the file from.
func (r *Resolver) Resolve(from string, specs []walker.Specifier) Resolution {
	var res Resolution
	edges := newOrderedSet()
	builtin := newOrderedSet()
	thirdParty := newOrderedSet()

	unresolved := func(spec string, code errs.Code, reason string) {
		res.Unresolved = append(res.Unresolved, Unresolved{Specifier: spec, Code: code, Reason: reason})
	}
	edge := func(spec, target string) {
		if r.opts.Scope != "" && !within(target, r.opts.Scope) {
			unresolved(spec, errs.CodeOutOfScope, ReasonOutOfScope)
			return
		}
		edges.add(target)
	}

	for _, s := range specs {
		if s.TypeOnly && !r.opts.TrackTypeOnly {
			continue
		}
		if s.Unknown {
			unresolved(s.Value, errs.CodeDynamicSpecifier, ReasonDynamic)
			continue
		}

		c := Classify(s.Value)
		switch c.Kind {
		case Local:
			target, ok := r.resolveLocal(from, s.Value)
			if !ok {
				unresolved(s.Value, errs.CodeUnresolvedLocal, ReasonNotFound)
				continue
			}
			edge(s.Value, target)

		case Builtin:
			if r.opts.TrackBuiltin {
				builtin.add(c.Name)
			}

		case ThirdParty:
			if target, ok := r.resolveAlias(from, s.Value); ok {
				edge(s.Value, target)
				continue
			}
			if target, ok := r.resolveWorkspace(s.Value); ok {
				edge(s.Value, target)
				continue
			}
			if r.opts.TrackThirdParty {
				thirdParty.add(c.Name)
			}
		}
	}

	res.Edges = edges.items
	res.Builtin = builtin.items
	res.ThirdParty = thirdParty.items
	return res
}

// resolveLocal normalizes a relative or absolute specifier against the
// importing file's directory and probes the known set.
func (r *Resolver) resolveLocal(from, spec string) (string, bool) {
	if strings.HasPrefix(spec, "/") {
		if target, ok := r.probe(path.Clean(spec)); ok {
			return target, true
		}
		root := r.opts.Root
		if root == "" {
			root = "."
		}
		return r.probe(path.Join(root, spec))
	}
	return r.probe(path.Join(path.Dir(from), spec))
}

// resolveAlias applies the compilerOptions.paths and baseUrl of the nearest
// tsconfig.json.
func (r *Resolver) resolveAlias(from, spec string) (string, bool) {
	tc, ok := r.manifests.nearestTSConfig(from)
	if !ok {
		return "", false
	}
	base := tc.BaseURL
	if base == "" {
		base = tc.Dir
	}

	for _, pattern := range sortedPatterns(tc.Paths) {
		star, ok := matchPathPattern(pattern, spec)
		if !ok {
			continue
		}
		for _, target := range tc.Paths[pattern] {
			if resolved, ok := r.probe(path.Join(base, strings.Replace(target, "*", star, 1))); ok {
				return resolved, true
			}
		}
	}

	if tc.BaseURL != "" {
		return r.probe(path.Join(tc.BaseURL, spec))
	}
	return "", false
}

// sortedPatterns orders path patterns by specificity: exact patterns first,
// then wildcards with the longest prefix.
func sortedPatterns(paths map[string][]string) []string {
	patterns := make([]string, 0, len(paths))
	for p := range paths {
		patterns = append(patterns, p)
	}
	slices.SortFunc(patterns, func(a, b string) int {
		ai, bi := strings.Index(a, "*"), strings.Index(b, "*")
		switch {
		case ai < 0 && bi >= 0:
			return -1
		case ai >= 0 && bi < 0:
			return 1
		case ai != bi:
			return bi - ai
		default:
			return strings.Compare(a, b)
		}
	})
	return patterns
}

// matchPathPattern matches spec against a tsconfig paths key holding at most
// one "*", returning the text the wildcard captured.
func matchPathPattern(pattern, spec string) (string, bool) {
	prefix, suffix, wild := strings.Cut(pattern, "*")
	if !wild {
		return "", pattern == spec
	}
	if len(spec) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(spec, prefix) || !strings.HasSuffix(spec, suffix) {
		return "", false
	}
	return spec[len(prefix) : len(spec)-len(suffix)], true
}

// Source extensions a compiled-output specifier may stand in for.
var compiledToSource = map[string][]string{
	".js":  {".ts", ".tsx"},
	".jsx": {".tsx"},
	".mjs": {".mts"},
	".cjs": {".cts"},
}

// probe looks base up in the known set: the identical name, then the name
// with each extension, then the TypeScript source of a compiled-output name,
// then an index file within base as a directory.
func (r *Resolver) probe(base string) (string, bool) {
	if r.known[base] {
		return base, true
	}
	for _, ext := range r.opts.Extensions {
		if r.known[base+ext] {
			return base + ext, true
		}
	}
	if ext := path.Ext(base); ext != "" {
		stem := strings.TrimSuffix(base, ext)
		for _, alt := range compiledToSource[ext] {
			if r.known[stem+alt] {
				return stem + alt, true
			}
		}
	}
	for _, ext := range r.opts.Extensions {
		if idx := path.Join(base, "index"+ext); r.known[idx] {
			return idx, true
		}
	}
	return "", false
}

type orderedSet struct {
	seen  map[string]bool
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: make(map[string]bool)}
}

func (s *orderedSet) add(v string) {
	if s.seen[v] {
		return
	}
	s.seen[v] = true
	s.items = append(s.items, v)
}
