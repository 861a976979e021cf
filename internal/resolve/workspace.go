package resolve

import (
	"encoding/json"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar"
)

// workspace holds the entry points of one npm/pnpm/bun workspace package.
type workspace struct {
	dir            string            // project-relative directory (e.g. "packages/db")
	mainFile       string            // default export target
	subpathExports map[string]string // "./queries" -> "packages/db/src/queries.ts"
}

// indexWorkspaces finds every package.json that a workspaces glob of another
// package.json covers and records where its exports resolve.
func (r *Resolver) indexWorkspaces() {
	var patterns []string
	for _, owner := range r.manifests.Packages {
		for _, p := range owner.Workspaces {
			if strings.HasPrefix(p, "!") {
				continue
			}
			patterns = append(patterns, path.Join(owner.Dir, p))
		}
	}
	if len(patterns) == 0 {
		return
	}

	for _, pkg := range r.manifests.Packages {
		if pkg.Name == "" {
			continue
		}
		if _, dup := r.workspaces[pkg.Name]; dup {
			continue
		}
		for _, pattern := range patterns {
			if ok, _ := doublestar.Match(pattern, pkg.Dir); ok {
				r.workspaces[pkg.Name] = r.loadWorkspace(pkg)
				break
			}
		}
	}
}

func (r *Resolver) loadWorkspace(pkg Package) *workspace {
	ws := &workspace{
		dir:            pkg.Dir,
		subpathExports: make(map[string]string),
	}

	r.parseExports(ws, pkg.Exports)

	// Fallback to "main" if no default export found.
	if ws.mainFile == "" && pkg.Main != "" {
		if resolved, ok := r.probe(path.Join(pkg.Dir, pkg.Main)); ok {
			ws.mainFile = resolved
		}
	}

	// Last resort: index in the package root or src/.
	if ws.mainFile == "" {
		for _, try := range []string{
			path.Join(pkg.Dir, "src", "index"),
			path.Join(pkg.Dir, "index"),
		} {
			if resolved, ok := r.probe(try); ok {
				ws.mainFile = resolved
				break
			}
		}
	}
	return ws
}

func (r *Resolver) parseExports(ws *workspace, raw json.RawMessage) {
	if len(raw) == 0 {
		return
	}

	// "exports": "./src/index.ts"
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if resolved, ok := r.probe(path.Join(ws.dir, str)); ok {
			ws.mainFile = resolved
		}
		return
	}

	// "exports": {".": "./src/index.ts", "./queries": "./src/queries.ts"}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return
	}
	keys := slices.Sorted(maps.Keys(obj))
	for _, key := range keys {
		if !strings.HasPrefix(key, ".") {
			// Any condition key at the top level makes the whole object
			// conditional for ".", even when subpath keys sit beside it.
			ws.mainFile = r.exportTarget(ws, raw)
			return
		}
	}
	for _, key := range keys {
		target := r.exportTarget(ws, obj[key])
		if target == "" {
			continue
		}
		if key == "." {
			ws.mainFile = target
		} else {
			ws.subpathExports[key] = target
		}
	}
}

func (r *Resolver) exportTarget(ws *workspace, raw json.RawMessage) string {
	v := exportValue(raw)
	if v == "" {
		return ""
	}
	resolved, _ := r.probe(path.Join(ws.dir, v))
	return resolved
}

// exportValue extracts a file path from an export value, which can be a
// string or a conditional object {"import": ..., "require": ..., "default": ...}.
func exportValue(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	for _, key := range []string{"import", "default", "require"} {
		if v, ok := obj[key]; ok {
			return exportValue(v)
		}
	}
	return ""
}

// resolveWorkspace maps "pkg" or "pkg/sub" onto a workspace file.
func (r *Resolver) resolveWorkspace(spec string) (string, bool) {
	name, subpath := splitPackage(spec)
	ws, ok := r.workspaces[name]
	if !ok {
		return "", false
	}
	if subpath == "." {
		return ws.mainFile, ws.mainFile != ""
	}
	if target, ok := ws.subpathExports[subpath]; ok {
		return target, true
	}
	return r.probe(path.Join(ws.dir, subpath))
}
