package fsys

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/dusk-indust/depgraph/internal/config"
)

// Ignore matches slash paths against a configured ignore pattern. Each line is
// a doublestar glob tried against the path itself and, joined to cwd, against
// the cwd-anchored path. Below cwd, lines without a slash also match any
// single path segment, so "dist" covers dist/b.ts and "*.js" covers
// nested/c.js. A path is ignored when it or one of its parent directories
// matches.
type Ignore struct {
	cwd   string
	lines []string
}

// NewIgnore compiles pattern, which may hold several newline-separated lines.
// Negated ("!") lines are skipped.
func NewIgnore(cwd, pattern string) *Ignore {
	i := &Ignore{cwd: cleanSlash(cwd)}
	for _, line := range config.IgnoreLines(pattern) {
		if strings.HasPrefix(line, "!") {
			continue
		}
		i.lines = append(i.lines, strings.TrimSuffix(line, "/"))
	}
	return i
}

// Empty reports whether the pattern ignores nothing.
func (i *Ignore) Empty() bool {
	return i == nil || len(i.lines) == 0
}

// Match reports whether p is ignored.
func (i *Ignore) Match(p string) bool {
	if i.Empty() {
		return false
	}
	p = cleanSlash(p)
	rel, below := i.rel(p)
	for _, line := range i.lines {
		anchored := path.Join(i.cwd, line)
		for q := p; q != "." && q != "/"; q = path.Dir(q) {
			if globMatch(line, q) || globMatch(anchored, q) {
				return true
			}
		}
		if !below || strings.Contains(line, "/") {
			continue
		}
		for q := rel; q != "."; q = path.Dir(q) {
			if globMatch(line, path.Base(q)) {
				return true
			}
		}
	}
	return false
}

// rel returns p relative to cwd and whether p lies below cwd.
func (i *Ignore) rel(p string) (string, bool) {
	if i.cwd == "." {
		return p, !strings.HasPrefix(p, "../") && p != ".." && !path.IsAbs(p)
	}
	if strings.HasPrefix(p, i.cwd+"/") {
		return p[len(i.cwd)+1:], true
	}
	return p, false
}

func globMatch(pattern, name string) bool {
	ok, _ := doublestar.Match(pattern, name)
	return ok
}

// gitignoreFile holds the compiled rules of a .gitignore found at a walk root.
type gitignoreFile struct {
	root string
	git  *ignore.GitIgnore
}

func (g *gitignoreFile) match(p string, dir bool) bool {
	if g == nil || g.git == nil {
		return false
	}
	rel := relTo(g.root, p)
	if dir {
		return g.git.MatchesPath(rel) || g.git.MatchesPath(rel+"/")
	}
	return g.git.MatchesPath(rel)
}

// relTo returns p relative to base when p is base or below it, else p.
func relTo(base, p string) string {
	if base == "" || base == "." {
		return p
	}
	if p == base {
		return "."
	}
	if strings.HasPrefix(p, base+"/") {
		return p[len(base)+1:]
	}
	return p
}

func cleanSlash(p string) string {
	if p == "" {
		return "."
	}
	return strings.TrimPrefix(path.Clean(strings.ReplaceAll(p, "\\", "/")), "./")
}
