package walker

import (
	"path"
	"strings"
)

// Selector chooses the walkers applicable to a file.
type Selector struct {
	// MixedModuleSystems runs the CommonJS walker on TypeScript files too.
	MixedModuleSystems bool
}

// Select returns the walkers for p in the order they should run. An empty
// result means the file is not walked: it is either a manifest or an
// extension no walker understands.
func (s Selector) Select(p string) []Walker {
	switch strings.ToLower(path.Ext(p)) {
	case ".js", ".mjs", ".cjs", ".jsx":
		return []Walker{
			{Kind: ECMAScript, Dialect: DialectJS},
			{Kind: CommonJS, Dialect: DialectJS},
		}
	case ".ts", ".mts", ".cts":
		return s.typescript(DialectTS)
	case ".tsx":
		return s.typescript(DialectTSX)
	default:
		return nil
	}
}

func (s Selector) typescript(d Dialect) []Walker {
	ws := []Walker{{Kind: TypeScript, Dialect: d}}
	if s.MixedModuleSystems {
		ws = append(ws, Walker{Kind: CommonJS, Dialect: d})
	}
	return ws
}

// Merge concatenates results in walker order, dropping repeated specifiers.
func Merge(results ...Result) Result {
	x := &extractor{seen: make(map[string]int)}
	for _, r := range results {
		for _, s := range r.Specifiers {
			x.add(s)
		}
	}
	return Result{Specifiers: x.out}
}
