// Package walker extracts raw import specifiers from JavaScript and TypeScript
// sources. The set of module systems is closed: a Walker is a tagged value
// whose Kind decides which constructs count as module declarations, and whose
// Dialect decides which tree-sitter grammar parses the text.
package walker

import (
	"context"
	"fmt"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_javascript "github.com/tree-sitter/tree-sitter-javascript/bindings/go"
	tree_sitter_typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/dusk-indust/depgraph/internal/errs"
)

// Kind identifies a module-system family.
type Kind int

const (
	// ECMAScript captures import/export-from declarations and import().
	ECMAScript Kind = iota
	// CommonJS captures require() calls.
	CommonJS
	// TypeScript is ECMAScript plus `import x = require()` and type-only
	// imports.
	TypeScript
)

func (k Kind) String() string {
	switch k {
	case ECMAScript:
		return "ecmascript"
	case CommonJS:
		return "commonjs"
	case TypeScript:
		return "typescript"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Dialect selects the grammar used to parse a file.
type Dialect string

const (
	DialectJS  Dialect = "js"
	DialectTS  Dialect = "ts"
	DialectTSX Dialect = "tsx"
)

// Specifier is one raw module reference found in a file.
type Specifier struct {
	// Value is the literal specifier, or the raw argument text when Unknown.
	Value string `json:"value"`
	// Dynamic marks import() and require() forms.
	Dynamic bool `json:"dynamic,omitempty"`
	// TypeOnly marks `import type` and `export type ... from`.
	TypeOnly bool `json:"typeOnly,omitempty"`
	// Unknown marks a dynamic reference whose target is not a string literal.
	Unknown bool `json:"unknown,omitempty"`
}

// Result holds the specifiers of one file in source order, deduplicated.
type Result struct {
	Specifiers []Specifier `json:"specifiers"`
}

// Walker parses one module system's syntax.
type Walker struct {
	Kind    Kind
	Dialect Dialect
}

func (w Walker) String() string {
	return w.Kind.String() + "/" + string(w.Dialect)
}

func (d Dialect) language() (*tree_sitter.Language, error) {
	switch d {
	case DialectJS:
		return tree_sitter.NewLanguage(tree_sitter_javascript.Language()), nil
	case DialectTS:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTypescript()), nil
	case DialectTSX:
		return tree_sitter.NewLanguage(tree_sitter_typescript.LanguageTSX()), nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
}

// Walk parses source and returns the module declarations it contains. A file
// the grammar cannot parse cleanly fails with PARSE_ERROR. A new tree-sitter
// parser is created per call, so Walk is safe for concurrent use.
func (w Walker) Walk(ctx context.Context, source []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	lang, err := w.Dialect.language()
	if err != nil {
		return Result{}, err
	}

	parser := tree_sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(lang); err != nil {
		return Result{}, fmt.Errorf("set language %s: %w", w.Dialect, err)
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return Result{}, errs.New(errs.CodeParseError, "%s: parser returned no tree", w)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return Result{}, errs.New(errs.CodeParseError, "%s: syntax error", w)
	}

	x := &extractor{kind: w.Kind, source: source, seen: make(map[string]int)}
	cursor := root.Walk()
	defer cursor.Close()
	x.walk(cursor)

	return Result{Specifiers: x.out}, nil
}
