package walker

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// extractor accumulates specifiers while a cursor walks the syntax tree.
type extractor struct {
	kind   Kind
	source []byte
	out    []Specifier
	seen   map[string]int // dedup key -> index in out
}

func (x *extractor) walk(cursor *tree_sitter.TreeCursor) {
	node := cursor.Node()

	switch node.Kind() {
	case "import_statement":
		if x.kind != CommonJS {
			x.importStatement(node)
		}

	case "export_statement":
		if x.kind != CommonJS {
			x.exportStatement(node)
		}

	case "call_expression":
		x.callExpression(node)
	}

	if cursor.GotoFirstChild() {
		x.walk(cursor)
		for cursor.GotoNextSibling() {
			x.walk(cursor)
		}
		cursor.GotoParent()
	}
}

func (x *extractor) importStatement(node *tree_sitter.Node) {
	typeOnly := x.kind == TypeScript && hasKeyword(node, "type")

	if src := node.ChildByFieldName("source"); src != nil {
		if v, ok := x.literal(src); ok {
			x.add(Specifier{Value: v, TypeOnly: typeOnly})
		}
		return
	}

	if x.kind != TypeScript {
		return
	}
	// import fs = require("fs")
	for i := uint(0); i < node.NamedChildCount(); i++ {
		clause := node.NamedChild(i)
		if clause == nil || clause.Kind() != "import_require_clause" {
			continue
		}
		src := clause.ChildByFieldName("source")
		if src == nil {
			src = firstOfKind(clause, "string")
		}
		if v, ok := x.literal(src); ok {
			x.add(Specifier{Value: v, TypeOnly: typeOnly})
		}
	}
}

func (x *extractor) exportStatement(node *tree_sitter.Node) {
	src := node.ChildByFieldName("source")
	if src == nil {
		return
	}
	if v, ok := x.literal(src); ok {
		x.add(Specifier{Value: v, TypeOnly: x.kind == TypeScript && hasKeyword(node, "type")})
	}
}

func (x *extractor) callExpression(node *tree_sitter.Node) {
	fn := node.ChildByFieldName("function")
	if fn == nil {
		return
	}

	switch {
	case fn.Kind() == "import" && x.kind != CommonJS:
	case fn.Kind() == "identifier" && x.kind == CommonJS && fn.Utf8Text(x.source) == "require":
	default:
		return
	}

	args := node.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() == 0 {
		return
	}
	arg := args.NamedChild(0)
	if v, ok := x.literal(arg); ok {
		x.add(Specifier{Value: v, Dynamic: true})
		return
	}
	x.add(Specifier{Value: arg.Utf8Text(x.source), Dynamic: true, Unknown: true})
}

// literal returns the text of a string literal or of a template string
// without substitutions.
func (x *extractor) literal(node *tree_sitter.Node) (string, bool) {
	if node == nil {
		return "", false
	}
	switch node.Kind() {
	case "string":
	case "template_string":
		if firstOfKind(node, "template_substitution") != nil {
			return "", false
		}
	default:
		return "", false
	}
	v := strings.Trim(node.Utf8Text(x.source), "\"'`")
	return v, v != ""
}

// add appends s unless an equal specifier was already recorded. A static
// occurrence wins over a dynamic one, and a value imported for both types and
// values is not type-only.
func (x *extractor) add(s Specifier) {
	key := s.Value
	if s.Unknown {
		key = "\x00" + key
	}
	if i, ok := x.seen[key]; ok {
		prev := &x.out[i]
		prev.Dynamic = prev.Dynamic && s.Dynamic
		prev.TypeOnly = prev.TypeOnly && s.TypeOnly
		return
	}
	x.seen[key] = len(x.out)
	x.out = append(x.out, s)
}

// hasKeyword reports whether node has a direct anonymous child of the given
// kind, such as the `type` in `import type { A } from "a"`.
func hasKeyword(node *tree_sitter.Node, kw string) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && !child.IsNamed() && child.Kind() == kw {
			return true
		}
	}
	return false
}

func firstOfKind(node *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil && child.Kind() == kind {
			return child
		}
	}
	return nil
}
