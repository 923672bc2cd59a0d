// Package transpile lowers typed actor sources to plain JavaScript by
// deleting type syntax in place. Everything that is not type syntax keeps
// its exact bytes, so line structure and comments survive.
package transpile

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/actorbundle/internal/lang"
)

// Source transpiles source written in l. Untyped languages are returned as is.
func Source(ctx context.Context, l *lang.Language, source []byte) ([]byte, error) {
	if !l.Typed {
		return source, nil
	}
	tree, err := l.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return Rewrite(tree.RootNode(), source), nil
}

// Rewrite applies the type-stripping edits for the tree rooted at root.
func Rewrite(root *sitter.Node, source []byte) []byte {
	r := &rewriter{src: source}
	r.walk(root)
	return r.apply()
}

type edit struct {
	start, end uint32
	text       string
}

type rewriter struct {
	src   []byte
	edits []edit
}

// rewriteFunc handles one node kind and reports whether to descend into it.
type rewriteFunc func(r *rewriter, n *sitter.Node) bool

var dispatch map[string]rewriteFunc

func init() {
	dispatch = map[string]rewriteFunc{
		"type_annotation":           (*rewriter).drop,
		"asserts_annotation":        (*rewriter).drop,
		"type_predicate_annotation": (*rewriter).drop,
		"type_arguments":            (*rewriter).drop,
		"type_parameters":           (*rewriter).drop,
		"implements_clause":         (*rewriter).dropClause,
		"accessibility_modifier":    (*rewriter).dropWord,
		"override_modifier":         (*rewriter).dropWord,

		"type_alias_declaration":    (*rewriter).dropStatement,
		"interface_declaration":     (*rewriter).dropStatement,
		"ambient_declaration":       (*rewriter).dropStatement,
		"function_signature":        (*rewriter).dropStatement,
		"method_signature":          (*rewriter).dropStatement,
		"abstract_method_signature": (*rewriter).dropStatement,
		"index_signature":           (*rewriter).dropStatement,

		"import_statement":     (*rewriter).visitModuleStatement,
		"export_statement":     (*rewriter).visitModuleStatement,
		"import_specifier":     (*rewriter).visitSpecifier,
		"export_specifier":     (*rewriter).visitSpecifier,
		"enum_declaration":     (*rewriter).visitEnum,
		"as_expression":        (*rewriter).visitCast,
		"satisfies_expression": (*rewriter).visitCast,
		"non_null_expression":  (*rewriter).visitCast,

		"optional_parameter":         (*rewriter).visitMarked,
		"required_parameter":         (*rewriter).visitMarked,
		"public_field_definition":    (*rewriter).visitField,
		"method_definition":          (*rewriter).visitMethod,
		"variable_declarator":        (*rewriter).visitMarked,
		"abstract_class_declaration": (*rewriter).visitMarked,
	}
}

// Anonymous tokens that only exist in typed code, removed wherever
// visitMarked finds them as direct children.
var typeOnlyTokens = map[string]bool{
	"?":        true,
	"!":        true,
	"readonly": true,
	"abstract": true,
}

func (r *rewriter) walk(n *sitter.Node) {
	if fn, ok := dispatch[n.Type()]; ok && !fn(r, n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		r.walk(n.NamedChild(i))
	}
}

func (r *rewriter) add(start, end uint32, text string) {
	r.edits = append(r.edits, edit{start: start, end: end, text: text})
}

func (r *rewriter) drop(n *sitter.Node) bool {
	r.add(n.StartByte(), n.EndByte(), "")
	return false
}

// dropClause removes a node together with the blanks before it.
func (r *rewriter) dropClause(n *sitter.Node) bool {
	start := n.StartByte()
	for start > 0 && isBlank(r.src[start-1]) {
		start--
	}
	r.add(start, n.EndByte(), "")
	return false
}

// dropWord removes a keyword-like node together with the blanks after it.
func (r *rewriter) dropWord(n *sitter.Node) bool {
	end := n.EndByte()
	for int(end) < len(r.src) && isBlank(r.src[end]) {
		end++
	}
	r.add(n.StartByte(), end, "")
	return false
}

// dropStatement removes a declaration. When it sits on lines of its own the
// lines go too, and a blank line left doubled is folded into one.
func (r *rewriter) dropStatement(n *sitter.Node) bool {
	start, end := n.StartByte(), n.EndByte()
	for int(end) < len(r.src) && isBlank(r.src[end]) {
		end++
	}
	if int(end) < len(r.src) && r.src[end] == ';' {
		end++
	}
	tail := end
	for int(tail) < len(r.src) && (isBlank(r.src[tail]) || r.src[tail] == '\r') {
		tail++
	}
	lineStart := start
	for lineStart > 0 && isBlank(r.src[lineStart-1]) {
		lineStart--
	}
	ownLine := (lineStart == 0 || r.src[lineStart-1] == '\n') &&
		(int(tail) == len(r.src) || r.src[tail] == '\n')
	if !ownLine {
		r.add(start, end, "")
		return false
	}

	start, end = lineStart, tail
	if int(end) < len(r.src) {
		end++
	}
	if start == 0 || r.precededByBlankLine(start) {
		for {
			next, ok := r.blankLineAt(end)
			if !ok {
				break
			}
			end = next
		}
	}
	r.add(start, end, "")
	return false
}

// precededByBlankLine reports whether the line ending right before offset
// (which is a line start) holds only whitespace.
func (r *rewriter) precededByBlankLine(offset uint32) bool {
	i := int(offset) - 2
	for i >= 0 && (isBlank(r.src[i]) || r.src[i] == '\r') {
		i--
	}
	return i < 0 || r.src[i] == '\n'
}

// blankLineAt returns the offset after the whitespace-only line starting at
// offset.
func (r *rewriter) blankLineAt(offset uint32) (uint32, bool) {
	i := offset
	for int(i) < len(r.src) && (isBlank(r.src[i]) || r.src[i] == '\r') {
		i++
	}
	if int(i) < len(r.src) && r.src[i] == '\n' {
		return i + 1, true
	}
	return 0, false
}

// visitModuleStatement removes type-only imports and exports, and exports
// whose declaration is pure type syntax.
func (r *rewriter) visitModuleStatement(n *sitter.Node) bool {
	if hasToken(n, "type") {
		return r.dropStatement(n)
	}
	if decl := n.ChildByFieldName("declaration"); decl != nil {
		switch decl.Type() {
		case "type_alias_declaration", "interface_declaration",
			"ambient_declaration", "function_signature":
			return r.dropStatement(n)
		}
	}
	if n.Type() == "import_statement" && r.onlyTypeSpecifiers(n) {
		return r.dropStatement(n)
	}
	return true
}

// onlyTypeSpecifiers reports `import { type A, type B } from "x"`.
func (r *rewriter) onlyTypeSpecifiers(n *sitter.Node) bool {
	clause := firstNamedOfType(n, "import_clause")
	if clause == nil || clause.NamedChildCount() != 1 {
		return false
	}
	named := clause.NamedChild(0)
	if named.Type() != "named_imports" || named.NamedChildCount() == 0 {
		return false
	}
	for i := 0; i < int(named.NamedChildCount()); i++ {
		if !hasToken(named.NamedChild(i), "type") {
			return false
		}
	}
	return true
}

// visitSpecifier removes an inline `type X` specifier and one adjacent comma.
func (r *rewriter) visitSpecifier(n *sitter.Node) bool {
	if !hasToken(n, "type") {
		return false
	}
	start, end := n.StartByte(), n.EndByte()
	if next := n.NextSibling(); next != nil && next.Type() == "," {
		if after := next.NextSibling(); after != nil {
			end = after.StartByte()
		} else {
			end = next.EndByte()
		}
	} else if prev := n.PrevSibling(); prev != nil && prev.Type() == "," {
		start = prev.StartByte()
	}
	r.add(start, end, "")
	return false
}

// visitCast keeps the operand of `x as T`, `x satisfies T` and `x!`.
func (r *rewriter) visitCast(n *sitter.Node) bool {
	operand := n.NamedChild(0)
	if operand == nil {
		return false
	}
	r.add(operand.EndByte(), n.EndByte(), "")
	r.walk(operand)
	return false
}

// visitMarked strips optional and definite marks, readonly and abstract
// keywords from a declaration and descends into the rest of it.
func (r *rewriter) visitMarked(n *sitter.Node) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.IsNamed() || !typeOnlyTokens[c.Type()] {
			continue
		}
		if c.Type() == "!" && n.Type() != "variable_declarator" && n.Type() != "public_field_definition" {
			continue
		}
		r.dropWord(c)
	}
	return true
}

// visitMethod strips a method like any other declaration. A constructor
// with parameter properties also gets the assignments they stand for.
func (r *rewriter) visitMethod(n *sitter.Node) bool {
	if name := n.ChildByFieldName("name"); name != nil && lang.NodeText(name, r.src) == "constructor" {
		r.parameterProperties(n)
	}
	return r.visitMarked(n)
}

// parameterProperties turns `constructor(private x: T) {}` into
// `constructor(x) { this.x = x; }`. The assignments go first in the body, or
// right after a leading super() call.
func (r *rewriter) parameterProperties(ctor *sitter.Node) {
	params, body := ctor.ChildByFieldName("parameters"), ctor.ChildByFieldName("body")
	if params == nil || body == nil {
		return
	}
	var names []string
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if !isParameterProperty(p) {
			continue
		}
		if pattern := p.ChildByFieldName("pattern"); pattern != nil && pattern.Type() == "identifier" {
			names = append(names, lang.NodeText(pattern, r.src))
		}
	}
	if len(names) == 0 {
		return
	}

	indent := r.lineIndent(ctor.StartByte())
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "\n%s  this.%s = %s;", indent, name, name)
	}

	lbrace, rbrace := body.StartByte()+1, body.EndByte()-1
	if body.NamedChildCount() == 0 && !strings.Contains(string(r.src[lbrace:rbrace]), "\n") {
		b.WriteString("\n" + indent)
		r.add(lbrace, rbrace, b.String())
		return
	}
	at := lbrace
	if first := body.NamedChild(0); first != nil && isSuperCall(first) {
		at = first.EndByte()
	}
	r.add(at, at, b.String())
}

func isParameterProperty(p *sitter.Node) bool {
	for i := 0; i < int(p.ChildCount()); i++ {
		switch c := p.Child(i); c.Type() {
		case "accessibility_modifier", "override_modifier":
			return true
		case "readonly":
			if !c.IsNamed() {
				return true
			}
		}
	}
	return false
}

func isSuperCall(stmt *sitter.Node) bool {
	if stmt.Type() != "expression_statement" || stmt.NamedChildCount() == 0 {
		return false
	}
	call := stmt.NamedChild(0)
	if call.Type() != "call_expression" {
		return false
	}
	fn := call.ChildByFieldName("function")
	return fn != nil && fn.Type() == "super"
}

// visitField drops `declare` fields entirely; they emit nothing.
func (r *rewriter) visitField(n *sitter.Node) bool {
	if hasToken(n, "declare") {
		return r.dropStatement(n)
	}
	return r.visitMarked(n)
}

func hasToken(n *sitter.Node, token string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		if !c.IsNamed() && c.Type() == token {
			return true
		}
	}
	return false
}

func firstNamedOfType(n *sitter.Node, typ string) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == typ {
			return c
		}
	}
	return nil
}

func isBlank(b byte) bool {
	return b == ' ' || b == '\t'
}

func (r *rewriter) apply() []byte {
	if len(r.edits) == 0 {
		return r.src
	}
	sort.SliceStable(r.edits, func(i, j int) bool {
		return r.edits[i].start < r.edits[j].start
	})
	out := make([]byte, 0, len(r.src))
	var pos uint32
	for _, e := range r.edits {
		if e.start < pos {
			// Nested in an edit already applied.
			continue
		}
		out = append(out, r.src[pos:e.start]...)
		out = append(out, e.text...)
		pos = e.end
	}
	return append(out, r.src[pos:]...)
}
