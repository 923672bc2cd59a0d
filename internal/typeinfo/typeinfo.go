// Package typeinfo collects enum tables and the Input/Output type shapes from
// an actor's syntax tree.
package typeinfo

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/actorbundle/internal/lang"
	"github.com/phobologic/actorbundle/internal/model"
)

// Names of the structural types that describe an actor's input and output.
const (
	InputType  = "Input"
	OutputType = "Output"
)

// Result is everything the visitor found in one file.
type Result struct {
	Enums       []model.Enum
	Input       *model.TypeDecl
	Output      *model.TypeDecl
	Diagnostics []model.Diagnostic
}

// Collect parses source and walks its syntax tree once.
func Collect(ctx context.Context, l *lang.Language, source []byte) (*Result, error) {
	tree, err := l.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return Walk(tree.RootNode(), source), nil
}

// Walk visits root and its descendants in source order.
func Walk(root *sitter.Node, source []byte) *Result {
	v := &visitor{src: source, res: &Result{}}
	v.walk(root)
	return v.res
}

type visitor struct {
	src []byte
	res *Result
}

// visitFunc handles one node kind and reports whether to descend into it.
type visitFunc func(v *visitor, n *sitter.Node) bool

var dispatch = map[string]visitFunc{
	"enum_declaration":       (*visitor).visitEnum,
	"type_alias_declaration": (*visitor).visitTypeAlias,
	"interface_declaration":  (*visitor).visitInterface,

	// Type syntax outside Input/Output carries nothing we collect.
	"type_annotation":     opaque,
	"type_arguments":      opaque,
	"type_parameters":     opaque,
	"ambient_declaration": opaque,
}

func opaque(*visitor, *sitter.Node) bool { return false }

func (v *visitor) walk(n *sitter.Node) {
	if fn, ok := dispatch[n.Type()]; ok && !fn(v, n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v.walk(n.NamedChild(i))
	}
}

func (v *visitor) diag(subject, format string, args ...any) {
	v.res.Diagnostics = append(v.res.Diagnostics, model.Diagnostic{
		Subject: subject,
		Message: fmt.Sprintf(format, args...),
	})
}

func (v *visitor) visitEnum(n *sitter.Node) bool {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return false
	}
	name := lang.NodeText(nameNode, v.src)

	var members []model.EnumMember
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		if m.Type() == "comment" {
			continue
		}
		value, ok := v.stringInitializer(m)
		if !ok {
			v.diag(name, "enum %s has non-string member types, skipping it", name)
			return false
		}
		sc := extractSmartComment(v.src, m.EndByte())
		members = append(members, model.EnumMember{Value: value, Title: sc.Title})
	}

	e := model.Enum{Name: name, Members: members}
	for i := range v.res.Enums {
		if v.res.Enums[i].Name == name {
			v.res.Enums[i] = e
			return false
		}
	}
	v.res.Enums = append(v.res.Enums, e)
	return false
}

// stringInitializer returns the value of a member initialized with a string
// literal or a template literal without substitutions.
func (v *visitor) stringInitializer(member *sitter.Node) (string, bool) {
	if member.Type() != "enum_assignment" {
		return "", false
	}
	val := member.ChildByFieldName("value")
	if val == nil {
		return "", false
	}
	switch val.Type() {
	case "string":
		return lang.Unquote(lang.NodeText(val, v.src)), true
	case "template_string":
		for i := 0; i < int(val.NamedChildCount()); i++ {
			if val.NamedChild(i).Type() == "template_substitution" {
				return "", false
			}
		}
		return lang.Unquote(lang.NodeText(val, v.src)), true
	}
	return "", false
}

func (v *visitor) visitTypeAlias(n *sitter.Node) bool {
	name := fieldText(n, "name", v.src)
	if name != InputType && name != OutputType {
		return false
	}
	value := n.ChildByFieldName("value")
	if value == nil || value.Type() != "object_type" {
		v.diag(name, "type %s is not an object type literal, skipping it", name)
		return false
	}
	v.collectDecl(name, value)
	return false
}

func (v *visitor) visitInterface(n *sitter.Node) bool {
	name := fieldText(n, "name", v.src)
	if name != InputType && name != OutputType {
		return false
	}
	if body := n.ChildByFieldName("body"); body != nil {
		v.collectDecl(name, body)
	}
	return false
}

func (v *visitor) collectDecl(name string, body *sitter.Node) {
	decl := &model.TypeDecl{Name: name}
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		if member.Type() != "property_signature" {
			continue
		}
		f, ok := v.field(name, member)
		if !ok {
			continue
		}
		if _, dup := decl.Lookup(f.Name); dup {
			v.diag(name+"."+f.Name, "field %s.%s declared twice, keeping the first", name, f.Name)
			continue
		}
		decl.Fields = append(decl.Fields, f)
	}
	if name == InputType {
		v.res.Input = decl
	} else {
		v.res.Output = decl
	}
}

func (v *visitor) field(declName string, member *sitter.Node) (model.Field, bool) {
	nameNode := member.ChildByFieldName("name")
	if nameNode == nil {
		return model.Field{}, false
	}
	key := lang.NodeText(nameNode, v.src)
	if nameNode.Type() == "string" {
		key = lang.Unquote(key)
	}

	f := model.Field{Name: key, Optional: hasToken(member, "?")}

	var typeNode *sitter.Node
	if ann := member.ChildByFieldName("type"); ann != nil && ann.NamedChildCount() > 0 {
		typeNode = ann.NamedChild(0)
	}
	if typeNode == nil {
		v.diag(declName+"."+key, "field %s.%s has no type annotation", declName, key)
		return f, true
	}

	f.Kind = ResolveKind(typeNode, v.src, v.res.Enums)
	if !f.Kind.Resolved() {
		v.diag(declName+"."+key, "cannot resolve kind of %s.%s from %q",
			declName, key, lang.CollapseWhitespace(lang.NodeText(typeNode, v.src)))
	}

	sc := extractSmartComment(v.src, typeNode.EndByte())
	if sc.Example != "" {
		f.Example, f.HasExample = CoerceExample(sc.Example)
	}
	return f, true
}

func fieldText(n *sitter.Node, field string, source []byte) string {
	c := n.ChildByFieldName(field)
	if c == nil {
		return ""
	}
	return lang.NodeText(c, source)
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
