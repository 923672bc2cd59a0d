package typeinfo

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/actorbundle/internal/lang"
	"github.com/phobologic/actorbundle/internal/model"
)

var predefinedKinds = map[string]model.KindTag{
	"string":  model.String,
	"boolean": model.Boolean,
	"number":  model.Number,
	"object":  model.Object,
}

var listTypes = map[string]struct{}{
	"Array":         {},
	"ReadonlyArray": {},
}

var literalTypes = map[string]struct{}{
	"literal_type":          {},
	"template_literal_type": {},
	"template_string":       {},
	"string":                {},
}

// ResolveKind maps a type node onto the kind taxonomy, in priority order:
// primitive, array of elements, tuple, union of literals, then a reference to
// a collected enum. Anything else is model.Unresolved.
func ResolveKind(n *sitter.Node, source []byte, enums []model.Enum) model.Kind {
	if n == nil {
		return model.Kind{}
	}
	switch n.Type() {
	case "predefined_type":
		return model.Kind{Tag: predefinedKinds[lang.NodeText(n, source)]}
	case "array_type":
		return model.Kind{Tag: model.List}
	case "generic_type":
		if name := n.ChildByFieldName("name"); name != nil {
			if _, ok := listTypes[lang.NodeText(name, source)]; ok {
				return model.Kind{Tag: model.List}
			}
		}
	case "tuple_type":
		return model.Kind{Tag: model.Array}
	case "union_type":
		if allLiterals(n) {
			return model.Kind{Tag: model.String}
		}
	case "parenthesized_type":
		if n.NamedChildCount() > 0 {
			return ResolveKind(n.NamedChild(0), source, enums)
		}
	case "type_identifier":
		name := lang.NodeText(n, source)
		for i := range enums {
			if enums[i].Name == name {
				return model.Kind{Tag: model.EnumRef, Enum: &enums[i]}
			}
		}
	}
	return model.Kind{}
}

func allLiterals(union *sitter.Node) bool {
	count := 0
	for i := 0; i < int(union.NamedChildCount()); i++ {
		c := union.NamedChild(i)
		if c.Type() == "union_type" {
			if !allLiterals(c) {
				return false
			}
			count++
			continue
		}
		if _, ok := literalTypes[c.Type()]; !ok {
			return false
		}
		count++
	}
	return count > 0
}
