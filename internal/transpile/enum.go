package transpile

import (
	"fmt"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/actorbundle/internal/lang"
)

// visitEnum rewrites an enum into the object it denotes at runtime:
//
//	var E;
//	(function (E) {
//	  E["A"] = "a";
//	  E[E["B"] = 0] = "B";
//	})(E || (E = {}));
//
// String members map one way, numeric members both ways. Members without an
// initializer continue the numbering of the member before them.
func (r *rewriter) visitEnum(n *sitter.Node) bool {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		return false
	}
	name := lang.NodeText(nameNode, r.src)
	indent := r.lineIndent(n.StartByte())

	var b strings.Builder
	fmt.Fprintf(&b, "var %s;\n%s(function (%s) {\n", name, indent, name)
	next := 0
	for i := 0; i < int(body.NamedChildCount()); i++ {
		m := body.NamedChild(i)
		if m.Type() == "comment" {
			continue
		}
		keyNode, value := m, (*sitter.Node)(nil)
		if m.Type() == "enum_assignment" {
			keyNode = m.ChildByFieldName("name")
			value = m.ChildByFieldName("value")
		}
		if keyNode == nil {
			continue
		}
		key := lang.NodeText(keyNode, r.src)
		if keyNode.Type() == "string" {
			key = lang.Unquote(key)
		}
		quoted := strconv.Quote(key)

		switch {
		case value == nil:
			fmt.Fprintf(&b, "%s  %s[%s[%s] = %d] = %s;\n", indent, name, name, quoted, next, quoted)
			next++
		case value.Type() == "string" || value.Type() == "template_string":
			fmt.Fprintf(&b, "%s  %s[%s] = %s;\n", indent, name, quoted, lang.NodeText(value, r.src))
		default:
			text := lang.NodeText(value, r.src)
			if v, err := strconv.Atoi(text); err == nil {
				next = v + 1
			}
			fmt.Fprintf(&b, "%s  %s[%s[%s] = %s] = %s;\n", indent, name, name, quoted, text, quoted)
		}
	}
	fmt.Fprintf(&b, "%s})(%s || (%s = {}));", indent, name, name)

	r.add(n.StartByte(), n.EndByte(), b.String())
	return false
}

// lineIndent returns the blanks between the start of the line holding offset
// and the first non-blank character of that line.
func (r *rewriter) lineIndent(offset uint32) string {
	start := int(offset)
	for start > 0 && r.src[start-1] != '\n' {
		start--
	}
	end := start
	for end < len(r.src) && isBlank(r.src[end]) {
		end++
	}
	return string(r.src[start:end])
}
