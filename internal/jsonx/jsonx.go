// Package jsonx encodes JSON documents the way the platform manifests expect
// them: two-space indentation, no HTML escaping and insertion-ordered objects.
package jsonx

import (
	"bytes"
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Object is a JSON object that keeps keys in the order they were first set.
// Re-setting a key keeps its original position.
type Object = orderedmap.OrderedMap[string, any]

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return orderedmap.New[string, any]()
}

// Compact encodes v on a single line without HTML escaping.
func Compact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeHTML(bytes.TrimSuffix(buf.Bytes(), []byte("\n"))), nil
}

// Indent encodes v with two-space indentation and a trailing newline.
func Indent(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return unescapeHTML(buf.Bytes()), nil
}

var htmlEscapes = map[string]byte{
	"003c": '<',
	"003e": '>',
	"0026": '&',
}

// unescapeHTML turns the <, > and & escapes that nested
// json.Marshal calls produce back into the plain characters. Escaped
// backslashes are copied as pairs so `\\u0026` stays literal text.
func unescapeHTML(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u00`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		c := data[i]
		if c != '\\' || i+1 == len(data) {
			out = append(out, c)
			continue
		}
		if data[i+1] == 'u' && i+6 <= len(data) {
			if plain, ok := htmlEscapes[string(data[i+2:i+6])]; ok {
				out = append(out, plain)
				i += 5
				continue
			}
		}
		out = append(out, c, data[i+1])
		i++
	}
	return out
}
