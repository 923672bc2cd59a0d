// Package frontmatter parses the documentation block at the top of an actor
// source file.
//
// The block is a JSDoc-style comment of "@key: value" lines:
//
//	/**
//	 * @title: Alza scraper
//	 * @apify.isPublic: true
//	 * @readme: >
//	 *   First paragraph.
//	 *   Second line.
//	 * */
//
// A value of ">" starts a multi-line value that runs until the next "@" line
// or the end of the block.
package frontmatter

import (
	"regexp"
	"strings"
)

// Values is a flat key → value mapping. Values are strings, except "true"
// and "false" which are coerced to bool.
type Values map[string]any

// Parser extracts documentation-block values from raw source text.
type Parser interface {
	Parse(source []byte) Values
	// Strip returns the source with the documentation block removed.
	Strip(source []byte) []byte
}

// DocBlock is the delimiter convention of a documentation block.
type DocBlock struct {
	Open  string // e.g. "/**"
	Close string // line consisting solely of the close marker, e.g. " * */"
	// LinePrefix precedes every "@key: value" line.
	LinePrefix string
	// Indent is the width trimmed from continuation lines of multi-line values.
	Indent int
}

// Default is the delimiter convention used by actor sources.
var Default Parser = DocBlock{
	Open:       "/**",
	Close:      " * */",
	LinePrefix: " * ",
	Indent:     len(" *   "),
}

const (
	multilineMarker = ">"
	// Two trailing spaces keep markdown from merging the joined lines.
	multilineJoin = "  \n"
)

var keyRe = regexp.MustCompile(`^([\w.]+): (.+)$`)

func (d DocBlock) bounds(src string) (start, end int, ok bool) {
	start = strings.Index(src, d.Open)
	if start < 0 {
		return 0, 0, false
	}
	rel := strings.Index(src[start:], "\n"+d.Close)
	if rel < 0 {
		return 0, 0, false
	}
	return start, start + rel + 1, true
}

// Parse implements Parser.
func (d DocBlock) Parse(source []byte) Values {
	vals := make(Values)
	src := string(source)
	start, end, ok := d.bounds(src)
	if !ok {
		return vals
	}

	lines := strings.Split(src[start:end], "\n")
	// First line is the open marker; the last is the empty remainder before
	// the close marker.
	lines = lines[1:]
	if len(lines) > 0 {
		lines = lines[:len(lines)-1]
	}

	keyPrefix := d.LinePrefix + "@"
	for i, line := range lines {
		if !strings.HasPrefix(line, keyPrefix) {
			continue
		}
		m := keyRe.FindStringSubmatch(strings.TrimSuffix(line[len(keyPrefix):], "\r"))
		if m == nil {
			continue
		}
		key, val := m[1], m[2]

		var v any = val
		if val == multilineMarker {
			v = d.multiline(lines[i+1:], keyPrefix)
		}
		if s, isStr := v.(string); isStr && (s == "true" || s == "false") {
			v = s == "true"
		}
		vals[key] = v
	}
	return vals
}

func (d DocBlock) multiline(rest []string, keyPrefix string) string {
	var parts []string
	for _, line := range rest {
		if strings.HasPrefix(line, keyPrefix) {
			break
		}
		line = strings.TrimSuffix(line, "\r")
		if len(line) > d.Indent {
			line = line[d.Indent:]
		} else {
			line = ""
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, multilineJoin)
}

// Strip implements Parser. Text after the block is returned trimmed; a
// source without a block is returned unchanged.
func (d DocBlock) Strip(source []byte) []byte {
	src := string(source)
	_, end, ok := d.bounds(src)
	if !ok {
		return source
	}
	return []byte(strings.TrimSpace(src[end+len(d.Close):]) + "\n")
}
