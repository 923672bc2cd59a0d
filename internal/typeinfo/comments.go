package typeinfo

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"
)

const (
	exampleMarker = "e.g."
	titleMarker   = "@title:"
)

var digitsRe = regexp.MustCompile(`^\d+$`)

type smartComment struct {
	Example string
	Title   string
}

// extractSmartComment reads markers from the rest of the line after offset,
// e.g. `mode: MODE, // e.g. TEST` or `TEST = "TEST", // @title: Test mode`.
func extractSmartComment(source []byte, offset uint32) smartComment {
	rest := source[offset:]
	if i := bytes.IndexByte(rest, '\n'); i >= 0 {
		rest = rest[:i]
	}
	line := string(rest)

	var sc smartComment
	if _, after, ok := strings.Cut(line, exampleMarker); ok {
		sc.Example = strings.TrimSpace(after)
	}
	if _, after, ok := strings.Cut(line, titleMarker); ok {
		sc.Title = strings.TrimSpace(after)
	}
	return sc
}

// CoerceExample converts an example string to the value it denotes.
// The second result is false when the example denotes undefined.
func CoerceExample(s string) (any, bool) {
	switch s {
	case "true":
		return true, true
	case "false":
		return false, true
	case "null":
		return nil, true
	case "undefined":
		return nil, false
	}
	if digitsRe.MatchString(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
	}
	return s, true
}
