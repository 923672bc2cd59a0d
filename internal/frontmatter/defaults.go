package frontmatter

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Defaults holds fallback values for keys absent from a documentation block.
type Defaults struct {
	Version  string
	BuildTag string
}

// ApplyDefaults fills name, version, buildTag and env when missing.
// The name is derived from the title.
func ApplyDefaults(v Values, d Defaults) {
	if _, ok := v["name"]; !ok {
		title, _ := v["title"].(string)
		v["name"] = SafeName(title)
	}
	if _, ok := v["version"]; !ok {
		v["version"] = d.Version
	}
	if _, ok := v["buildTag"]; !ok {
		v["buildTag"] = d.BuildTag
	}
	if _, ok := v["env"]; !ok {
		v["env"] = nil
	}
}

var (
	whitespaceRe = regexp.MustCompile(`\s`)
	dashRunRe    = regexp.MustCompile(`-+`)
	safeNameRepl = strings.NewReplacer(
		"(", "", ")", "",
		".", "-", "/", "-", ">", "-", "<", "-", ":", "-",
	)
)

// SafeName turns a human title into a name usable both as an npm package
// name and a platform actor name.
func SafeName(title string) string {
	s := whitespaceRe.ReplaceAllString(title, "-")
	s = safeNameRepl.Replace(s)
	s = strings.ToLower(s)
	s = dashRunRe.ReplaceAllString(s, "-")
	return RemoveAccents(s)
}

// Letters with no decomposition into a base letter and a mark.
var letterFold = strings.NewReplacer(
	"Ł", "L", "ł", "l",
	"Ø", "O", "ø", "o",
	"Đ", "D", "đ", "d",
	"Ð", "D", "ð", "d",
	"Ħ", "H", "ħ", "h",
	"Þ", "TH", "þ", "th",
	"Æ", "AE", "æ", "ae",
	"Œ", "OE", "œ", "oe",
	"ß", "ss",
	"ı", "i",
)

// RemoveAccents strips combining marks and folds the remaining accented
// letters, e.g. "Český ráj" → "Cesky raj" and "Łódź" → "Lodz".
func RemoveAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return letterFold.Replace(out)
}
