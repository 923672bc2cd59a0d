// Package model defines core data structures for actorbundle.
package model

import (
	"github.com/phobologic/actorbundle/internal/jsonx"
)

// KindTag is the closed taxonomy every Input/Output field is normalized into.
type KindTag string

const (
	Unresolved KindTag = ""
	String     KindTag = "string"
	Boolean    KindTag = "boolean"
	Number     KindTag = "number"
	Object     KindTag = "object"
	// Array is a tuple-typed field.
	Array KindTag = "array"
	// List is an array-of-element field such as string[] or Array<T>.
	List    KindTag = "list"
	EnumRef KindTag = "enum"
)

// EnumMember is one member of a string enum.
type EnumMember struct {
	Value string `json:"value"`
	Title string `json:"title,omitempty"`
}

// DisplayTitle returns the member title, falling back to its value.
func (m EnumMember) DisplayTitle() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Value
}

// Enum is a string enum declaration, members in declaration order.
type Enum struct {
	Name    string
	Members []EnumMember
}

// Kind is the resolved kind of a field. Enum is set only for EnumRef.
type Kind struct {
	Tag  KindTag
	Enum *Enum
}

// Resolved reports whether the kind maps onto the taxonomy.
func (k Kind) Resolved() bool {
	return k.Tag != Unresolved
}

func (k Kind) String() string {
	switch k.Tag {
	case Unresolved:
		return "unknown"
	case EnumRef:
		if k.Enum != nil {
			return k.Enum.Name
		}
		return "enum"
	case List:
		return "array"
	default:
		return string(k.Tag)
	}
}

// MarshalJSON renders enum kinds as their member list so the dump shows the
// selectable options; other kinds render as their tag.
func (k Kind) MarshalJSON() ([]byte, error) {
	if k.Tag == EnumRef && k.Enum != nil {
		return jsonx.Compact(k.Enum.Members)
	}
	if k.Tag == Unresolved {
		return jsonx.Compact("unknown")
	}
	return jsonx.Compact(string(k.Tag))
}

// Field is one property of the Input or Output type.
type Field struct {
	Name     string
	Kind     Kind
	Optional bool
	// Example is the coerced value of a trailing "e.g." comment: int, bool,
	// string or nil (for "null"). HasExample distinguishes nil from absent.
	Example    any
	HasExample bool
}

// MarshalJSON implements json.Marshaler.
func (f Field) MarshalJSON() ([]byte, error) {
	o := jsonx.NewObject()
	o.Set("kind", f.Kind)
	o.Set("optional", f.Optional)
	if f.HasExample {
		o.Set("example", f.Example)
	}
	return o.MarshalJSON()
}

// TypeDecl is a collected structural type; fields keep declaration order.
type TypeDecl struct {
	Name   string
	Fields []Field
}

// Lookup returns the field with the given name.
func (t *TypeDecl) Lookup(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// MarshalJSON renders the declaration as an ordered name → field object.
func (t *TypeDecl) MarshalJSON() ([]byte, error) {
	o := jsonx.NewObject()
	for _, f := range t.Fields {
		o.Set(f.Name, f)
	}
	return o.MarshalJSON()
}

// RunOptions are the platform default run options.
type RunOptions struct {
	Build        string `json:"build"`
	TimeoutSecs  int    `json:"timeoutSecs"`
	MemoryMbytes int    `json:"memoryMbytes"`
}

// Deps is the partitioned dependency set of one actor.
type Deps struct {
	Local []string
	Npm   []string
}

// Diagnostic is a non-fatal finding produced while collecting metadata.
type Diagnostic struct {
	Subject string
	Message string
}

// Collector accumulates everything known about one actor source file. It is
// owned by a single build and never shared between files.
type Collector struct {
	Path string

	// Frontmatter holds documentation-block values (string or bool, and nil
	// for the defaulted env key). Keys may be dotted, e.g. "apify.isPublic".
	Frontmatter map[string]any

	CrawlerName       string
	Dockerfile        string
	DefaultRunOptions *RunOptions

	LocalDeps []string
	NpmDeps   []string

	Enums  []Enum
	Input  *TypeDecl
	Output *TypeDecl
}

// NewCollector returns an empty collector for the source file at path.
func NewCollector(path string) *Collector {
	return &Collector{
		Path:        path,
		Frontmatter: make(map[string]any),
		LocalDeps:   []string{},
		NpmDeps:     []string{},
	}
}

// Lookup returns a frontmatter value.
func (c *Collector) Lookup(key string) (any, bool) {
	v, ok := c.Frontmatter[key]
	return v, ok
}

// Str returns a frontmatter value as a string, or "" if absent or not a string.
func (c *Collector) Str(key string) string {
	s, _ := c.Frontmatter[key].(string)
	return s
}

// Bool returns a boolean frontmatter value, or def if absent or not a bool.
func (c *Collector) Bool(key string, def bool) bool {
	if b, ok := c.Frontmatter[key].(bool); ok {
		return b
	}
	return def
}

// Name, Title and friends read the well-known frontmatter keys.
func (c *Collector) Name() string        { return c.Str("name") }
func (c *Collector) Title() string       { return c.Str("title") }
func (c *Collector) Description() string { return c.Str("description") }
func (c *Collector) Version() string     { return c.Str("version") }
func (c *Collector) BuildTag() string    { return c.Str("buildTag") }

// MarshalJSON produces the stable collector dump written next to the source.
func (c *Collector) MarshalJSON() ([]byte, error) {
	o := jsonx.NewObject()
	o.Set("frontmatter", c.Frontmatter)
	if c.CrawlerName != "" {
		o.Set("crawlerName", c.CrawlerName)
	}
	o.Set("dockerfile", c.Dockerfile)
	if c.DefaultRunOptions != nil {
		o.Set("defaultRunOptions", c.DefaultRunOptions)
	}
	o.Set("localDeps", c.LocalDeps)
	o.Set("npmDeps", c.NpmDeps)
	enums := jsonx.NewObject()
	for _, e := range c.Enums {
		enums.Set(e.Name, e.Members)
	}
	o.Set("enums", enums)
	if c.Input != nil {
		o.Set("Input", c.Input)
	}
	if c.Output != nil {
		o.Set("Output", c.Output)
	}
	return o.MarshalJSON()
}
