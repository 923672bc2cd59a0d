package emit

import (
	"strings"

	"github.com/phobologic/actorbundle/internal/jsonx"
	"github.com/phobologic/actorbundle/internal/model"
)

// InputSchema is INPUT_SCHEMA.json.
type InputSchema struct {
	Title         string        `json:"title"`
	Description   string        `json:"description,omitempty"`
	Type          string        `json:"type"`
	SchemaVersion int           `json:"schemaVersion"`
	Properties    *jsonx.Object `json:"properties"`
	Required      []string      `json:"required"`
}

// Property is one input schema property.
type Property struct {
	SectionCaption     string   `json:"sectionCaption,omitempty"`
	SectionDescription string   `json:"sectionDescription,omitempty"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Type               string   `json:"type,omitempty"`
	Editor             string   `json:"editor,omitempty"`
	Default            any      `json:"default,omitempty"`
	Prefill            any      `json:"prefill,omitempty"`
	Enum               []string `json:"enum,omitempty"`
	EnumTitles         []string `json:"enumTitles,omitempty"`
}

// Input builds INPUT_SCHEMA.json. Booleans are never required since an
// unchecked box would fail validation.
func Input(c *model.Collector) InputSchema {
	props := jsonx.NewObject()
	required := []string{}
	if c.Input != nil {
		for _, f := range c.Input.Fields {
			props.Set(f.Name, inputProperty(f))
			if !f.Optional && f.Kind.Tag != model.Boolean {
				required = append(required, f.Name)
			}
		}
	}

	props.Set("APIFY_USE_MEMORY_REQUEST_QUEUE", Property{
		SectionCaption:     "Advanced",
		SectionDescription: "Advanced options, use only if you know what you're doing.",
		Title:              "Use in-memory request queue instead of the native one",
		Description:        "In-memory request queue can reduce costs, but it may case issues with longer runs due to non-persistence.",
		Type:               "boolean",
		Editor:             "checkbox",
		Default:            false,
	})

	if c.Str("actor.base") == hlidacShopuBase {
		props.Set("APIFY_DONT_STORE_IN_DATASET", Property{
			Title:       "Don't store in dataset",
			Description: "If set to true, the actor will not store the results in the default dataset. Useful when using alternative storage, like own database",
			Type:        "boolean",
			Editor:      "checkbox",
			Default:     false,
		})
		props.Set("PG_CONNECTION_STRING_NORMALIZED", Property{
			Title:       "Postgres connection string for normalized data",
			Description: "If set, actor will store normalized data in Postgres database in PG_DATA_TABLE and PG_DATA_PRICE_TABLE tables",
			Type:        "string",
			Editor:      "textfield",
		})
		props.Set("PG_DATA_TABLE", Property{
			Title:       "Postgres table name for product data",
			Description: "Table name for storing product name, url, image, ...",
			Type:        "string",
			Editor:      "textfield",
		})
		props.Set("PG_DATA_PRICE_TABLE", Property{
			Title:       "Postgres table name for price data",
			Description: "Table name for storing price, original price, stock status, ...",
			Type:        "string",
			Editor:      "textfield",
		})
	}

	return InputSchema{
		Title:         c.Title(),
		Description:   c.Description(),
		Type:          "object",
		SchemaVersion: inputSchemaVer,
		Properties:    props,
		Required:      required,
	}
}

func inputProperty(f model.Field) Property {
	p := Property{Title: capitalize(f.Name)}
	switch f.Kind.Tag {
	case model.EnumRef:
		p.Type, p.Editor = "string", "select"
		if e := f.Kind.Enum; e != nil && len(e.Members) > 0 {
			p.Default = e.Members[0].Value
			p.Prefill = e.Members[0].Value
			for _, m := range e.Members {
				p.Enum = append(p.Enum, m.Value)
				p.EnumTitles = append(p.EnumTitles, m.DisplayTitle())
			}
		}
	case model.String:
		p.Type, p.Editor = "string", "textfield"
	case model.Boolean:
		p.Type, p.Editor = "boolean", "checkbox"
	case model.Number:
		p.Type, p.Editor = "integer", "number"
	case model.Object:
		p.Type, p.Editor = "object", "json"
		if f.Name == "proxyConfiguration" {
			p.Title = "Proxy configuration"
			p.Description = "Select proxies to be used by your actor."
			p.Editor = "proxy"
			p.Default = residentialProxy()
			p.Prefill = residentialProxy()
		}
	case model.Array:
		p.Type, p.Editor = "array", "stringList"
		if f.Name == "urls" {
			p.Editor = "requestListSources"
			if f.HasExample && f.Example != nil {
				src := jsonx.NewObject()
				src.Set("url", f.Example)
				p.Prefill = []any{src}
			}
		}
	case model.List:
		p.Type, p.Editor = "array", "stringList"
	}
	if f.Name == "debug" {
		p.Description = "Debug mode prints more logs, disables concurrency and other optimizations."
		p.Default = false
	}
	return p
}

func residentialProxy() *jsonx.Object {
	o := jsonx.NewObject()
	o.Set("useApifyProxy", true)
	o.Set("apifyProxyGroups", []string{"RESIDENTIAL"})
	return o
}

// capitalize upper-cases the first letter and lower-cases the rest.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
