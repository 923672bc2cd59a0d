package emit

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/phobologic/actorbundle/internal/model"
)

// An Output with both fields renders them as one link column.
const (
	linkTextField = "itemId"
	linkURLField  = "itemUrl"
)

// ActorManifest is .actor/actor.json.
type ActorManifest struct {
	ActorSpecification int      `json:"actorSpecification"`
	Name               string   `json:"name"`
	Title              string   `json:"title"`
	Description        string   `json:"description,omitempty"`
	Version            string   `json:"version"`
	Storages           Storages `json:"storages"`
}

// Storages holds the storage schemas of an actor.
type Storages struct {
	Dataset DatasetSchema `json:"dataset"`
}

// DatasetSchema describes the default dataset and its views.
type DatasetSchema struct {
	ActorSpecification int             `json:"actorSpecification"`
	Title              string          `json:"title"`
	Description        string          `json:"description,omitempty"`
	Views              map[string]View `json:"views"`
}

// View is one dataset view.
type View struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Transformation Transformation `json:"transformation"`
	Display        Display        `json:"display"`
}

// Transformation selects the fields a view shows.
type Transformation struct {
	Fields []string `json:"fields"`
}

// Display is the table rendering of a view.
type Display struct {
	Component string   `json:"component"`
	Columns   []Column `json:"columns"`
}

// Column is one table column.
type Column struct {
	Label     string `json:"label"`
	Field     string `json:"field"`
	Format    string `json:"format"`
	TextField string `json:"textField,omitempty"`
}

// Actor builds .actor/actor.json. It returns nil when no Output type was
// collected.
func Actor(c *model.Collector) *ActorManifest {
	if c.Output == nil {
		return nil
	}
	fields := make([]string, 0, len(c.Output.Fields))
	for _, f := range c.Output.Fields {
		fields = append(fields, f.Name)
	}
	return &ActorManifest{
		ActorSpecification: actorSpecVer,
		Name:               c.Name(),
		Title:              c.Title(),
		Description:        c.Description(),
		Version:            c.Version() + ".0",
		Storages: Storages{
			Dataset: DatasetSchema{
				ActorSpecification: actorSpecVer,
				Title:              c.Title(),
				Description:        c.Description(),
				Views: map[string]View{
					"overview": {
						Title:          "Overview",
						Description:    "Overview of the most important fields",
						Transformation: Transformation{Fields: fields},
						Display: Display{
							Component: "table",
							Columns:   Columns(c.Output.Fields),
						},
					},
				},
			},
		},
	}
}

// Columns renders one column per field in declaration order. An itemUrl
// field following an itemId field is folded into the itemId column, which
// becomes a link showing the id and pointing at the url.
func Columns(fields []model.Field) []Column {
	cols := make([]Column, 0, len(fields))
	for _, f := range fields {
		if f.Name == linkURLField {
			if i := columnIndex(cols, linkTextField); i >= 0 {
				cols[i].Format = "link"
				cols[i].TextField = linkTextField
				cols[i].Field = linkURLField
				continue
			}
		}
		cols = append(cols, Column{
			Label:  Label(f.Name),
			Field:  f.Name,
			Format: outputFormat(f.Kind, f.Name),
		})
	}
	return cols
}

func columnIndex(cols []Column, field string) int {
	for i := range cols {
		if cols[i].Field == field {
			return i
		}
	}
	return -1
}

func outputFormat(k model.Kind, key string) string {
	switch k.Tag {
	case model.String:
		if key == "img" || key == "image" {
			return "image"
		}
		if strings.Contains(strings.ToLower(key), "url") {
			return "link"
		}
		return "text"
	case model.Boolean, model.Number, model.Object, model.Array:
		return string(k.Tag)
	default:
		return "text"
	}
}

var idWordRe = regexp.MustCompile(`\bId\b`)

// Label turns a camelCase key into words: "itemId" → "Item ID".
func Label(key string) string {
	var b strings.Builder
	for _, r := range key {
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	s := strings.TrimSpace(b.String())
	if s == "" {
		return s
	}
	s = strings.ToUpper(s[:1]) + s[1:]
	if loc := idWordRe.FindStringIndex(s); loc != nil {
		s = s[:loc[0]] + "ID" + s[loc[1]:]
	}
	return s
}
