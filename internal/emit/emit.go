// Package emit renders deployment artifacts from a populated collector.
// Every function here is pure: the same collector always yields the same bytes.
package emit

import (
	"strings"

	"github.com/phobologic/actorbundle/internal/jsonx"
	"github.com/phobologic/actorbundle/internal/model"
)

// Dependency versions written to package.json.
const (
	crawleeDep      = "crawlee"
	apifyDep        = "apify"
	apifyV3Alias    = "apify3"
	apifyV3Version  = "npm:apify@^3.0.2"
	apifyV2Version  = "^2.3.2"
	anyVersion      = "*"
	actorSpecVer    = 1
	inputSchemaVer  = 1
	hlidacShopuBase = "hlidac-shopu"
)

// PackageManifest is package.json.
type PackageManifest struct {
	Name         string            `json:"name"`
	Description  string            `json:"description,omitempty"`
	Type         string            `json:"type"`
	Scripts      Scripts           `json:"scripts"`
	Dependencies map[string]string `json:"dependencies"`
	Apify        PlatformMeta      `json:"apify"`
}

// Scripts is the package.json scripts block.
type Scripts struct {
	Start string `json:"start"`
	Push  string `json:"push-to-apify-platform"`
}

// PlatformMeta is the store listing metadata nested in package.json.
type PlatformMeta struct {
	Title                 string   `json:"title"`
	Description           string   `json:"description,omitempty"`
	IsPublic              bool     `json:"isPublic"`
	IsDeprecated          bool     `json:"isDeprecated"`
	IsAnonymouslyRunnable bool     `json:"isAnonymouslyRunnable"`
	Notice                string   `json:"notice"`
	PictureURL            string   `json:"pictureUrl"`
	SeoTitle              string   `json:"seoTitle"`
	SeoDescription        string   `json:"seoDescription"`
	Categories            []string `json:"categories"`
}

// Package builds package.json. An actor using crawlee gets apify v3 under
// the "apify3" alias; anything else is pinned to apify v2.
func Package(c *model.Collector) PackageManifest {
	deps := make(map[string]string, len(c.NpmDeps)+1)
	for _, d := range c.NpmDeps {
		deps[d] = anyVersion
	}
	if _, ok := deps[crawleeDep]; ok {
		deps[apifyV3Alias] = apifyV3Version
		delete(deps, apifyDep)
	} else {
		deps[apifyDep] = apifyV2Version
	}
	if c.Str("apify.version") == "2" {
		deps[apifyDep] = apifyV2Version
	}

	var categories []string
	if raw := c.Str("apify.categories"); raw != "" {
		for _, cat := range strings.Split(raw, ",") {
			categories = append(categories, strings.TrimSpace(cat))
		}
	}

	return PackageManifest{
		Name:        c.Name(),
		Description: c.Description(),
		Type:        "module",
		Scripts: Scripts{
			Start: "node ./main.js",
			Push:  "npx apify push",
		},
		Dependencies: deps,
		Apify: PlatformMeta{
			Title:                 c.Title(),
			Description:           c.Description(),
			IsPublic:              c.Bool("apify.isPublic", false),
			IsDeprecated:          c.Bool("apify.isDeprecated", false),
			IsAnonymouslyRunnable: c.Bool("apify.isAnonymouslyRunnable", true),
			Notice:                c.Str("apify.notice"),
			SeoTitle:              c.Str("apify.seoTitle"),
			SeoDescription:        c.Str("apify.seoDescription"),
			Categories:            categories,
		},
	}
}

// BuildManifest is apify.json.
type BuildManifest struct {
	Name              string            `json:"name"`
	Version           string            `json:"version"`
	BuildTag          string            `json:"buildTag"`
	Env               any               `json:"env"`
	DefaultRunOptions *model.RunOptions `json:"defaultRunOptions,omitempty"`
}

// Build builds apify.json from the collector as is.
func Build(c *model.Collector) BuildManifest {
	env, _ := c.Lookup("env")
	return BuildManifest{
		Name:              c.Name(),
		Version:           c.Version(),
		BuildTag:          c.BuildTag(),
		Env:               env,
		DefaultRunOptions: c.DefaultRunOptions,
	}
}

// Dockerfile returns the build recipe, with the dockerfileAfterFrom line
// injected right after the FROM instruction when requested.
func Dockerfile(c *model.Collector) string {
	after := c.Str("dockerfileAfterFrom")
	if after == "" {
		return c.Dockerfile
	}
	lines := strings.Split(c.Dockerfile, "\n")
	from := -1
	for i, line := range lines {
		if strings.HasPrefix(line, "FROM") {
			from = i
			break
		}
	}
	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:from+1]...)
	out = append(out, after)
	out = append(out, lines[from+1:]...)
	return strings.Join(out, "\n")
}

// Dump renders the collector for inspection.
func Dump(c *model.Collector) ([]byte, error) {
	return jsonx.Indent(c)
}
