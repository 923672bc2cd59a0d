// Package crawler detects which crawling engine an actor instantiates and
// picks the container build recipe and run options for it.
package crawler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/actorbundle/internal/model"
)

// Engine kinds.
const (
	Basic      = "Basic"
	Cheerio    = "Cheerio"
	Puppeteer  = "Puppeteer"
	Playwright = "Playwright"
)

// Matches both `new Apify.CheerioCrawler(` and `new CheerioCrawler(`.
var newCrawlerRe = regexp.MustCompile(`new (Apify\.)?(\w+)Crawler\(`)

// Settings parameterize the recipes.
type Settings struct {
	NodeVersion         string
	Build               string
	TimeoutSecs         int
	MemoryMbytes        int
	BrowserMemoryMbytes int
}

// DefaultSettings match the platform defaults actors were built with.
var DefaultSettings = Settings{
	NodeVersion:         "16",
	Build:               "latest",
	TimeoutSecs:         3600,
	MemoryMbytes:        1024,
	BrowserMemoryMbytes: 4096,
}

// Meta is the detection result. Name and RunOptions are empty when no
// engine instantiation was found.
type Meta struct {
	Name       string
	Dockerfile string
	RunOptions *model.RunOptions
	// Detected is false when the generic fallback recipe was used.
	Detected bool
	// Unknown is set to the matched name when it is not a supported kind.
	Unknown string
}

type recipe struct {
	image   string
	browser bool
}

var recipes = map[string]recipe{
	Basic:      {image: "apify/actor-node"},
	Cheerio:    {image: "apify/actor-node"},
	Puppeteer:  {image: "apify/actor-node-puppeteer-chrome", browser: true},
	Playwright: {image: "apify/actor-node-playwright-firefox", browser: true},
}

// Detect scans source for an engine instantiation. override, when non-empty,
// takes precedence over the matched name.
func Detect(source []byte, override string, s Settings) Meta {
	m := newCrawlerRe.FindSubmatch(source)
	if m == nil {
		return Meta{Dockerfile: fallbackDockerfile(s)}
	}

	name := string(m[2])
	if override != "" {
		name = override
	}

	meta := Meta{Detected: true}
	r, ok := recipes[name]
	if !ok {
		meta.Unknown = name
		name, r = Basic, recipes[Basic]
	}
	meta.Name = name

	opts := model.RunOptions{
		Build:        s.Build,
		TimeoutSecs:  s.TimeoutSecs,
		MemoryMbytes: s.MemoryMbytes,
	}
	if r.browser {
		opts.MemoryMbytes = s.BrowserMemoryMbytes
	}
	meta.RunOptions = &opts
	meta.Dockerfile = dockerfile(r, s.NodeVersion)
	return meta
}

func dockerfile(r recipe, nodeVersion string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s:%s\n\n", r.image, nodeVersion)
	b.WriteString("COPY package.json ./\n\n")
	b.WriteString("RUN npm --quiet set progress=false \\\n")
	if r.browser {
		b.WriteString("  && npm install aws-crt \\\n")
	}
	b.WriteString("  && npm install --only=prod --no-optional\n\n")
	b.WriteString("COPY . ./\n")
	return b.String()
}

// fallbackDockerfile is the low-memory generic recipe.
func fallbackDockerfile(s Settings) string {
	var b strings.Builder
	fmt.Fprintf(&b, "FROM %s:%s\n\n", recipes[Basic].image, s.NodeVersion)
	b.WriteString("COPY package.json ./\n\n")
	b.WriteString("RUN npm --quiet set progress=false \\\n")
	b.WriteString("  && npm install --only=prod --no-optional \\\n")
	b.WriteString("  && (npm list --only=prod --no-optional --all || true)\n\n")
	b.WriteString("COPY . ./\n")
	return b.String()
}
