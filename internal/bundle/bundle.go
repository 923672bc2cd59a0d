// Package bundle turns actor source files into deployable directories.
//
// For every source file the phases run in a fixed order against a collector
// owned by that file alone: dependency resolution, documentation block,
// crawler detection, type collection. The emitters then render the
// artifacts into <dir><suffix>/<name>/, whose previous contents are purged.
package bundle

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/actorbundle/internal/config"
	"github.com/phobologic/actorbundle/internal/crawler"
	"github.com/phobologic/actorbundle/internal/ctxlog"
	"github.com/phobologic/actorbundle/internal/deps"
	"github.com/phobologic/actorbundle/internal/discover"
	"github.com/phobologic/actorbundle/internal/emit"
	"github.com/phobologic/actorbundle/internal/frontmatter"
	"github.com/phobologic/actorbundle/internal/lang"
	"github.com/phobologic/actorbundle/internal/model"
	"github.com/phobologic/actorbundle/internal/typeinfo"
)

// ErrNoSources is returned when the glob matches no source file.
var ErrNoSources = errors.New("no source files matched")

// Result describes one built actor.
type Result struct {
	Source      string
	DistDir     string
	Collector   *model.Collector
	Diagnostics []model.Diagnostic
}

// Bundler builds actors with a fixed configuration.
type Bundler struct {
	cfg    config.Config
	parser frontmatter.Parser
}

// New returns a Bundler reading documentation blocks in the default format.
func New(cfg config.Config) *Bundler {
	return &Bundler{cfg: cfg, parser: frontmatter.Default}
}

// WithParser swaps the documentation block format.
func (b *Bundler) WithParser(p frontmatter.Parser) *Bundler {
	b.parser = p
	return b
}

// Run builds every file under root matching pattern, or only the most
// recently modified one when latest is set. It stops at the first fatal
// error; diagnostics are logged and never stop the run.
func (b *Bundler) Run(ctx context.Context, root, pattern string, latest bool) ([]*Result, error) {
	log := ctxlog.FromContext(ctx)

	entries, err := discover.Files(root, pattern, discover.Options{DistSuffix: b.cfg.DistSuffix})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSources, pattern)
	}
	if latest {
		e, err := discover.Latest(entries)
		if err != nil {
			return nil, err
		}
		entries = []discover.FileEntry{e}
	}

	results := make([]*Result, 0, len(entries))
	for _, e := range entries {
		log.Info("processing", "actor", baseName(e.Path))
		res, err := b.BuildFile(ctx, e.Abs)
		if err != nil {
			return results, fmt.Errorf("building %s: %w", e.Path, err)
		}
		log.Info("done", "actor", baseName(e.Path), "dist", res.DistDir)
		results = append(results, res)
	}
	return results, nil
}

// BuildFile builds the actor whose entry point is path.
func (b *Bundler) BuildFile(ctx context.Context, path string) (*Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	l := lang.ForPath(abs)
	if l == nil {
		return nil, fmt.Errorf("unsupported source file %s", abs)
	}
	source, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("reading source: %w", err)
	}

	dir := filepath.Dir(abs)
	base := baseName(abs)
	res := &Result{
		Source:    abs,
		DistDir:   filepath.Join(dir+b.cfg.DistSuffix, base),
		Collector: model.NewCollector(abs),
	}
	if err := ensureDir(res.DistDir, true); err != nil {
		return nil, err
	}

	if err := b.collect(ctx, l, source, res); err != nil {
		return nil, err
	}
	if err := b.write(ctx, l, source, res); err != nil {
		return nil, err
	}

	if b.cfg.WriteCollector {
		dump, err := emit.Dump(res.Collector)
		if err != nil {
			return nil, fmt.Errorf("encoding collector dump: %w", err)
		}
		if err := writeFile(filepath.Join(dir, base+".collector.json"), dump); err != nil {
			return nil, err
		}
	}

	log := ctxlog.FromContext(ctx)
	c := res.Collector
	log.Debug("collected",
		"file", filepath.Base(abs),
		"crawler", c.CrawlerName,
		"localDeps", len(c.LocalDeps),
		"npmDeps", len(c.NpmDeps),
		"enums", len(c.Enums))
	for _, d := range res.Diagnostics {
		log.Warn(d.Message, "file", filepath.Base(abs), "subject", d.Subject)
	}
	return res, nil
}

func (b *Bundler) collect(ctx context.Context, l *lang.Language, source []byte, res *Result) error {
	c := res.Collector
	dir := filepath.Dir(res.Source)

	builder, err := deps.NewBuilder(b.cfg.ImportCacheSize)
	if err != nil {
		return err
	}
	graph, err := builder.Build(ctx, res.Source)
	if err != nil {
		return fmt.Errorf("building import graph: %w", err)
	}
	// The entry is the graph's only root; only what it imports is a dependency.
	resolved := deps.Resolve(graph[res.Source], dir)
	c.LocalDeps, c.NpmDeps = resolved.Local, resolved.Npm
	res.Diagnostics = append(res.Diagnostics, builder.Diagnostics()...)

	values := b.parser.Parse(source)
	frontmatter.ApplyDefaults(values, b.cfg.FrontmatterDefaults())
	c.Frontmatter = values

	template, _ := values["dockerfileTemplate"].(string)
	meta := crawler.Detect(source, template, b.cfg.CrawlerSettings())
	switch {
	case !meta.Detected:
		res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
			Subject: "crawler",
			Message: "no crawler instantiation found, using the generic recipe",
		})
	case meta.Unknown != "":
		res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
			Subject: "crawler",
			Message: fmt.Sprintf("unknown crawler %q, using the %s recipe", meta.Unknown, meta.Name),
		})
	}
	c.CrawlerName = c.Str("crawlerName")
	if c.CrawlerName == "" {
		c.CrawlerName = meta.Name
	}
	c.Dockerfile = c.Str("dockerfile")
	if c.Dockerfile == "" {
		c.Dockerfile = meta.Dockerfile
	}
	c.DefaultRunOptions = meta.RunOptions

	types, err := typeinfo.Collect(ctx, l, source)
	if err != nil {
		return fmt.Errorf("collecting types: %w", err)
	}
	c.Enums, c.Input, c.Output = types.Enums, types.Input, types.Output
	res.Diagnostics = append(res.Diagnostics, types.Diagnostics...)
	return nil
}

func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
