package bundle

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	cp "github.com/otiai10/copy"

	"github.com/phobologic/actorbundle/internal/emit"
	"github.com/phobologic/actorbundle/internal/jsonx"
	"github.com/phobologic/actorbundle/internal/lang"
	"github.com/phobologic/actorbundle/internal/model"
	"github.com/phobologic/actorbundle/internal/transpile"
)

// Typed extensions map to what the platform runs.
var emittedExt = map[string]string{
	".ts":  ".js",
	".tsx": ".js",
	".mts": ".mjs",
	".cts": ".cjs",
}

func (b *Bundler) write(ctx context.Context, l *lang.Language, source []byte, res *Result) error {
	c := res.Collector
	dist := res.DistDir

	if err := writeJSON(filepath.Join(dist, "package.json"), emit.Package(c)); err != nil {
		return err
	}
	if err := writeFile(filepath.Join(dist, "Dockerfile"), []byte(emit.Dockerfile(c))); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dist, "apify.json"), emit.Build(c)); err != nil {
		return err
	}

	actorDir := filepath.Join(dist, ".actor")
	if err := ensureDir(actorDir, false); err != nil {
		return err
	}
	if manifest := emit.Actor(c); manifest != nil {
		if err := writeJSON(filepath.Join(actorDir, "actor.json"), manifest); err != nil {
			return err
		}
	}
	logo := strings.TrimSuffix(res.Source, filepath.Ext(res.Source)) + ".png"
	if err := copyFile(logo, filepath.Join(actorDir, "logo.png")); err != nil {
		res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
			Subject: "logo",
			Message: fmt.Sprintf("actor has no image: %v", err),
		})
	}

	if err := writeFile(filepath.Join(dist, "README.md"), []byte(emit.Readme(c))); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(dist, "INPUT_SCHEMA.json"), emit.Input(c)); err != nil {
		return err
	}

	if err := b.writeLocalDeps(ctx, res); err != nil {
		return err
	}

	entry, err := transpile.Source(ctx, l, b.parser.Strip(source))
	if err != nil {
		return fmt.Errorf("transpiling main: %w", err)
	}
	return writeFile(filepath.Join(dist, "main.js"), entry)
}

// writeLocalDeps copies local dependencies into the dist directory under
// their path relative to the entry point. Typed sources are transpiled and
// written under their runtime extension.
func (b *Bundler) writeLocalDeps(ctx context.Context, res *Result) error {
	srcDir := filepath.Dir(res.Source)
	for _, rel := range res.Collector.LocalDeps {
		if rel == ".." || strings.HasPrefix(rel, "../") {
			res.Diagnostics = append(res.Diagnostics, model.Diagnostic{
				Subject: rel,
				Message: "local dependency outside the actor directory, not copied",
			})
			continue
		}
		src := filepath.Join(srcDir, filepath.FromSlash(rel))
		dst := filepath.Join(res.DistDir, filepath.FromSlash(rel))

		l := lang.ForPath(src)
		ext, typed := emittedExt[filepath.Ext(src)]
		if l == nil || !l.Typed || !typed {
			if err := copyFile(src, dst); err != nil {
				return fmt.Errorf("copying %s: %w", rel, err)
			}
			continue
		}
		data, err := os.ReadFile(src)
		if err != nil {
			return fmt.Errorf("reading %s: %w", rel, err)
		}
		out, err := transpile.Source(ctx, l, data)
		if err != nil {
			return fmt.Errorf("transpiling %s: %w", rel, err)
		}
		if err := writeFile(strings.TrimSuffix(dst, filepath.Ext(dst))+ext, out); err != nil {
			return err
		}
	}
	return nil
}

// ensureDir creates dir if needed. With purge set the directory's contents
// are removed but the directory itself is kept.
func ensureDir(dir string, purge bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	if !purge {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", dir, err)
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return fmt.Errorf("purging %s: %w", dir, err)
		}
	}
	return nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := jsonx.Indent(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	return writeFile(path, data)
}

// copyFile copies a single file, creating the parent directories of dst.
func copyFile(src, dst string) error {
	err := cp.Copy(src, dst, cp.Options{
		OnSymlink: func(string) cp.SymlinkAction { return cp.Deep },
	})
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%s does not exist", filepath.Base(src))
	}
	return err
}
