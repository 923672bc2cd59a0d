package deps

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/phobologic/actorbundle/internal/lang"
	"github.com/phobologic/actorbundle/internal/model"
)

const defaultCacheSize = 256

// Extensions tried, in order, when a relative specifier has none that exists.
var tryExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".mjs", ".cjs", ".json"}

// TypeScript sources import siblings by their emitted name ("./x.js" for x.ts).
var emittedToSource = map[string]string{
	".js":  ".ts",
	".mjs": ".mts",
	".cjs": ".cts",
	".jsx": ".tsx",
}

// Builder produces import graphs. Import lists are memoized per file so
// files reachable along several paths are parsed once.
type Builder struct {
	cache *lru.Cache[string, []string]
	diags []model.Diagnostic
}

// NewBuilder returns a Builder with an import cache of the given size.
func NewBuilder(cacheSize int) (*Builder, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	c, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating import cache: %w", err)
	}
	return &Builder{cache: c}, nil
}

// Diagnostics returns the unresolved imports seen so far.
func (b *Builder) Diagnostics() []model.Diagnostic {
	return b.diags
}

// Build returns a graph with entry as its single root key. Node core modules
// are omitted; installed packages are leaves. An import that closes a cycle
// is recorded as a leaf.
func (b *Builder) Build(ctx context.Context, entry string) (Graph, error) {
	abs, err := filepath.Abs(entry)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", entry, err)
	}
	onPath := map[string]bool{abs: true}
	children, err := b.build(ctx, abs, onPath)
	if err != nil {
		return nil, err
	}
	return Graph{abs: children}, nil
}

func (b *Builder) build(ctx context.Context, file string, onPath map[string]bool) (Graph, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	specs, err := b.imports(ctx, file)
	if err != nil {
		return nil, err
	}

	g := make(Graph)
	for _, spec := range specs {
		if IsCoreModule(spec) {
			continue
		}
		target, ok := resolveSpecifier(file, spec)
		if !ok {
			b.diags = append(b.diags, model.Diagnostic{
				Subject: file,
				Message: fmt.Sprintf("cannot resolve import %q", spec),
			})
			continue
		}
		if _, dup := g[target]; dup {
			continue
		}
		if _, isPkg := PackageName(target); isPkg || onPath[target] {
			g[target] = Graph{}
			continue
		}
		onPath[target] = true
		child, err := b.build(ctx, target, onPath)
		delete(onPath, target)
		if err != nil {
			return nil, err
		}
		g[target] = child
	}
	return g, nil
}

// imports returns the module specifiers file imports, in source order.
func (b *Builder) imports(ctx context.Context, file string) ([]string, error) {
	if specs, ok := b.cache.Get(file); ok {
		return specs, nil
	}
	l := lang.ForPath(file)
	if l == nil {
		b.cache.Add(file, nil)
		return nil, nil
	}
	source, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", file, err)
	}
	specs, err := ScanImports(ctx, l, source)
	if err != nil {
		return nil, fmt.Errorf("scanning imports of %s: %w", file, err)
	}
	b.cache.Add(file, specs)
	return specs, nil
}

// ScanImports extracts import, re-export, require and dynamic import
// specifiers from source. Type-only imports are skipped.
func ScanImports(ctx context.Context, l *lang.Language, source []byte) ([]string, error) {
	if len(source) == 0 {
		return nil, nil
	}
	q, err := l.GetImportQuery()
	if err != nil {
		return nil, err
	}
	tree, err := l.Parse(ctx, source)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, tree.RootNode())

	var specs []string
	seen := make(map[string]struct{})
	for {
		match, ok := qc.NextMatch()
		if !ok {
			break
		}
		match = qc.FilterPredicates(match, source)

		var sourceNode, stmtNode, callName *sitter.Node
		for _, c := range match.Captures {
			switch q.CaptureNameForId(c.Index) {
			case "import.source", "call.source":
				sourceNode = c.Node
			case "import.statement":
				stmtNode = c.Node
			case "call.name":
				callName = c.Node
			}
		}
		if sourceNode == nil {
			continue
		}
		if callName != nil {
			if name := lang.NodeText(callName, source); name != "require" && name != "import" {
				continue
			}
		}
		if stmtNode != nil && isTypeOnly(stmtNode) {
			continue
		}

		spec := lang.Unquote(lang.NodeText(sourceNode, source))
		if _, dup := seen[spec]; dup || spec == "" {
			continue
		}
		seen[spec] = struct{}{}
		specs = append(specs, spec)
	}
	return specs, nil
}

// isTypeOnly reports `import type ...` and `export type ... from` statements.
func isTypeOnly(stmt *sitter.Node) bool {
	for i := 0; i < int(stmt.ChildCount()); i++ {
		c := stmt.Child(i)
		if !c.IsNamed() && c.Type() == "type" {
			return true
		}
	}
	return false
}

func isRelative(spec string) bool {
	return strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") ||
		spec == "." || spec == ".." || filepath.IsAbs(spec)
}

func resolveSpecifier(from, spec string) (string, bool) {
	if isRelative(spec) {
		base := spec
		if !filepath.IsAbs(spec) {
			base = filepath.Join(filepath.Dir(from), filepath.FromSlash(spec))
		}
		return resolveFile(base)
	}
	return resolvePackage(filepath.Dir(from), spec), true
}

func resolveFile(base string) (string, bool) {
	candidates := []string{base}
	ext := filepath.Ext(base)
	if src, ok := emittedToSource[ext]; ok {
		candidates = append(candidates, strings.TrimSuffix(base, ext)+src)
	}
	for _, e := range tryExtensions {
		candidates = append(candidates, base+e)
	}
	for _, e := range tryExtensions {
		candidates = append(candidates, filepath.Join(base, "index"+e))
	}
	for _, c := range candidates {
		if isFile(c) {
			return c, true
		}
	}
	return "", false
}

// resolvePackage finds the nearest installed copy of spec's package walking
// up from dir. A package that is not installed resolves to a synthetic path
// under dir so it is still reported as a dependency.
func resolvePackage(dir, spec string) string {
	pkg, subpath := splitPackageSpec(spec)
	for d := dir; ; {
		pkgDir := filepath.Join(d, nodeModules, filepath.FromSlash(pkg))
		if isDir(pkgDir) {
			return filepath.Join(pkgDir, packageEntry(pkgDir, subpath))
		}
		parent := filepath.Dir(d)
		if parent == d {
			break
		}
		d = parent
	}
	return filepath.Join(dir, nodeModules, filepath.FromSlash(pkg), "index.js")
}

func splitPackageSpec(spec string) (pkg, subpath string) {
	parts := strings.SplitN(spec, "/", 3)
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		pkg = parts[0] + "/" + parts[1]
		if len(parts) == 3 {
			subpath = parts[2]
		}
		return pkg, subpath
	}
	pkg, subpath, _ = strings.Cut(spec, "/")
	return pkg, subpath
}

// packageEntry picks the file a bare import of the package loads, preferring
// the ES module entry.
func packageEntry(pkgDir, subpath string) string {
	if subpath != "" {
		return filepath.FromSlash(subpath)
	}
	data, err := os.ReadFile(filepath.Join(pkgDir, "package.json"))
	if err == nil {
		var manifest struct {
			Module string `json:"module"`
			Main   string `json:"main"`
		}
		if json.Unmarshal(data, &manifest) == nil {
			if manifest.Module != "" {
				return filepath.FromSlash(manifest.Module)
			}
			if manifest.Main != "" {
				return filepath.FromSlash(manifest.Main)
			}
		}
	}
	return "index.js"
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
