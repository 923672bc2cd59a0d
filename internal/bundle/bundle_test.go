package bundle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/actorbundle/internal/config"
	"github.com/phobologic/actorbundle/internal/ctxlog"
	"github.com/phobologic/actorbundle/internal/frontmatter"
)

const demoSource = "/**\n" +
	" * @title: Demo\n" +
	" * @description: Demo actor\n" +
	" * */\n" +
	"import { CheerioCrawler } from 'crawlee'\n" +
	"import { Actor } from 'apify'\n" +
	"import { helper } from './_utils/helper.js'\n" +
	"\n" +
	"enum MODE {\n" +
	"  TEST = `TEST`,\n" +
	"  FULL = `FULL`,\n" +
	"}\n" +
	"\n" +
	"type Input = {\n" +
	"  mode: MODE,\n" +
	"}\n" +
	"\n" +
	"type Output = {\n" +
	"  pid: string, // e.g. 123\n" +
	"  url: string,\n" +
	"}\n" +
	"\n" +
	"const crawler = new CheerioCrawler({})\n" +
	"await Actor.main(async () => helper(`x`))\n"

const helperSource = "import _ from 'lodash'\n" +
	"\n" +
	"export function helper(x: string): string {\n" +
	"  return _.trim(x)\n" +
	"}\n"

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

// readTree returns every file under dir keyed by its relative path.
func readTree(t *testing.T, dir string) map[string]string {
	t.Helper()
	files := map[string]string{}
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, path)
		files[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return files
}

func demoProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, root, "actors/demo.ts", demoSource)
	writeTestFile(t, root, "actors/_utils/helper.ts", helperSource)
	return root
}

func testContext(buf *bytes.Buffer) context.Context {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return ctxlog.WithLogger(context.Background(), logger)
}

func TestRunDemoActor(t *testing.T) {
	t.Parallel()

	root := demoProject(t)
	var logs bytes.Buffer

	results, err := New(config.Default()).Run(testContext(&logs), root, "actors/*.ts", false)
	require.NoError(t, err)
	require.Len(t, results, 1)

	res := results[0]
	dist := filepath.Join(root, "actors-dist", "demo")
	assert.Equal(t, dist, res.DistDir)

	pkg := readJSON(t, filepath.Join(dist, "package.json"))
	assert.Equal(t, "demo", pkg["name"])
	assert.Equal(t, map[string]any{
		"crawlee": "*",
		"apify3":  "npm:apify@^3.0.2",
		"lodash":  "*",
	}, pkg["dependencies"])

	dockerfile, err := os.ReadFile(filepath.Join(dist, "Dockerfile"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(dockerfile, []byte("FROM apify/actor-node:16\n")))

	apify := readJSON(t, filepath.Join(dist, "apify.json"))
	assert.Equal(t, "0.1", apify["version"])
	assert.Equal(t, "latest", apify["buildTag"])
	assert.Contains(t, apify, "env")
	assert.Nil(t, apify["env"])

	schema := readJSON(t, filepath.Join(dist, "INPUT_SCHEMA.json"))
	mode := schema["properties"].(map[string]any)["mode"].(map[string]any)
	assert.Equal(t, "string", mode["type"])
	assert.Equal(t, "select", mode["editor"])
	assert.Equal(t, []any{"TEST", "FULL"}, mode["enum"])
	assert.Equal(t, []any{"mode"}, schema["required"])

	actor := readJSON(t, filepath.Join(dist, ".actor", "actor.json"))
	view := actor["storages"].(map[string]any)["dataset"].(map[string]any)["views"].(map[string]any)["overview"].(map[string]any)
	columns := view["display"].(map[string]any)["columns"]
	wantColumns := []any{
		map[string]any{"label": "Pid", "field": "pid", "format": "text"},
		map[string]any{"label": "Url", "field": "url", "format": "link"},
	}
	if diff := cmp.Diff(wantColumns, columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	readme, err := os.ReadFile(filepath.Join(dist, "README.md"))
	require.NoError(t, err)
	assert.Contains(t, string(readme), "# Demo\n\nDemo actor\n")
	assert.Contains(t, string(readme), "* **pid** `string` e.g. *123*\n")

	mainJS, err := os.ReadFile(filepath.Join(dist, "main.js"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(mainJS, []byte("import { CheerioCrawler } from 'crawlee'\n")))
	assert.Contains(t, string(mainJS), "var MODE;\n(function (MODE) {\n")
	assert.NotContains(t, string(mainJS), "type Input")
	assert.NotContains(t, string(mainJS), "@title")

	helper, err := os.ReadFile(filepath.Join(dist, "_utils", "helper.js"))
	require.NoError(t, err)
	assert.Contains(t, string(helper), "export function helper(x) {\n")
	assert.NoFileExists(t, filepath.Join(dist, "_utils", "helper.ts"))
	assert.NoFileExists(t, filepath.Join(dist, "demo.js"))
	assert.Equal(t, []string{"_utils/helper.ts"}, res.Collector.LocalDeps)

	dump := readJSON(t, filepath.Join(root, "actors", "demo.collector.json"))
	assert.Equal(t, "Cheerio", dump["crawlerName"])
	assert.Equal(t, []any{"_utils/helper.ts"}, dump["localDeps"])
	assert.Equal(t, []any{"apify", "crawlee", "lodash"}, dump["npmDeps"])

	assert.Contains(t, logs.String(), "actor has no image")
	assert.Contains(t, logs.String(), "msg=processing actor=demo")
}

func TestBuildIsIdempotent(t *testing.T) {
	t.Parallel()

	root := demoProject(t)
	writeTestFile(t, root, "actors/demo.png", "not really a png")
	b := New(config.Default())
	ctx := testContext(&bytes.Buffer{})

	first, err := b.BuildFile(ctx, filepath.Join(root, "actors", "demo.ts"))
	require.NoError(t, err)
	before := readTree(t, first.DistDir)
	dumpBefore, err := os.ReadFile(filepath.Join(root, "actors", "demo.collector.json"))
	require.NoError(t, err)

	second, err := b.BuildFile(ctx, filepath.Join(root, "actors", "demo.ts"))
	require.NoError(t, err)
	after := readTree(t, second.DistDir)
	dumpAfter, err := os.ReadFile(filepath.Join(root, "actors", "demo.collector.json"))
	require.NoError(t, err)

	if diff := cmp.Diff(before, after); diff != "" {
		t.Errorf("second build differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, string(dumpBefore), string(dumpAfter))
	assert.Equal(t, "not really a png", after[".actor/logo.png"])
}

func TestBuildPurgesDistDir(t *testing.T) {
	t.Parallel()

	root := demoProject(t)
	stale := writeTestFile(t, root, "actors-dist/demo/stale.js", "old")
	writeTestFile(t, root, "actors-dist/demo/old/nested.js", "old")

	res, err := New(config.Default()).BuildFile(testContext(&bytes.Buffer{}), filepath.Join(root, "actors", "demo.ts"))
	require.NoError(t, err)

	assert.NoFileExists(t, stale)
	assert.NoDirExists(t, filepath.Join(res.DistDir, "old"))
	assert.FileExists(t, filepath.Join(res.DistDir, "main.js"))
}

func TestBuildDiagnostics(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeTestFile(t, root, "actors/plain.ts", "/**\n"+
		" * @title: Plain\n"+
		" * */\n"+
		"enum Level {\n  Low = 1,\n}\n"+
		"type Input = {\n  level: Level,\n  when: Date,\n}\n"+
		"console.log(`no crawler here`)\n")

	var logs bytes.Buffer
	cfg := config.Default()
	cfg.WriteCollector = false
	res, err := New(cfg).BuildFile(testContext(&logs), path)
	require.NoError(t, err)

	subjects := map[string]bool{}
	for _, d := range res.Diagnostics {
		subjects[d.Subject] = true
	}
	assert.True(t, subjects["Level"], "dropped enum")
	assert.True(t, subjects["Input.level"], "field referencing a dropped enum")
	assert.True(t, subjects["Input.when"], "unsupported field type")
	assert.True(t, subjects["crawler"], "missing crawler")
	assert.True(t, subjects["logo"], "missing logo")

	assert.Contains(t, logs.String(), "level=WARN")
	assert.NoFileExists(t, filepath.Join(root, "actors", "plain.collector.json"))
	assert.NoFileExists(t, filepath.Join(res.DistDir, ".actor", "actor.json"))
	assert.DirExists(t, filepath.Join(res.DistDir, ".actor"))

	dockerfile, err := os.ReadFile(filepath.Join(res.DistDir, "Dockerfile"))
	require.NoError(t, err)
	assert.Contains(t, string(dockerfile), "npm list")
}

func TestBuildOverrides(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeTestFile(t, root, "actors/browser.ts", "/**\n"+
		" * @title: Browser\n"+
		" * @dockerfileTemplate: Playwright\n"+
		" * @dockerfileAfterFrom: RUN echo hi\n"+
		" * */\n"+
		"const crawler = new PuppeteerCrawler({})\n")

	res, err := New(config.Default()).BuildFile(testContext(&bytes.Buffer{}), path)
	require.NoError(t, err)

	assert.Equal(t, "Playwright", res.Collector.CrawlerName)
	assert.Equal(t, 4096, res.Collector.DefaultRunOptions.MemoryMbytes)

	dockerfile, err := os.ReadFile(filepath.Join(res.DistDir, "Dockerfile"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(dockerfile,
		[]byte("FROM apify/actor-node-playwright-firefox:16\nRUN echo hi\n")))
}

func TestBuildWithCustomDocBlock(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	path := writeTestFile(t, root, "actors/plain.ts", "/*\n"+
		" @title: Plain Block\n"+
		" */\n"+
		"const crawler = new CheerioCrawler({})\n")

	parser := frontmatter.DocBlock{Open: "/*", Close: " */", LinePrefix: " ", Indent: 3}
	res, err := New(config.Default()).WithParser(parser).BuildFile(testContext(&bytes.Buffer{}), path)
	require.NoError(t, err)

	assert.Equal(t, "Plain Block", res.Collector.Title())
	assert.Equal(t, "plain-block", res.Collector.Name())

	mainJS, err := os.ReadFile(filepath.Join(res.DistDir, "main.js"))
	require.NoError(t, err)
	assert.Equal(t, "const crawler = new CheerioCrawler({})\n", string(mainJS))
}

func TestRunNoSources(t *testing.T) {
	t.Parallel()

	_, err := New(config.Default()).Run(context.Background(), t.TempDir(), "actors/*.ts", false)
	assert.True(t, errors.Is(err, ErrNoSources))
}

func TestRunLatest(t *testing.T) {
	t.Parallel()

	root := demoProject(t)
	writeTestFile(t, root, "actors/other.ts", "/**\n * @title: Other\n * */\nexport {}\n")
	old := filepath.Join(root, "actors", "demo.ts")
	stamp, err := os.Stat(filepath.Join(root, "actors", "other.ts"))
	require.NoError(t, err)
	earlier := stamp.ModTime().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, earlier, earlier))

	results, err := New(config.Default()).Run(testContext(&bytes.Buffer{}), root, "actors/*.ts", true)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Other", results[0].Collector.Title())
	assert.NoDirExists(t, filepath.Join(root, "actors-dist", "demo"))
}
