package discover

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

func TestDiscoverActors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "actors/shop.ts", "export {}")
	writeFile(t, dir, "actors/market.ts", "export {}")
	// Helpers live in a subdirectory and are not entry points.
	writeFile(t, dir, "actors/_utils/tools.ts", "export {}")
	// Wrong extension for the glob.
	writeFile(t, dir, "actors/notes.md", "hello")
	// Hidden file should be ignored
	writeFile(t, dir, "actors/.draft.ts", "export {}")

	entries, err := Files(dir, "actors/*.ts", Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	paths := make([]string, len(entries))
	for i, e := range entries {
		paths[i] = e.Path
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", len(entries), paths)
	}

	// Should be sorted
	if entries[0].Path != "actors/market.ts" {
		t.Errorf("entry 0: got %q", entries[0].Path)
	}
	if entries[1].Path != "actors/shop.ts" {
		t.Errorf("entry 1: got %q", entries[1].Path)
	}

	for _, e := range entries {
		if e.Language != "typescript" {
			t.Errorf("entry %q: language = %q, want typescript", e.Path, e.Language)
		}
	}
}

func TestDiscoverSkipDirs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, "actors/main.ts", "export {}")
	writeFile(t, dir, "actors/node_modules/pkg/index.ts", "export {}")
	writeFile(t, dir, "actors/main-dist/main/main.js", "export {}")
	writeFile(t, dir, "actors/.hidden/secret.ts", "export {}")
	writeFile(t, dir, "actors/types.d.ts", "export {}")

	entries, err := Files(dir, "**/*.{ts,js}", Options{DistSuffix: "-dist"})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d: %v", len(entries), entries)
	}
	if entries[0].Path != "actors/main.ts" {
		t.Errorf("expected actors/main.ts, got %q", entries[0].Path)
	}
}

func TestDiscoverGitignore(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	writeFile(t, dir, ".gitignore", "actors/wip-*.ts\n")
	writeFile(t, dir, "actors/shop.ts", "export {}")
	writeFile(t, dir, "actors/wip-market.ts", "export {}")

	entries, err := Files(dir, "actors/*.ts", Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "actors/shop.ts" {
		t.Fatalf("expected only actors/shop.ts, got %v", entries)
	}
}

func TestDiscoverAbsolutePattern(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "actors/shop.ts", "export {}")

	entries, err := Files("/nonexistent", filepath.Join(dir, "actors", "*.ts"), Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "shop.ts" {
		t.Fatalf("expected shop.ts relative to the pattern base, got %v", entries)
	}
}

func TestDiscoverBadPattern(t *testing.T) {
	t.Parallel()

	_, err := Files(t.TempDir(), "actors/[*.ts", Options{})
	if !errors.Is(err, doublestar.ErrBadPattern) {
		t.Fatalf("expected ErrBadPattern, got %v", err)
	}
}

func TestDiscoverSymlinksSkipped(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "real.ts", "export {}")

	// Create symlink
	err := os.Symlink(filepath.Join(dir, "real.ts"), filepath.Join(dir, "link.ts"))
	if err != nil {
		t.Skip("symlinks not supported")
	}

	entries, err := Files(dir, "*.ts", Options{})
	if err != nil {
		t.Fatalf("Files: %v", err)
	}

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry (no symlink), got %d", len(entries))
	}
	if entries[0].Path != "real.ts" {
		t.Errorf("expected real.ts, got %q", entries[0].Path)
	}
	if entries[0].Abs != filepath.Join(dir, "real.ts") {
		t.Errorf("expected absolute path under %s, got %q", dir, entries[0].Abs)
	}
}

func TestLatest(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.ts", "export {}")
	writeFile(t, dir, "b.ts", "export {}")
	writeFile(t, dir, "c.ts", "export {}")

	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"a.ts", "c.ts", "b.ts"} {
		mod := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(filepath.Join(dir, name), mod, mod); err != nil {
			t.Fatal(err)
		}
	}

	var entries []FileEntry
	for _, name := range []string{"a.ts", "b.ts", "c.ts"} {
		entries = append(entries, FileEntry{Path: name, Abs: filepath.Join(dir, name)})
	}
	got, err := Latest(entries)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if got.Path != "b.ts" {
		t.Errorf("expected b.ts, got %q", got.Path)
	}

	if _, err := Latest(nil); err == nil {
		t.Error("expected error for no entries")
	}
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
