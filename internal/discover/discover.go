// Package discover finds actor source files matching a glob.
package discover

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"

	"github.com/phobologic/actorbundle/internal/lang"
)

// FileEntry represents a discovered source file.
type FileEntry struct {
	Path     string // Relative to root, slash separated
	Abs      string
	Language string
}

// Options tune which glob matches are kept.
type Options struct {
	// DistSuffix marks generated output directories, whose contents are
	// never sources.
	DistSuffix string
}

var skipDirs = map[string]struct{}{
	"node_modules": {},
	".git":         {},
	".actor":       {},
	"dist":         {},
	"build":        {},
}

// Files returns the source files under root matching pattern, sorted by
// path. Patterns use doublestar syntax ("actors/**/*.ts"); an absolute
// pattern overrides root. Declaration files, unknown extensions, files in
// skipped or hidden directories and git-ignored files are left out.
func Files(root, pattern string, opts Options) ([]FileEntry, error) {
	pattern = filepath.ToSlash(pattern)
	if filepath.IsAbs(pattern) || strings.HasPrefix(pattern, "/") {
		var base string
		base, pattern = doublestar.SplitPattern(pattern)
		root = filepath.FromSlash(base)
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob %q: %w", pattern, doublestar.ErrBadPattern)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	root = absRoot

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("matching %q in %s: %w", pattern, root, err)
	}

	gitFiles := gitLsFiles(root)
	var gi *ignore.GitIgnore
	if gitFiles == nil {
		gi = loadGitignore(root)
	}

	var results []FileEntry
	for _, rel := range matches {
		if skipped(rel, opts) {
			continue
		}
		if strings.HasSuffix(rel, ".d.ts") {
			continue
		}
		langName := lang.ForExtension(filepath.Ext(rel))
		if langName == "" {
			continue
		}
		abs := filepath.Join(root, filepath.FromSlash(rel))
		fi, err := os.Lstat(abs)
		if err != nil || fi.Mode()&os.ModeSymlink != 0 {
			continue
		}
		if gitFiles != nil {
			if _, ok := gitFiles[rel]; !ok {
				continue
			}
		} else if gi != nil && gi.MatchesPath(rel) {
			continue
		}
		results = append(results, FileEntry{Path: rel, Abs: abs, Language: langName})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Path < results[j].Path
	})
	return results, nil
}

func skipped(rel string, opts Options) bool {
	segs := strings.Split(rel, "/")
	name := segs[len(segs)-1]
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, dir := range segs[:len(segs)-1] {
		if _, skip := skipDirs[dir]; skip || strings.HasPrefix(dir, ".") {
			return true
		}
		if opts.DistSuffix != "" && strings.HasSuffix(dir, opts.DistSuffix) {
			return true
		}
	}
	return false
}

// Latest returns the most recently modified entry. Ties go to the entry
// sorting first.
func Latest(entries []FileEntry) (FileEntry, error) {
	var (
		best    FileEntry
		bestMod time.Time
		found   bool
	)
	for _, e := range entries {
		fi, err := os.Stat(e.Abs)
		if err != nil {
			return FileEntry{}, fmt.Errorf("stat %s: %w", e.Path, err)
		}
		if !found || fi.ModTime().After(bestMod) {
			best, bestMod, found = e, fi.ModTime(), true
		}
	}
	if !found {
		return FileEntry{}, fmt.Errorf("no files to pick from")
	}
	return best, nil
}

func gitLsFiles(root string) map[string]struct{} {
	gitDir := filepath.Join(root, ".git")
	info, err := os.Stat(gitDir)
	if err != nil || !info.IsDir() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	out, err := cmd.Output()
	if err != nil {
		return nil
	}

	files := make(map[string]struct{})
	for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
		if line != "" {
			files[line] = struct{}{}
		}
	}
	return files
}

func loadGitignore(root string) *ignore.GitIgnore {
	path := filepath.Join(root, ".gitignore")
	gi, err := ignore.CompileIgnoreFile(path)
	if err != nil {
		return nil
	}
	return gi
}
