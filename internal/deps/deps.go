// Package deps builds an actor's static import graph and partitions it into
// project-local files and installed npm packages.
package deps

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/phobologic/actorbundle/internal/model"
)

// Graph maps an absolute file path to the graph of files it imports.
type Graph map[string]Graph

const nodeModules = "node_modules"

// Resolve classifies every node reachable from g. Paths under node_modules
// contribute their package name and are not descended into; every other path
// is recorded relative to root and its imports are walked. Both result sets
// are deduplicated and sorted.
func Resolve(g Graph, root string) model.Deps {
	local := make(map[string]struct{})
	npm := make(map[string]struct{})
	visited := make(map[string]struct{})

	var walk func(g Graph)
	walk = func(g Graph) {
		for _, path := range sortedKeys(g) {
			if name, ok := PackageName(path); ok {
				npm[name] = struct{}{}
				continue
			}
			rel, err := filepath.Rel(root, path)
			if err != nil {
				rel = path
			}
			local[filepath.ToSlash(rel)] = struct{}{}

			if _, seen := visited[path]; seen {
				continue
			}
			visited[path] = struct{}{}
			walk(g[path])
		}
	}
	walk(g)

	return model.Deps{
		Local: setToSorted(local),
		Npm:   setToSorted(npm),
	}
}

// PackageName extracts the npm package name from a path inside an installed
// package directory, e.g. ".../node_modules/@thi.ng/atom/index.js" → "@thi.ng/atom".
// The innermost node_modules segment wins so nested and pnpm layouts resolve
// to the package actually imported.
func PackageName(path string) (string, bool) {
	segs := strings.Split(filepath.ToSlash(path), "/")
	for i := len(segs) - 2; i >= 0; i-- {
		if segs[i] != nodeModules {
			continue
		}
		name := segs[i+1]
		if strings.HasPrefix(name, "@") {
			if i+2 >= len(segs) {
				return "", false
			}
			name += "/" + segs[i+2]
		}
		if name == "" {
			return "", false
		}
		return name, true
	}
	return "", false
}

func sortedKeys(g Graph) []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func setToSorted(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
