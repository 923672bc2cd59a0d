package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"
)

const (
	overviewStart = "<!-- <readme-overview> -->"
	overviewEnd   = "<!-- </readme-overview> -->"
)

func newOverviewCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "overview [README]",
		Short: "Write a table of all built actors into a README",
		Long: `Write a table of all built actors into a README.

The table is rendered from the collector dumps written next to each source and
wrapped in marker comments so it can be updated in place on subsequent runs
without touching surrounding content. Actors marked "@draft: true" are left
out. README defaults to <root>/README.md and is created if it does not exist.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			rows, err := loadOverviewRows(opts.root, cfg.Glob)
			if err != nil {
				return err
			}
			section := generateOverview(rows)

			path := filepath.Join(opts.root, "README.md")
			if len(args) > 0 {
				path = args[0]
			}
			existing, err := os.ReadFile(path)
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(stdout, updated)
				return nil
			}
			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			_, _ = fmt.Fprintf(stderr, "wrote overview of %d actors to %s\n", len(rows), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the updated README instead of writing it")
	return cmd
}

type overviewRow struct {
	Title   string
	Crawler string
}

// loadOverviewRows reads the collector dumps under the glob's base directory.
func loadOverviewRows(root, glob string) ([]overviewRow, error) {
	base, _ := doublestar.SplitPattern(filepath.ToSlash(glob))
	dir := filepath.FromSlash(base)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	matches, err := doublestar.Glob(os.DirFS(dir), "**/*.collector.json", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("finding collector dumps in %s: %w", dir, err)
	}
	sort.Strings(matches)

	var rows []overviewRow
	for _, m := range matches {
		if strings.Contains(m, "node_modules/") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(m)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", m, err)
		}
		var dump struct {
			Frontmatter map[string]any `json:"frontmatter"`
			CrawlerName string         `json:"crawlerName"`
		}
		if err := json.Unmarshal(data, &dump); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", m, err)
		}
		if draft, _ := dump.Frontmatter["draft"].(bool); draft {
			continue
		}
		title, _ := dump.Frontmatter["title"].(string)
		rows = append(rows, overviewRow{Title: title, Crawler: dump.CrawlerName})
	}
	return rows, nil
}

// generateOverview returns the marker-wrapped actor table.
func generateOverview(rows []overviewRow) string {
	var b strings.Builder
	b.WriteString(overviewStart + "\n")
	b.WriteString("|Title|Crawler|\n|---|---|\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "|%s|%s|\n", r.Title, r.Crawler)
	}
	b.WriteString(overviewEnd)
	return b.String()
}

// applySection inserts section into content, replacing an existing marker
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, overviewStart)
	end := strings.Index(content, overviewEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(overviewEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
