// actorbundle turns TypeScript scraper actors into deployable packages.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/actorbundle/internal/bundle"
	"github.com/phobologic/actorbundle/internal/config"
	"github.com/phobologic/actorbundle/internal/ctxlog"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.ExecuteContext(context.Background())
}

// globalOptions are shared by every subcommand.
type globalOptions struct {
	root       string
	configPath string
	verbose    bool
}

type buildOptions struct {
	glob   string
	latest bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &globalOptions{}
	build := &buildOptions{}

	cmd := &cobra.Command{
		Use:           "actorbundle",
		Short:         "Bundle scraper actors into deployable packages",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), opts, build, stdout, stderr)
		},
	}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetVersionTemplate("actorbundle {{.Version}}\n")

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.root, "root", ".", "project root the glob is relative to")
	pf.StringVar(&opts.configPath, "config", "", "config file (default <root>/"+config.FileName+")")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log debug output")
	addBuildFlags(cmd, build)

	cmd.AddCommand(
		newBuildCmd(opts, stdout, stderr),
		newOverviewCmd(opts, stdout, stderr),
	)
	return cmd
}

func newBuildCmd(opts *globalOptions, stdout, stderr io.Writer) *cobra.Command {
	build := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build every actor matching the glob (the default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd.Context(), opts, build, stdout, stderr)
		},
	}
	addBuildFlags(cmd, build)
	return cmd
}

func addBuildFlags(cmd *cobra.Command, build *buildOptions) {
	f := cmd.Flags()
	f.StringVarP(&build.glob, "glob", "g", "", "source files to build (default from config)")
	f.BoolVar(&build.latest, "latest", false, "build only the most recently modified match")
}

func runBuild(ctx context.Context, opts *globalOptions, build *buildOptions, stdout, stderr io.Writer) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	ctx = ctxlog.WithLogger(ctx, newLogger(stderr, opts.verbose))

	glob := cfg.Glob
	if build.glob != "" {
		glob = build.glob
	}
	root, err := filepath.Abs(opts.root)
	if err != nil {
		return fmt.Errorf("resolving root: %w", err)
	}

	results, err := bundle.New(cfg).Run(ctx, root, glob, build.latest)
	for _, res := range results {
		_, _ = fmt.Fprintf(stdout, "%s\t%s\n", relTo(root, res.Source), relTo(root, res.DistDir))
	}
	return err
}

func loadConfig(opts *globalOptions) (config.Config, error) {
	path, required := opts.configPath, true
	if path == "" {
		path, required = filepath.Join(opts.root, config.FileName), false
	}
	return config.Load(path, required)
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func relTo(root, path string) string {
	if rel, err := filepath.Rel(root, path); err == nil {
		return filepath.ToSlash(rel)
	}
	return path
}
