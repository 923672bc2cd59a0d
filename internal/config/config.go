// Package config loads actorbundle settings from an optional YAML file, a
// .env file and ACTORBUNDLE_* environment variables, in increasing priority.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/phobologic/actorbundle/internal/crawler"
	"github.com/phobologic/actorbundle/internal/frontmatter"
)

// FileName is the config file looked up in the working directory.
const FileName = "actorbundle.yaml"

// Config holds the build tunables.
type Config struct {
	Glob                string `yaml:"glob"`
	DistSuffix          string `yaml:"dist_suffix"`
	NodeVersion         string `yaml:"node_version"`
	TimeoutSecs         int    `yaml:"timeout_secs"`
	MemoryMbytes        int    `yaml:"memory_mbytes"`
	BrowserMemoryMbytes int    `yaml:"browser_memory_mbytes"`
	DefaultVersion      string `yaml:"default_version"`
	DefaultBuildTag     string `yaml:"default_build_tag"`
	WriteCollector      bool   `yaml:"write_collector"`
	ImportCacheSize     int    `yaml:"import_cache_size"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Glob:                "actors/*.ts",
		DistSuffix:          "-dist",
		NodeVersion:         crawler.DefaultSettings.NodeVersion,
		TimeoutSecs:         crawler.DefaultSettings.TimeoutSecs,
		MemoryMbytes:        crawler.DefaultSettings.MemoryMbytes,
		BrowserMemoryMbytes: crawler.DefaultSettings.BrowserMemoryMbytes,
		DefaultVersion:      "0.1",
		DefaultBuildTag:     crawler.DefaultSettings.Build,
		WriteCollector:      true,
		ImportCacheSize:     256,
	}
}

// Load reads the config file at path over the defaults. A missing file is
// only an error when required is set. A .env file next to the config file is
// loaded into the process environment without overriding variables already
// set, then ACTORBUNDLE_* variables are applied.
func Load(path string, required bool) (Config, error) {
	cfg := Default()

	envFile := filepath.Join(filepath.Dir(path), ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return cfg, fmt.Errorf("loading %s: %w", envFile, err)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("ACTORBUNDLE_GLOB"); ok && v != "" {
		c.Glob = v
	}
	if v, ok := lookup("ACTORBUNDLE_DIST_SUFFIX"); ok && v != "" {
		c.DistSuffix = v
	}
	if v, ok := lookup("ACTORBUNDLE_NODE_VERSION"); ok && v != "" {
		c.NodeVersion = v
	}
	if v, ok := lookup("ACTORBUNDLE_WRITE_COLLECTOR"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ACTORBUNDLE_WRITE_COLLECTOR: %w", err)
		}
		c.WriteCollector = b
	}
	return nil
}

// Validate rejects settings that would produce unusable artifacts.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Glob) == "" {
		errs = append(errs, errors.New("glob must not be empty"))
	}
	if c.DistSuffix == "" {
		errs = append(errs, errors.New("dist_suffix must not be empty"))
	}
	if c.TimeoutSecs <= 0 {
		errs = append(errs, fmt.Errorf("timeout_secs must be positive, got %d", c.TimeoutSecs))
	}
	if c.MemoryMbytes <= 0 || c.BrowserMemoryMbytes <= 0 {
		errs = append(errs, errors.New("memory limits must be positive"))
	}
	return errors.Join(errs...)
}

// CrawlerSettings returns the inputs of the crawler recipe.
func (c Config) CrawlerSettings() crawler.Settings {
	return crawler.Settings{
		NodeVersion:         c.NodeVersion,
		Build:               c.DefaultBuildTag,
		TimeoutSecs:         c.TimeoutSecs,
		MemoryMbytes:        c.MemoryMbytes,
		BrowserMemoryMbytes: c.BrowserMemoryMbytes,
	}
}

// FrontmatterDefaults returns the values filled in for missing keys.
func (c Config) FrontmatterDefaults() frontmatter.Defaults {
	return frontmatter.Defaults{
		Version:  c.DefaultVersion,
		BuildTag: c.DefaultBuildTag,
	}
}
