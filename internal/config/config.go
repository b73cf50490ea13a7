// Package config loads sitegraph.yaml, merges it over defaults and exposes
// typed settings plus a deterministic hash of the merged mapping.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	foundationerrors "git.home.luguber.info/inful/sitegraph/internal/foundation/errors"
	"git.home.luguber.info/inful/sitegraph/internal/pathresolve"
)

// DefaultFileName is the configuration file looked up in the site root.
const DefaultFileName = "sitegraph.yaml"

// Path is a filesystem path setting, relative paths are taken against the
// site root.
type Path string

func (p Path) String() string { return string(p) }

// ChangedSetPolicy decides how a caller-supplied changed set combines with
// hashing.
type ChangedSetPolicy string

const (
	// PolicyTrust hashes only hinted files and files unknown to the cache.
	PolicyTrust ChangedSetPolicy = "trust"
	// PolicyVerify ignores the hint and hashes every candidate.
	PolicyVerify ChangedSetPolicy = "verify"
)

// Config is the typed site configuration.
type Config struct {
	Title      string         `yaml:"title"`
	BaseURL    string         `yaml:"base_url"`
	ContentDir Path           `yaml:"content_dir"`
	OutputDir  Path           `yaml:"output_dir"`
	StaticDir  Path           `yaml:"static_dir"`
	LayoutsDir Path           `yaml:"layouts_dir"`
	Taxonomies []string       `yaml:"taxonomies"`
	Params     map[string]any `yaml:"params"`
	Build      BuildConfig    `yaml:"build"`
	Cache      CacheConfig    `yaml:"cache"`
	History    HistoryConfig  `yaml:"history"`
	Watch      WatchConfig    `yaml:"watch"`
	Metrics    MetricsConfig  `yaml:"metrics"`

	root   string
	source string
	raw    map[string]any
	hash   string
}

// BuildConfig controls the build orchestrator.
type BuildConfig struct {
	Parallel bool `yaml:"parallel"`
	// Workers is the render pool size; zero means GOMAXPROCS.
	Workers int `yaml:"workers"`
	// Incremental nil means auto: incremental when a persisted cache loads.
	Incremental      *bool            `yaml:"incremental"`
	Strict           bool             `yaml:"strict"`
	ChangedSetPolicy ChangedSetPolicy `yaml:"changed_set_policy"`
	PrettyURLs       bool             `yaml:"pretty_urls"`
}

type CacheConfig struct {
	Path        Path   `yaml:"path"`
	LegacyPaths []Path `yaml:"legacy_paths"`
}

type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	Path    Path `yaml:"path"`
	Keep    int  `yaml:"keep"`
}

type WatchConfig struct {
	Debounce            time.Duration `yaml:"debounce"`
	FullRebuildInterval time.Duration `yaml:"full_rebuild_interval"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads the configuration for the site at root. An empty file argument
// means root/sitegraph.yaml; a missing default file yields the defaults.
// A .env file in root is loaded first without overriding the environment.
func Load(root, file string) (*Config, error) {
	if !filepath.IsAbs(root) {
		return nil, foundationerrors.ConfigError("site root must be absolute").
			WithContext("root", root).Build()
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, foundationerrors.ConfigError("site root is not a readable directory").
			WithContext("root", root).WithCause(err).Build()
	}

	if err := LoadEnv(root); err != nil {
		return nil, foundationerrors.ConfigError("failed to load .env").WithCause(err).Build()
	}

	explicit := file != ""
	if !explicit {
		file = DefaultFileName
	}
	path, err := pathresolve.Resolve(file, root)
	if err != nil {
		return nil, foundationerrors.ConfigError("invalid configuration path").WithCause(err).Build()
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		return FromMap(root, nil)
	case err != nil:
		return nil, foundationerrors.ConfigError("failed to read configuration").
			WithContext("file", path).WithCause(err).Build()
	}

	raw, err := Parse(data)
	if err != nil {
		return nil, foundationerrors.ConfigError("malformed configuration").
			WithContext("file", path).WithCause(err).Build()
	}

	cfg, err := FromMap(root, raw)
	if err != nil {
		return nil, err
	}
	cfg.source = path
	return cfg, nil
}

// Parse expands ${VAR} references and decodes YAML into a raw mapping.
func Parse(data []byte) (map[string]any, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// FromMap merges raw over the defaults, decodes the typed configuration and
// computes its hash. root must be absolute.
func FromMap(root string, raw map[string]any) (*Config, error) {
	merged := Merge(Defaults(), raw)

	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, foundationerrors.InternalError("failed to re-encode configuration").WithCause(err).Build()
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, foundationerrors.ConfigError("configuration has invalid values").WithCause(err).Build()
	}
	cfg.root = root
	cfg.raw = merged

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	hash, err := Hash(hashInput(merged))
	if err != nil {
		return nil, foundationerrors.ConfigError("failed to hash configuration").WithCause(err).Build()
	}
	cfg.hash = hash
	return cfg, nil
}

// Merge deep-merges override over base and returns a new map. Nested
// mappings merge key by key; any other value in override replaces base.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	maps.Copy(out, base)
	for k, v := range override {
		bm, baseIsMap := out[k].(map[string]any)
		om, overrideIsMap := v.(map[string]any)
		if baseIsMap && overrideIsMap {
			out[k] = Merge(bm, om)
			continue
		}
		out[k] = v
	}
	return out
}

// hashInput treats taxonomies as a set so reordering them does not change
// the hash.
func hashInput(merged map[string]any) map[string]any {
	in := maps.Clone(merged)
	if tx, ok := merged["taxonomies"].([]any); ok {
		set := make(map[string]struct{}, len(tx))
		for _, t := range tx {
			set[fmt.Sprint(t)] = struct{}{}
		}
		in["taxonomies"] = set
	}
	return in
}

// Root returns the absolute site root.
func (c *Config) Root() string { return c.root }

// SourceFile returns the configuration file read, or "" for defaults only.
func (c *Config) SourceFile() string { return c.source }

// Hash returns the configuration hash of the merged mapping.
func (c *Config) Hash() string { return c.hash }

// Raw returns a copy of the merged configuration mapping.
func (c *Config) Raw() map[string]any { return maps.Clone(c.raw) }

// Abs resolves a path setting against the site root.
func (c *Config) Abs(p Path) string {
	if p == "" {
		return c.root
	}
	resolved, err := pathresolve.Resolve(string(p), c.root)
	if err != nil {
		return filepath.Join(c.root, string(p))
	}
	return resolved
}

func (c *Config) ContentPath() string { return c.Abs(c.ContentDir) }
func (c *Config) OutputPath() string  { return c.Abs(c.OutputDir) }
func (c *Config) StaticPath() string  { return c.Abs(c.StaticDir) }
func (c *Config) LayoutsPath() string { return c.Abs(c.LayoutsDir) }
func (c *Config) CachePath() string   { return c.Abs(c.Cache.Path) }
func (c *Config) HistoryPath() string { return c.Abs(c.History.Path) }

// LegacyCachePaths returns the absolute legacy cache locations.
func (c *Config) LegacyCachePaths() []string {
	out := make([]string, 0, len(c.Cache.LegacyPaths))
	for _, p := range c.Cache.LegacyPaths {
		out = append(out, c.Abs(p))
	}
	return out
}
