// Package config loads huntql settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/roach88/huntql/internal/index"
	"github.com/roach88/huntql/internal/ir"
	"github.com/roach88/huntql/internal/platform"
)

// CacheFileName is the corpus database inside the cache directory.
const CacheFileName = "index.db"

// Config holds all huntql configuration.
type Config struct {
	// SchemaRoot holds one subdirectory per platform (kql, cbc, cortex, s1).
	// Platforms without a directory use the embedded schemas.
	SchemaRoot string `yaml:"schema_root"`

	// Schemas overrides the directory of individual platforms. Keys accept
	// any platform alias.
	Schemas map[string]string `yaml:"schemas"`

	// MaxLimits overrides the per-platform row limit ceiling.
	MaxLimits map[string]int `yaml:"max_limits"`

	Index   IndexConfig   `yaml:"index"`
	Builder BuilderConfig `yaml:"builder"`
	Watch   WatchConfig   `yaml:"watch"`
	Logging LoggingConfig `yaml:"logging"`
}

// IndexConfig configures the document index and its on-disk cache.
type IndexConfig struct {
	CacheDir       string  `yaml:"cache_dir"`
	NoCache        bool    `yaml:"no_cache"`
	MinScore       float64 `yaml:"min_score"`
	BuildPoolSize  int     `yaml:"build_pool_size"`
	SearchCacheTTL string  `yaml:"search_cache_ttl"`
}

type BuilderConfig struct {
	HintLimit int `yaml:"hint_limit"`
}

type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

type LoggingConfig struct {
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Schemas:   map[string]string{},
		MaxLimits: map[string]int{},
		Index: IndexConfig{
			CacheDir:       defaultCacheDir(),
			MinScore:       index.DefaultMinScore,
			BuildPoolSize:  index.DefaultBuildPoolSize,
			SearchCacheTTL: index.DefaultSearchCacheTTL.String(),
		},
		Builder: BuilderConfig{HintLimit: 5},
		Watch:   WatchConfig{Debounce: "500ms"},
	}
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ".huntql"
	}
	return filepath.Join(dir, "huntql")
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides apply in both cases and the result is
// validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies HUNTQL_* environment variables.
func (c *Config) applyEnvOverrides() error {
	if dir := os.Getenv("HUNTQL_CACHE_DIR"); dir != "" {
		c.Index.CacheDir = dir
	}
	if root := os.Getenv("HUNTQL_SCHEMA_ROOT"); root != "" {
		c.SchemaRoot = root
	}
	if s := os.Getenv("HUNTQL_MIN_SCORE"); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("HUNTQL_MIN_SCORE: %w", err)
		}
		c.Index.MinScore = v
	}
	if s := os.Getenv("HUNTQL_LOG_VERBOSE"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("HUNTQL_LOG_VERBOSE: %w", err)
		}
		c.Logging.Verbose = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	for name := range c.Schemas {
		if !platform.ParseID(name).Valid() {
			return fmt.Errorf("schemas: unknown platform %q (valid: %v)", name, ir.AllPlatforms())
		}
	}
	for name, n := range c.MaxLimits {
		if !platform.ParseID(name).Valid() {
			return fmt.Errorf("max_limits: unknown platform %q (valid: %v)", name, ir.AllPlatforms())
		}
		if n <= 0 {
			return fmt.Errorf("max_limits: %s must be positive, got %d", name, n)
		}
	}
	if c.Index.MinScore < 0 || c.Index.MinScore > 1 {
		return fmt.Errorf("index.min_score must be within [0,1], got %v", c.Index.MinScore)
	}
	if c.Index.BuildPoolSize < 0 {
		return fmt.Errorf("index.build_pool_size must not be negative, got %d", c.Index.BuildPoolSize)
	}
	if c.Builder.HintLimit < 0 {
		return fmt.Errorf("builder.hint_limit must not be negative, got %d", c.Builder.HintLimit)
	}
	if _, err := parseDuration("index.search_cache_ttl", c.Index.SearchCacheTTL); err != nil {
		return err
	}
	if _, err := parseDuration("watch.debounce", c.Watch.Debounce); err != nil {
		return err
	}
	return nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %s", key, s)
	}
	return d, nil
}

// SchemaDir returns the schema directory for id, or "" when the platform
// uses its embedded schema.
func (c *Config) SchemaDir(id ir.PlatformID) string {
	for name, dir := range c.Schemas {
		if platform.ParseID(name) == id && dir != "" {
			return dir
		}
	}
	if c.SchemaRoot != "" {
		return filepath.Join(c.SchemaRoot, string(id))
	}
	return ""
}

// SchemaDirs returns the configured directory of every platform that has one,
// in canonical platform order.
func (c *Config) SchemaDirs() map[ir.PlatformID]string {
	out := make(map[ir.PlatformID]string)
	for _, id := range ir.AllPlatforms() {
		if dir := c.SchemaDir(id); dir != "" {
			out[id] = dir
		}
	}
	return out
}

// Limits returns the max limit overrides keyed by platform ID.
func (c *Config) Limits() map[ir.PlatformID]int {
	out := make(map[ir.PlatformID]int, len(c.MaxLimits))
	for name, n := range c.MaxLimits {
		out[platform.ParseID(name)] = n
	}
	return out
}

// CachePath returns the corpus database path, or "" when caching is off.
func (c *Config) CachePath() string {
	if c.Index.NoCache || c.Index.CacheDir == "" {
		return ""
	}
	return filepath.Join(c.Index.CacheDir, CacheFileName)
}

// GetSearchCacheTTL returns the search cache TTL, falling back to the index
// default.
func (c *Config) GetSearchCacheTTL() time.Duration {
	d, err := parseDuration("", c.Index.SearchCacheTTL)
	if err != nil || d == 0 {
		return index.DefaultSearchCacheTTL
	}
	return d
}

// GetDebounce returns the watcher debounce, falling back to 500ms.
func (c *Config) GetDebounce() time.Duration {
	d, err := parseDuration("", c.Watch.Debounce)
	if err != nil || d == 0 {
		return 500 * time.Millisecond
	}
	return d
}
