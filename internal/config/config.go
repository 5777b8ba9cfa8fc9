package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all statsgen configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// GitHub API access
	Auth AuthConfig `yaml:"auth"`

	// GraphQL client behavior
	API APIConfig `yaml:"api"`

	// Commit/LOC cache
	Cache CacheConfig `yaml:"cache"`

	// Local run state (never committed)
	State StateConfig `yaml:"state"`

	// SVG rendering
	SVG SVGConfig `yaml:"svg"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// AuthConfig carries the credentials the generator runs with.
type AuthConfig struct {
	Token string `yaml:"token"`
	Login string `yaml:"login"`
}

// APIConfig configures the GraphQL client.
type APIConfig struct {
	BaseURL            string `yaml:"base_url"`
	Timeout            string `yaml:"timeout"`
	MaxRetries         int    `yaml:"max_retries"`
	MinRequestInterval string `yaml:"min_request_interval"`
	UserAgent          string `yaml:"user_agent"`
}

// CacheConfig configures the on-disk commit cache.
type CacheConfig struct {
	Dir          string `yaml:"dir"`
	CommentLines int    `yaml:"comment_lines"`
	ArchiveFile  string `yaml:"archive_file"`
}

// StateConfig configures where run-local state lives. The state directory is
// gitignored: the cache directory is committed, so anything that changes on
// every run (usage counts, debug logs) must stay out of it or CI commits
// noise even when the statistics did not move.
type StateConfig struct {
	Dir       string `yaml:"dir"`
	UsageFile string `yaml:"usage_file"`
}

// SVGConfig configures the rendered themes and their tspan slots.
type SVGConfig struct {
	DarkTheme  string `yaml:"dark_theme"`
	LightTheme string `yaml:"light_theme"`
	Slots      Slots  `yaml:"slots"`
}

// Slots maps each statistic to the document-order tspan index it overwrites.
type Slots struct {
	Repos       int `yaml:"repos"`
	Contributed int `yaml:"contributed"`
	Stars       int `yaml:"stars"`
	Commits     int `yaml:"commits"`
	Issues      int `yaml:"issues"`
	PullReqs    int `yaml:"pull_requests"`
	LOCNet      int `yaml:"loc_net"`
	LOCAdded    int `yaml:"loc_added"`
	LOCDeleted  int `yaml:"loc_deleted"`
}

// Max returns the highest slot index, used to validate a parsed document.
func (s Slots) Max() int {
	max := s.Repos
	for _, v := range []int{s.Contributed, s.Stars, s.Commits, s.Issues, s.PullReqs, s.LOCNet, s.LOCAdded, s.LOCDeleted} {
		if v > max {
			max = v
		}
	}
	return max
}

// LoggingConfig configures the categorized debug logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "statsgen",
		Version: "1.2.0",

		API: APIConfig{
			BaseURL:            "https://api.github.com/graphql",
			Timeout:            "120s",
			MaxRetries:         3,
			MinRequestInterval: "100ms",
			UserAgent:          "statsgen",
		},

		Cache: CacheConfig{
			Dir:          "cache",
			CommentLines: 7,
			ArchiveFile:  "repository_archive.txt",
		},

		State: StateConfig{
			Dir:       ".statsgen",
			UsageFile: "usage.json",
		},

		SVG: SVGConfig{
			DarkTheme:  "assets/dark_mode.svg",
			LightTheme: "assets/light_mode.svg",
			Slots: Slots{
				Repos:       34,
				Contributed: 36,
				Stars:       38,
				Commits:     40,
				Issues:      42,
				PullReqs:    44,
				LOCNet:      46,
				LOCAdded:    47,
				LOCDeleted:  48,
			},
		},

		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, then applies environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	// The generator historically bootstraps credentials from a local .env.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
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

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// ACCESS_TOKEN is the name the CI workflow injects; GITHUB_TOKEN is the
	// token Actions provides by default and only fills an empty config.
	if token := os.Getenv("ACCESS_TOKEN"); token != "" {
		c.Auth.Token = token
	} else if token := os.Getenv("GITHUB_TOKEN"); token != "" && c.Auth.Token == "" {
		c.Auth.Token = token
	}

	if login := os.Getenv("USER_NAME"); login != "" {
		c.Auth.Login = login
	}

	if dir := os.Getenv("STATSGEN_CACHE_DIR"); dir != "" {
		c.Cache.Dir = dir
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Auth.Token == "" {
		return fmt.Errorf("access token not configured (set ACCESS_TOKEN or auth.token)")
	}
	if c.Auth.Login == "" {
		return fmt.Errorf("user login not configured (set USER_NAME or auth.login)")
	}
	return nil
}

// GetAPITimeout returns the API timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// GetMinRequestInterval returns the request spacing as a duration.
func (c *Config) GetMinRequestInterval() time.Duration {
	d, err := time.ParseDuration(c.API.MinRequestInterval)
	if err != nil {
		return 100 * time.Millisecond
	}
	return d
}

// CachePath returns the path of a file inside the cache directory.
func (c *Config) CachePath(name string) string {
	return filepath.Join(c.Cache.Dir, name)
}

// StatePath returns the path of a file inside the state directory.
func (c *Config) StatePath(name string) string {
	return filepath.Join(c.State.Dir, name)
}
