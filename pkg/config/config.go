// Package config loads tzmeet settings from a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Participant is a participant listed in the config file.
type Participant struct {
	Name     string   `yaml:"name" json:"name"`
	Country  string   `yaml:"country,omitempty" json:"country,omitempty"`
	Timezone string   `yaml:"timezone,omitempty" json:"timezone,omitempty"`
	Location string   `yaml:"location,omitempty" json:"location,omitempty"` // free-form address, geocoded when Timezone is empty
	Lat      *float64 `yaml:"lat,omitempty" json:"lat,omitempty"`
	Lng      *float64 `yaml:"lng,omitempty" json:"lng,omitempty"`
}

// Server holds settings used only by tzmeet-server.
type Server struct {
	// Port the HTTP server listens on.
	Port int `yaml:"port" json:"port"`

	// RateLimitPerMinute caps requests per client IP.
	RateLimitPerMinute int `yaml:"rate_limit_per_minute" json:"rate_limit_per_minute"`

	// PrewarmCountries are fetched for the current and next year on PrewarmSchedule.
	PrewarmCountries []string `yaml:"prewarm_countries" json:"prewarm_countries"`

	// PrewarmSchedule is a cron spec such as "@daily" or "0 3 * * *".
	PrewarmSchedule string `yaml:"prewarm_schedule" json:"prewarm_schedule"`

	// TrustProxy keys rate limits on X-Forwarded-For. Enable only behind a proxy that sets it.
	TrustProxy bool `yaml:"trust_proxy" json:"trust_proxy"`
}

// Config is the top-level application configuration.
type Config struct {
	Display      string        `yaml:"display" json:"display"`
	Awake        string        `yaml:"awake" json:"awake"`
	Filter       string        `yaml:"filter" json:"filter"`
	CacheDir     string        `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`
	MapsAPIKey   string        `yaml:"maps_api_key,omitempty" json:"-"`
	NagerBaseURL string        `yaml:"nager_base_url,omitempty" json:"nager_base_url,omitempty"`
	RedisAddr    string        `yaml:"redis_addr,omitempty" json:"redis_addr,omitempty"`
	Participants []Participant `yaml:"participants" json:"participants"`
	Server       Server        `yaml:"server" json:"server"`
	Offline      bool          `yaml:"offline" json:"offline"`
	NoCache      bool          `yaml:"no_cache" json:"no_cache"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Display:      "UTC",
		Awake:        "9-18",
		Filter:       "workday",
		Participants: []Participant{},
		Server: Server{
			Port:               8080,
			RateLimitPerMinute: 60,
			PrewarmCountries:   []string{},
			PrewarmSchedule:    "@daily",
		},
	}
}

// Normalize fills zero values with defaults so partial files behave.
func (c *Config) Normalize() {
	d := Default()
	if strings.TrimSpace(c.Display) == "" {
		c.Display = d.Display
	}
	if strings.TrimSpace(c.Awake) == "" {
		c.Awake = d.Awake
	}
	if strings.TrimSpace(c.Filter) == "" {
		c.Filter = d.Filter
	}
	if c.Participants == nil {
		c.Participants = []Participant{}
	}
	if c.Server.Port <= 0 {
		c.Server.Port = d.Server.Port
	}
	if c.Server.RateLimitPerMinute <= 0 {
		c.Server.RateLimitPerMinute = d.Server.RateLimitPerMinute
	}
	if c.Server.PrewarmSchedule == "" {
		c.Server.PrewarmSchedule = d.Server.PrewarmSchedule
	}
	if c.Server.PrewarmCountries == nil {
		c.Server.PrewarmCountries = []string{}
	}
	for i, cc := range c.Server.PrewarmCountries {
		c.Server.PrewarmCountries[i] = strings.ToUpper(strings.TrimSpace(cc))
	}
}

// Load reads the YAML file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// ApplyEnv overrides file values with environment variables, read through
// getenv so callers and tests can supply their own lookup.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("GOOGLE_MAPS_API_KEY"); v != "" {
		c.MapsAPIKey = v
	}
	if v := getenv("CACHE_DIR"); v != "" {
		c.CacheDir = v
	}
	if v := getenv("REDIS_ADDR"); v != "" {
		c.RedisAddr = v
	}
	if v := getenv("NAGER_BASE_URL"); v != "" {
		c.NagerBaseURL = v
	}
	if v := getenv("TRUST_PROXY"); v != "" {
		if trust, err := strconv.ParseBool(v); err == nil {
			c.Server.TrustProxy = trust
		}
	}
	if v := getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Server.Port = port
		}
	}
}

// DefaultPath returns the per-user config location, or "" if unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "tzmeet", "config.yaml")
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tzmeet-config-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp config: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("writing config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // already failing
		return fmt.Errorf("syncing config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing config: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("setting config permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing config: %w", err)
	}
	return nil
}

// Save writes c to path.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
