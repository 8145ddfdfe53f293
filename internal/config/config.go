package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

const appName = "portfolio"

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

type ServerConfig struct {
	Addr       string `yaml:"addr"`
	SessionTTL string `yaml:"session_ttl"`
	LoginRate  int    `yaml:"login_rate"` // attempts per minute per client
	// TrustedProxies may set X-Forwarded-For. Empty means the peer address
	// identifies the client.
	TrustedProxies []string `yaml:"trusted_proxies"`
}

// SiteConfig is the identity of the portfolio owner, used for page metadata
// and the about page.
type SiteConfig struct {
	Name        string   `yaml:"name"`
	Tagline     string   `yaml:"tagline"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	Author      string   `yaml:"author"`
	Email       string   `yaml:"email"`
	Keywords    []string `yaml:"keywords"`
	About       string   `yaml:"about"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type Config struct {
	API             APIConfig     `yaml:"api"`
	RefreshInterval string        `yaml:"refresh_interval"`
	Retention       string        `yaml:"retention"`
	Server          ServerConfig  `yaml:"server"`
	Site            SiteConfig    `yaml:"site"`
	Logging         LoggingConfig `yaml:"logging"`
}

// RefreshDuration is how long a cached collection is served without refetching.
func (c *Config) RefreshDuration() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d < 0 {
		return 15 * time.Minute
	}
	return d
}

func (c *Config) RetentionDuration() time.Duration {
	if d, err := ParseDays(c.Retention); err == nil && d > 0 {
		return d
	}
	return 30 * 24 * time.Hour
}

func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.Server.SessionTTL)
	if err != nil || d <= 0 {
		return 12 * time.Hour
	}
	return d
}

// ParseDays parses a Go duration, additionally accepting the "Nd" day syntax.
func ParseDays(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

func CachePath() string {
	return filepath.Join(xdg.CacheHome, appName, "content.db")
}

// TokenPath is where the CLI keeps the admin token between runs.
func TokenPath() string {
	return filepath.Join(xdg.StateHome, appName, "token")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

// Load reads the config at path (or the default location), layering it over
// the embedded defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Non-fatal: the embedded defaults still apply.
		_ = writeDefaults(path)
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PORTFOLIO_API_URL")); v != "" {
		cfg.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("PORTFOLIO_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	u, err := url.Parse(cfg.API.BaseURL)
	if err != nil {
		return fmt.Errorf("api.base_url: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("api.base_url: scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("api.base_url: host is required")
	}
	if cfg.Server.LoginRate <= 0 {
		return fmt.Errorf("server.login_rate must be positive, got %d", cfg.Server.LoginRate)
	}
	return nil
}
