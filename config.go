package spacetraveling

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string `yaml:"name"`        // Site name (default "spacetraveling")
	URL         string `yaml:"url"`         // Canonical URL (default "http://localhost:3000")
	Description string `yaml:"description"` // Site description for RSS and meta tags
	Locale      string `yaml:"locale"`      // UI and date locale: "pt-BR" (default) or "en"

	Addr string `yaml:"addr"` // Listen address (default ":3000")

	CMSEndpoint    string        `yaml:"cms_endpoint"`     // Required: CMS API root, e.g. https://repo.cdn.prismic.io/api/v2
	CMSAccessToken string        `yaml:"cms_access_token"` // Optional CMS access token
	CMSTimeout     time.Duration `yaml:"cms_timeout"`      // Upstream request timeout (default 10s)
	PageSize       int           `yaml:"page_size"`        // Posts per list page (default 2)

	PostCacheTTL time.Duration `yaml:"post_cache_ttl"` // Post cache TTL (default 5min)
	SnapshotPath string        `yaml:"snapshot_path"`  // SQLite snapshot of built posts; empty disables
	MediaDir     string        `yaml:"media_dir"`      // Resized banner cache; empty disables the proxy
	MediaHosts   []string      `yaml:"media_hosts"`    // Hosts banners may be fetched from (default images.prismic.io)

	SessionSecret string `yaml:"session_secret"` // Required: preview session encryption secret
	CookieSecure  bool   `yaml:"cookie_secure"`  // Set true for HTTPS
	WebhookSecret string `yaml:"webhook_secret"` // Shared secret for the revalidate webhook; empty disables it

	LogLevel string `yaml:"log_level"` // debug, info (default), warn, error, off
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimSuffix(c.URL, "/")
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.CMSTimeout == 0 {
		c.CMSTimeout = 10 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 2
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if len(c.MediaHosts) == 0 {
		c.MediaHosts = []string{"images.prismic.io"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

func (c *SiteConfig) validate() error {
	if c.CMSEndpoint == "" {
		return errors.New("spacetraveling: CMSEndpoint is required")
	}
	if c.SessionSecret == "" {
		return errors.New("spacetraveling: SessionSecret is required")
	}
	switch c.Locale {
	case "pt-BR", "en":
	default:
		return fmt.Errorf("spacetraveling: unknown locale %q (valid: pt-BR, en)", c.Locale)
	}
	return nil
}

// LoadConfig reads an optional YAML file and then applies environment
// overrides. A missing file is not an error when path is empty.
func LoadConfig(path string) (SiteConfig, error) {
	var cfg SiteConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("spacetraveling: reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return SiteConfig{}, fmt.Errorf("spacetraveling: parsing config %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return SiteConfig{}, err
	}
	cfg.setDefaults()
	return cfg, nil
}

func applyEnv(c *SiteConfig) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setString("SITE_NAME", &c.Name)
	setString("SITE_URL", &c.URL)
	setString("SITE_DESCRIPTION", &c.Description)
	setString("SITE_LOCALE", &c.Locale)
	setString("ADDR", &c.Addr)
	setString("PRISMIC_ENDPOINT", &c.CMSEndpoint)
	setString("PRISMIC_ACCESS_TOKEN", &c.CMSAccessToken)
	setString("SNAPSHOT_PATH", &c.SnapshotPath)
	setString("MEDIA_DIR", &c.MediaDir)
	setString("SESSION_SECRET", &c.SessionSecret)
	setString("REVALIDATE_SECRET", &c.WebhookSecret)
	setString("LOG_LEVEL", &c.LogLevel)

	if v := os.Getenv("MEDIA_HOSTS"); v != "" {
		c.MediaHosts = splitList(v)
	}
	if v := os.Getenv("COOKIE_SECURE"); v != "" {
		c.CookieSecure = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("spacetraveling: PAGE_SIZE: %w", err)
		}
		c.PageSize = n
	}
	for key, dst := range map[string]*time.Duration{
		"CMS_TIMEOUT":    &c.CMSTimeout,
		"POST_CACHE_TTL": &c.PostCacheTTL,
	} {
		if v := os.Getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("spacetraveling: %s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithSource replaces the CMS-backed content source. The cache still wraps it.
func WithSource(src ContentSource) Option {
	return func(a *App) {
		a.upstream = src
	}
}
