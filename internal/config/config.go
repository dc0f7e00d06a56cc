// Package config provides configuration management for the site server using
// Viper, loading from YAML files and environment variables with a STRANKA_
// prefix. It covers both hosts: the origin server reads the server, site,
// security, content and newsletter sections; the edge proxy reads the edge
// section plus the shared site and security sections.
//
// The site and security sections are the ones that must stay identical
// between the origin and edge deployments; `stranka validate` compares them
// across two config files and reports drift.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/stranka-dev/stranka/internal/locale"
	"github.com/stranka-dev/stranka/internal/security"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Edge        EdgeConfig        `mapstructure:"edge"`
	Site        SiteConfig        `mapstructure:"site"`
	Security    SecurityConfig    `mapstructure:"security"`
	Content     ContentConfig     `mapstructure:"content"`
	Newsletter  NewsletterConfig  `mapstructure:"newsletter"`
	Development DevelopmentConfig `mapstructure:"development"`
	Log         LogConfig         `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Environment string `mapstructure:"environment"`
	BaseURL     string `mapstructure:"base_url"`
	StaticDir   string `mapstructure:"static_dir"`
}

type EdgeConfig struct {
	Listen    string `mapstructure:"listen"`
	OriginURL string `mapstructure:"origin_url"`
}

type SiteConfig struct {
	Name          string                      `mapstructure:"name"`
	DefaultLocale string                      `mapstructure:"default_locale"`
	Locales       map[string]SiteLocaleConfig `mapstructure:"locales"`
	Domains       map[string]string           `mapstructure:"domains"`
}

type SiteLocaleConfig struct {
	Name string `mapstructure:"name"`
}

type SecurityConfig struct {
	FrameOptions     string `mapstructure:"frame_options"`
	AnalyticsOrigin  string `mapstructure:"analytics_origin"`
	FontsOrigin      string `mapstructure:"fonts_origin"`
	NewsletterOrigin string `mapstructure:"newsletter_origin"`
	DemoEmbedOrigin  string `mapstructure:"demo_embed_origin"`
}

type ContentConfig struct {
	Dir             string `mapstructure:"dir"`
	TranslationsDir string `mapstructure:"translations_dir"`
}

type NewsletterConfig struct {
	Endpoint string        `mapstructure:"endpoint"`
	APIKey   string        `mapstructure:"api_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DevelopmentConfig struct {
	HotReload bool `mapstructure:"hot_reload"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// IsDev reports whether the origin host runs with the development policy.
// The edge host is production-only by construction and never consults this.
func (c *Config) IsDev() bool {
	return c.Server.Environment != "production"
}

// Registry builds the immutable locale registry from the site section.
func (c *Config) Registry() (*locale.Registry, error) {
	supported := make(map[locale.Locale]locale.Config, len(c.Site.Locales))
	for code, lc := range c.Site.Locales {
		supported[locale.Locale(code)] = locale.Config{Name: lc.Name}
	}
	domains := make(map[string]locale.Locale, len(c.Site.Domains))
	for host, code := range c.Site.Domains {
		domains[host] = locale.Locale(code)
	}
	return locale.NewRegistry(locale.Locale(c.Site.DefaultLocale), supported, domains)
}

// Sources returns the CSP origin set from the security section.
func (c *Config) Sources() security.Sources {
	return security.Sources{
		Analytics:     c.Security.AnalyticsOrigin,
		Fonts:         c.Security.FontsOrigin,
		NewsletterAPI: c.Security.NewsletterOrigin,
		DemoEmbed:     c.Security.DemoEmbedOrigin,
	}
}

// Load reads configuration from the globally initialized Viper instance
// (cmd/root.go wires the config file and STRANKA_ environment variables) and
// applies defaults for anything unset.
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads a specific config file on a fresh Viper instance. Used by
// `stranka validate` to compare two deployment configs side by side.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Environment == "" {
		cfg.Server.Environment = "development"
	}
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = fmt.Sprintf("http://%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = "static"
	}

	if cfg.Edge.Listen == "" {
		cfg.Edge.Listen = ":8443"
	}
	if cfg.Edge.OriginURL == "" {
		cfg.Edge.OriginURL = "http://localhost:8080"
	}

	if cfg.Site.Name == "" {
		cfg.Site.Name = "Stranka"
	}
	if cfg.Site.DefaultLocale == "" {
		cfg.Site.DefaultLocale = string(locale.English)
	}
	if len(cfg.Site.Locales) == 0 {
		cfg.Site.Locales = map[string]SiteLocaleConfig{
			string(locale.English): {Name: "English"},
			string(locale.Czech):   {Name: "Čeština"},
		}
	}
	if len(cfg.Site.Domains) == 0 {
		cfg.Site.Domains = map[string]string{
			"example.com": string(locale.English),
			"example.cz":  string(locale.Czech),
		}
	}

	defaults := security.DefaultSources()
	if cfg.Security.FrameOptions == "" {
		cfg.Security.FrameOptions = security.DefaultFrameOptions
	}
	if cfg.Security.AnalyticsOrigin == "" {
		cfg.Security.AnalyticsOrigin = defaults.Analytics
	}
	if cfg.Security.FontsOrigin == "" {
		cfg.Security.FontsOrigin = defaults.Fonts
	}
	if cfg.Security.NewsletterOrigin == "" {
		cfg.Security.NewsletterOrigin = defaults.NewsletterAPI
	}
	if cfg.Security.DemoEmbedOrigin == "" {
		cfg.Security.DemoEmbedOrigin = defaults.DemoEmbed
	}

	if cfg.Content.Dir == "" {
		cfg.Content.Dir = "content"
	}
	if cfg.Content.TranslationsDir == "" {
		cfg.Content.TranslationsDir = "translations"
	}

	if cfg.Newsletter.Endpoint == "" {
		cfg.Newsletter.Endpoint = cfg.Security.NewsletterOrigin + "/v1/subscribers"
	}
	if cfg.Newsletter.Timeout == 0 {
		cfg.Newsletter.Timeout = 10 * time.Second
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// Validate rejects configurations that would produce an inconsistent site:
// unknown default locale, domains mapped to unknown locales, out-of-range
// ports, and non-HTTPS external origins.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d out of range", c.Server.Port)
	}
	if _, ok := c.Site.Locales[c.Site.DefaultLocale]; !ok {
		return fmt.Errorf("config: site.default_locale %q is not a configured locale", c.Site.DefaultLocale)
	}
	for host, code := range c.Site.Domains {
		if _, ok := c.Site.Locales[code]; !ok {
			return fmt.Errorf("config: site.domains[%q] maps to unknown locale %q", host, code)
		}
	}
	switch c.Security.FrameOptions {
	case "SAMEORIGIN", "DENY":
	default:
		return fmt.Errorf("config: security.frame_options must be SAMEORIGIN or DENY, got %q", c.Security.FrameOptions)
	}
	for _, origin := range []string{
		c.Security.AnalyticsOrigin,
		c.Security.FontsOrigin,
		c.Security.NewsletterOrigin,
		c.Security.DemoEmbedOrigin,
	} {
		if err := validateOrigin(origin); err != nil {
			return err
		}
	}
	if _, err := url.Parse(c.Edge.OriginURL); err != nil {
		return fmt.Errorf("config: edge.origin_url: %w", err)
	}
	return nil
}

func validateOrigin(origin string) error {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return fmt.Errorf("config: invalid origin %q: %w", origin, err)
	}
	if u.Scheme != "https" {
		return fmt.Errorf("config: origin %q must use https", origin)
	}
	if u.Host == "" || strings.Contains(origin, " ") {
		return fmt.Errorf("config: invalid origin %q", origin)
	}
	return nil
}
