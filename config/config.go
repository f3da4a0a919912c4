package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ScrapeConfig holds orchestration settings for site scrapers
type ScrapeConfig struct {
	LimiterCapacity int                   `mapstructure:"limiter_capacity"`
	Backoff         time.Duration         `mapstructure:"backoff"`
	RequestTimeout  time.Duration         `mapstructure:"request_timeout"`
	CatalogPath     string                `mapstructure:"catalog_path"`
	Warmup          bool                  `mapstructure:"warmup"`
	Sites           map[string]SiteConfig `mapstructure:"sites"`
}

// SiteConfig is the per-site attempt timeout and attempt budget.
// Keys are site names, matched case-insensitively.
type SiteConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
	Retries int           `mapstructure:"retries"`
}

// RegistryConfig holds background job retention settings
type RegistryConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	MaxEntries      int           `mapstructure:"max_entries"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP        float64 `mapstructure:"per_ip"` // inbound requests per second per client
	PerIPBurst   int     `mapstructure:"per_ip_burst"`
	PerSite      float64 `mapstructure:"per_site"` // outbound requests per second per host
	PerSiteBurst int     `mapstructure:"per_site_burst"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/worthit/")

	// Environment variable settings
	v.SetEnvPrefix("WORTHIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout", "10s")

	// Scrape defaults
	v.SetDefault("scrape.limiter_capacity", 4)
	v.SetDefault("scrape.backoff", "1s")
	v.SetDefault("scrape.request_timeout", "30s")
	v.SetDefault("scrape.catalog_path", "")
	v.SetDefault("scrape.warmup", true)
	// Site keys are slugs so WORTHIT_SCRAPE_SITES_<SLUG>_TIMEOUT can reach them
	v.SetDefault("scrape.sites", map[string]interface{}{
		"croma":             map[string]interface{}{"timeout": "25s", "retries": 2},
		"flipkart":          map[string]interface{}{"timeout": "30s", "retries": 2},
		"amazon":            map[string]interface{}{"timeout": "30s", "retries": 2},
		"reliance_digital":  map[string]interface{}{"timeout": "60s", "retries": 2},
		"poorvika":          map[string]interface{}{"timeout": "60s", "retries": 2},
		"pai_international": map[string]interface{}{"timeout": "60s", "retries": 2},
		"sangeetha":         map[string]interface{}{"timeout": "60s", "retries": 2},
	})

	// Registry defaults
	v.SetDefault("registry.ttl", "30m")
	v.SetDefault("registry.max_entries", 500)
	v.SetDefault("registry.cleanup_interval", "5m")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 5)
	v.SetDefault("ratelimit.per_ip_burst", 10)
	v.SetDefault("ratelimit.per_site", 2)
	v.SetDefault("ratelimit.per_site_burst", 4)

	// Log defaults
	v.SetDefault("log.level", "info")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Port == "" {
		return fmt.Errorf("server port is required (set WORTHIT_SERVER_PORT)")
	}

	if config.Scrape.LimiterCapacity < 1 {
		return fmt.Errorf("scrape limiter capacity must be at least 1, got: %d", config.Scrape.LimiterCapacity)
	}

	if config.Scrape.Backoff < 0 {
		return fmt.Errorf("scrape backoff must not be negative, got: %s", config.Scrape.Backoff)
	}

	for name, site := range config.Scrape.Sites {
		if site.Timeout < 0 || site.Retries < 0 {
			return fmt.Errorf("site %q: timeout and retries must not be negative", name)
		}
	}

	if config.Registry.MaxEntries < 0 {
		return fmt.Errorf("registry max entries must not be negative, got: %d", config.Registry.MaxEntries)
	}

	if config.RateLimit.PerIP < 0 || config.RateLimit.PerSite < 0 {
		return fmt.Errorf("rate limits must not be negative")
	}

	return nil
}
