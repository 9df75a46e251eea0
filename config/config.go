package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/pricelens/backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server        ServerConfig
	Log           LogConfig
	KnowledgeBase KnowledgeBaseConfig `mapstructure:"knowledge_base"`
	Crawler       CrawlerConfig
	Marketplace   MarketplaceConfig
	Pricing       PricingConfig
	Cache         CacheConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// KnowledgeBaseConfig locates the reference price spreadsheet
type KnowledgeBaseConfig struct {
	Path  string `mapstructure:"path"`
	Watch bool   `mapstructure:"watch"`
}

// CrawlerConfig holds crawling API configuration
type CrawlerConfig struct {
	Token             string        `mapstructure:"token"`
	BaseURL           string        `mapstructure:"base_url"`
	PageWait          time.Duration `mapstructure:"page_wait"`
	AjaxWait          bool          `mapstructure:"ajax_wait"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	MaxRetries        int           `mapstructure:"max_retries"`
}

// MarketplaceConfig holds per-marketplace scraping settings
type MarketplaceConfig struct {
	MinReviews         int    `mapstructure:"min_reviews"`
	TokopediaSearchURL string `mapstructure:"tokopedia_search_url"`
	ShopeeSearchURL    string `mapstructure:"shopee_search_url"`
	TokopediaEnabled   bool   `mapstructure:"tokopedia_enabled"`
	ShopeeEnabled      bool   `mapstructure:"shopee_enabled"`
}

// PricingConfig holds request defaults for the reconciliation engine
type PricingConfig struct {
	DefaultMargin    float64  `mapstructure:"default_margin"`
	DefaultPlatforms []string `mapstructure:"default_platforms"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL string        `mapstructure:"redis_url"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// MaxMargin is the largest margin a request may ask for
const MaxMargin = 0.5

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/pricelens/")

	// Environment variable settings
	v.SetEnvPrefix("PRICELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; using environment variables and defaults
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads .env from the working directory when present.
// Variables already set in the environment win.
func loadEnvFile() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:8501"})

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Knowledge base defaults
	v.SetDefault("knowledge_base.path", "knowledge_base.xlsx")
	v.SetDefault("knowledge_base.watch", true)

	// Crawler defaults
	v.SetDefault("crawler.token", "")
	v.SetDefault("crawler.base_url", "https://api.crawlbase.com")
	v.SetDefault("crawler.page_wait", "5s")
	v.SetDefault("crawler.ajax_wait", true)
	v.SetDefault("crawler.timeout", "60s")
	v.SetDefault("crawler.requests_per_second", 1)
	v.SetDefault("crawler.burst", 2)
	v.SetDefault("crawler.max_retries", 3)

	// Marketplace defaults
	v.SetDefault("marketplace.min_reviews", 1)
	v.SetDefault("marketplace.tokopedia_search_url", "https://www.tokopedia.com/search?st=product&q=")
	v.SetDefault("marketplace.shopee_search_url", "https://shopee.co.id/search?keyword=")
	v.SetDefault("marketplace.tokopedia_enabled", true)
	v.SetDefault("marketplace.shopee_enabled", true)

	// Pricing defaults
	v.SetDefault("pricing.default_margin", 0.2)
	v.SetDefault("pricing.default_platforms", []string{string(domain.PlatformTokopedia)})

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "6h")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Pricing.DefaultMargin < 0 || config.Pricing.DefaultMargin > MaxMargin {
		return fmt.Errorf("default margin must be between 0 and %.1f, got: %v", MaxMargin, config.Pricing.DefaultMargin)
	}

	if _, err := config.Pricing.Platforms(); err != nil {
		return err
	}

	if config.Marketplace.MinReviews < 0 {
		return fmt.Errorf("min reviews must not be negative, got: %d", config.Marketplace.MinReviews)
	}

	if config.KnowledgeBase.Path == "" {
		return fmt.Errorf("knowledge base path is required (set PRICELENS_KNOWLEDGE_BASE_PATH)")
	}

	return nil
}

// Platforms parses the configured default platforms
func (p PricingConfig) Platforms() ([]domain.Platform, error) {
	platforms := make([]domain.Platform, 0, len(p.DefaultPlatforms))
	for _, name := range p.DefaultPlatforms {
		platform, err := domain.ParsePlatform(name)
		if err != nil {
			return nil, fmt.Errorf("default platform %q: %w", name, err)
		}
		platforms = append(platforms, platform)
	}
	return platforms, nil
}

// CrawlerEnabled reports whether live marketplace adapters can run
func (c *Config) CrawlerEnabled() bool {
	return c.Crawler.Token != ""
}
