package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read from the environment (optionally seeded from .env by main).
type Config struct {
	Port   string
	AppURL string

	DatabaseDriver string
	DatabaseURL    string

	ShopDomain     string
	AccessToken    string
	APIKey         string
	APISecret      string
	WebhookSecret  string
	APIVersion     string
	ShopifyTimeout time.Duration

	PollInterval  time.Duration
	PollLookback  time.Duration
	PollAutoStart bool

	SyncInterval        time.Duration
	SyncRefreshLimit    int
	SyncErrorResetDelay time.Duration
	SyncOnStart         bool

	RegisterWebhooks bool

	RedisURL        string
	MongoURI        string
	MongoDatabase   string
	CacheTTL        time.Duration
	CORSOrigins     []string
	LogLevel        string
	LogPretty       bool
	MaxWebhookBytes int64
}

// Load reads every key with its default and validates the result.
func Load() (*Config, error) {
	var errs []error
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		AppURL:         strings.TrimRight(getEnv("APP_URL", "http://localhost:8080"), "/"),
		DatabaseDriver: strings.ToLower(getEnv("DATABASE_DRIVER", "sqlite")),
		DatabaseURL:    getEnv("DATABASE_URL", "shopify-insights.db"),
		ShopDomain:     os.Getenv("SHOPIFY_SHOP_DOMAIN"),
		AccessToken:    os.Getenv("SHOPIFY_ACCESS_TOKEN"),
		APIKey:         os.Getenv("SHOPIFY_API_KEY"),
		APISecret:      os.Getenv("SHOPIFY_API_SECRET"),
		WebhookSecret:  os.Getenv("SHOPIFY_WEBHOOK_SECRET"),
		APIVersion:     os.Getenv("SHOPIFY_API_VERSION"),
		RedisURL:       os.Getenv("REDIS_URL"),
		MongoURI:       os.Getenv("MONGODB_URI"),
		MongoDatabase:  getEnv("MONGODB_DATABASE", "shopify_insights"),
		CORSOrigins:    splitList(getEnv("CORS_ORIGINS", "*")),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	cfg.ShopifyTimeout = getDuration("SHOPIFY_TIMEOUT", 20*time.Second, &errs)
	cfg.PollInterval = getDuration("POLL_INTERVAL", 5*time.Minute, &errs)
	cfg.PollLookback = getDuration("POLL_LOOKBACK", time.Hour, &errs)
	cfg.PollAutoStart = getBool("POLL_AUTOSTART", true, &errs)
	cfg.SyncInterval = getDuration("SYNC_INTERVAL", 0, &errs)
	cfg.SyncRefreshLimit = getInt("SYNC_REFRESH_LIMIT", 10, &errs)
	cfg.SyncErrorResetDelay = getDuration("SYNC_ERROR_RESET_DELAY", 5*time.Second, &errs)
	cfg.SyncOnStart = getBool("SYNC_ON_START", false, &errs)
	cfg.RegisterWebhooks = getBool("REGISTER_WEBHOOKS", false, &errs)
	cfg.CacheTTL = getDuration("CACHE_TTL", time.Minute, &errs)
	cfg.LogPretty = getBool("LOG_PRETTY", false, &errs)
	cfg.MaxWebhookBytes = int64(getInt("MAX_WEBHOOK_BODY_BYTES", 1<<20, &errs))

	if err := cfg.validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var errs []error
	switch c.DatabaseDriver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver))
	}
	if c.PollInterval <= 0 {
		errs = append(errs, errors.New("POLL_INTERVAL must be positive"))
	}
	if c.PollLookback < 0 {
		errs = append(errs, errors.New("POLL_LOOKBACK must not be negative"))
	}
	if c.SyncInterval < 0 {
		errs = append(errs, errors.New("SYNC_INTERVAL must not be negative"))
	}
	if c.SyncRefreshLimit < 0 {
		errs = append(errs, errors.New("SYNC_REFRESH_LIMIT must not be negative"))
	}
	if c.MaxWebhookBytes <= 0 {
		errs = append(errs, errors.New("MAX_WEBHOOK_BODY_BYTES must be positive"))
	}
	if c.ShopDomain != "" && c.AccessToken == "" {
		errs = append(errs, errors.New("SHOPIFY_ACCESS_TOKEN is required when SHOPIFY_SHOP_DOMAIN is set"))
	}
	return errors.Join(errs...)
}

// StoreConfigured reports whether a shop is configured to bootstrap the active store.
func (c *Config) StoreConfigured() bool {
	return c.ShopDomain != "" && c.AccessToken != ""
}

// WebhookAddress is where Shopify should deliver webhooks.
func (c *Config) WebhookAddress() string {
	return c.AppURL + "/webhooks/shopify"
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func getInt(key string, fallback int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
