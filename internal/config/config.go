// Package config loads runtime configuration from the environment. The news
// pipeline itself never reads the environment; everything it needs is carried
// in explicit option structs built from this Config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultBlacklist = "soompi.com,soompi"

type Config struct {
	// NewsAPI settings
	NewsAPIKey       string
	APIOnly          bool // disable the RSS fallback
	RSSOnly          bool // disable NewsAPI and bypass warm caches
	BlacklistDomains []string
	PreferredFeed    string

	// Aggregation settings
	CacheTTL    time.Duration
	FromDays    int
	SortBy      string
	MaxArticles int

	// Data files
	FeedsConfigPath  string
	GroupsConfigPath string

	// Cache store settings
	CacheBackend  string // "memory", "file" or "postgres"
	CacheFilePath string
	DatabaseURL   string

	// Balancer settings
	BalancePerGroup int
	BalanceTotal    int

	// App settings
	Port           string
	RefreshCron    string
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration
	Debug          bool
}

func Load() (*Config, error) {
	cfg := &Config{
		// Default values
		CacheTTL:         30 * time.Minute,
		FromDays:         7,
		SortBy:           "publishedAt",
		MaxArticles:      50,
		FeedsConfigPath:  "configs/feeds.yaml",
		GroupsConfigPath: "data/groups.json",
		CacheBackend:     "file",
		CacheFilePath:    "data/news_cache.json",
		BalancePerGroup:  2,
		BalanceTotal:     6,
		Port:             "8080",
		RefreshCron:      "0 6 * * *",
		RequestTimeout:   30 * time.Second,
		RetryAttempts:    3,
		RetryDelay:       time.Second,
	}

	// Load from environment
	cfg.NewsAPIKey = os.Getenv("NEWS_API_KEY")
	cfg.APIOnly = getEnvBool("NEWS_API_ONLY")
	cfg.RSSOnly = getEnvBool("NEWS_RSS_ONLY")
	cfg.PreferredFeed = os.Getenv("NEWS_RSS_PREFERRED_FEED")
	cfg.BlacklistDomains = splitList(getEnvOrDefault("NEWS_API_BLACKLIST_DOMAINS", defaultBlacklist))

	if v := getEnvIntOrDefault("NEWS_CACHE_TTL_MINUTES", 0); v > 0 {
		cfg.CacheTTL = time.Duration(v) * time.Minute
	}
	if v := getEnvIntOrDefault("NEWS_FROM_DAYS", 0); v > 0 {
		cfg.FromDays = v
	}
	if v := os.Getenv("NEWS_SORT_BY"); v != "" {
		cfg.SortBy = v
	}
	if v := getEnvIntOrDefault("NEWS_MAX_ARTICLES", 0); v > 0 {
		cfg.MaxArticles = v
	}

	cfg.FeedsConfigPath = getEnvOrDefault("FEEDS_CONFIG_PATH", cfg.FeedsConfigPath)
	cfg.GroupsConfigPath = getEnvOrDefault("GROUPS_CONFIG_PATH", cfg.GroupsConfigPath)

	cfg.CacheBackend = getEnvOrDefault("CACHE_BACKEND", cfg.CacheBackend)
	cfg.CacheFilePath = getEnvOrDefault("CACHE_FILE_PATH", cfg.CacheFilePath)
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	if v := getEnvIntOrDefault("BALANCE_PER_GROUP", 0); v > 0 {
		cfg.BalancePerGroup = v
	}
	if v := getEnvIntOrDefault("BALANCE_TOTAL", 0); v > 0 {
		cfg.BalanceTotal = v
	}

	cfg.Port = getEnvOrDefault("PORT", cfg.Port)
	if v, ok := os.LookupEnv("REFRESH_CRON"); ok {
		cfg.RefreshCron = v // empty disables the scheduled refresh
	}
	if v := getEnvIntOrDefault("REQUEST_TIMEOUT_SECONDS", 0); v > 0 {
		cfg.RequestTimeout = time.Duration(v) * time.Second
	}
	if os.Getenv("DEBUG") == "true" {
		cfg.Debug = true
	}

	return cfg, cfg.Validate()
}

func (c *Config) Validate() error {
	switch c.CacheBackend {
	case "memory", "file", "postgres":
	default:
		return fmt.Errorf("CACHE_BACKEND must be 'memory', 'file' or 'postgres', got %q", c.CacheBackend)
	}
	if c.CacheBackend == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required when CACHE_BACKEND=postgres")
	}
	if c.CacheBackend == "file" && c.CacheFilePath == "" {
		return fmt.Errorf("CACHE_FILE_PATH is required when CACHE_BACKEND=file")
	}
	if c.APIOnly && c.RSSOnly {
		return fmt.Errorf("NEWS_API_ONLY and NEWS_RSS_ONLY are mutually exclusive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v := os.Getenv(key)
	return v == "1" || v == "true"
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
