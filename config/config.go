package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Pool      PoolConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Publisher PublisherConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the per-fetch Chromium instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// SlowMo delays every browser action; only applied when not headless.
	SlowMo time.Duration // default: 250ms

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: true

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// DebugDir receives one diagnostic screenshot per fetch.
	DebugDir string // default: "debug"
}

// ScraperConfig controls page loading and side-channel timeouts.
type ScraperConfig struct {
	// NavigationTimeout bounds page loading and element lookups.
	NavigationTimeout time.Duration // default: 35s

	// WaitJSONLD is the soft wait for the first ld+json script.
	WaitJSONLD time.Duration // default: 14s

	// HTTPTimeout bounds each detail API request.
	HTTPTimeout time.Duration // default: 10s

	// ProbeTimeout bounds each image mirror HEAD probe.
	ProbeTimeout time.Duration // default: 6s

	// MaxDescriptionLen trims descriptions, in runes. 0 disables trimming.
	MaxDescriptionLen int // default: 1000
}

// PoolConfig controls the browser worker bulkhead.
type PoolConfig struct {
	// Workers is the number of concurrent browser fetches.
	Workers int // default: 2

	// TimeoutMargin is added to NavigationTimeout to form the hard
	// per-fetch deadline.
	TimeoutMargin time.Duration // default: 25s
}

// HardTimeout is the wall-clock limit a caller waits for one fetch.
func (c *Config) HardTimeout() time.Duration {
	return c.Scraper.NavigationTimeout + c.Pool.TimeoutMargin
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 1

	// Burst is the maximum burst size per API key.
	Burst int // default: 3
}

// CacheConfig controls the product response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached records.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// PublisherConfig controls the optional Redis stream publisher.
type PublisherConfig struct {
	// RedisAddr enables publishing when non-empty.
	RedisAddr string
	RedisDB   int

	// Stream is the Redis stream records are appended to.
	Stream string // default: "cardgrab:products"

	// MaxLen approximately caps the stream length. 0 means uncapped.
	MaxLen int64 // default: 10000

	// WebhookURL receives every record as a signed POST when non-empty.
	WebhookURL     string
	WebhookSecret  string
	WebhookTimeout time.Duration // default: 10s
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: failed to load .env file", "error", err)
	}

	return &Config{
		Server: ServerConfig{
			Host: envOr("CARDGRAB_HOST", "0.0.0.0"),
			Port: envIntOr("CARDGRAB_PORT", 8080),
			Mode: envOr("CARDGRAB_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:   !envBoolOr("CARDGRAB_SHOW_BROWSER", false),
			SlowMo:     envDurationOr("CARDGRAB_SLOW_MO", 250*time.Millisecond),
			NoSandbox:  envBoolOr("CARDGRAB_NO_SANDBOX", true),
			BrowserBin: os.Getenv("CARDGRAB_BROWSER_BIN"),
			DebugDir:   envOr("CARDGRAB_DEBUG_DIR", "debug"),
		},
		Scraper: ScraperConfig{
			NavigationTimeout: envDurationOr("CARDGRAB_NAV_TIMEOUT", 35*time.Second),
			WaitJSONLD:        envDurationOr("CARDGRAB_WAIT_JSONLD", 14*time.Second),
			HTTPTimeout:       envDurationOr("CARDGRAB_HTTP_TIMEOUT", 10*time.Second),
			ProbeTimeout:      envDurationOr("CARDGRAB_PROBE_TIMEOUT", 6*time.Second),
			MaxDescriptionLen: envIntOr("CARDGRAB_MAX_DESCRIPTION", 1000),
		},
		Pool: PoolConfig{
			Workers:       envIntOr("CARDGRAB_WORKERS", 2),
			TimeoutMargin: envDurationOr("CARDGRAB_TIMEOUT_MARGIN", 25*time.Second),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("CARDGRAB_AUTH_ENABLED", true),
			APIKeys: envSliceOr("CARDGRAB_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("CARDGRAB_RATE_RPS", 1.0),
			Burst:             envIntOr("CARDGRAB_RATE_BURST", 3),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("CARDGRAB_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:  envOr("CARDGRAB_LOG_LEVEL", "info"),
			Format: envOr("CARDGRAB_LOG_FORMAT", "json"),
		},
		Publisher: PublisherConfig{
			RedisAddr: os.Getenv("CARDGRAB_REDIS_ADDR"),
			RedisDB:   envIntOr("CARDGRAB_REDIS_DB", 0),
			Stream:    envOr("CARDGRAB_REDIS_STREAM", "cardgrab:products"),
			MaxLen:    int64(envIntOr("CARDGRAB_REDIS_MAXLEN", 10000)),

			WebhookURL:     os.Getenv("CARDGRAB_WEBHOOK_URL"),
			WebhookSecret:  os.Getenv("CARDGRAB_WEBHOOK_SECRET"),
			WebhookTimeout: envDurationOr("CARDGRAB_WEBHOOK_TIMEOUT", 10*time.Second),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// envDurationOr accepts Go durations ("35s") and bare integers, which are
// read as milliseconds.
func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if ms, err := strconv.Atoi(v); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
