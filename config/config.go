package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Fetch     FetchConfig
	Extract   ExtractConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance backing the session pool.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxSessions is the session pool capacity (max concurrent tabs).
	MaxSessions int // default: 5

	// DefaultProxy is the default proxy URL for all requests.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// FetchConfig controls the static-markup fetcher.
type FetchConfig struct {
	// Timeout is the deadline for one results-page GET.
	Timeout time.Duration // default: 10s

	// RequestsPerSecond throttles requests against the engine host.
	RequestsPerSecond float64 // default: 1

	// Burst is the fetch throttle burst size.
	Burst int // default: 3
}

// ExtractConfig controls the dynamic extractor.
type ExtractConfig struct {
	// NavigationTimeout is the max time for navigation alone.
	NavigationTimeout time.Duration // default: 15s

	// SelectorTimeout is the max wait for result containers to appear.
	SelectorTimeout time.Duration // default: 5s

	// SettleDelay is the pause between scroll-loop iterations.
	SettleDelay time.Duration // default: 500ms

	// MaxStallAttempts is the scroll-stall ceiling before giving up.
	MaxStallAttempts int // default: 10

	// ViewportWidth and ViewportHeight fix the rendered viewport.
	ViewportWidth  int // default: 1280
	ViewportHeight int // default: 1024

	// Stealth enables anti-bot-detection evasions on rendered sessions.
	Stealth bool // default: true

	// BlockedResourceTypes lists resource types to block during rendering.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string
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
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per API key.
	Burst int // default: 5
}

// CacheConfig controls the search response cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached responses.
	MaxEntries int // default: 500
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host: envOr("GATHER_HOST", "0.0.0.0"),
			Port: envIntOr("GATHER_PORT", 8080),
			Mode: envOr("GATHER_MODE", "release"),
		},
		Browser: BrowserConfig{
			Headless:     envBoolOr("GATHER_HEADLESS", true),
			MaxSessions:  envIntOr("GATHER_MAX_SESSIONS", 5),
			DefaultProxy: os.Getenv("GATHER_PROXY"),
			NoSandbox:    envBoolOr("GATHER_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("GATHER_BROWSER_BIN"),
		},
		Fetch: FetchConfig{
			Timeout:           envDurationOr("GATHER_FETCH_TIMEOUT", 10*time.Second),
			RequestsPerSecond: envFloatOr("GATHER_FETCH_RPS", 1.0),
			Burst:             envIntOr("GATHER_FETCH_BURST", 3),
		},
		Extract: ExtractConfig{
			NavigationTimeout: envDurationOr("GATHER_NAV_TIMEOUT", 15*time.Second),
			SelectorTimeout:   envDurationOr("GATHER_SELECTOR_TIMEOUT", 5*time.Second),
			SettleDelay:       envDurationOr("GATHER_SETTLE_DELAY", 500*time.Millisecond),
			MaxStallAttempts:  envIntOr("GATHER_MAX_STALLS", 10),
			ViewportWidth:     envIntOr("GATHER_VIEWPORT_WIDTH", 1280),
			ViewportHeight:    envIntOr("GATHER_VIEWPORT_HEIGHT", 1024),
			Stealth:           envBoolOr("GATHER_STEALTH", true),
			BlockedResourceTypes: envSliceOr("GATHER_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("GATHER_AUTH_ENABLED", true),
			APIKeys: envSliceOr("GATHER_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("GATHER_RATE_RPS", 2.0),
			Burst:             envIntOr("GATHER_RATE_BURST", 5),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("GATHER_CACHE_MAX_ENTRIES", 500),
		},
		Log: LogConfig{
			Level:  envOr("GATHER_LOG_LEVEL", "info"),
			Format: envOr("GATHER_LOG_FORMAT", "json"),
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

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
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
