// Package config loads storefront settings from YAML with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

const (
	SessionBackendRedis  = "redis"
	SessionBackendMemory = "memory"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                     string   `yaml:"port"`
	LogLevel                 string   `yaml:"logLevel"`
	APIBaseURL               string   `yaml:"apiBaseURL"`
	APITimeout               string   `yaml:"apiTimeout"`
	RedisAddr                string   `yaml:"redisAddr"`
	RedisPassword            string   `yaml:"redisPassword"`
	SessionBackend           string   `yaml:"sessionBackend"`
	SessionSecret            string   `yaml:"sessionSecret"`
	SessionTTL               string   `yaml:"sessionTTL"`
	CookieName               string   `yaml:"cookieName"`
	CookieSecure             bool     `yaml:"cookieSecure"`
	SearchDebounce           string   `yaml:"searchDebounce"`
	SearchRateLimitPerMinute int      `yaml:"searchRateLimitPerMinute"`
	AuthRateLimitPerMinute   int      `yaml:"authRateLimitPerMinute"`
	ScreenIdleTimeout        string   `yaml:"screenIdleTimeout"`
	TrustedProxyCIDRs        []string `yaml:"trustedProxyCidrs"`
}

// Path returns STOREFRONT_CONFIG when set, else ConfigPath.
func Path() string {
	if v := strings.TrimSpace(os.Getenv("STOREFRONT_CONFIG")); v != "" {
		return v
	}
	return ConfigPath
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("STOREFRONT_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_API_TIMEOUT"); v != "" {
		cfg.APITimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("STOREFRONT_SESSION_BACKEND"); v != "" {
		cfg.SessionBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("STOREFRONT_SESSION_TTL"); v != "" {
		cfg.SessionTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_COOKIE_NAME"); v != "" {
		cfg.CookieName = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := os.Getenv("STOREFRONT_SEARCH_DEBOUNCE"); v != "" {
		cfg.SearchDebounce = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_SEARCH_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.SearchRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("STOREFRONT_AUTH_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("STOREFRONT_SCREEN_IDLE_TIMEOUT"); v != "" {
		cfg.ScreenIdleTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("STOREFRONT_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if cfg.SessionBackend == "" {
		cfg.SessionBackend = SessionBackendRedis
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return errors.New("config: apiBaseURL is required (set in config.yaml or STOREFRONT_API_BASE_URL)")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return errors.New("config: sessionSecret is required (set in config.yaml or STOREFRONT_SESSION_SECRET)")
	}
	switch cfg.SessionBackend {
	case SessionBackendRedis, SessionBackendMemory:
	default:
		return fmt.Errorf("config: sessionBackend must be %q or %q, got %q", SessionBackendRedis, SessionBackendMemory, cfg.SessionBackend)
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.SearchRateLimitPerMinute < 0 || cfg.AuthRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	for name, raw := range map[string]string{
		"apiTimeout":        cfg.APITimeout,
		"sessionTTL":        cfg.SessionTTL,
		"searchDebounce":    cfg.SearchDebounce,
		"screenIdleTimeout": cfg.ScreenIdleTimeout,
	} {
		if _, err := ParseDuration(raw, 0); err != nil {
			return fmt.Errorf("config: %s: %w", name, err)
		}
	}
	return nil
}

// ParseDuration parses an optional duration string, returning fallback when
// raw is empty.
func ParseDuration(raw string, fallback time.Duration) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", raw)
	}
	return d, nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
