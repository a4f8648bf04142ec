package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const baseConfig = `
port: "8080"
logLevel: "info"
apiBaseURL: "http://localhost:8082/api/v1"
apiTimeout: "5s"
redisAddr: "localhost:6379"
sessionSecret: "change-me"
sessionTTL: "12h"
searchDebounce: "500ms"
searchRateLimitPerMinute: 120
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoadDefaultsSessionBackend(t *testing.T) {
	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SessionBackend != SessionBackendRedis {
		t.Fatalf("sessionBackend = %q, want %q", cfg.SessionBackend, SessionBackendRedis)
	}
	if cfg.SearchRateLimitPerMinute != 120 {
		t.Fatalf("searchRateLimitPerMinute = %d, want 120", cfg.SearchRateLimitPerMinute)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STOREFRONT_API_BASE_URL", "http://api.internal:8082/api/v1")
	t.Setenv("STOREFRONT_SESSION_BACKEND", "memory")
	t.Setenv("STOREFRONT_COOKIE_SECURE", "true")
	t.Setenv("STOREFRONT_SEARCH_DEBOUNCE", "300ms")
	t.Setenv("STOREFRONT_SEARCH_RATE_LIMIT_PER_MINUTE", "60")
	t.Setenv("STOREFRONT_TRUSTED_PROXY_CIDRS", "10.0.0.0/8, ,192.168.1.10")
	t.Setenv("REDIS_ADDR", "redis:6379")

	cfg, err := Load(writeConfig(t, baseConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.APIBaseURL != "http://api.internal:8082/api/v1" {
		t.Fatalf("apiBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.SessionBackend != SessionBackendMemory {
		t.Fatalf("sessionBackend = %q, want memory", cfg.SessionBackend)
	}
	if !cfg.CookieSecure {
		t.Fatalf("cookieSecure = false, want true")
	}
	if cfg.SearchDebounce != "300ms" {
		t.Fatalf("searchDebounce = %q, want 300ms", cfg.SearchDebounce)
	}
	if cfg.SearchRateLimitPerMinute != 60 {
		t.Fatalf("searchRateLimitPerMinute = %d, want 60", cfg.SearchRateLimitPerMinute)
	}
	if len(cfg.TrustedProxyCIDRs) != 2 || cfg.TrustedProxyCIDRs[1] != "192.168.1.10" {
		t.Fatalf("trustedProxyCidrs = %v", cfg.TrustedProxyCIDRs)
	}
	if cfg.RedisAddr != "redis:6379" {
		t.Fatalf("redisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{name: "missing secret", content: strings.Replace(baseConfig, `sessionSecret: "change-me"`, "", 1), want: "sessionSecret"},
		{name: "bad backend", content: baseConfig + "sessionBackend: \"disk\"\n", want: "sessionBackend"},
		{name: "bad duration", content: strings.Replace(baseConfig, `"500ms"`, `"soon"`, 1), want: "searchDebounce"},
		{name: "negative limit", content: strings.Replace(baseConfig, "120", "-1", 1), want: "rate limits"},
		{name: "missing api", content: strings.Replace(baseConfig, `apiBaseURL: "http://localhost:8082/api/v1"`, "", 1), want: "apiBaseURL"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestParseDuration(t *testing.T) {
	d, err := ParseDuration("", 500*time.Millisecond)
	if err != nil || d != 500*time.Millisecond {
		t.Fatalf("fallback = (%v, %v)", d, err)
	}
	d, err = ParseDuration(" 2s ", 0)
	if err != nil || d != 2*time.Second {
		t.Fatalf("parse = (%v, %v)", d, err)
	}
	if _, err := ParseDuration("-1s", 0); err == nil {
		t.Fatal("expected negative duration error")
	}
}

func TestPathHonoursEnv(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	if got := Path(); got != ConfigPath {
		t.Fatalf("Path() = %q, want %q", got, ConfigPath)
	}
	t.Setenv("STOREFRONT_CONFIG", "/etc/storefront/config.yaml")
	if got := Path(); got != "/etc/storefront/config.yaml" {
		t.Fatalf("Path() = %q", got)
	}
}
