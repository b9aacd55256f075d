// Package config builds runtime configuration from the environment so main
// stays lean. Values are read once at startup and treated as constants.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the Google RISC provider. Overridable for tests and for
// pointing the receiver at a different event stream issuer.
const (
	DefaultIssuer  = "https://accounts.google.com"
	DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
)

// Provider holds everything needed to verify tokens from the event stream
// provider: who signs them, who they must be addressed to, and where the
// signing keys are published.
type Provider struct {
	Issuer       string
	Audience     string
	JWKSURL      string
	KeyCacheTTL  time.Duration
	ClockSkew    time.Duration
	FetchTimeout time.Duration
}

// Redis captures connection settings for the account store.
type Redis struct {
	URL          string
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka captures the audit trail sink settings. Empty brokers means the
// in-memory audit store is used instead.
type Kafka struct {
	Brokers []string
	Topic   string
}

// Config is the full server configuration.
type Config struct {
	Addr         string
	LogLevel     string
	MaxBodyBytes int64
	Provider     Provider
	Redis        Redis
	Kafka        Kafka
}

// FromEnv assembles a Config from environment variables, applying the
// defaults the provider documents (1h key cache, 300s clock skew).
func FromEnv() Config {
	return Config{
		Addr:         envOr("RISCGUARD_ADDR", ":8080"),
		LogLevel:     envOr("RISCGUARD_LOG_LEVEL", "info"),
		MaxBodyBytes: envInt64("RISCGUARD_MAX_BODY_BYTES", 64*1024),
		Provider: Provider{
			Issuer:       envOr("RISC_EXPECTED_ISSUER", DefaultIssuer),
			Audience:     os.Getenv("RISC_EXPECTED_AUDIENCE"),
			JWKSURL:      envOr("RISC_JWKS_URL", DefaultJWKSURL),
			KeyCacheTTL:  envDuration("RISC_KEY_CACHE_TTL", time.Hour),
			ClockSkew:    envDuration("RISC_CLOCK_SKEW", 300*time.Second),
			FetchTimeout: envDuration("RISC_KEY_FETCH_TIMEOUT", 10*time.Second),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_AUDIT_TOPIC", "riscguard.security-events"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
