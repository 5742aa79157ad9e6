// Package config builds runtime configuration from the environment so main
// stays lean. Every knob has a development default; production overrides via
// env vars.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the top-level runtime configuration.
type Config struct {
	Addr          string
	PostgresDSN   string
	JWTSigningKey string

	Redis     RedisConfig
	RateLimit RateLimitConfig
	OTP       OTPConfig
	Notify    NotifyConfig
}

// RedisConfig holds connection settings for the optional Redis backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// RateLimitConfig holds the two fixed-window policies: the per-publisher
// daily submission quota (ceiling depends on trust tier) and the per-address
// hourly one-time-code request quota.
type RateLimitConfig struct {
	SubmissionWindow  time.Duration
	StandardDailyMax  int
	TrustedDailyMax   int
	CodeRequestWindow time.Duration
	CodeRequestMax    int
}

// OTPConfig holds one-time-code issuance and verification settings.
type OTPConfig struct {
	TTL           time.Duration
	MaxAttempts   int
	SweepInterval time.Duration
}

// NotifyConfig holds dispatcher settings.
type NotifyConfig struct {
	BufferSize int
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envStr("CIVICWATCH_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("CIVICWATCH_POSTGRES_DSN"),
		JWTSigningKey: envStr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		Redis: RedisConfig{
			URL:          os.Getenv("CIVICWATCH_REDIS_URL"),
			PoolSize:     envInt("CIVICWATCH_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("CIVICWATCH_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("CIVICWATCH_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("CIVICWATCH_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("CIVICWATCH_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		RateLimit: RateLimitConfig{
			SubmissionWindow:  envDuration("CIVICWATCH_SUBMISSION_WINDOW", 24*time.Hour),
			StandardDailyMax:  envInt("CIVICWATCH_SUBMISSION_STANDARD_MAX", 2),
			TrustedDailyMax:   envInt("CIVICWATCH_SUBMISSION_TRUSTED_MAX", 10),
			CodeRequestWindow: envDuration("CIVICWATCH_CODE_REQUEST_WINDOW", time.Hour),
			CodeRequestMax:    envInt("CIVICWATCH_CODE_REQUEST_MAX", 5),
		},
		OTP: OTPConfig{
			TTL:           envDuration("CIVICWATCH_OTP_TTL", 5*time.Minute),
			MaxAttempts:   envInt("CIVICWATCH_OTP_MAX_ATTEMPTS", 3),
			SweepInterval: envDuration("CIVICWATCH_OTP_SWEEP_INTERVAL", time.Minute),
		},
		Notify: NotifyConfig{
			BufferSize: envInt("CIVICWATCH_NOTIFY_BUFFER", 256),
		},
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
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
