package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds runtime configuration parsed from environment variables.
type Config struct {
	HTTPAddr        string
	Env             string
	BackendURL      string
	BackendTimeout  time.Duration
	DBConnString    string // empty means in-memory state stores
	ShutdownTimeout time.Duration

	PaymentKeySecret string

	CORSOrigins []string

	MetricsEnabled bool
	MetricsToken   string

	CheckoutRateLimit  int
	CheckoutRateWindow time.Duration

	LoginRateLimit  int
	LoginRateWindow time.Duration
}

// FromEnv builds Config with defaults, overridden by environment variables.
func FromEnv() Config {
	return Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		Env:             envOrDefault("ENV", "prod"),
		BackendURL:      envOrDefault("BACKEND_URL", "http://localhost:9000"),
		BackendTimeout:  envDuration("BACKEND_TIMEOUT_SECONDS", 10*time.Second),
		DBConnString:    os.Getenv("DB_DSN"),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT_SECONDS", 10*time.Second),

		PaymentKeySecret: os.Getenv("PAYMENT_KEY_SECRET"),

		CORSOrigins: splitCSV(envOrDefault("CORS_ORIGINS", "*")),

		MetricsEnabled: os.Getenv("METRICS_ENABLED") == "true",
		MetricsToken:   os.Getenv("METRICS_TOKEN"),

		CheckoutRateLimit:  envInt("CHECKOUT_RATE_LIMIT", 10),
		CheckoutRateWindow: envDuration("CHECKOUT_RATE_WINDOW_SECONDS", 60*time.Second),

		LoginRateLimit:  envInt("LOGIN_RATE_LIMIT", 20),
		LoginRateWindow: envDuration("LOGIN_RATE_WINDOW_SECONDS", 60*time.Second),
	}
}

// Validate rejects configurations that cannot serve traffic.
func (c Config) Validate() error {
	if !strings.HasPrefix(c.BackendURL, "http://") && !strings.HasPrefix(c.BackendURL, "https://") {
		return errors.New("BACKEND_URL must be an absolute http(s) URL")
	}
	if c.MetricsEnabled && c.MetricsToken == "" {
		return errors.New("METRICS_TOKEN required when METRICS_ENABLED=true")
	}
	return nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
