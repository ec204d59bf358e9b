package config

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// development-only fallbacks; Validate refuses them in prod
const (
	devSessionSecret = "dev-session-secret-change-me"
	devJWTSecret     = "dev-jwt-secret-change-me"
)

type Config struct {
	Env  string
	Port int

	// Storage
	StoreDriver string // "postgres" | "memory"
	DBURL       string
	AutoMigrate bool

	// Redis backs the shared rate-limit counter; empty Addr keeps counters in process.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Sessions / OIDC
	SessionSecret      string
	OIDCIssuerURL      string
	OIDCClientID       string
	OIDCClientSecret   string
	OIDCRedirectURL    string
	PostLogoutRedirect string

	// Bearer tokens for API clients
	JWTSecret           string
	JWTAccessTTLMinutes int

	// HTTP hardening
	AllowedOrigins     []string
	RateLimitPerMinute int
	MaxBodyBytes       int64

	OTLPEndpoint    string
	TraceSampleRate float64
}

func Load() Config {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	return Config{
		Env:  getEnv("APP_ENV", "dev"),
		Port: getEnvInt("PORT", 8080),

		StoreDriver: strings.ToLower(getEnv("STORE_DRIVER", "postgres")),
		DBURL:       getEnv("DATABASE_URL", buildDBURL()),
		AutoMigrate: getEnvBool("AUTO_MIGRATE", false),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		SessionSecret:      getEnv("SESSION_SECRET", devSessionSecret),
		OIDCIssuerURL:      getEnv("OIDC_ISSUER_URL", ""),
		OIDCClientID:       getEnv("OIDC_CLIENT_ID", ""),
		OIDCClientSecret:   getEnv("OIDC_CLIENT_SECRET", ""),
		OIDCRedirectURL:    getEnv("OIDC_REDIRECT_URL", "http://localhost:8080/api/callback"),
		PostLogoutRedirect: getEnv("POST_LOGOUT_REDIRECT", "/"),

		JWTSecret:           getEnv("JWT_SECRET", devJWTSecret),
		JWTAccessTTLMinutes: getEnvInt("JWT_ACCESS_TTL_MINUTES", 60),

		AllowedOrigins:     getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampleRate: getEnvFloat("OTEL_TRACES_SAMPLE_RATE", 1),
	}
}

// Validate rejects settings that are only safe for local development.
func (c Config) Validate() error {
	if c.Env != "prod" {
		return nil
	}

	var errs []error
	if c.SessionSecret == "" || c.SessionSecret == devSessionSecret {
		errs = append(errs, errors.New("SESSION_SECRET must be set in prod"))
	}
	if c.JWTSecret == "" || c.JWTSecret == devJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in prod"))
	}

	return errors.Join(errs...)
}

// OIDCEnabled reports whether the browser login flow can be mounted.
func (c Config) OIDCEnabled() bool {
	return c.OIDCIssuerURL != "" && c.OIDCClientID != ""
}

func (c Config) JWTAccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLMinutes) * time.Minute
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "gymlog")
	pass := getEnv("DB_PASSWORD", "gymlog")
	name := getEnv("DB_NAME", "gymlog")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			slog.Warn("invalid float env, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}
		return f
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	out := make([]string, 0)
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
