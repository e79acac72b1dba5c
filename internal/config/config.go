// Package config handles loading application configuration from environment
// variables. All config is centralized here so no other package reads env
// vars directly. Sensible defaults are provided for development.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Config holds all application configuration. Populated from environment
// variables at startup. Passed to other packages via dependency injection.
type Config struct {
	// Env is the runtime environment: "development" or "production".
	Env string

	// Port is the HTTP listen port (default: 8080).
	Port int

	// BaseURL is the public-facing URL used for links in outbound email.
	BaseURL string

	// LogLevel controls log verbosity: "debug", "info", "warn", "error".
	LogLevel string

	// Database holds MariaDB connection settings.
	Database DatabaseConfig

	// Redis holds Redis connection settings.
	Redis RedisConfig

	// Auth holds token signing and lifetime settings.
	Auth AuthConfig

	// RateLimit holds the admission policies for abuse-prone endpoints.
	RateLimit RateLimitConfig

	// SMTP holds outbound mail settings. Mail is optional; when Host is
	// empty the service falls back to logging messages instead of sending.
	SMTP SMTPConfig
}

// DatabaseConfig holds MariaDB connection parameters. Individual fields
// (Host, User, Password, Name) are read from separate env vars so container
// orchestrators can manage each independently. If DATABASE_URL is set, it
// takes precedence over the individual fields.
type DatabaseConfig struct {
	// Host is the MariaDB address in host:port format (default: "localhost:3306").
	// If no port is specified, 3306 is appended automatically.
	Host string

	// User is the MariaDB username (default: "taskbin").
	User string

	// Password is the MariaDB password (default: "taskbin").
	Password string

	// Name is the database name (default: "taskbin").
	Name string

	// dsnOverride is set when DATABASE_URL is provided, bypassing individual fields.
	dsnOverride string

	// MaxOpenConns is the maximum number of open connections in the pool.
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool.
	MaxIdleConns int

	// ConnMaxLifetime is how long a connection can be reused.
	ConnMaxLifetime time.Duration
}

// DSN returns the go-sql-driver/mysql connection string. If DATABASE_URL was
// set, it is returned as-is. Otherwise the DSN is built from the individual
// Host/User/Password/Name fields using the driver's Config.FormatDSN()
// to safely handle special characters in passwords.
func (d DatabaseConfig) DSN() string {
	if d.dsnOverride != "" {
		return d.dsnOverride
	}
	cfg := mysql.NewConfig()
	cfg.User = d.User
	cfg.Passwd = d.Password
	cfg.Net = "tcp"
	cfg.Addr = ensurePort(d.Host, "3306")
	cfg.DBName = d.Name
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// ensurePort appends the default port if the host string doesn't include one.
func ensurePort(host, defaultPort string) string {
	_, _, err := net.SplitHostPort(host)
	if err != nil {
		return net.JoinHostPort(host, defaultPort)
	}
	return host
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379").
	URL string
}

// AuthConfig holds token signing and lifetime settings. Access and refresh
// tokens are signed with independent secrets so one class of token can never
// validate as the other.
type AuthConfig struct {
	// AccessSecret signs short-lived access tokens (32+ bytes in production).
	AccessSecret string

	// RefreshSecret signs long-lived refresh tokens. Must differ from
	// AccessSecret.
	RefreshSecret string

	// AccessTTL is the access token lifetime (default: 30m).
	AccessTTL time.Duration

	// RefreshTTL is the refresh token and session lifetime (default: 168h).
	RefreshTTL time.Duration

	// PrincipalCacheTTL is how long resolved principals are cached in Redis
	// between database lookups (default: 1m).
	PrincipalCacheTTL time.Duration

	// SweepInterval is how often expired sessions and single-use tokens are
	// purged (default: 1h).
	SweepInterval time.Duration
}

// RateLimitConfig holds the sliding-window policies for each guarded action,
// keyed per client IP.
type RateLimitConfig struct {
	LoginMax       int
	LoginWindow    time.Duration
	RegisterMax    int
	RegisterWindow time.Duration
	ResetMax       int
	ResetWindow    time.Duration
	ResendMax      int
	ResendWindow   time.Duration
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first if present (local
// development convenience; real env vars take precedence).
// Returns an error if required variables are missing or inconsistent.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost:3306"),
			User:            getEnv("DB_USER", "taskbin"),
			Password:        getEnv("DB_PASSWORD", "taskbin"),
			Name:            getEnv("DB_NAME", "taskbin"),
			dsnOverride:     getEnv("DATABASE_URL", ""),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},

		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},

		Auth: AuthConfig{
			AccessSecret:      getEnv("ACCESS_TOKEN_SECRET", ""),
			RefreshSecret:     getEnv("REFRESH_TOKEN_SECRET", ""),
			AccessTTL:         getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
			RefreshTTL:        getEnvDuration("REFRESH_TOKEN_TTL", 168*time.Hour),
			PrincipalCacheTTL: getEnvDuration("PRINCIPAL_CACHE_TTL", time.Minute),
			SweepInterval:     getEnvDuration("AUTH_SWEEP_INTERVAL", time.Hour),
		},

		RateLimit: RateLimitConfig{
			LoginMax:       getEnvInt("RATE_LIMIT_LOGIN_MAX", 5),
			LoginWindow:    getEnvDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
			RegisterMax:    getEnvInt("RATE_LIMIT_REGISTER_MAX", 3),
			RegisterWindow: getEnvDuration("RATE_LIMIT_REGISTER_WINDOW", time.Hour),
			ResetMax:       getEnvInt("RATE_LIMIT_RESET_MAX", 3),
			ResetWindow:    getEnvDuration("RATE_LIMIT_RESET_WINDOW", time.Hour),
			ResendMax:      getEnvInt("RATE_LIMIT_RESEND_MAX", 3),
			ResendWindow:   getEnvDuration("RATE_LIMIT_RESEND_WINDOW", time.Hour),
		},

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnvInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "no-reply@localhost"),
		},
	}

	// Validate required fields in production. Case-insensitive check catches
	// common variants like "Production", "prod", etc.
	envLower := strings.ToLower(cfg.Env)
	if envLower == "production" || envLower == "prod" {
		if cfg.Auth.AccessSecret == "" || cfg.Auth.RefreshSecret == "" {
			return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required in production")
		}
		if len(cfg.Auth.AccessSecret) < 32 || len(cfg.Auth.RefreshSecret) < 32 {
			return nil, fmt.Errorf("token secrets must be at least 32 characters in production")
		}
	}

	// Provide dev-only default secrets so local dev works without .env.
	if cfg.Auth.AccessSecret == "" {
		cfg.Auth.AccessSecret = "dev-access-secret-do-not-use-in-production!"
	}
	if cfg.Auth.RefreshSecret == "" {
		cfg.Auth.RefreshSecret = "dev-refresh-secret-do-not-use-in-production!"
	}

	// A shared secret would let a refresh token validate as an access token.
	if cfg.Auth.AccessSecret == cfg.Auth.RefreshSecret {
		return nil, fmt.Errorf("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ")
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Env)
	return env == "development" || env == "dev"
}

// --- Helper functions for reading environment variables ---

// getEnv reads a string env var or returns the default.
func getEnv(key, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer env var or returns the default.
func getEnvInt(key string, defaultVal int) int {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration reads a duration env var (e.g., "15m") or returns the default.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
