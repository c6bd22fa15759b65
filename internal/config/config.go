package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted in STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreRemote   = "remote"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	Store     StoreConfig
	Auth      AuthConfig
	Backend   BackendConfig
	Cache     CacheConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
	WebSocket WebSocketConfig
	Logging   LoggingConfig
	App       AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// StoreConfig selects and tunes the ticket store.
type StoreConfig struct {
	Driver          string
	DatabaseURL     string
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// AuthConfig configures bearer token verification. Tokens are issued by
// the external identity provider.
type AuthConfig struct {
	HMACSecret   string
	RSAPublicKey string
	Issuer       string
	Audience     string
}

// BackendConfig points at the external helpdesk API used by the remote
// store and the email pipeline.
type BackendConfig struct {
	URL          string
	Timeout      time.Duration
	MaxRetries   int
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// CacheConfig configures the analytics report cache. An empty Addr
// disables it.
type CacheConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// JobsConfig holds cron specs for the background jobs. An empty spec
// disables that job.
type JobsConfig struct {
	EmailFetchSchedule string
	ReminderSchedule   string
	DueSoonDays        int
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AuthRPS           float64 // Stricter limit for auth endpoints
	AuthBurst         int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name               string
	Version            string
	Environment        string
	ExportFilenameStem string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := LoadEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadEnv reads the .env file, if any, and the environment without
// validating.
func LoadEnv() *Config {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	return FromEnv()
}

// FromEnv reads the process environment without loading .env or
// validating.
func FromEnv() *Config {
	origins := getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"})

	return &Config{
		Server: ServerConfig{
			Port:            normalizePort(getEnvOrDefault("PORT", "8080")),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  origins,
		},
		Store: StoreConfig{
			Driver:          strings.ToLower(getEnvOrDefault("STORE_DRIVER", StoreMemory)),
			DatabaseURL:     os.Getenv("DATABASE_URL"),
			SQLitePath:      getEnvOrDefault("SQLITE_PATH", "data/helpdesk.db"),
			MaxOpenConns:    getIntOrDefault("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntOrDefault("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDurationOrDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			ConnMaxIdleTime: getDurationOrDefault("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Auth: AuthConfig{
			HMACSecret:   os.Getenv("AUTH_HMAC_SECRET"),
			RSAPublicKey: os.Getenv("AUTH_RSA_PUBLIC_KEY"),
			Issuer:       os.Getenv("AUTH_ISSUER"),
			Audience:     os.Getenv("AUTH_AUDIENCE"),
		},
		Backend: BackendConfig{
			URL:          os.Getenv("BACKEND_URL"),
			Timeout:      getDurationOrDefault("BACKEND_TIMEOUT", 30*time.Second),
			MaxRetries:   getIntOrDefault("BACKEND_MAX_RETRIES", 3),
			TokenURL:     os.Getenv("OAUTH_TOKEN_URL"),
			ClientID:     os.Getenv("OAUTH_CLIENT_ID"),
			ClientSecret: os.Getenv("OAUTH_CLIENT_SECRET"),
			Scopes:       getStringSliceOrDefault("OAUTH_SCOPES", nil),
		},
		Cache: CacheConfig{
			RedisAddr:     os.Getenv("REDIS_ADDR"),
			RedisPassword: os.Getenv("REDIS_PASSWORD"),
			RedisDB:       getIntOrDefault("REDIS_DB", 0),
			TTL:           getDurationOrDefault("CACHE_TTL", 5*time.Minute),
		},
		Jobs: JobsConfig{
			EmailFetchSchedule: os.Getenv("EMAIL_FETCH_SCHEDULE"),
			ReminderSchedule:   getEnvOrDefault("REMINDER_SCHEDULE", "0 8 * * 1-5"),
			DueSoonDays:        getIntOrDefault("DUE_SOON_DAYS", 7),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			AuthRPS:           getFloatOrDefault("RATE_LIMIT_AUTH_RPS", 1),
			AuthBurst:         getIntOrDefault("RATE_LIMIT_AUTH_BURST", 5),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", origins),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:               getEnvOrDefault("APP_NAME", "sap-helpdesk"),
			Version:            getEnvOrDefault("APP_VERSION", "dev"),
			Environment:        getEnvOrDefault("ENVIRONMENT", "development"),
			ExportFilenameStem: getEnvOrDefault("EXPORT_FILENAME_STEM", "sap_tickets"),
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	errs := c.storeErrors()

	if c.Auth.HMACSecret == "" && c.Auth.RSAPublicKey == "" {
		errs = append(errs, "AUTH_HMAC_SECRET or AUTH_RSA_PUBLIC_KEY is required")
	}

	if c.Jobs.EmailFetchSchedule != "" && c.Backend.URL == "" {
		errs = append(errs, "EMAIL_FETCH_SCHEDULE requires BACKEND_URL")
	}
	if c.Backend.TokenURL != "" && (c.Backend.ClientID == "" || c.Backend.ClientSecret == "") {
		errs = append(errs, "OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required with OAUTH_TOKEN_URL")
	}

	// Security validations
	if c.IsProduction() {
		if c.Auth.HMACSecret != "" && len(c.Auth.HMACSecret) < 32 {
			errs = append(errs, "AUTH_HMAC_SECRET must be at least 32 characters in production")
		}

		for _, origin := range c.Server.AllowedOrigins {
			if origin == "*" {
				errs = append(errs, "CORS_ALLOWED_ORIGINS must not contain * in production")
				break
			}
		}
	}

	// Logical validations
	if c.Jobs.DueSoonDays < 0 {
		errs = append(errs, "DUE_SOON_DAYS cannot be negative")
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// ValidateStore checks only the store and backend settings. The CLI uses
// it since it never verifies tokens.
func (c *Config) ValidateStore() error {
	if errs := c.storeErrors(); len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

func (c *Config) storeErrors() []string {
	var errs []string
	switch c.Store.Driver {
	case StoreMemory:
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case StoreSQLite:
		if c.Store.SQLitePath == "" {
			errs = append(errs, "SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	case StoreRemote:
		if c.Backend.URL == "" {
			errs = append(errs, "BACKEND_URL is required when STORE_DRIVER=remote")
		}
	default:
		errs = append(errs, fmt.Sprintf("STORE_DRIVER must be one of memory, postgres, sqlite, remote (got %q)", c.Store.Driver))
	}
	if c.Store.MaxIdleConns > c.Store.MaxOpenConns {
		errs = append(errs, "DB_MAX_IDLE_CONNS cannot be greater than DB_MAX_OPEN_CONNS")
	}
	if c.Backend.MaxRetries < 1 {
		errs = append(errs, "BACKEND_MAX_RETRIES must be at least 1")
	}
	return errs
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// Helper functions

// normalizePort accepts "8080" or ":8080".
func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, Store: %s, DB: %s, Backend: %s, Redis: %s, Auth: [REDACTED], RateLimit: %v, Environment: %s}",
		c.Server.Port,
		c.Store.Driver,
		redactURL(c.Store.DatabaseURL),
		c.Backend.URL,
		c.Cache.RedisAddr,
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}

// redactURL hides the credentials of a database URL
func redactURL(url string) string {
	if url == "" {
		return ""
	}
	if idx := strings.Index(url, "@"); idx > 0 {
		return "[REDACTED]" + url[idx:]
	}
	return "[REDACTED]"
}
