package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Storefront    StorefrontConfig
	Database      *DatabaseConfig // Optional: nil when DATABASE_URL is not set and auditing is disabled
	Audit         AuditConfig
	Auth          AuthConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// StorefrontConfig selects and configures the storefront platform
type StorefrontConfig struct {
	Platform         string
	BaseURL          string
	Timeout          time.Duration
	ProviderTag      string
	ProtectionHandle string
	ProtectionID     string
}

// DatabaseConfig holds PostgreSQL configuration for the protection event log
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool // apply embedded migrations on startup
}

// AuditConfig sizes the asynchronous event writer
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// AuthConfig holds bearer token settings for the API
type AuthConfig struct {
	Enabled   bool
	JWTSecret string
	Issuer    string
}

// CORSConfig lists the storefront origins allowed to call the API from the browser
type CORSConfig struct {
	AllowedOrigins []string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or text
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 25*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storefront: StorefrontConfig{
			Platform:         strings.ToLower(getEnv("STOREFRONT_PLATFORM", "shopify")),
			BaseURL:          getEnv("STOREFRONT_BASE_URL", ""),
			Timeout:          getEnvAsDuration("STOREFRONT_TIMEOUT", 10*time.Second),
			ProviderTag:      getEnv("STOREFRONT_PROVIDER_TAG", "mule"),
			ProtectionHandle: getEnv("PROTECTION_PRODUCT_HANDLE", ""),
			ProtectionID:     getEnv("PROTECTION_PRODUCT_ID", ""),
		},
		Database: loadDatabaseConfig(),
		Audit: AuditConfig{
			BufferSize:  getEnvAsInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount: getEnvAsInt("AUDIT_WORKER_COUNT", 2),
		},
		Auth: AuthConfig{
			Enabled:   getEnvAsBool("AUTH_ENABLED", false),
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_JWT_ISSUER", ""),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}
	cfg.Server.TLS.Enabled = getEnvAsBool("TLS_ENABLED", false)
	cfg.Server.TLS.CertFile = getEnv("TLS_CERT_FILE", "certs/cert.pem")
	cfg.Server.TLS.KeyFile = getEnv("TLS_KEY_FILE", "certs/key.pem")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if c.Storefront.BaseURL == "" {
		return fmt.Errorf("storefront base URL is required: set STOREFRONT_BASE_URL")
	}
	u, err := url.Parse(c.Storefront.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("storefront base URL must be absolute: %q", c.Storefront.BaseURL)
	}
	if c.Storefront.Platform == "" {
		return fmt.Errorf("storefront platform is required")
	}
	if c.Storefront.Timeout <= 0 {
		return fmt.Errorf("storefront timeout must be positive")
	}

	if c.Auth.Enabled && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth JWT secret is required when auth is enabled")
	}
	if c.IsProduction() && c.Auth.Enabled && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth JWT secret must be at least 32 bytes in production")
	}

	if c.Database != nil {
		if c.Audit.BufferSize <= 0 {
			return fmt.Errorf("audit buffer size must be positive")
		}
		if c.Audit.WorkerCount <= 0 {
			return fmt.Errorf("audit worker count must be positive")
		}
	}

	switch strings.ToLower(c.Observability.LogLevel) {
	case "debug", "info", "warn", "error":
	case "":
		return fmt.Errorf("log level is required")
	default:
		return fmt.Errorf("unknown log level %q", c.Observability.LogLevel)
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// AuditEnabled reports whether protection events are persisted
func (c *Config) AuditEnabled() bool {
	return c.Database != nil
}

// LogString returns a safe string for logging (no password)
func (c *DatabaseConfig) LogString() string {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" {
		return "host=<from DATABASE_URL>"
	}
	port := u.Port()
	if port == "" {
		port = "5432"
	}
	db := strings.TrimPrefix(u.Path, "/")
	return fmt.Sprintf("host=%s port=%s database=%s", u.Hostname(), port, db)
}

// loadDatabaseConfig returns nil when DATABASE_URL is not set
func loadDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		URL:             dbURL,
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		Migrate:         getEnvAsBool("DB_MIGRATE", true),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty entries
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
