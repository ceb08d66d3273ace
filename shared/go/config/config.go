package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Storage  StorageConfig
	Cache    CacheConfig
	CORS     CORSConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL      string // Full PostgreSQL URL
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
}

// AuthConfig holds the settings used to verify session tokens issued by the
// managed auth service.
type AuthConfig struct {
	JWTSecret string
	Audience  string
}

// StorageConfig points at the S3-compatible bucket holding sheet images.
// Removal is skipped when Endpoint and Region are both empty.
type StorageConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	PathStyle       bool
}

// Enabled reports whether an object store is configured.
func (s StorageConfig) Enabled() bool {
	return s.Endpoint != "" || s.Region != ""
}

// CacheConfig holds the Redis settings of the shared setlist view cache.
type CacheConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	TLS      bool
	TTL      time.Duration
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	if err := cfg.loadDatabase(); err != nil {
		return nil, fmt.Errorf("load database config: %w", err)
	}

	if err := cfg.loadServer(); err != nil {
		return nil, fmt.Errorf("load server config: %w", err)
	}

	cfg.loadAuth()
	cfg.loadStorage()

	if err := cfg.loadCache(); err != nil {
		return nil, fmt.Errorf("load cache config: %w", err)
	}

	cfg.loadCORS()
	cfg.loadLogging()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadDatabase() error {
	// Try to load DATABASE_URL first
	c.Database.URL = os.Getenv("DATABASE_URL")

	// If not present, construct from individual parameters
	if c.Database.URL == "" {
		c.Database.Host = getEnvOrDefault("DB_HOST", "localhost")
		c.Database.User = os.Getenv("DB_USER")
		c.Database.Password = os.Getenv("DB_PASSWORD")
		c.Database.Name = getEnvOrDefault("DB_NAME", "postgres")
		c.Database.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

		port, err := strconv.Atoi(getEnvOrDefault("DB_PORT", "5432"))
		if err != nil {
			return fmt.Errorf("invalid DB_PORT: %w", err)
		}
		c.Database.Port = port

		if c.Database.Host != "" && c.Database.User != "" && c.Database.Name != "" {
			c.Database.URL = fmt.Sprintf(
				"postgresql://%s:%s@%s:%d/%s?sslmode=%s",
				c.Database.User,
				c.Database.Password,
				c.Database.Host,
				c.Database.Port,
				c.Database.Name,
				c.Database.SSLMode,
			)
		}
	}

	return nil
}

func (c *Config) loadServer() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	c.Server.Port = port
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")

	timeout, err := time.ParseDuration(getEnvOrDefault("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}
	c.Server.ShutdownTimeout = timeout
	return nil
}

func (c *Config) loadAuth() {
	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.Audience = getEnvOrDefault("JWT_AUDIENCE", "authenticated")
}

func (c *Config) loadStorage() {
	c.Storage.Bucket = getEnvOrDefault("STORAGE_BUCKET", "sheets")
	c.Storage.Region = os.Getenv("STORAGE_REGION")
	c.Storage.Endpoint = os.Getenv("STORAGE_ENDPOINT")
	c.Storage.AccessKeyID = os.Getenv("STORAGE_ACCESS_KEY_ID")
	c.Storage.SecretAccessKey = os.Getenv("STORAGE_SECRET_ACCESS_KEY")
	c.Storage.PathStyle = strings.EqualFold(getEnvOrDefault("STORAGE_PATH_STYLE", "true"), "true")
}

func (c *Config) loadCache() error {
	c.Cache.Addr = os.Getenv("REDIS_ADDR")
	c.Cache.Enabled = c.Cache.Addr != "" && !strings.EqualFold(os.Getenv("CACHE_ENABLED"), "false")
	c.Cache.Password = os.Getenv("REDIS_PASSWORD")
	tlsEnv := os.Getenv("REDIS_TLS")
	c.Cache.TLS = strings.EqualFold(tlsEnv, "true") || tlsEnv == "1"

	db, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	c.Cache.DB = db

	ttl, err := time.ParseDuration(getEnvOrDefault("CACHE_TTL", "30s"))
	if err != nil {
		return fmt.Errorf("invalid CACHE_TTL: %w", err)
	}
	c.Cache.TTL = ttl
	return nil
}

func (c *Config) loadCORS() {
	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv != "" {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		c.CORS.AllowedOrigins = origins
	} else {
		// Default for local development
		c.CORS.AllowedOrigins = []string{
			"http://localhost:3000",
		}
	}
}

func (c *Config) loadLogging() {
	c.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	c.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")
}

// Validate checks that all required configuration is present and valid
func (c *Config) Validate() error {
	var errors []string

	if c.Database.URL == "" {
		errors = append(errors, "DATABASE_URL is required (or DB_HOST, DB_USER, DB_NAME)")
	}

	if c.Auth.JWTSecret == "" {
		errors = append(errors, "JWT_SECRET is required")
	} else if len(c.Auth.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errors = append(errors, "PORT must be between 1 and 65535")
	}

	if c.Storage.Bucket == "" {
		errors = append(errors, "STORAGE_BUCKET must not be empty")
	}

	if c.Cache.TTL <= 0 {
		errors = append(errors, "CACHE_TTL must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		errors = append(errors, "LOG_LEVEL must be one of: debug, info, warn, error")
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		errors = append(errors, "LOG_FORMAT must be one of: json, text")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
