package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Cache      CacheConfig
	Auth       AuthConfig
	Cloudinary CloudinaryConfig
	Badges     BadgeConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL                 string
	MaxOpenConns        int
	MaxIdleConns        int
	ConnMaxLifetime     time.Duration
	ConnMaxIdleTime     time.Duration
	SlowQueryThreshold  time.Duration
	HealthCheckInterval time.Duration
	MigrationsPath      string
	ConnectTimeout      time.Duration
	ConnectMaxRetryTime time.Duration
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Provider      string // "memory", "redis"
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
	TTL           time.Duration
	CatalogTTL    time.Duration
}

// AuthConfig holds token verification configuration. Login/signup flows
// live in a separate service; this app only verifies bearer tokens.
type AuthConfig struct {
	JWTSecret string
	JWTExpiry time.Duration
	AdminRole string
}

// CloudinaryConfig holds Cloudinary configuration for badge icon assets
type CloudinaryConfig struct {
	CloudName   string
	APIKey      string
	APISecret   string
	Folder      string
	MaxFileSize int64
}

// BadgeConfig tunes the award engine
type BadgeConfig struct {
	// ValidateCooldown is the minimum interval between validate calls
	// per user; 0 disables the limiter.
	ValidateCooldown time.Duration
	// MaxBatchSize caps the number of events accepted in one request.
	MaxBatchSize int
}

// Load reads configuration from the environment, loading a .env file
// first outside production.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Server:     loadServerConfig(env),
		Database:   loadDatabaseConfig(env),
		Cache:      loadCacheConfig(env),
		Auth:       loadAuthConfig(),
		Cloudinary: loadCloudinaryConfig(),
		Badges:     loadBadgeConfig(),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	return ServerConfig{
		Port:            getEnv("PORT", "9000"),
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		Environment:     env,
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
	}
}

func loadDatabaseConfig(env string) DatabaseConfig {
	config := DatabaseConfig{
		URL:                 getEnv("DATABASE_URL", ""),
		MaxOpenConns:        getIntEnv("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:        getIntEnv("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime:     getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime:     getDurationEnv("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		SlowQueryThreshold:  getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		HealthCheckInterval: getDurationEnv("DB_HEALTH_CHECK_INTERVAL", 30*time.Second),
		MigrationsPath:      getEnv("DB_MIGRATIONS_PATH", "migrations"),
		ConnectTimeout:      getDurationEnv("DB_CONNECT_TIMEOUT", 10*time.Second),
		ConnectMaxRetryTime: getDurationEnv("DB_CONNECT_MAX_RETRY_TIME", 60*time.Second),
	}

	if env == "production" {
		// Bigger pool for production workloads
		if config.MaxOpenConns < 50 {
			config.MaxOpenConns = 50
		}
	}

	return config
}

func loadCacheConfig(env string) CacheConfig {
	provider := getEnv("CACHE_PROVIDER", "memory")
	if env == "production" {
		provider = getEnv("CACHE_PROVIDER", "redis")
	}

	return CacheConfig{
		Provider:      provider,
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
		TTL:           getDurationEnv("CACHE_TTL", 15*time.Minute),
		CatalogTTL:    getDurationEnv("BADGE_CATALOG_CACHE_TTL", 5*time.Minute),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTExpiry: getDurationEnv("JWT_EXPIRY", 24*time.Hour),
		AdminRole: getEnv("ADMIN_ROLE", "admin"),
	}
}

func loadCloudinaryConfig() CloudinaryConfig {
	return CloudinaryConfig{
		CloudName:   getEnv("CLOUDINARY_CLOUD_NAME", ""),
		APIKey:      getEnv("CLOUDINARY_API_KEY", ""),
		APISecret:   getEnv("CLOUDINARY_API_SECRET", ""),
		Folder:      getEnv("CLOUDINARY_BADGE_FOLDER", "badges"),
		MaxFileSize: getInt64Env("CLOUDINARY_MAX_FILE_SIZE", 2*1024*1024),
	}
}

func loadBadgeConfig() BadgeConfig {
	return BadgeConfig{
		ValidateCooldown: getDurationEnv("BADGE_VALIDATE_COOLDOWN", 0),
		MaxBatchSize:     getIntEnv("BADGE_MAX_BATCH_SIZE", 20),
	}
}

// Validate checks the configuration for fatal misconfiguration.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required")
	} else if _, err := url.Parse(c.Database.URL); err != nil {
		problems = append(problems, fmt.Sprintf("DATABASE_URL is not a valid URL: %v", err))
	}

	if c.Auth.JWTSecret == "" && c.Server.Environment == "production" {
		problems = append(problems, "JWT_SECRET is required in production")
	}

	if c.Cache.Provider != "memory" && c.Cache.Provider != "redis" {
		problems = append(problems, fmt.Sprintf("unsupported cache provider %q", c.Cache.Provider))
	}

	if c.Badges.MaxBatchSize < 1 {
		problems = append(problems, "BADGE_MAX_BATCH_SIZE must be at least 1")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
