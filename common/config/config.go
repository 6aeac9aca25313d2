package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all service configuration
type Config struct {
	Service   ServiceConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Fetch     FetchConfig
	Transcode TranscodeConfig
	Telemetry TelemetryConfig
}

// ServiceConfig holds service-specific settings
type ServiceConfig struct {
	Name        string
	Port        int
	Environment string
	LogLevel    string
	LogFormat   string
}

// DatabaseConfig holds Postgres connection settings for the metadata store
type DatabaseConfig struct {
	Host        string
	Port        int
	Database    string
	User        string
	Password    string
	MaxConns    int
	MinConns    int
	MaxIdleTime time.Duration
	MaxLifetime time.Duration
	Migrate     bool
}

// RedisConfig holds settings for the optional resolver lookup cache.
// An empty Addr disables Redis; record lookups then use the in-process cache.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// CacheConfig holds on-disk artifact cache settings
type CacheConfig struct {
	Dir         string
	TempDir     string
	ResolverTTL time.Duration
}

// FetchConfig holds origin fetch settings
type FetchConfig struct {
	Timeout      time.Duration
	MaxRetries   int
	RetryBase    time.Duration
	AllowPrivate bool
}

// TranscodeConfig holds external transcoder settings
type TranscodeConfig struct {
	FFmpegPath string
	Timeout    time.Duration
	WebPublic  bool
}

// TelemetryConfig holds observability settings
type TelemetryConfig struct {
	EnablePprof bool
	PprofPort   int
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	cfg := &Config{
		Service: ServiceConfig{
			Name:        serviceName,
			Port:        getEnvInt("PORT", 8080),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFormat:   getEnv("LOG_FORMAT", "text"),
		},
		Database: DatabaseConfig{
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnvInt("DB_PORT", 5432),
			Database:    getEnv("DB_NAME", "sermcs"),
			User:        getEnv("DB_USER", "sermcs"),
			Password:    getEnv("DB_PASSWORD", ""),
			MaxConns:    getEnvInt("DB_MAX_CONNS", 5),
			MinConns:    getEnvInt("DB_MIN_CONNS", 1),
			MaxIdleTime: getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			MaxLifetime: getEnvDuration("DB_MAX_LIFETIME", 1*time.Hour),
			Migrate:     getEnvBool("DB_MIGRATE", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Cache: CacheConfig{
			Dir:         getEnv("SERMCS_CACHE_DIR", "/var/cache/sermcs"),
			TempDir:     getEnv("SERMCS_TEMP_DIR", os.TempDir()),
			ResolverTTL: getEnvDuration("SERMCS_RESOLVER_TTL", 5*time.Minute),
		},
		Fetch: FetchConfig{
			Timeout:      getEnvDuration("SERMCS_FETCH_TIMEOUT", 60*time.Second),
			MaxRetries:   getEnvInt("SERMCS_FETCH_RETRIES", 2),
			RetryBase:    getEnvDuration("SERMCS_FETCH_RETRY_BASE", 500*time.Millisecond),
			AllowPrivate: getEnvBool("SERMCS_FETCH_ALLOW_PRIVATE", false),
		},
		Transcode: TranscodeConfig{
			FFmpegPath: getEnv("SERMCS_FFMPEG_PATH", "ffmpeg"),
			Timeout:    getEnvDuration("SERMCS_TRANSCODE_TIMEOUT", 2*time.Minute),
			WebPublic:  getEnvBool("SERMCS_WEBPUBLIC_TRANSCODE", false),
		},
		Telemetry: TelemetryConfig{
			EnablePprof: getEnvBool("ENABLE_PPROF", false),
			PprofPort:   getEnvInt("PPROF_PORT", 6060),
		},
	}

	return cfg, cfg.Validate()
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.Service.Port < 1 || c.Service.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Service.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns must be >= min_conns")
	}

	if c.Cache.Dir == "" {
		return fmt.Errorf("cache dir is required")
	}

	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch retries must be >= 0")
	}

	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
	)
}

// RedisEnabled reports whether the optional Redis resolver cache is configured
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
