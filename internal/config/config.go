package config

import (
	"os"
	"strconv"
	"time"

	"docvault/internal/format"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
	ConnectTimeoutSec  int
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// StorageConfig selects the blob store backend.
// Driver is either "minio" or "fs". Root is only used by the fs driver;
// Prefix namespaces document objects inside the bucket or root directory.
type StorageConfig struct {
	Driver string
	Root   string
	Prefix string
}

// PreviewConfig controls thumbnail generation.
type PreviewConfig struct {
	// Size is the edge of the square thumbnail box in pixels.
	Size           int
	Timeout        time.Duration
	MaxSourceBytes int64
	Concurrency    int
	Formats        *format.Table
}

// RedisConfig enables the optional thumbnail cache when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// UploadConfig bounds accepted uploads.
// MaxBytes applies to each file, MaxBodyBytes to the whole request.
type UploadConfig struct {
	MaxBytes     int64
	MaxBodyBytes int
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost       string
	Port          string
	PublicBaseURL string
	Timezone      string
	LogLevel      string
	Database      DatabaseConfig
	MinIO         MinIOConfig
	Storage       StorageConfig
	Preview       PreviewConfig
	Redis         RedisConfig
	Upload        UploadConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:       getEnv("APP_HOST", "localhost:8080"),
		Port:          getEnv("PORT", "8080"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),
		Timezone:      getEnv("APP_TIMEZONE", "UTC"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
			ConnectTimeoutSec:  getEnvInt("DB_CONNECT_TIMEOUT_SEC", 5),
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "minio"),
			Root:   getEnv("STORAGE_ROOT", "DocumentVault"),
			Prefix: getEnv("STORAGE_PREFIX", "documents"),
		},
		Preview: PreviewConfig{
			Size:           getEnvInt("PREVIEW_SIZE", 50),
			Timeout:        getEnvDuration("PREVIEW_TIMEOUT", 5*time.Second),
			MaxSourceBytes: int64(getEnvInt("PREVIEW_MAX_SOURCE_BYTES", 32<<20)),
			Concurrency:    getEnvInt("PREVIEW_CONCURRENCY", 4),
			Formats:        format.DefaultTable(),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			CacheTTL: getEnvDuration("PREVIEW_CACHE_TTL", 24*time.Hour),
		},
		Upload: UploadConfig{
			MaxBytes:     int64(getEnvInt("UPLOAD_MAX_BYTES", 64<<20)),
			MaxBodyBytes: getEnvInt("UPLOAD_MAX_BODY_BYTES", 256<<20),
		},
	}
}

// Location resolves the configured timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}
