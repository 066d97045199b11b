package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
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
}

// MinIOConfig holds object storage settings for the image bucket.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// UploadConfig controls the image upload proxy.
type UploadConfig struct {
	// Folder is the fixed key prefix every upload is stored under.
	Folder string
	// PublicBaseURL is the CDN origin serving the bucket. When empty the
	// storage endpoint is used.
	PublicBaseURL string
	MaxBytes      int
}

// AuthConfig holds the shared secret used to verify identity provider tokens.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// LogConfig configures the zerolog output.
type LogConfig struct {
	Level  string
	Pretty bool
}

// LiveConfig controls live collection subscriptions.
type LiveConfig struct {
	// PGListen enables LISTEN/NOTIFY fan-in so changes made by other
	// instances reach local subscribers.
	PGListen bool
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost     string
	Port        string
	CORSOrigins string
	Log         LogConfig
	Database    DatabaseConfig
	MinIO       MinIOConfig
	Upload      UploadConfig
	Auth        AuthConfig
	Live        LiveConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:     getEnv("APP_HOST", "localhost:8080"),
		Port:        getEnv("PORT", "8080"),
		CORSOrigins: getEnv("CORS_ORIGINS", "*"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Pretty: getEnvBool("LOG_PRETTY", false),
		},
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
		},
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Upload: UploadConfig{
			Folder:        strings.Trim(getEnv("UPLOAD_FOLDER", "library"), "/"),
			PublicBaseURL: strings.TrimRight(getEnv("UPLOAD_PUBLIC_BASE_URL", ""), "/"),
			MaxBytes:      getEnvInt("UPLOAD_MAX_BYTES", 10<<20),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", ""),
			Issuer:    getEnv("AUTH_ISSUER", "libportal"),
		},
		Live: LiveConfig{
			PGListen: getEnvBool("LIVE_PG_LISTEN", false),
		},
	}
}

// Validate reports every missing privileged credential. The server cannot run
// without them, so callers treat a non-nil result as fatal.
func (c *AppConfig) Validate() error {
	var errs []error
	required := []struct {
		key, val string
	}{
		{"DB_HOST", c.Database.Host},
		{"DB_USER", c.Database.User},
		{"DB_NAME", c.Database.Name},
		{"MINIO_ENDPOINT", c.MinIO.Endpoint},
		{"MINIO_ACCESS_KEY", c.MinIO.AccessKey},
		{"MINIO_SECRET_KEY", c.MinIO.SecretKey},
		{"MINIO_BUCKET", c.MinIO.Bucket},
		{"AUTH_JWT_SECRET", c.Auth.JWTSecret},
	}
	for _, r := range required {
		if r.val == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.key))
		}
	}
	if c.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("UPLOAD_MAX_BYTES must be positive"))
	}
	return errors.Join(errs...)
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
