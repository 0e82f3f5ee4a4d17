package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Redis      RedisConfig      `yaml:"redis"`
	Upload     UploadConfig     `yaml:"upload"`
	Validation ValidationConfig `yaml:"validation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port        int      `yaml:"port"`
	Host        string   `yaml:"host"`
	CORSOrigins []string `yaml:"cors_origins"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// RedisConfig holds the connection settings for upload session storage
type RedisConfig struct {
	Addr           string `yaml:"addr"`
	Password       string `yaml:"password"`
	DB             int    `yaml:"db"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c RedisConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// UploadConfig holds limits for sheet ingestion sessions
type UploadConfig struct {
	MaxFileBytes        int64 `yaml:"max_file_bytes"`
	MaxRows             int   `yaml:"max_rows"`
	MaxErrorsShown      int   `yaml:"max_errors_shown"`
	MaxInitialRowsShown int   `yaml:"max_initial_rows_shown"`
	SessionTTLMinutes   int   `yaml:"session_ttl_minutes"`
}

// SessionTTL returns how long an upload session stays readable
func (c UploadConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLMinutes) * time.Minute
}

// ValidationConfig holds recipient validation policy
type ValidationConfig struct {
	AllowInternationalSMS     bool `yaml:"allow_international_sms"`
	AllowInternationalLetters bool `yaml:"allow_international_letters"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Redis.TimeoutSeconds == 0 {
		cfg.Redis.TimeoutSeconds = 5
	}
	if cfg.Upload.MaxFileBytes == 0 {
		cfg.Upload.MaxFileBytes = 10 << 20
	}
	if cfg.Upload.MaxRows == 0 {
		cfg.Upload.MaxRows = 100_000
	}
	if cfg.Upload.MaxErrorsShown == 0 {
		cfg.Upload.MaxErrorsShown = 20
	}
	if cfg.Upload.MaxInitialRowsShown == 0 {
		cfg.Upload.MaxInitialRowsShown = 10
	}
	if cfg.Upload.SessionTTLMinutes == 0 {
		cfg.Upload.SessionTTLMinutes = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			cfg.Redis.DB = n
		}
	}
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.Server.CORSOrigins = strings.Split(origins, ",")
	}
	if maxBytes := os.Getenv("UPLOAD_MAX_FILE_BYTES"); maxBytes != "" {
		if n, err := strconv.ParseInt(maxBytes, 10, 64); err == nil {
			cfg.Upload.MaxFileBytes = n
		}
	}
	if v := os.Getenv("ALLOW_INTERNATIONAL_SMS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Validation.AllowInternationalSMS = b
		}
	}
	if v := os.Getenv("ALLOW_INTERNATIONAL_LETTERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Validation.AllowInternationalLetters = b
		}
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}

	return cfg, nil
}
