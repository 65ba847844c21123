package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable read by Load,
// e.g. APP_DATABASE_URL maps to database.url.
const EnvPrefix = "APP"

// defaults lists every known key. Viper only binds environment variables for
// keys it already knows about, so keys without a sensible default are
// registered with their zero value.
var defaults = map[string]any{
	"server.port":                     8080,
	"server.log_level":                "info",
	"server.environment":              "development",
	"server.version":                  "1.0.0",
	"server.shutdown_timeout_seconds": 15,

	"database.url":                       "",
	"database.max_open_conns":            25,
	"database.max_idle_conns":            5,
	"database.conn_max_lifetime_minutes": 30,
	"database.auto_migrate":              true,

	"auth.jwt_secret":             "",
	"auth.issuer":                 "express-app-useable",
	"auth.token_lifetime_minutes": 60,
	"auth.transport":              "cookie",
	"auth.cookie_name":            "access_token",
	"auth.cookie_domain":          "",
	"auth.cross_site_cookies":     false,
	"auth.bcrypt_cost":            10,

	"cache.backend":                "memory",
	"cache.default_ttl_seconds":    3600,
	"cache.sweep_interval_seconds": 60,
	"cache.redis_addr":             "",
	"cache.redis_password":         "",
	"cache.redis_db":               0,

	"mail.host":     "",
	"mail.port":     587,
	"mail.username": "",
	"mail.password": "",
	"mail.from":     "no-reply@example.com",

	"upload.backend":         "disk",
	"upload.dir":             "./uploads",
	"upload.max_size_bytes":  5 << 20,
	"upload.allowed_types":   []string{"image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf"},
	"upload.public_base_url": "/uploads",
	"upload.s3_endpoint":     "",
	"upload.s3_region":       "",
	"upload.s3_bucket":       "",
	"upload.s3_access_key":   "",
	"upload.s3_secret_key":   "",
	"upload.s3_use_ssl":      true,

	"task.queue_size":   100,
	"task.worker_count": 2,

	"rate_limit.requests_per_minute": 20,
	"rate_limit.burst":               5,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// A .env file in the working directory, if present, is loaded into the
// process environment first; variables already set are not overridden.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
