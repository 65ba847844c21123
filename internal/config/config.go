package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"     validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database"   validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth"       validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache"      validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"`
	Upload    UploadConfig    `mapstructure:"upload"     validate:"required"`
	Task      TaskConfig      `mapstructure:"task"       validate:"required"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	Environment            string `mapstructure:"environment"              validate:"required,oneof=development test production"`
	Version                string `mapstructure:"version"                  validate:"required"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// ShutdownTimeout returns the graceful shutdown window.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url"                       validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"            validate:"gte=1"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"            validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret"             validate:"required,min=32"`
	Issuer               string `mapstructure:"issuer"                 validate:"required"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"required,gt=0,lte=44640"`
	// Transport selects where the access token travels: "cookie" or "header".
	Transport        string `mapstructure:"transport"          validate:"required,oneof=cookie header"`
	CookieName       string `mapstructure:"cookie_name"        validate:"required"`
	CookieDomain     string `mapstructure:"cookie_domain"`
	CrossSiteCookies bool   `mapstructure:"cross_site_cookies"`
	BcryptCost       int    `mapstructure:"bcrypt_cost"        validate:"gte=4,lte=31"`
}

// TokenLifetime returns the access token validity window.
func (c AuthConfig) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

// CacheConfig selects and tunes the cache backend.
type CacheConfig struct {
	Backend              string `mapstructure:"backend"                validate:"required,oneof=memory redis"`
	DefaultTTLSeconds    int    `mapstructure:"default_ttl_seconds"    validate:"required,gt=0"`
	SweepIntervalSeconds int    `mapstructure:"sweep_interval_seconds" validate:"required,gt=0"`
	RedisAddr            string `mapstructure:"redis_addr"             validate:"required_if=Backend redis"`
	RedisPassword        string `mapstructure:"redis_password"`
	RedisDB              int    `mapstructure:"redis_db"               validate:"gte=0"`
}

// DefaultTTL returns the TTL applied when callers pass none.
func (c CacheConfig) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// SweepInterval returns the period of the in-memory expiry sweep.
func (c CacheConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

// MailConfig holds SMTP settings. An empty Host disables delivery and
// messages are only logged.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"     validate:"omitempty,gt=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"     validate:"omitempty,email"`
}

// UploadConfig restricts and routes file uploads.
type UploadConfig struct {
	Backend       string   `mapstructure:"backend"         validate:"required,oneof=disk s3"`
	Dir           string   `mapstructure:"dir"             validate:"required_if=Backend disk"`
	MaxSizeBytes  int64    `mapstructure:"max_size_bytes"  validate:"required,gt=0"`
	AllowedTypes  []string `mapstructure:"allowed_types"   validate:"required,min=1,dive,required"`
	PublicBaseURL string   `mapstructure:"public_base_url"`
	S3Endpoint    string   `mapstructure:"s3_endpoint"     validate:"required_if=Backend s3"`
	S3Region      string   `mapstructure:"s3_region"`
	S3Bucket      string   `mapstructure:"s3_bucket"       validate:"required_if=Backend s3"`
	S3AccessKey   string   `mapstructure:"s3_access_key"   validate:"required_if=Backend s3"`
	S3SecretKey   string   `mapstructure:"s3_secret_key"   validate:"required_if=Backend s3"`
	S3UseSSL      bool     `mapstructure:"s3_use_ssl"`
}

// TaskConfig sizes the background job runner.
type TaskConfig struct {
	QueueSize   int `mapstructure:"queue_size"   validate:"required,gt=0"`
	WorkerCount int `mapstructure:"worker_count" validate:"required,gt=0"`
}

// RateLimitConfig throttles the unauthenticated credential endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute" validate:"required,gt=0"`
	Burst             int `mapstructure:"burst"               validate:"required,gt=0"`
}
