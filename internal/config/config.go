package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Postgres    PostgresConfig
	ClickHouse  ClickHouseConfig
	Redis       RedisConfig
	MinIO       MinIOConfig
	JWT         JWTConfig
	RateLimit   RateLimitConfig
	Worker      WorkerConfig
	Log         LogConfig
	Scoring     ScoringConfig
	Aggregation AggregationConfig
	Sentry      SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

// PostgresConfig holds PostgreSQL configuration
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ClickHouseConfig holds ClickHouse configuration
type ClickHouseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmtAddr(c.Host, c.Port)
}

// MinIOConfig holds MinIO configuration for reference dataset storage
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
}

// JWTConfig holds JWT configuration for operator tokens
type JWTConfig struct {
	Secret      string        `mapstructure:"secret"`
	ExpiryHours int           `mapstructure:"expiry_hours"`
	Issuer      string        `mapstructure:"issuer"`
	Expiry      time.Duration `mapstructure:"-"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Max     int  `mapstructure:"max"`
	WindowS int  `mapstructure:"window_seconds"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	Concurrency   int    `mapstructure:"concurrency"`
	QueueCritical string `mapstructure:"queue_critical"`
	QueueDefault  string `mapstructure:"queue_default"`
	QueueLow      string `mapstructure:"queue_low"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ScoringConfig holds the external scoring service configuration
type ScoringConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
	Timeout        time.Duration `mapstructure:"-"`
}

// AggregationConfig holds trace detail aggregation configuration
type AggregationConfig struct {
	// MaxCandidates caps how many candidate traces one aggregation may fan out over
	MaxCandidates int `mapstructure:"max_candidates"`
	// FetchAttempts is the total attempts per candidate for retryable failures
	FetchAttempts int `mapstructure:"fetch_attempts"`
	// RetryBackoffMs is the fixed backoff between retry attempts
	RetryBackoffMs int `mapstructure:"retry_backoff_ms"`
	// PageSize is the fixed listing page size for candidate queries
	PageSize int `mapstructure:"page_size"`
}

// RetryBackoff returns the backoff between fetch retries
func (c AggregationConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// SentryConfig holds Sentry crash reporting configuration
type SentryConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	DSN              string  `mapstructure:"dsn"`
	Environment      string  `mapstructure:"environment"`
	Release          string  `mapstructure:"release"`
	Debug            bool    `mapstructure:"debug"`
	SampleRate       float64 `mapstructure:"sample_rate"`
	TracesSampleRate float64 `mapstructure:"traces_sample_rate"`
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
