package config

import (
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	Reasoner ReasonerConfig
	Redis    RedisConfig
	Worker   WorkerConfig
	Sentry   SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Env               string        `mapstructure:"env"`
	CORSOrigins       string        `mapstructure:"cors_origins"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	// RunsPerMinute limits run submissions per client IP; zero disables it
	RunsPerMinute int `mapstructure:"runs_per_minute"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ReasonerConfig holds the language model backend configuration
type ReasonerConfig struct {
	// Backend is "openai" or "offline"
	Backend     string        `mapstructure:"backend"`
	BaseURL     string        `mapstructure:"base_url"`
	Model       string        `mapstructure:"model"`
	APIKey      string        `mapstructure:"api_key"`
	Temperature float64       `mapstructure:"temperature"`
	MaxTokens   int           `mapstructure:"max_tokens"`
	Timeout     time.Duration `mapstructure:"timeout"`
	CacheTTL    time.Duration `mapstructure:"cache_ttl"`
	// BreakerFailures opens the circuit after this many consecutive failures
	BreakerFailures int           `mapstructure:"breaker_failures"`
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"`
}

// CacheEnabled reports whether reasoner responses are cached in Redis
func (c ReasonerConfig) CacheEnabled() bool {
	return c.CacheTTL > 0
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// WorkerConfig holds detached run configuration
type WorkerConfig struct {
	// Dispatcher is "pool" for the in-process pool or "asynq" for the Redis queue
	Dispatcher  string        `mapstructure:"dispatcher"`
	Concurrency int           `mapstructure:"concurrency"`
	Queue       string        `mapstructure:"queue"`
	// Instance scopes the queue to this process. Executions live in the
	// process that started them, so a shared queue would hand runs to
	// processes that cannot see them.
	Instance    string        `mapstructure:"instance"`
	RunTimeout  time.Duration `mapstructure:"run_timeout"`
}

// ProcessQueue returns the queue this process enqueues to and consumes
func (c WorkerConfig) ProcessQueue() string {
	if c.Instance == "" {
		return c.Queue
	}
	return c.Queue + ":" + c.Instance
}

// SentryConfig holds error reporting configuration
type SentryConfig struct {
	DSN        string  `mapstructure:"dsn"`
	SampleRate float64 `mapstructure:"sample_rate"`
}

// Enabled reports whether a DSN is configured
func (c SentryConfig) Enabled() bool {
	return c.DSN != ""
}

// IsDevelopment returns true if running in development mode
func (c Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c Config) IsProduction() bool {
	return c.Server.Env == "production"
}
