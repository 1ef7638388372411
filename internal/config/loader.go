package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	return LoadWith(viper.New())
}

// LoadWith loads configuration through the given viper instance
func LoadWith(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	// Read from environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Optionally read from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/xray")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config

	// Server
	cfg.Server.Host = v.GetString("server_host")
	cfg.Server.Port = v.GetInt("server_port")
	cfg.Server.Env = v.GetString("server_env")
	cfg.Server.CORSOrigins = v.GetString("server_cors_origins")
	cfg.Server.ShutdownTimeout = v.GetDuration("server_shutdown_timeout")
	cfg.Server.HeartbeatInterval = v.GetDuration("server_heartbeat_interval")
	cfg.Server.RunsPerMinute = v.GetInt("server_runs_per_minute")

	// Logging
	cfg.Log.Level = v.GetString("log_level")
	cfg.Log.Format = v.GetString("log_format")

	// Reasoner
	cfg.Reasoner.Backend = v.GetString("reasoner_backend")
	cfg.Reasoner.BaseURL = v.GetString("reasoner_base_url")
	cfg.Reasoner.Model = v.GetString("reasoner_model")
	cfg.Reasoner.APIKey = v.GetString("reasoner_api_key")
	if cfg.Reasoner.APIKey == "" {
		cfg.Reasoner.APIKey = v.GetString("openai_api_key")
	}
	cfg.Reasoner.Temperature = v.GetFloat64("reasoner_temperature")
	cfg.Reasoner.MaxTokens = v.GetInt("reasoner_max_tokens")
	cfg.Reasoner.Timeout = v.GetDuration("reasoner_timeout")
	cfg.Reasoner.CacheTTL = v.GetDuration("reasoner_cache_ttl")
	cfg.Reasoner.BreakerFailures = v.GetInt("reasoner_breaker_failures")
	cfg.Reasoner.BreakerCooldown = v.GetDuration("reasoner_breaker_cooldown")

	// Redis
	cfg.Redis.Enabled = v.GetBool("redis_enabled")
	cfg.Redis.Host = v.GetString("redis_host")
	cfg.Redis.Port = v.GetInt("redis_port")
	cfg.Redis.Password = v.GetString("redis_password")
	cfg.Redis.DB = v.GetInt("redis_db")

	// Worker
	cfg.Worker.Dispatcher = v.GetString("worker_dispatcher")
	cfg.Worker.Concurrency = v.GetInt("worker_concurrency")
	cfg.Worker.Queue = v.GetString("worker_queue")
	cfg.Worker.Instance = v.GetString("worker_instance")
	cfg.Worker.RunTimeout = v.GetDuration("worker_run_timeout")

	// Sentry
	cfg.Sentry.DSN = v.GetString("sentry_dsn")
	cfg.Sentry.SampleRate = v.GetFloat64("sentry_sample_rate")

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server_host", "0.0.0.0")
	v.SetDefault("server_port", 3001)
	v.SetDefault("server_env", "development")
	v.SetDefault("server_cors_origins", "*")
	v.SetDefault("server_shutdown_timeout", "10s")
	v.SetDefault("server_heartbeat_interval", "15s")
	v.SetDefault("server_runs_per_minute", 0)

	// Logging
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	// Reasoner
	v.SetDefault("reasoner_backend", "openai")
	v.SetDefault("reasoner_base_url", "https://api.openai.com/v1")
	v.SetDefault("reasoner_model", "gpt-4o-mini")
	v.SetDefault("reasoner_temperature", 0.1)
	v.SetDefault("reasoner_max_tokens", 1000)
	v.SetDefault("reasoner_timeout", "30s")
	v.SetDefault("reasoner_cache_ttl", "0s")
	v.SetDefault("reasoner_breaker_failures", 5)
	v.SetDefault("reasoner_breaker_cooldown", "30s")

	// Redis
	v.SetDefault("redis_enabled", false)
	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", 6379)
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	// Worker
	v.SetDefault("worker_dispatcher", "pool")
	v.SetDefault("worker_concurrency", 4)
	v.SetDefault("worker_queue", "xray")
	v.SetDefault("worker_instance", defaultInstance())
	v.SetDefault("worker_run_timeout", "5m")

	// Sentry
	v.SetDefault("sentry_sample_rate", 1.0)
}

func validate(cfg *Config) error {
	switch cfg.Reasoner.Backend {
	case "openai", "offline":
	default:
		return fmt.Errorf("unknown reasoner backend %q", cfg.Reasoner.Backend)
	}
	if cfg.Reasoner.Backend == "openai" && cfg.Reasoner.APIKey == "" && cfg.IsProduction() {
		return fmt.Errorf("reasoner API key must be set in production")
	}
	switch cfg.Worker.Dispatcher {
	case "pool":
	case "asynq":
		if !cfg.Redis.Enabled {
			return fmt.Errorf("asynq dispatcher requires redis to be enabled")
		}
	default:
		return fmt.Errorf("unknown worker dispatcher %q", cfg.Worker.Dispatcher)
	}
	if cfg.Reasoner.CacheEnabled() && !cfg.Redis.Enabled {
		return fmt.Errorf("reasoner cache requires redis to be enabled")
	}
	if cfg.Server.RunsPerMinute > 0 && !cfg.Redis.Enabled {
		return fmt.Errorf("run rate limit requires redis to be enabled")
	}
	if cfg.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be positive")
	}
	if cfg.Worker.Dispatcher == "asynq" && cfg.Worker.Instance == "" {
		return fmt.Errorf("asynq dispatcher requires a worker instance so runs stay in the process holding their execution")
	}
	return nil
}

// defaultInstance identifies this process by host and pid
func defaultInstance() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return host + "-" + strconv.Itoa(os.Getpid())
}
