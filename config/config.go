// Package config loads service and CLI configuration from defaults, an
// optional config file, an optional .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/kosarica/coupon-planner/internal/database"
	"github.com/kosarica/coupon-planner/internal/feed"
	"github.com/kosarica/coupon-planner/internal/middleware"
	"github.com/kosarica/coupon-planner/internal/optimizer"
	"github.com/kosarica/coupon-planner/internal/plancache"
	"github.com/kosarica/coupon-planner/internal/telemetry"
)

// EnvPrefix prefixes environment overrides, e.g. COUPON_PLANNER_PLANNER_ITERATIONS.
const EnvPrefix = "COUPON_PLANNER"

// Config holds the application configuration
type Config struct {
	Server    ServerConfig                 `mapstructure:"server"`
	Database  database.Config              `mapstructure:"database"`
	Logging   LoggingConfig                `mapstructure:"logging"`
	Planner   optimizer.Config             `mapstructure:"planner"`
	Cache     plancache.Config             `mapstructure:"cache"`
	RateLimit middleware.RateLimiterConfig `mapstructure:"rate_limit"`
	Telemetry telemetry.Config             `mapstructure:"telemetry"`
	Feed      FeedConfig                   `mapstructure:"feed"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// InternalAPIKey guards /internal routes when set.
	InternalAPIKey string `mapstructure:"internal_api_key"`

	// MaxConcurrentPlans bounds planning runs in flight across requests.
	MaxConcurrentPlans int `mapstructure:"max_concurrent_plans"`

	// MaxRequestTimeBudget caps the time budget a request may ask for.
	MaxRequestTimeBudget time.Duration `mapstructure:"max_request_time_budget"`

	// MaxWorkers and MaxTopK cap the worker count and result size of one request.
	MaxWorkers int `mapstructure:"max_workers"`
	MaxTopK    int `mapstructure:"max_top_k"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Format  string `mapstructure:"format"`
	NoColor bool   `mapstructure:"no_color"`
}

// FeedConfig holds catalog source settings.
type FeedConfig struct {
	CircuitBreaker feed.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Fetch          feed.FetchConfig          `mapstructure:"fetch"`
}

// Load loads the configuration from file, .env, and environment variables.
// An empty configPath searches ./config and . for config.yaml.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := loadEnvFile(".", "./config"); err != nil {
		log.Debug().Err(err).Msg(".env file not loaded")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server.port %d", c.Server.Port)
	}
	if c.Server.MaxConcurrentPlans < 1 {
		return fmt.Errorf("server.max_concurrent_plans must be at least 1")
	}
	if c.Server.MaxWorkers < 0 || c.Server.MaxTopK < 0 {
		return fmt.Errorf("server.max_workers and server.max_top_k cannot be negative")
	}
	if err := c.Planner.Validate(); err != nil {
		return fmt.Errorf("invalid planner config: %w", err)
	}
	return nil
}

// loadEnvFile reads the first .env found in dirs into the process
// environment without overriding variables that are already set.
func loadEnvFile(dirs ...string) error {
	for _, dir := range dirs {
		path := filepath.Join(dir, ".env")
		if _, err := os.Stat(path); err != nil {
			continue
		}

		ev := viper.New()
		ev.SetConfigFile(path)
		ev.SetConfigType("env")
		if err := ev.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		for _, key := range ev.AllKeys() {
			name := strings.ToUpper(key)
			if _, set := os.LookupEnv(name); !set {
				os.Setenv(name, ev.GetString(key))
			}
		}
		return nil
	}
	return fmt.Errorf("no .env file found")
}

// bindEnvVars binds the conventional unprefixed variables.
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("database.url", EnvPrefix+"_DATABASE_URL", "DATABASE_URL")
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("logging.level", EnvPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")
	v.BindEnv("server.internal_api_key", EnvPrefix+"_SERVER_INTERNAL_API_KEY", "INTERNAL_API_KEY")
	v.BindEnv("telemetry.endpoint", EnvPrefix+"_TELEMETRY_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.internal_api_key", "")
	v.SetDefault("server.max_concurrent_plans", 4)
	v.SetDefault("server.max_request_time_budget", 30*time.Second)
	v.SetDefault("server.max_workers", 8)
	v.SetDefault("server.max_top_k", 50)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 1)
	v.SetDefault("database.max_conn_lifetime", 1*time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.no_color", false)

	planner := optimizer.Defaults()
	v.SetDefault("planner.iterations", planner.Iterations)
	v.SetDefault("planner.time_budget", planner.TimeBudget)
	v.SetDefault("planner.exploration", planner.Exploration)
	v.SetDefault("planner.strategy", string(planner.Strategy))
	v.SetDefault("planner.top_k", planner.TopK)
	v.SetDefault("planner.seed", planner.Seed)
	v.SetDefault("planner.workers", planner.Workers)
	v.SetDefault("planner.expansion_width", planner.ExpansionWidth)
	v.SetDefault("planner.evaluation_order", string(planner.EvaluationOrder))

	cache := plancache.DefaultConfig()
	v.SetDefault("cache.ttl", cache.TTL)
	v.SetDefault("cache.max_entries", cache.MaxEntries)

	rl := middleware.DefaultRateLimiterConfig()
	v.SetDefault("rate_limit.enabled", rl.Enabled)
	v.SetDefault("rate_limit.requests_per_second", rl.RequestsPerSecond)
	v.SetDefault("rate_limit.burst_size", rl.BurstSize)
	v.SetDefault("rate_limit.idle_timeout", rl.IdleTimeout)
	v.SetDefault("rate_limit.global_requests_per_second", rl.GlobalRequestsPerSecond)
	v.SetDefault("rate_limit.global_burst_size", rl.GlobalBurstSize)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "opentelemetry-collector:4317")
	v.SetDefault("telemetry.service_name", telemetry.DefaultServiceName)
	v.SetDefault("telemetry.service_version", "")
	v.SetDefault("telemetry.environment", "")
	v.SetDefault("telemetry.export_interval", 30*time.Second)

	cb := feed.DefaultCircuitBreakerConfig()
	v.SetDefault("feed.circuit_breaker.max_failures", cb.MaxFailures)
	v.SetDefault("feed.circuit_breaker.reset_timeout", cb.ResetTimeout)
	v.SetDefault("feed.circuit_breaker.half_open_max_calls", cb.HalfOpenMaxCalls)

	fetch := feed.DefaultFetchConfig()
	v.SetDefault("feed.fetch.max_retries", fetch.MaxRetries)
	v.SetDefault("feed.fetch.initial_backoff", fetch.InitialBackoff)
	v.SetDefault("feed.fetch.max_backoff", fetch.MaxBackoff)
	v.SetDefault("feed.fetch.requests_per_second", fetch.RequestsPerSecond)
	v.SetDefault("feed.fetch.timeout", fetch.Timeout)
	v.SetDefault("feed.fetch.max_bytes", fetch.MaxBytes)
}
