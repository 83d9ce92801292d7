package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"chronoguess/adapters/redis"
	"chronoguess/adapters/sqlx"
	"chronoguess/engine"
)

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "CHRONOGUESS_"

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"ENV"`
	Profile     string      `json:"profile" env:"PROFILE"`

	Server    ServerConfig    `json:"server" envPrefix:"SERVER_"`
	Storage   StorageConfig   `json:"storage" envPrefix:"STORAGE_"`
	Game      GameConfig      `json:"game" envPrefix:"GAME_"`
	Logging   LoggingConfig   `json:"logging" envPrefix:"LOG_"`
	Metrics   MetricsConfig   `json:"metrics" envPrefix:"METRICS_"`
	Security  SecurityConfig  `json:"security" envPrefix:"SECURITY_"`
	Webhooks  WebhooksConfig  `json:"webhooks" envPrefix:"WEBHOOKS_"`
	Analytics AnalyticsConfig `json:"analytics" envPrefix:"ANALYTICS_"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"ADDR"`
	PathPrefix        string        `json:"path_prefix" env:"PATH_PREFIX"`
	CORSOrigin        string        `json:"cors_origin" env:"CORS_ORIGIN"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// StorageConfig selects the remote store and the device-local store.
type StorageConfig struct {
	Adapter     string       `json:"adapter" env:"ADAPTER"`
	Redis       redis.Config `json:"redis,omitempty" envPrefix:"REDIS_"`
	SQL         sqlx.Config  `json:"sql,omitempty" envPrefix:"SQL_"`
	File        FileConfig   `json:"file,omitempty" envPrefix:"FILE_"`
	AutoMigrate bool         `json:"auto_migrate" env:"AUTO_MIGRATE"`
	// LocalPath holds guest data and the fallback snapshot; empty keeps them
	// in memory.
	LocalPath string `json:"local_path" env:"LOCAL_PATH"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"PATH"`
}

// GameConfig holds the defaults applied to every new game.
type GameConfig struct {
	Rounds        int    `json:"rounds" env:"ROUNDS"`
	Mode          string `json:"mode" env:"MODE"`
	HintsAllowed  *int   `json:"hints_allowed,omitempty" env:"HINTS_ALLOWED"`
	RoundTimerSec *int   `json:"round_timer_sec,omitempty" env:"ROUND_TIMER_SEC"`
	Strict        bool   `json:"strict" env:"STRICT"`
	AsyncEvents   bool   `json:"async_events" env:"ASYNC_EVENTS"`

	// finished sessions stay readable for SessionRetention; unfinished ones
	// are aborted after IdleTimeout without activity
	SessionRetention time.Duration `json:"session_retention" env:"SESSION_RETENTION"`
	IdleTimeout      time.Duration `json:"idle_timeout" env:"IDLE_TIMEOUT"`
	SweepInterval    time.Duration `json:"sweep_interval" env:"SWEEP_INTERVAL"`
}

// Settings converts the section into engine settings.
func (g GameConfig) Settings() (engine.Settings, error) {
	s, err := engine.SettingsForMode(engine.GameMode(g.Mode))
	if err != nil {
		return engine.Settings{}, err
	}
	if g.Rounds > 0 {
		s.Rounds = g.Rounds
	}
	if g.HintsAllowed != nil {
		s.HintsAllowed = *g.HintsAllowed
	}
	if g.RoundTimerSec != nil {
		s.RoundTimer = time.Duration(*g.RoundTimerSec) * time.Second
	}
	return s, s.Validate()
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"LEVEL"`
	Format     string            `json:"format" env:"FORMAT"`
	Output     string            `json:"output" env:"OUTPUT"`
	Attributes map[string]string `json:"attributes,omitempty" env:"ATTRIBUTES"`
}

// MetricsConfig holds metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"ENABLED"`
	Address string `json:"address" env:"ADDR"`
	Path    string `json:"path" env:"PATH"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"RATE_LIMIT_ENABLED"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty" envPrefix:"RATE_LIMIT_"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"API_KEYS"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" env:"RPM"`
	BurstSize         int           `json:"burst_size" env:"BURST"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"CLEANUP"`
}

// WebhooksConfig lists endpoints that receive game events.
type WebhooksConfig struct {
	Endpoints []string      `json:"endpoints,omitempty" env:"ENDPOINTS"`
	Events    []string      `json:"events,omitempty" env:"EVENTS"`
	Timeout   time.Duration `json:"timeout" env:"TIMEOUT"`
}

// AnalyticsConfig controls in-process KPI rollups.
type AnalyticsConfig struct {
	AggregationInterval time.Duration `json:"aggregation_interval" env:"AGGREGATION_INTERVAL"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()
	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFromEnv(cfg *Config) error {
	return env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix})
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file; environment variables
// override file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadProfile returns the defaults for a named deployment environment.
func LoadProfile(name string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Profile = name
	switch Environment(name) {
	case EnvDevelopment:
		cfg.Logging.Format = "text"
		cfg.Logging.Level = "debug"
	case EnvTesting:
		cfg.Environment = EnvTesting
		cfg.Logging.Level = "warn"
		cfg.Analytics.AggregationInterval = 0
	case EnvStaging:
		cfg.Environment = EnvStaging
		cfg.Storage.Adapter = "redis"
		cfg.Storage.LocalPath = "./data/local.json"
		cfg.Game.Strict = false
		cfg.Game.AsyncEvents = true
		cfg.Metrics.Enabled = true
	case EnvProduction:
		cfg.Environment = EnvProduction
		cfg.Storage.Adapter = "redis"
		cfg.Storage.LocalPath = "./data/local.json"
		cfg.Game.Strict = false
		cfg.Game.AsyncEvents = true
		cfg.Metrics.Enabled = true
		cfg.Security.EnableRateLimit = true
		cfg.Server.CORSOrigin = ""
	default:
		return nil, fmt.Errorf("unknown profile %q", name)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverSQLite),
			File: FileConfig{
				Path: "./data/chronoguess.json",
			},
			AutoMigrate: true,
		},
		Game: GameConfig{
			Rounds:           engine.DefaultRounds,
			Mode:             string(engine.ModeClassic),
			Strict:           true,
			SessionRetention: engine.DefaultCompletedRetention,
			IdleTimeout:      engine.DefaultIdleTimeout,
			SweepInterval:    time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: ":9090",
			Path:    "/metrics",
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 120,
				BurstSize:         20,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
		Webhooks: WebhooksConfig{
			Timeout: 2 * time.Second,
		},
		Analytics: AnalyticsConfig{
			AggregationInterval: time.Hour,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"server", &c.Server},
		{"storage", &c.Storage},
		{"game", c.Game},
		{"logging", &c.Logging},
		{"metrics", &c.Metrics},
		{"security", c.Security},
		{"webhooks", c.Webhooks},
	}
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("%s config: %v", s.name, err))
		}
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if cfg.Storage.Redis.URL != "" {
		cfg.Storage.Redis.URL = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{"[REDACTED]"}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
