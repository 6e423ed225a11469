package kvschema

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config describes how Open builds a Client.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// BackendConfig selects and configures the store.
type BackendConfig struct {
	Driver      string        `yaml:"driver"` // "redis", "bolt" or "memory"
	Addr        string        `yaml:"addr"`
	Username    string        `yaml:"username,omitempty"`
	Password    string        `yaml:"password,omitempty"`
	DB          int           `yaml:"db"`
	Path        string        `yaml:"path"` // bolt only
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoadConfig reads a YAML file. ${VAR} references are expanded, then
// KVSCHEMA_* environment variables override what the file says.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig([]byte(os.ExpandEnv(string(data))))
}

// ParseConfig is LoadConfig for YAML already in memory. Environment variable
// overrides still apply.
func ParseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Environment variables:
//
//	KVSCHEMA_DRIVER            - redis, bolt or memory (default: redis)
//	KVSCHEMA_REDIS_ADDR        - Redis address (default: localhost:6379)
//	KVSCHEMA_REDIS_USERNAME
//	KVSCHEMA_REDIS_PASSWORD
//	KVSCHEMA_REDIS_DB          - Redis database number
//	KVSCHEMA_BOLT_PATH         - Bolt file (default: kvschema.db)
//	KVSCHEMA_DIAL_TIMEOUT      - e.g. 5s
//	KVSCHEMA_LOG_LEVEL         - debug, info, warn, error (default: info)
//	KVSCHEMA_LOG_FORMAT        - json or console (default: json)
//	KVSCHEMA_METRICS_ENABLED
//	KVSCHEMA_METRICS_NAMESPACE - (default: kvschema)
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KVSCHEMA_DRIVER"); v != "" {
		cfg.Backend.Driver = v
	}
	if v := os.Getenv("KVSCHEMA_REDIS_ADDR"); v != "" {
		cfg.Backend.Addr = v
	}
	if v := os.Getenv("KVSCHEMA_REDIS_USERNAME"); v != "" {
		cfg.Backend.Username = v
	}
	if v := os.Getenv("KVSCHEMA_REDIS_PASSWORD"); v != "" {
		cfg.Backend.Password = v
	}
	if v := os.Getenv("KVSCHEMA_REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.DB = n
		}
	}
	if v := os.Getenv("KVSCHEMA_BOLT_PATH"); v != "" {
		cfg.Backend.Path = v
	}
	if v := os.Getenv("KVSCHEMA_DIAL_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Backend.DialTimeout = d
		}
	}

	if v := os.Getenv("KVSCHEMA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("KVSCHEMA_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("KVSCHEMA_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := os.Getenv("KVSCHEMA_METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
}

func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.Backend.Driver == "" {
		cfg.Backend.Driver = "redis"
	}
	if cfg.Backend.Addr == "" {
		cfg.Backend.Addr = "localhost:6379"
	}
	if cfg.Backend.Path == "" {
		cfg.Backend.Path = "kvschema.db"
	}
	if cfg.Backend.DialTimeout == 0 {
		cfg.Backend.DialTimeout = 5 * time.Second
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "kvschema"
	}
}

func validate(cfg *Config) error {
	switch cfg.Backend.Driver {
	case "redis", "bolt", "memory":
	default:
		return fmt.Errorf("backend.driver must be 'redis', 'bolt' or 'memory', got %q", cfg.Backend.Driver)
	}
	if cfg.Backend.DB < 0 {
		return fmt.Errorf("backend.db must not be negative, got %d", cfg.Backend.DB)
	}
	if cfg.Backend.DialTimeout < 0 {
		return fmt.Errorf("backend.dial_timeout must not be negative, got %v", cfg.Backend.DialTimeout)
	}
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}
	return nil
}

// NewLogger builds a zerolog logger writing to w according to cfg.
func NewLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// NewBackend creates the backend cfg names. It does not connect.
func NewBackend(cfg BackendConfig) (Backend, error) {
	switch cfg.Driver {
	case "redis":
		return NewRedisBackend(&redis.Options{
			Addr:        cfg.Addr,
			Username:    cfg.Username,
			Password:    cfg.Password,
			DB:          cfg.DB,
			DialTimeout: cfg.DialTimeout,
		}), nil
	case "bolt":
		return NewBoltBackend(cfg.Path, BoltOptions{Timeout: cfg.DialTimeout}), nil
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("kvschema: unknown backend driver %q", cfg.Driver)
	}
}

// Open compiles scm against the backend described by cfg. Events are logged
// to stderr; with metrics enabled they are also counted in collectors
// registered with reg (prometheus.DefaultRegisterer when reg is nil).
func Open(cfg *Config, scm Schema, reg prometheus.Registerer) (*Client, error) {
	backend, err := NewBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.Logging, os.Stderr)
	var obs Observer = NewLogObserver(logger)
	if cfg.Metrics.Enabled {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		obs = MultiObserver{obs, NewMetrics(reg, cfg.Metrics.Namespace)}
	}
	return Compile(backend, scm, Options{Observer: obs})
}
