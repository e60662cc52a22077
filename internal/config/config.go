package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "NODEDOWN_"

// Config captures the settings required to ingest the exports and serve reports.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Sources SourcesConfig `yaml:"sources"`
	Schema  SchemaConfig  `yaml:"schema"`
	Logging LoggingConfig `yaml:"logging"`
	Cache   CacheConfig   `yaml:"cache"`
	Watch   WatchConfig   `yaml:"watch"`
}

// ServerConfig controls the HTTP, gRPC and metrics listeners.
type ServerConfig struct {
	HTTPAddress     string        `yaml:"httpAddress"`
	GRPCAddress     string        `yaml:"grpcAddress"`
	MetricsAddress  string        `yaml:"metricsAddress"`
	GracefulTimeout time.Duration `yaml:"gracefulTimeout"`
}

// SourcesConfig locates the two spreadsheet exports.
type SourcesConfig struct {
	EventLog      SourceConfig `yaml:"eventLog"`
	MetricSamples SourceConfig `yaml:"metricSamples"`
}

// SourceConfig locates one export. An empty sheet selects the first sheet.
type SourceConfig struct {
	Path  string `yaml:"path"`
	Sheet string `yaml:"sheet"`
}

// SchemaConfig points at an optional YAML file overriding the source layouts.
type SchemaConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// CacheConfig controls caching of report query results.
type CacheConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	MaxRetries   int           `yaml:"maxRetries"`
	TLS          bool          `yaml:"tls"`
	TTL          time.Duration `yaml:"ttl"`
}

// WatchConfig controls re-ingestion when a source file changes.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}

	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// Validate reports settings that would stop the service from building a dataset.
func (c *Config) Validate() error {
	var missing []string
	if c.Sources.EventLog.Path == "" {
		missing = append(missing, "sources.eventLog.path")
	}
	if c.Sources.MetricSamples.Path == "" {
		missing = append(missing, "sources.metricSamples.path")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		missing = append(missing, "cache.addr")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddress:     ":8080",
			GRPCAddress:     ":50051",
			MetricsAddress:  ":2112",
			GracefulTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Cache: CacheConfig{
			Enabled:      false,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
			MaxRetries:   2,
			TTL:          5 * time.Minute,
		},
		Watch: WatchConfig{Enabled: false, Debounce: 2 * time.Second},
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.HTTPAddress, "HTTP_ADDRESS")
	setString(&cfg.Server.GRPCAddress, "GRPC_ADDRESS")
	setString(&cfg.Server.MetricsAddress, "METRICS_ADDRESS")
	setDuration(&cfg.Server.GracefulTimeout, "GRACEFUL_TIMEOUT")

	setString(&cfg.Sources.EventLog.Path, "EVENT_LOG_PATH")
	setString(&cfg.Sources.EventLog.Sheet, "EVENT_LOG_SHEET")
	setString(&cfg.Sources.MetricSamples.Path, "METRIC_SAMPLES_PATH")
	setString(&cfg.Sources.MetricSamples.Sheet, "METRIC_SAMPLES_SHEET")
	setString(&cfg.Schema.Path, "SCHEMA_PATH")

	setString(&cfg.Logging.Level, "LOG_LEVEL")
	if v := os.Getenv(EnvPrefix + "LOG_FORMAT"); v != "" {
		cfg.Logging.JSON = strings.EqualFold(v, "json")
	}

	setBool(&cfg.Cache.Enabled, "CACHE_ENABLED")
	setString(&cfg.Cache.Addr, "CACHE_ADDR")
	setString(&cfg.Cache.Username, "CACHE_USERNAME")
	setString(&cfg.Cache.Password, "CACHE_PASSWORD")
	setInt(&cfg.Cache.DB, "CACHE_DB")
	setBool(&cfg.Cache.TLS, "CACHE_TLS")
	setDuration(&cfg.Cache.DialTimeout, "CACHE_DIAL_TIMEOUT")
	setDuration(&cfg.Cache.ReadTimeout, "CACHE_READ_TIMEOUT")
	setDuration(&cfg.Cache.WriteTimeout, "CACHE_WRITE_TIMEOUT")
	setInt(&cfg.Cache.MaxRetries, "CACHE_MAX_RETRIES")
	setDuration(&cfg.Cache.TTL, "CACHE_TTL")

	setBool(&cfg.Watch.Enabled, "WATCH_ENABLED")
	setDuration(&cfg.Watch.Debounce, "WATCH_DEBOUNCE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = strings.EqualFold(v, "true") || v == "1"
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
