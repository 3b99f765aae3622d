package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Log       LogConfig       `yaml:"log"`
	Export    ExportConfig    `yaml:"export"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port                  int           `yaml:"port"`
	RequestTimeoutSeconds int           `yaml:"request_timeout_seconds"`
	RequestTimeout        time.Duration `yaml:"-"`
	ShutdownGraceSeconds  int           `yaml:"shutdown_grace_seconds"`
	ShutdownGrace         time.Duration `yaml:"-"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "sqlite" or "postgres"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	EnableTimescale        bool   `yaml:"enable_timescale"`
	LogLevel               string `yaml:"log_level"`
}

// AuthConfig holds the admin session settings.
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	SessionTTLMinutes int           `yaml:"session_ttl_minutes"`
	SessionTTL        time.Duration `yaml:"-"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
	SessionHeader     string        `yaml:"session_header"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
	Output string `yaml:"output"` // "stdout" or "stderr"
}

// ExportConfig configures mirroring of ingested readings to InfluxDB.
type ExportConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Workers   int    `yaml:"workers"`
	QueueSize int    `yaml:"queue_size"`
	URL       string `yaml:"url"`
	Token     string `yaml:"token"`
	Org       string `yaml:"org"`
	Bucket    string `yaml:"bucket"`
}

// CORSConfig lists the origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// RateLimitConfig holds the per-client request budget.
type RateLimitConfig struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	applyEnvOverrides(&cfg)
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.RequestTimeoutSeconds <= 0 {
		cfg.Server.RequestTimeoutSeconds = 10
	}
	cfg.Server.RequestTimeout = time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second
	if cfg.Server.ShutdownGraceSeconds <= 0 {
		cfg.Server.ShutdownGraceSeconds = 5
	}
	cfg.Server.ShutdownGrace = time.Duration(cfg.Server.ShutdownGraceSeconds) * time.Second

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "sqlite"
	}
	if cfg.Database.DSN == "" && cfg.Database.Driver == "sqlite" {
		cfg.Database.DSN = "./db/iot_api.db"
	}
	// SQLite serializes writers anyway; one connection keeps transactions from
	// failing with SQLITE_BUSY.
	if cfg.Database.Driver == "sqlite" {
		cfg.Database.MaxOpenConns = 1
		cfg.Database.MaxIdleConns = 1
	}
	if cfg.Database.MaxOpenConns <= 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns <= 0 {
		cfg.Database.MaxIdleConns = 5
	}

	if cfg.Auth.SessionTTLMinutes <= 0 {
		cfg.Auth.SessionTTLMinutes = 60
	}
	cfg.Auth.SessionTTL = time.Duration(cfg.Auth.SessionTTLMinutes) * time.Minute
	if cfg.Auth.SessionHeader == "" {
		cfg.Auth.SessionHeader = "Authorization"
	}

	if cfg.Export.Workers <= 0 {
		if cfg.Export.Enabled {
			slog.Warn("export.workers is not set or invalid; defaulting to 1")
		}
		cfg.Export.Workers = 1
	}
	if cfg.Export.QueueSize <= 0 {
		cfg.Export.QueueSize = 256
	}

	if cfg.RateLimit.PerSecond <= 0 {
		cfg.RateLimit.PerSecond = 10
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 20
	}
}

// applyEnvOverrides lets deployments keep secrets out of the YAML file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IOTAPI_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("IOTAPI_DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("IOTAPI_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("IOTAPI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("IOTAPI_INFLUX_TOKEN"); v != "" {
		cfg.Export.Token = v
	}
}

// Validate reports configuration that the server cannot start with.
func (cfg *Config) Validate() error {
	var errs []error

	switch strings.ToLower(cfg.Database.Driver) {
	case "sqlite", "postgres":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", cfg.Database.Driver))
	}
	if cfg.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if cfg.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (or set IOTAPI_JWT_SECRET)"))
	}
	if cfg.Export.Enabled && (cfg.Export.URL == "" || cfg.Export.Bucket == "" || cfg.Export.Org == "") {
		errs = append(errs, errors.New("export.url, export.org and export.bucket are required when export is enabled"))
	}

	return errors.Join(errs...)
}
