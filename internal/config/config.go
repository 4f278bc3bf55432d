package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	APILog     APILogConfig     `mapstructure:"apilog"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Pagination PaginationConfig `mapstructure:"pagination"`

	// Source is the config file that was read, empty when running on
	// defaults and env vars only.
	Source string `mapstructure:"-"`
}

type ServerConfig struct {
	Port                string `mapstructure:"port"`
	Mode                string `mapstructure:"mode"` // debug | release | test
	ReadOnly            bool   `mapstructure:"read_only"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type AuthConfig struct {
	JWTSecret          string  `mapstructure:"jwt_secret"`
	Issuer             string  `mapstructure:"issuer"`
	AccessTTLMinutes   int     `mapstructure:"access_ttl_minutes"`
	RefreshTTLHours    int     `mapstructure:"refresh_ttl_hours"`
	LoginRatePerSecond float64 `mapstructure:"login_rate_per_second"`
	LoginBurst         int     `mapstructure:"login_burst"`
}

type DatabaseConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
	SlowQueryMs            int    `mapstructure:"slow_query_ms"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr                  string `mapstructure:"addr"`
	Password              string `mapstructure:"password"`
	DB                    int    `mapstructure:"db"`
	IdempotencyTTLSeconds int    `mapstructure:"idempotency_ttl_seconds"`
	StatsTTLSeconds       int    `mapstructure:"stats_ttl_seconds"`
}

type APILogConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	PathPrefix      string   `mapstructure:"path_prefix"`
	ExcludePrefixes []string `mapstructure:"exclude_prefixes"`
	MaxBodyChars    int      `mapstructure:"max_body_chars"`
	RetentionDays   int      `mapstructure:"retention_days"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type PaginationConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

const DefaultJWTSecret = "insecure-dev-secret-change-me"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8000")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_only", false)
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	v.SetDefault("auth.jwt_secret", DefaultJWTSecret)
	v.SetDefault("auth.issuer", "sampleapi")
	v.SetDefault("auth.access_ttl_minutes", 5)
	v.SetDefault("auth.refresh_ttl_hours", 24)
	v.SetDefault("auth.login_rate_per_second", 1.0)
	v.SetDefault("auth.login_burst", 5)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime_minutes", 60)
	v.SetDefault("database.slow_query_ms", 200)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.idempotency_ttl_seconds", 86400)
	v.SetDefault("redis.stats_ttl_seconds", 60)

	v.SetDefault("apilog.enabled", true)
	v.SetDefault("apilog.path_prefix", "/api/")
	v.SetDefault("apilog.exclude_prefixes", []string{"/api/api-logs"})
	v.SetDefault("apilog.max_body_chars", 10000)
	v.SetDefault("apilog.retention_days", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("pagination.default_page_size", 20)
	v.SetDefault("pagination.max_page_size", 100)
}

// Load reads config.yaml from . or ./configs, then applies SAMPLEAPI_* env
// vars and any flags bound on the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")

	// e.g. SAMPLEAPI_DATABASE_DSN
	v.SetEnvPrefix("sampleapi")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	source := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		source = v.ConfigFileUsed()
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.Source = source

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Auth.AccessTTLMinutes <= 0 || c.Auth.RefreshTTLHours <= 0 {
		return fmt.Errorf("auth token lifetimes must be positive")
	}
	if !strings.HasPrefix(c.APILog.PathPrefix, "/") {
		return fmt.Errorf("apilog.path_prefix must start with /")
	}
	if c.APILog.MaxBodyChars <= 0 {
		return fmt.Errorf("apilog.max_body_chars must be positive")
	}
	if c.APILog.RetentionDays < 0 {
		return fmt.Errorf("apilog.retention_days cannot be negative")
	}
	if c.Pagination.DefaultPageSize <= 0 || c.Pagination.MaxPageSize < c.Pagination.DefaultPageSize {
		return fmt.Errorf("invalid pagination sizes")
	}
	return nil
}

// UsesDefaultSecret reports whether tokens are signed with the built-in
// development secret.
func (c *Config) UsesDefaultSecret() bool {
	return c.Auth.JWTSecret == DefaultJWTSecret
}
