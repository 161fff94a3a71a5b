// Package config loads application configuration from a yaml file and
// the environment. Entity definitions live here too, so one config file
// fully describes a deployable query service.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"queryforge/internal/engine"
	"queryforge/internal/metadata"
)

type Config struct {
	Server   ServerConfig         `mapstructure:"server"`
	Database DatabaseConfig       `mapstructure:"database"`
	Log      LogConfig            `mapstructure:"log"`
	Engine   EngineConfig         `mapstructure:"engine"`
	Cache    CacheConfig          `mapstructure:"cache"`
	Auth     AuthConfig           `mapstructure:"auth"`
	Entities []metadata.EntityDef `mapstructure:"entities"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int32  `mapstructure:"pool_size"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

type EngineConfig struct {
	DefaultPageSize             int           `mapstructure:"default_page_size"`
	MaxPageSize                 int           `mapstructure:"max_page_size"`
	EnableQueryLogging          bool          `mapstructure:"enable_query_logging"`
	EnableCaching               bool          `mapstructure:"enable_caching"`
	CacheTTL                    time.Duration `mapstructure:"cache_ttl"`
	EnableValidation            bool          `mapstructure:"enable_validation"`
	PerformanceThreshold        time.Duration `mapstructure:"performance_threshold"`
	EnablePerformanceMonitoring bool          `mapstructure:"enable_performance_monitoring"`
	AllowOffsetPagination       bool          `mapstructure:"allow_offset_pagination"`
}

// Options maps the section onto engine options.
func (e EngineConfig) Options() engine.Options {
	return engine.Options{
		DefaultPageSize:             e.DefaultPageSize,
		MaxPageSize:                 e.MaxPageSize,
		EnableQueryLogging:          e.EnableQueryLogging,
		EnableCaching:               e.EnableCaching,
		CacheTTL:                    e.CacheTTL,
		EnableValidation:            e.EnableValidation,
		PerformanceThreshold:        e.PerformanceThreshold,
		EnablePerformanceMonitoring: e.EnablePerformanceMonitoring,
		AllowOffsetPagination:       e.AllowOffsetPagination,
	}
}

type CacheConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	Provider          string        `mapstructure:"provider"`
	Prefix            string        `mapstructure:"prefix"`
	DefaultTTL        time.Duration `mapstructure:"default_ttl"`
	CompressThreshold int           `mapstructure:"compress_threshold"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval"`
}

type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads config.yaml (from the working directory or ./config) merged
// with QUERYFORGE_* environment variables. A missing file is fine; the
// defaults describe a working local setup.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 15*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.name", "queryforge")
	viper.SetDefault("database.ssl_mode", "disable")
	viper.SetDefault("database.pool_size", 25)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.development", false)

	viper.SetDefault("engine.default_page_size", 10)
	viper.SetDefault("engine.max_page_size", 100)
	viper.SetDefault("engine.enable_query_logging", false)
	viper.SetDefault("engine.enable_caching", true)
	viper.SetDefault("engine.cache_ttl", 5*time.Minute)
	viper.SetDefault("engine.enable_validation", true)
	viper.SetDefault("engine.performance_threshold", time.Second)
	viper.SetDefault("engine.enable_performance_monitoring", true)
	viper.SetDefault("engine.allow_offset_pagination", true)

	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.provider", "memory")
	viper.SetDefault("cache.prefix", "queryforge")
	viper.SetDefault("cache.default_ttl", 5*time.Minute)
	viper.SetDefault("cache.compress_threshold", 4096)
	viper.SetDefault("cache.sweep_interval", time.Minute)

	viper.SetDefault("auth.enabled", false)
	viper.SetDefault("auth.jwt_secret", "changeme-secret")

	viper.SetEnvPrefix("queryforge")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
