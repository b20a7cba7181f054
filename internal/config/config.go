package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Redis       RedisConfig     `mapstructure:"redis"`
	Analytics   AnalyticsConfig `mapstructure:"analytics"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	DatabaseURL     string `mapstructure:"database_url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime string `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime string `mapstructure:"conn_max_idle_time"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AnalyticsConfig tunes insight generation and its collaborators.
type AnalyticsConfig struct {
	InsightTimeout   string `mapstructure:"insight_timeout"`
	LoadTimeout      string `mapstructure:"load_timeout"`
	PersistTimeout   string `mapstructure:"persist_timeout"`
	BroadcastTimeout string `mapstructure:"broadcast_timeout"`
	DefaultRangeDays int    `mapstructure:"default_range_days"`
	ForecastDays     int    `mapstructure:"forecast_days"`
	CacheTTL         string `mapstructure:"cache_ttl"`
	ChannelPrefix    string `mapstructure:"channel_prefix"`
}

type TelemetryConfig struct {
	Enabled      bool    `mapstructure:"enabled"`
	ServiceName  string  `mapstructure:"service_name"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Durations parses the analytics timeouts. Load has already validated them.
func (a AnalyticsConfig) Durations() (insight, load, persist, broadcast time.Duration) {
	insight, _ = time.ParseDuration(a.InsightTimeout)
	load, _ = time.ParseDuration(a.LoadTimeout)
	persist, _ = time.ParseDuration(a.PersistTimeout)
	broadcast, _ = time.ParseDuration(a.BroadcastTimeout)
	return insight, load, persist, broadcast
}

// CacheTTLDuration parses the cache TTL. Load has already validated it.
func (a AnalyticsConfig) CacheTTLDuration() time.Duration {
	ttl, _ := time.ParseDuration(a.CacheTTL)
	return ttl
}

func Load() (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	// Set default values
	setDefaults()

	// Enable environment variable support
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("database.database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL environment variable: %w", err)
	}

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Normalize environment to lowercase for consistent comparison
	config.Environment = strings.ToLower(config.Environment)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail at first use.
func (c *Config) Validate() error {
	durations := map[string]string{
		"analytics.insight_timeout":   c.Analytics.InsightTimeout,
		"analytics.load_timeout":      c.Analytics.LoadTimeout,
		"analytics.persist_timeout":   c.Analytics.PersistTimeout,
		"analytics.broadcast_timeout": c.Analytics.BroadcastTimeout,
		"analytics.cache_ttl":         c.Analytics.CacheTTL,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s duration: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, value)
		}
	}

	if c.Analytics.DefaultRangeDays <= 0 {
		return fmt.Errorf("analytics.default_range_days must be positive, got %d", c.Analytics.DefaultRangeDays)
	}
	if c.Analytics.ForecastDays <= 0 {
		return fmt.Errorf("analytics.forecast_days must be positive, got %d", c.Analytics.ForecastDays)
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1, got %v", c.Telemetry.SampleRatio)
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Set database defaults
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "lifemetrics")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.database_url", "")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", "300s")
	viper.SetDefault("database.conn_max_idle_time", "60s")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Analytics
	viper.SetDefault("analytics.insight_timeout", "30s")
	viper.SetDefault("analytics.load_timeout", "10s")
	viper.SetDefault("analytics.persist_timeout", "5s")
	viper.SetDefault("analytics.broadcast_timeout", "2s")
	viper.SetDefault("analytics.default_range_days", 30)
	viper.SetDefault("analytics.forecast_days", 7)
	viper.SetDefault("analytics.cache_ttl", "1h")
	viper.SetDefault("analytics.channel_prefix", "insights:")

	// Telemetry
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.service_name", "lifemetrics")
	viper.SetDefault("telemetry.otlp_endpoint", "")
	viper.SetDefault("telemetry.sample_ratio", 1.0)
}
