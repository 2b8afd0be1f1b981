package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for our application
type Config struct {
	Port        string
	Origin      string
	Environment string
	JWTSecret   string
	Database    DatabaseConfig
	Backend     BackendConfig
	Cache       CacheConfig
	Composer    ComposerConfig
	Log         LogConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Name     string
	DSN      string
}

// BackendConfig describes the lab-interpretation backend.
type BackendConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	Burst     int
	Breaker   BreakerConfig
}

type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// CacheConfig enables the redis report cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

type ComposerConfig struct {
	ViewCapacity           int
	RejectDuplicateActions bool
	// Clinics overrides the referral specialty list. Empty keeps the default.
	Clinics []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	// Build DSN (Data Source Name) for MySQL connection
	dbConfig := DatabaseConfig{
		Host:     v.GetString("DB_HOST"),
		Port:     v.GetString("DB_PORT"),
		Username: v.GetString("DB_USERNAME"),
		Password: v.GetString("DB_PASSWORD"),
		Name:     v.GetString("DB_NAME"),
		DSN:      v.GetString("DB_DSN"),
	}
	if dbConfig.DSN == "" {
		dbConfig.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			dbConfig.Username, dbConfig.Password, dbConfig.Host, dbConfig.Port, dbConfig.Name)
	}

	cfg := &Config{
		Port:        v.GetString("PORT"),
		Origin:      v.GetString("ORIGIN"),
		Environment: v.GetString("APP_ENV"),
		JWTSecret:   v.GetString("JWT_SECRET"),
		Database:    dbConfig,
		Backend: BackendConfig{
			BaseURL:   strings.TrimRight(v.GetString("BACKEND_URL"), "/"),
			Timeout:   v.GetDuration("BACKEND_TIMEOUT"),
			RateLimit: v.GetFloat64("BACKEND_RATE_LIMIT"),
			Burst:     v.GetInt("BACKEND_BURST"),
			Breaker: BreakerConfig{
				MaxRequests:      v.GetUint32("BREAKER_MAX_REQUESTS"),
				Interval:         v.GetDuration("BREAKER_INTERVAL"),
				Timeout:          v.GetDuration("BREAKER_TIMEOUT"),
				FailureThreshold: v.GetUint32("BREAKER_FAILURE_THRESHOLD"),
			},
		},
		Cache: CacheConfig{
			RedisURL: v.GetString("REDIS_URL"),
			TTL:      v.GetDuration("REPORT_CACHE_TTL"),
		},
		Composer: ComposerConfig{
			ViewCapacity:           v.GetInt("VIEW_CAPACITY"),
			RejectDuplicateActions: v.GetBool("REJECT_DUPLICATE_ACTIONS"),
			Clinics:                splitList(v.GetString("REFERRAL_CLINICS")),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "3001")
	v.SetDefault("ORIGIN", "http://localhost:5173")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("JWT_SECRET", "default_jwt_secret")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "3306")
	v.SetDefault("DB_USERNAME", "root")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "genomic_reports")
	v.SetDefault("DB_DSN", "")

	v.SetDefault("BACKEND_URL", "http://localhost:8000")
	v.SetDefault("BACKEND_TIMEOUT", "30s")
	v.SetDefault("BACKEND_RATE_LIMIT", 10.0)
	v.SetDefault("BACKEND_BURST", 20)
	v.SetDefault("BREAKER_MAX_REQUESTS", 1)
	v.SetDefault("BREAKER_INTERVAL", "60s")
	v.SetDefault("BREAKER_TIMEOUT", "30s")
	v.SetDefault("BREAKER_FAILURE_THRESHOLD", 5)

	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REPORT_CACHE_TTL", "5m")

	v.SetDefault("VIEW_CAPACITY", 256)
	v.SetDefault("REJECT_DUPLICATE_ACTIONS", false)
	v.SetDefault("REFERRAL_CLINICS", "")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func (c *Config) validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("BACKEND_URL must not be empty")
	}
	if c.Composer.ViewCapacity <= 0 {
		return fmt.Errorf("invalid VIEW_CAPACITY: %d", c.Composer.ViewCapacity)
	}
	if c.Backend.RateLimit <= 0 {
		return fmt.Errorf("invalid BACKEND_RATE_LIMIT: %v", c.Backend.RateLimit)
	}
	return nil
}

// IsProduction reports whether the service runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// splitList reads a comma separated list. Clinic names contain spaces, so
// whitespace is not a separator.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
