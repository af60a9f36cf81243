package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Fees      FeesConfig
	RateLimit RateLimitConfig
	Dashboard DashboardConfig
	Reports   ReportsConfig
	Refresh   RefreshConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// FeesConfig tunes the fee computation surface exposed by the API.
type FeesConfig struct {
	PendingWindowDays int
	ProrationDivisor  int
}

// RateLimitConfig bounds repeated sign-in attempts per key.
type RateLimitConfig struct {
	MaxAttempts int
	Window      time.Duration
}

// DashboardConfig governs dashboard exposure and cache tuning.
type DashboardConfig struct {
	Enabled  bool
	CacheTTL time.Duration
}

// ReportsConfig configures ledger export generation and downloads.
type ReportsConfig struct {
	Enabled         bool
	StorageDir      string
	SignedURLSecret string
	SignedURLTTL    time.Duration
	CleanupInterval time.Duration
}

// RefreshConfig controls the scheduled fee status recomputation job.
type RefreshConfig struct {
	Enabled  bool
	Schedule string
	Workers  int
	Retries  int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	pendingWindow := v.GetInt("FEES_PENDING_WINDOW_DAYS")
	if pendingWindow <= 0 {
		pendingWindow = 7
	}
	divisor := v.GetInt("FEES_PRORATION_DIVISOR")
	if divisor <= 0 {
		divisor = 30
	}
	cfg.Fees = FeesConfig{
		PendingWindowDays: pendingWindow,
		ProrationDivisor:  divisor,
	}

	cfg.RateLimit = RateLimitConfig{
		MaxAttempts: v.GetInt("LOGIN_MAX_ATTEMPTS"),
		Window:      parseDuration(v.GetString("LOGIN_ATTEMPT_WINDOW"), 15*time.Minute),
	}

	cfg.Dashboard = DashboardConfig{
		Enabled:  v.GetBool("ENABLE_DASHBOARD"),
		CacheTTL: parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), 5*time.Minute),
	}

	cfg.Reports = ReportsConfig{
		Enabled:         v.GetBool("ENABLE_REPORTS"),
		StorageDir:      v.GetString("REPORTS_STORAGE_DIR"),
		SignedURLSecret: v.GetString("REPORTS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("REPORTS_SIGNED_URL_TTL"), 24*time.Hour),
		CleanupInterval: parseDuration(v.GetString("REPORTS_CLEANUP_INTERVAL"), time.Hour),
	}

	cfg.Refresh = RefreshConfig{
		Enabled:  v.GetBool("ENABLE_STATUS_REFRESH"),
		Schedule: v.GetString("STATUS_REFRESH_SCHEDULE"),
		Workers:  v.GetInt("STATUS_REFRESH_WORKERS"),
		Retries:  v.GetInt("STATUS_REFRESH_RETRIES"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mess_fee")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("FEES_PENDING_WINDOW_DAYS", 7)
	v.SetDefault("FEES_PRORATION_DIVISOR", 30)

	v.SetDefault("LOGIN_MAX_ATTEMPTS", 5)
	v.SetDefault("LOGIN_ATTEMPT_WINDOW", "15m")

	v.SetDefault("ENABLE_DASHBOARD", true)
	v.SetDefault("DASHBOARD_CACHE_TTL", "5m")

	v.SetDefault("ENABLE_REPORTS", true)
	v.SetDefault("REPORTS_STORAGE_DIR", "./exports")
	v.SetDefault("REPORTS_SIGNED_URL_SECRET", "dev_reports_secret")
	v.SetDefault("REPORTS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTS_CLEANUP_INTERVAL", "1h")

	v.SetDefault("ENABLE_STATUS_REFRESH", true)
	v.SetDefault("STATUS_REFRESH_SCHEDULE", "15 0 * * *")
	v.SetDefault("STATUS_REFRESH_WORKERS", 1)
	v.SetDefault("STATUS_REFRESH_RETRIES", 3)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
