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

	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	OTP      OTPConfig
	Mail     MailConfig
	Fairness FairnessConfig
	CORS     CORSConfig
	Log      LogConfig
}

// AppConfig carries cross-cutting application settings.
type AppConfig struct {
	Name     string
	BaseURL  string
	Timezone string
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
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// OTPConfig controls one-time-password login codes.
type OTPConfig struct {
	TTL         time.Duration
	MaxAttempts int
	CodeLength  int
}

// MailConfig configures the outbox dispatcher and its delivery provider.
type MailConfig struct {
	Provider          string
	FromName          string
	FromEmail         string
	SendgridKey       string
	WorkerConcurrency int
	WorkerRetries     int
	RetryDelay        time.Duration
}

// FairnessConfig tunes the fairness ranking cache.
type FairnessConfig struct {
	CacheEnabled bool
	CacheTTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
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

	cfg.App = AppConfig{
		Name:     v.GetString("APP_NAME"),
		BaseURL:  v.GetString("APP_BASE_URL"),
		Timezone: v.GetString("APP_TIMEZONE"),
	}

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
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.OTP = OTPConfig{
		TTL:         parseDuration(v.GetString("OTP_TTL"), 10*time.Minute),
		MaxAttempts: v.GetInt("OTP_MAX_ATTEMPTS"),
		CodeLength:  v.GetInt("OTP_CODE_LENGTH"),
	}

	cfg.Mail = MailConfig{
		Provider:          v.GetString("MAIL_PROVIDER"),
		FromName:          v.GetString("MAIL_FROM_NAME"),
		FromEmail:         v.GetString("MAIL_FROM_EMAIL"),
		SendgridKey:       v.GetString("SENDGRID_API_KEY"),
		WorkerConcurrency: v.GetInt("MAIL_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("MAIL_WORKER_RETRIES"),
		RetryDelay:        parseDuration(v.GetString("MAIL_RETRY_DELAY"), 30*time.Second),
	}

	cfg.Fairness = FairnessConfig{
		CacheEnabled: v.GetBool("FAIRNESS_CACHE_ENABLED"),
		CacheTTL:     parseDuration(v.GetString("FAIRNESS_CACHE_TTL"), 2*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("APP_NAME", "Training Staffing")
	v.SetDefault("APP_BASE_URL", "")
	v.SetDefault("APP_TIMEZONE", "Asia/Jerusalem")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "training_staffing")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "staffing-api")

	v.SetDefault("OTP_TTL", "10m")
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_CODE_LENGTH", 6)

	v.SetDefault("MAIL_PROVIDER", "console")
	v.SetDefault("MAIL_FROM_NAME", "Training Staffing")
	v.SetDefault("MAIL_FROM_EMAIL", "no-reply@localhost")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("MAIL_WORKER_CONCURRENCY", 1)
	v.SetDefault("MAIL_WORKER_RETRIES", 3)
	v.SetDefault("MAIL_RETRY_DELAY", "30s")

	v.SetDefault("FAIRNESS_CACHE_ENABLED", false)
	v.SetDefault("FAIRNESS_CACHE_TTL", "2m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
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
