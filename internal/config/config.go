package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const devJWTSecret = "dev-only-insecure-secret"

type Config struct {
	Port          string   `mapstructure:"PORT"`
	Env           string   `mapstructure:"ENV"`
	ServiceName   string   `mapstructure:"SERVICE_NAME"`
	Version       string   `mapstructure:"SERVICE_VERSION"`
	DatabaseURL   string   `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32    `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string   `mapstructure:"MIGRATIONS_DIR"`
	DefaultTenant string   `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins   []string `mapstructure:"CORS_ORIGINS"`
	Timezone      string   `mapstructure:"TIMEZONE"`

	JWTSecret       string        `mapstructure:"JWT_SECRET"`
	JWTIssuer       string        `mapstructure:"JWT_ISSUER"`
	AccessTokenTTL  time.Duration `mapstructure:"ACCESS_TOKEN_TTL"`
	RefreshTokenTTL time.Duration `mapstructure:"REFRESH_TOKEN_TTL"`
	RedisURL        string        `mapstructure:"REDIS_URL"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`

	LogLevel      string `mapstructure:"LOG_LEVEL"`
	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`

	OTLPEndpoint string  `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool    `mapstructure:"OTEL_INSECURE"`
	SamplingRate float64 `mapstructure:"OTEL_SAMPLING_RATE"`
	MetricsPath  string  `mapstructure:"METRICS_PATH"`

	WorkerTenants    []string      `mapstructure:"WORKER_TENANTS"`
	CompletionGrace  time.Duration `mapstructure:"COMPLETION_GRACE"`
	ReminderLead     time.Duration `mapstructure:"REMINDER_LEAD"`
	CronCompleteSpec string        `mapstructure:"CRON_COMPLETE_SPEC"`
	CronReminderSpec string        `mapstructure:"CRON_REMINDER_SPEC"`
	CronLicenseSpec  string        `mapstructure:"CRON_LICENSE_SPEC"`

	PhoneRegion        string `mapstructure:"PHONE_REGION"`
	DefaultSlotMinutes int    `mapstructure:"DEFAULT_SLOT_MINUTES"`
	MeetingBaseURL     string `mapstructure:"MEETING_BASE_URL"`
}

var keys = []string{
	"PORT", "ENV", "SERVICE_NAME", "SERVICE_VERSION",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR", "DEFAULT_TENANT", "CORS_ORIGINS", "TIMEZONE",
	"JWT_SECRET", "JWT_ISSUER", "ACCESS_TOKEN_TTL", "REFRESH_TOKEN_TTL", "REDIS_URL",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	"LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_INSECURE", "OTEL_SAMPLING_RATE", "METRICS_PATH",
	"WORKER_TENANTS", "COMPLETION_GRACE", "REMINDER_LEAD",
	"CRON_COMPLETE_SPEC", "CRON_REMINDER_SPEC", "CRON_LICENSE_SPEC",
	"PHONE_REGION", "DEFAULT_SLOT_MINUTES", "MEETING_BASE_URL",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("SERVICE_NAME", "clinic-server")
	v.SetDefault("SERVICE_VERSION", "0.1.0")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("TIMEZONE", "Europe/Istanbul")
	v.SetDefault("JWT_ISSUER", "clinic-server")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "168h")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@clinic.local")
	v.SetDefault("OTEL_SAMPLING_RATE", 1.0)
	v.SetDefault("METRICS_PATH", "/metrics")
	v.SetDefault("COMPLETION_GRACE", "30m")
	v.SetDefault("REMINDER_LEAD", "24h")
	v.SetDefault("CRON_COMPLETE_SPEC", "@every 5m")
	v.SetDefault("CRON_REMINDER_SPEC", "@every 15m")
	v.SetDefault("CRON_LICENSE_SPEC", "@hourly")
	v.SetDefault("PHONE_REGION", "TR")
	v.SetDefault("DEFAULT_SLOT_MINUTES", 30)
	v.SetDefault("MEETING_BASE_URL", "https://meet.jit.si")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.WorkerTenants = splitList(cfg.WorkerTenants, v.GetString("WORKER_TENANTS"))
	if len(cfg.WorkerTenants) == 0 {
		cfg.WorkerTenants = []string{cfg.DefaultTenant}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.JWTSecret == "" && cfg.IsDev() {
		cfg.JWTSecret = devJWTSecret
	}

	return cfg, nil
}

// splitList normalises comma separated list values. Viper may hand back the
// raw env string as one element or an already split slice; either way every
// entry is trimmed and empties are dropped.
func splitList(current []string, raw string) []string {
	if len(current) == 0 && raw != "" {
		current = []string{raw}
	}
	var out []string
	for _, item := range current {
		for _, s := range strings.Split(item, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// EmailEnabled reports whether an SMTP relay is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != ""
}

// Location resolves TIMEZONE, falling back to UTC.
func (c *Config) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks that the configuration is safe to run. Outside development
// a real JWT secret of at least 32 bytes is required.
func (c *Config) Validate() error {
	if !c.IsDev() {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when ENV=%q", c.Env)
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
		}
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTokenTTL < c.AccessTokenTTL {
		return fmt.Errorf("REFRESH_TOKEN_TTL must not be shorter than ACCESS_TOKEN_TTL")
	}
	if c.DefaultSlotMinutes <= 0 || c.DefaultSlotMinutes > 240 {
		return fmt.Errorf("DEFAULT_SLOT_MINUTES must be between 1 and 240, got %d", c.DefaultSlotMinutes)
	}
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		return fmt.Errorf("OTEL_SAMPLING_RATE must be within [0,1], got %v", c.SamplingRate)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Timezone, err)
	}
	return nil
}
