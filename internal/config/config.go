package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	SLA          SLAConfig
	Escalation   EscalationConfig
	Notification NotificationConfig
	Customer     CustomerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Encoding is "json" or "console".
	Encoding    string
	Development bool
}

// SLAConfig holds the per-priority resolution offsets in hours.
type SLAConfig struct {
	HighHours   float64
	MediumHours float64
	LowHours    float64
	// UrgentHours of zero means urgent follows HighHours.
	UrgentHours float64
	AtRiskHours float64
}

// EscalationConfig controls the scan loop and assignment.
type EscalationConfig struct {
	ScanIntervalSeconds     int
	ScanConcurrency         int
	ScanEnabled             bool
	RulesFile               string
	AssignmentLoadThreshold int
}

// NotificationConfig holds stub delivery endpoints for outbound messages.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// CustomerConfig controls customer tier lookups.
type CustomerConfig struct {
	TierCacheSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "escalation-engine"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Encoding:    getEnv("LOG_ENCODING", "json"),
			Development: getEnvAsBool("LOG_DEVELOPMENT", false),
		},
		SLA: SLAConfig{
			HighHours:   getEnvAsFloat("SLA_HIGH_HOURS", 4),
			MediumHours: getEnvAsFloat("SLA_MEDIUM_HOURS", 24),
			LowHours:    getEnvAsFloat("SLA_LOW_HOURS", 72),
			UrgentHours: getEnvAsFloat("SLA_URGENT_HOURS", 0),
			AtRiskHours: getEnvAsFloat("SLA_AT_RISK_HOURS", 4),
		},
		Escalation: EscalationConfig{
			ScanIntervalSeconds:     getEnvAsInt("ESCALATION_SCAN_INTERVAL_SECONDS", 60),
			ScanConcurrency:         getEnvAsInt("ESCALATION_SCAN_CONCURRENCY", 4),
			ScanEnabled:             getEnvAsBool("ESCALATION_SCAN_ENABLED", true),
			RulesFile:               os.Getenv("ESCALATION_RULES_FILE"),
			AssignmentLoadThreshold: getEnvAsInt("ASSIGNMENT_LOAD_THRESHOLD", 10),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
		Customer: CustomerConfig{
			TierCacheSeconds: getEnvAsInt("CUSTOMER_TIER_CACHE_SECONDS", 300),
		},
	}

	if cfg.Escalation.ScanIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid ESCALATION_SCAN_INTERVAL_SECONDS: %d", cfg.Escalation.ScanIntervalSeconds)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ScanInterval returns the period between escalation scans.
func (e EscalationConfig) ScanInterval() time.Duration {
	return time.Duration(e.ScanIntervalSeconds) * time.Second
}

// TierCacheTTL returns how long customer tiers are cached.
func (c CustomerConfig) TierCacheTTL() time.Duration {
	if c.TierCacheSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TierCacheSeconds) * time.Second
}

// Hours converts a fractional hour setting to a duration.
func Hours(h float64) time.Duration {
	return time.Duration(h * float64(time.Hour))
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
