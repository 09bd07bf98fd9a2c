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
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Triage   TriageConfig
	Notify   NotificationConfig
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
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// NotificationConfig configures outbound notification stubs.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// TriageConfig tunes the triage pipeline runtime. The Default* values only seed
// the settings row on first read; the stored settings are authoritative afterwards.
type TriageConfig struct {
	Workers                    int
	QueueSize                  int
	StageTimeoutSeconds        int
	UseStream                  bool
	Stream                     string
	ConsumerGroup              string
	ConsumerName               string
	DeadLetterStream           string
	StreamMaxAttempts          int
	SettingsCacheTTLSeconds    int
	DefaultAutoCloseEnabled    bool
	DefaultConfidenceThreshold float64
	DefaultSLAHours            int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold := getEnvAsFloat("TRIAGE_DEFAULT_CONFIDENCE_THRESHOLD", 0.78)
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("invalid TRIAGE_DEFAULT_CONFIDENCE_THRESHOLD: %v not in [0,1]", threshold)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "triage-worker"
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-triage"),
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
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Triage: TriageConfig{
			Workers:                    getEnvAsInt("TRIAGE_WORKERS", 4),
			QueueSize:                  getEnvAsInt("TRIAGE_QUEUE_SIZE", 256),
			StageTimeoutSeconds:        getEnvAsInt("TRIAGE_STAGE_TIMEOUT_SECONDS", 10),
			UseStream:                  getEnvAsBool("TRIAGE_USE_STREAM", false),
			Stream:                     getEnv("TRIAGE_STREAM", "triage_jobs"),
			ConsumerGroup:              getEnv("TRIAGE_CONSUMER_GROUP", "triage_workers"),
			ConsumerName:               getEnv("TRIAGE_CONSUMER_NAME", hostname),
			DeadLetterStream:           getEnv("TRIAGE_DLQ_STREAM", "triage_jobs_dlq"),
			StreamMaxAttempts:          getEnvAsInt("TRIAGE_STREAM_MAX_ATTEMPTS", 1),
			SettingsCacheTTLSeconds:    getEnvAsInt("TRIAGE_SETTINGS_CACHE_TTL_SECONDS", 30),
			DefaultAutoCloseEnabled:    getEnvAsBool("TRIAGE_DEFAULT_AUTO_CLOSE_ENABLED", true),
			DefaultConfidenceThreshold: threshold,
			DefaultSLAHours:            getEnvAsInt("TRIAGE_DEFAULT_SLA_HOURS", 24),
		},
		Notify: NotificationConfig{
			EmailFrom:  os.Getenv("NOTIFY_EMAIL_FROM"),
			WebhookURL: os.Getenv("NOTIFY_WEBHOOK_URL"),
		},
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

// StageTimeout returns the per-stage deadline, or 0 when stages are unbounded.
func (t TriageConfig) StageTimeout() time.Duration {
	if t.StageTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(t.StageTimeoutSeconds) * time.Second
}

// SettingsCacheTTL returns how long a cached settings snapshot stays valid.
func (t TriageConfig) SettingsCacheTTL() time.Duration {
	if t.SettingsCacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(t.SettingsCacheTTLSeconds) * time.Second
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
