package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultCORSOrigins are the frontends allowed to submit tickets when CORS_ALLOW_ORIGINS is unset.
var DefaultCORSOrigins = []string{
	"http://localhost:3000",
	"http://127.0.0.1:3000",
	"http://localhost:3001",
	"http://127.0.0.1:3001",
	"http://tickets.local:3000",
	"http://tickets.local:3001",
	"https://olx-ticketing-frontend.vercel.app",
}

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Intake   IntakeConfig
	Mail     MailConfig
	Events   EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CORSAllowOrigins      []string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN                 string
	MaxConns            int32
	MinConns            int32
	RunMigrations       bool
	MigrationsDir       string
	ConnMaxIdleSec      int32
	ConnMaxLifeSec      int32
	StoreTimeoutSeconds int
}

// RedisConfig holds Redis connection values. An empty Addr disables the list cache.
type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	ListTTLSeconds int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// IntakeConfig holds the submission policy.
type IntakeConfig struct {
	AuthorizedDomain string
	DefaultSubject   string
}

// MailConfig holds the SMTP relay and the support mailbox identity.
type MailConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	Recipient      string
	TimeoutSeconds int
}

// EventsConfig configures the optional RabbitMQ event relay.
type EventsConfig struct {
	AMQPURL  string
	Exchange string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	smtpPort, err := strconv.Atoi(getEnv("SMTP_PORT", "465"))
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP_PORT: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	sender := os.Getenv("EMAIL_USER")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-intake-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "5050"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CORSAllowOrigins:      getEnvAsList("CORS_ALLOW_ORIGINS", DefaultCORSOrigins),
		},
		Postgres: PostgresConfig{
			DSN:                 getEnv("POSTGRES_DSN", os.Getenv("SUPABASE_DB_URL")),
			MaxConns:            maxConns,
			MinConns:            minConns,
			RunMigrations:       runMigrations,
			MigrationsDir:       getEnv("MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec:      connMaxIdle,
			ConnMaxLifeSec:      connMaxLife,
			StoreTimeoutSeconds: getEnvAsInt("STORE_TIMEOUT_SECONDS", 5),
		},
		Redis: RedisConfig{
			Addr:           os.Getenv("REDIS_ADDR"),
			Password:       os.Getenv("REDIS_PASSWORD"),
			DB:             redisDB,
			ListTTLSeconds: getEnvAsInt("REDIS_LIST_TTL_SECONDS", 30),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Intake: IntakeConfig{
			AuthorizedDomain: strings.TrimPrefix(getEnv("AUTHORIZED_EMAIL_DOMAIN", "dubizzle.com.lb"), "@"),
			DefaultSubject:   getEnv("DEFAULT_TICKET_SUBJECT", "New Internal Ticket"),
		},
		Mail: MailConfig{
			Host:           getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:           smtpPort,
			Username:       sender,
			Password:       os.Getenv("EMAIL_PASS"),
			Recipient:      getEnv("EMAIL_TO", sender),
			TimeoutSeconds: getEnvAsInt("MAIL_TIMEOUT_SECONDS", 10),
		},
		Events: EventsConfig{
			AMQPURL:  os.Getenv("AMQP_URL"),
			Exchange: getEnv("AMQP_EXCHANGE", "tickets"),
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
	return seconds(a.RequestTimeoutSeconds)
}

// StoreTimeout bounds a single store call.
func (p PostgresConfig) StoreTimeout() time.Duration {
	return seconds(p.StoreTimeoutSeconds)
}

// ListTTL returns how long a cached ticket list stays valid.
func (r RedisConfig) ListTTL() time.Duration {
	return seconds(r.ListTTLSeconds)
}

// Timeout bounds a single SMTP exchange.
func (m MailConfig) Timeout() time.Duration {
	return seconds(m.TimeoutSeconds)
}

// Enabled reports whether sender credentials are present.
func (m MailConfig) Enabled() bool {
	return m.Username != "" && m.Password != ""
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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

func getEnvAsList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
