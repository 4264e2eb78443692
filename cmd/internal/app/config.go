package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arapchelogoi/Sendwave/cmd/internal/relay"
	"github.com/arapchelogoi/Sendwave/cmd/internal/telegram"
	"github.com/arapchelogoi/Sendwave/cmd/security/token"
)

// Store kinds accepted by RELAY_STORE.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

// Config holds runtime configuration for the relay server.
type Config struct {
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	MaxHeaderBytes    int
	MaxBodyBytes      int

	// Telegram.
	BotToken       string
	AdminChatID    string
	TelegramAPIURL string
	PublicURL      string

	WebhookSecret        string
	RequireWebhookSecret bool

	SendTimeout time.Duration
	DeleteDelay time.Duration

	// Session store.
	Store       string
	SQLitePath  string
	DatabaseURL string
	DBSchema    string
	DBMaxConns  int32
	DBMinConns  int32
	RedisAddr   string
	RedisPass   string
	RedisDB     int
	RedisTTL    time.Duration

	ReadinessRequireStore bool

	StaticDir string

	CORSAllowedOrigins   []string
	CORSAllowCredentials bool
	CORSMaxAgeSeconds    int

	TraceStdout bool
}

// LoadConfig reads configuration from the environment.
func LoadConfig() Config {
	store := strings.ToLower(EnvString("RELAY_STORE", ""))
	if store == "" {
		// A database URL alone is enough to opt into Postgres.
		store = StoreMemory
		if EnvString("RELAY_DATABASE_URL", "") != "" {
			store = StorePostgres
		}
	}

	return Config{
		HTTPAddr:  EnvString("RELAY_HTTP_ADDR", "0.0.0.0:3000"),
		LogLevel:  EnvString("RELAY_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(EnvString("RELAY_LOG_FORMAT", "json")),

		ReadTimeout:       EnvDuration("RELAY_HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:      EnvDuration("RELAY_HTTP_WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       EnvDuration("RELAY_HTTP_IDLE_TIMEOUT", 60*time.Second),
		ReadHeaderTimeout: EnvDuration("RELAY_HTTP_READ_HEADER_TIMEOUT", 5*time.Second),
		MaxHeaderBytes:    EnvInt("RELAY_HTTP_MAX_HEADER_BYTES", 1<<20),
		MaxBodyBytes:      EnvInt("RELAY_HTTP_MAX_BODY_BYTES", 64<<10),

		BotToken:       EnvString("RELAY_BOT_TOKEN", ""),
		AdminChatID:    EnvString("RELAY_ADMIN_CHAT_ID", ""),
		TelegramAPIURL: EnvString("RELAY_TELEGRAM_API_URL", telegram.DefaultAPIURL),
		PublicURL:      strings.TrimRight(EnvString("RELAY_PUBLIC_URL", ""), "/"),

		WebhookSecret:        EnvString(token.SecretEnvKey, ""),
		RequireWebhookSecret: EnvBool("RELAY_REQUIRE_WEBHOOK_SECRET", false),

		SendTimeout: EnvDuration("RELAY_SEND_TIMEOUT", relay.DefaultSendTimeout),
		DeleteDelay: EnvDuration("RELAY_DELETE_DELAY", relay.DefaultDeleteDelay),

		Store:       store,
		SQLitePath:  EnvString("RELAY_SQLITE_PATH", "data/sessions.db"),
		DatabaseURL: EnvString("RELAY_DATABASE_URL", ""),
		DBSchema:    EnvString("RELAY_DB_SCHEMA", "sendwave"),
		DBMaxConns:  EnvInt32("RELAY_DB_MAX_CONNS", 10),
		DBMinConns:  EnvInt32("RELAY_DB_MIN_CONNS", 0),
		RedisAddr:   EnvString("RELAY_REDIS_ADDR", ""),
		RedisPass:   EnvString("RELAY_REDIS_PASSWORD", ""),
		RedisDB:     EnvInt("RELAY_REDIS_DB", 0),
		RedisTTL:    EnvDuration("RELAY_REDIS_TTL", 24*time.Hour),

		ReadinessRequireStore: EnvBool("RELAY_READINESS_REQUIRE_STORE", false),

		StaticDir: EnvString("RELAY_STATIC_DIR", ""),

		CORSAllowedOrigins:   EnvCSV("RELAY_CORS_ALLOWED_ORIGINS", nil),
		CORSAllowCredentials: EnvBool("RELAY_CORS_ALLOW_CREDENTIALS", false),
		CORSMaxAgeSeconds:    EnvInt("RELAY_CORS_MAX_AGE_SECONDS", 600),

		TraceStdout: EnvBool("RELAY_TRACE_STDOUT", false),
	}
}

// ValidateConfig rejects configurations the server cannot run with.
func ValidateConfig(cfg Config) error {
	var errs []error

	if strings.TrimSpace(cfg.BotToken) == "" {
		errs = append(errs, errors.New("config: RELAY_BOT_TOKEN is required"))
	}
	if strings.TrimSpace(cfg.AdminChatID) == "" {
		errs = append(errs, errors.New("config: RELAY_ADMIN_CHAT_ID is required"))
	}

	switch cfg.Store {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(cfg.SQLitePath) == "" {
			errs = append(errs, errors.New("config: RELAY_STORE=sqlite requires RELAY_SQLITE_PATH"))
		}
	case StorePostgres:
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			errs = append(errs, errors.New("config: RELAY_STORE=postgres requires RELAY_DATABASE_URL"))
		}
	case StoreRedis:
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			errs = append(errs, errors.New("config: RELAY_STORE=redis requires RELAY_REDIS_ADDR"))
		}
	default:
		errs = append(errs, fmt.Errorf("config: unknown RELAY_STORE %q", cfg.Store))
	}

	switch cfg.LogFormat {
	case "json", "pretty", "":
	default:
		errs = append(errs, fmt.Errorf("config: unknown RELAY_LOG_FORMAT %q", cfg.LogFormat))
	}

	if err := ValidateSecurityConfig(cfg); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
