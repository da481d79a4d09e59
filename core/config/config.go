package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Satokaheni/mythic-plus-bot/core/db"
)

type Config struct {
	OTel        OTelConfig
	Redis       RedisConfig
	Snapshot    SnapshotConfig
	Transport   TransportConfig
	Roster      RosterConfig
	Env         string
	Port        string
	LogLevel    string
	AdminAPIKey string
	NodeID      int64
	DB          db.Config
}

type OTelConfig struct {
	Endpoint       string
	Headers        string
	ServiceName    string
	ServiceVersion string
	SampleRatio    float64
	// Environment and NodeID are copied from the top-level config and
	// identify this node in exported telemetry.
	Environment string
	NodeID      int64
}

// RedisConfig covers both streams shared with the chat gateway: inbound
// events (responses, signups, delivery failures) and outbound commands.
type RedisConfig struct {
	URL              string
	InboundStream    string
	InboundGroup     string
	InboundConsumer  string
	InboundDLQStream string
	OutboundStream   string
	TraceHeaderName  string
}

type SnapshotBackend string

const (
	SnapshotBackendFile     SnapshotBackend = "file"
	SnapshotBackendPostgres SnapshotBackend = "postgres"
	SnapshotBackendRedis    SnapshotBackend = "redis"
)

type SnapshotConfig struct {
	Backend SnapshotBackend
	Path    string // file backend
	Key     string // redis backend
}

type TransportKind string

const (
	TransportRedis TransportKind = "redis"
	TransportLog   TransportKind = "log"
)

type TransportConfig struct {
	Kind           TransportKind
	SendTimeout    time.Duration
	MaxConcurrency int
}

// RosterConfig holds the timers and thresholds of the fill protocol.
type RosterConfig struct {
	OverseerID          int64
	MaintenanceInterval time.Duration
	RepostAfter         time.Duration
	AskThreshold        int
	OutreachTimeout     time.Duration
	ReminderWindow      time.Duration
	Quiescence          time.Duration
}

type ServiceType string

const (
	ServiceTypeRoster ServiceType = "roster"
)

// Load loads configuration from environment variables.
// In development, it loads from .env.<service> and falls back to .env.
func Load(serviceType ServiceType) (Config, error) {
	if getEnv("ROSTER_ENV", "development") == "development" {
		envFile := fmt.Sprintf(".env.%s", serviceType)
		if err := godotenv.Load(envFile); err != nil {
			_ = godotenv.Load(".env")
		}
	}

	cfg := Config{
		Env:         getEnv("ROSTER_ENV", "development"),
		Port:        getEnv("PORT", "8080"),
		LogLevel:    getEnv("LOG_LEVEL", ""),
		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),
		NodeID:      getEnvInt64("NODE_ID", 1),
		DB: db.Config{
			DSN:      getEnv("DATABASE_URL", ""),
			MaxConns: getEnvInt32("DB_MAX_CONNS", 4),
			MinConns: getEnvInt32("DB_MIN_CONNS", 1),
		},
		OTel: OTelConfig{
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Headers:        getEnv("OTEL_EXPORTER_OTLP_HEADERS", ""),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "mythic-plus-roster"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "dev"),
			SampleRatio:    getEnvFloat("OTEL_TRACES_SAMPLE_RATIO", 1),
		},
		Redis: RedisConfig{
			URL:              getEnv("REDIS_URL", "redis://localhost:6379/0"),
			InboundStream:    getEnv("INBOUND_STREAM", "roster_inbound"),
			InboundGroup:     getEnv("INBOUND_GROUP", "roster_group"),
			InboundConsumer:  getEnv("INBOUND_CONSUMER", "roster"),
			InboundDLQStream: getEnv("INBOUND_DLQ_STREAM", "roster_inbound_dlq"),
			OutboundStream:   getEnv("OUTBOUND_STREAM", "roster_outbound"),
			TraceHeaderName:  getEnv("TRACE_HEADER_NAME", "X-Trace-Id"),
		},
		Snapshot: SnapshotConfig{
			Backend: SnapshotBackend(strings.ToLower(getEnv("SNAPSHOT_BACKEND", string(SnapshotBackendFile)))),
			Path:    getEnv("SNAPSHOT_PATH", "state.json"),
			Key:     getEnv("SNAPSHOT_KEY", "roster:snapshot"),
		},
		Transport: TransportConfig{
			Kind:           TransportKind(strings.ToLower(getEnv("TRANSPORT", string(TransportRedis)))),
			SendTimeout:    getEnvDuration("SEND_TIMEOUT", 10*time.Second),
			MaxConcurrency: getEnvInt("SEND_CONCURRENCY", 8),
		},
		Roster: RosterConfig{
			OverseerID:          getEnvInt64("OVERSEER_ID", 0),
			MaintenanceInterval: getEnvDuration("MAINTENANCE_INTERVAL", time.Hour),
			RepostAfter:         getEnvDuration("REPOST_AFTER", 24*time.Hour),
			AskThreshold:        getEnvInt("ASK_THRESHOLD", 5),
			OutreachTimeout:     getEnvDuration("OUTREACH_TIMEOUT", 2*time.Hour),
			ReminderWindow:      getEnvDuration("REMINDER_WINDOW", 2*time.Hour),
			Quiescence:          getEnvDuration("QUIESCENCE", time.Hour),
		},
	}

	switch cfg.Snapshot.Backend {
	case SnapshotBackendFile, SnapshotBackendRedis:
	case SnapshotBackendPostgres:
		if cfg.DB.DSN == "" {
			return Config{}, fmt.Errorf("DATABASE_URL is required for the postgres snapshot backend")
		}
	default:
		return Config{}, fmt.Errorf("unknown SNAPSHOT_BACKEND %q", cfg.Snapshot.Backend)
	}

	switch cfg.Transport.Kind {
	case TransportRedis, TransportLog:
	default:
		return Config{}, fmt.Errorf("unknown TRANSPORT %q", cfg.Transport.Kind)
	}

	cfg.OTel.Environment = cfg.Env
	cfg.OTel.NodeID = cfg.NodeID

	if cfg.Roster.AskThreshold < 1 {
		return Config{}, fmt.Errorf("ASK_THRESHOLD must be at least 1")
	}

	return cfg, nil
}

func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// NeedsRedis reports whether any configured component talks to Redis.
func (c Config) NeedsRedis() bool {
	return c.Transport.Kind == TransportRedis || c.Snapshot.Backend == SnapshotBackendRedis
}

func (c OTelConfig) Enabled() bool {
	return c.Endpoint != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt32(key string, fallback int32) int32 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(i)
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
