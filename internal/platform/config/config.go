package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"processguard/internal/restriction"
	pgstrings "processguard/pkg/platform/strings"
	"processguard/pkg/domain"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	LogLevel      string

	Process  ProcessConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Tracing  TracingConfig
}

// ProcessConfig holds the registry limits.
type ProcessConfig struct {
	MaxDepth         int
	MaxRestrictions  int
	IdentifierLength int
	BatchConcurrency int
}

// PostgresConfig enables the durable store when URL is set.
type PostgresConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig enables the process cache when URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CacheTTL     time.Duration
}

// KafkaConfig enables the outbox relay when Brokers is non-empty.
type KafkaConfig struct {
	Brokers            []string
	Topic              string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int
}

// TracingConfig selects the span exporter: none, stdout or otlp.
type TracingConfig struct {
	Exporter     string
	OTLPEndpoint string
	SampleRate   float64
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:          envString("PROCESSGUARD_ADDR", ":8080"),
		JWTSigningKey: jwtSigningKey,
		JWTIssuer:     envString("JWT_ISSUER", "processguard"),
		JWTAudience:   envString("JWT_AUDIENCE", "processguard-admin"),
		LogLevel:      envString("LOG_LEVEL", "info"),
		Process: ProcessConfig{
			MaxDepth:         envInt("PROCESS_MAX_DEPTH", restriction.MaxDepth),
			MaxRestrictions:  envInt("PROCESS_MAX_RESTRICTIONS", 100),
			IdentifierLength: envInt("PROCESS_IDENTIFIER_LENGTH", domain.DefaultIdentifierLength),
			BatchConcurrency: envInt("VALIDATE_BATCH_CONCURRENCY", 8),
		},
		Postgres: PostgresConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			CacheTTL:     envDuration("REDIS_CACHE_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:            envList("KAFKA_BROKERS"),
			Topic:              envString("KAFKA_TOPIC", "processguard.process-events"),
			OutboxPollInterval: envDuration("OUTBOX_POLL_INTERVAL", time.Second),
			OutboxBatchSize:    envInt("OUTBOX_BATCH_SIZE", 100),
		},
		Tracing: TracingConfig{
			Exporter:     envString("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			SampleRate:   envFloat("OTEL_TRACES_SAMPLE_RATE", 1.0),
		},
	}
}

func envString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

// envInt falls back on missing, malformed or non-positive values.
func envInt(key string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// envFloat accepts values in (0, 1].
func envFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil || f <= 0 || f > 1 {
		return fallback
	}
	return f
}

func envList(key string) []string {
	return pgstrings.SplitList(os.Getenv(key))
}
