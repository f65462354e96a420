package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"molecule/pkg/platform/dedupe"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr       string
	AdminToken string
	// Aggregation names the combination rule for selected policies: "all" or
	// "any". Empty defers to the seed file, then "all".
	Aggregation string
	SeedFile    string
	LogLevel    string
	// ShutdownTimeout bounds how long in-flight requests may drain on exit.
	ShutdownTimeout time.Duration

	DatabaseURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig configures the optional Redis-backed list store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional list notification sink.
type KafkaConfig struct {
	Brokers   []string
	ListTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            envOr("MOLECULE_ADDR", ":8080"),
		AdminToken:      os.Getenv("MOLECULE_ADMIN_TOKEN"),
		Aggregation:     strings.TrimSpace(os.Getenv("MOLECULE_AGGREGATION")),
		SeedFile:        os.Getenv("MOLECULE_SEED_FILE"),
		LogLevel:        envOr("LOG_LEVEL", "info"),
		ShutdownTimeout: envDuration("MOLECULE_SHUTDOWN_TIMEOUT", 10*time.Second),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:   splitList(os.Getenv("KAFKA_BROKERS")),
			ListTopic: envOr("KAFKA_LIST_TOPIC", "molecule.list.changes"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	return dedupe.Trimmed(strings.Split(v, ","))
}
