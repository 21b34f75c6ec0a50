package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// RedisConfig holds connection settings for the subscription store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds the delivery hand-off settings.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NotifyConfig holds the decision engine's injected policy: which bundles are
// tracked and which roles receive new-user notifications. Both were global
// constants in the original system; here they are explicit configuration.
type NotifyConfig struct {
	TrackedBundles  []string
	PrivilegedRoles []string
	// ExcludedUserIDs lists accounts (anonymous, system) never auto-subscribed.
	ExcludedUserIDs []string
}

// FanoutConfig tunes the auto-subscription worker.
type FanoutConfig struct {
	Buffer      int
	PageSize    int
	Concurrency int
}

// Config is the full application configuration.
type Config struct {
	Server      Server
	PostgresDSN string
	Redis       RedisConfig
	Kafka       KafkaConfig
	Notify      NotifyConfig
	Fanout      FanoutConfig
}

// FromEnv builds the configuration from environment variables so main stays lean.
func FromEnv() Config {
	cfg := Config{
		Server: Server{
			Addr:          envOr("BEACON_ADDR", ":8080"),
			JWTSigningKey: envOr("BEACON_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		PostgresDSN: os.Getenv("BEACON_POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("BEACON_REDIS_URL"),
			PoolSize:     envInt("BEACON_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("BEACON_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("BEACON_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("BEACON_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("BEACON_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: envList("BEACON_KAFKA_BROKERS", nil),
			Topic:   envOr("BEACON_KAFKA_TOPIC", "beacon.notifications"),
		},
		Notify: NotifyConfig{
			TrackedBundles:  envList("BEACON_TRACKED_BUNDLES", []string{"blog", "book_page", "yammer"}),
			PrivilegedRoles: envList("BEACON_PRIVILEGED_ROLES", []string{"admin"}),
			ExcludedUserIDs: envList("BEACON_EXCLUDED_USER_IDS", nil),
		},
		Fanout: FanoutConfig{
			Buffer:      envInt("BEACON_FANOUT_BUFFER", 256),
			PageSize:    envInt("BEACON_FANOUT_PAGE_SIZE", 500),
			Concurrency: envInt("BEACON_FANOUT_CONCURRENCY", 8),
		},
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
