package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the whole process configuration, read once at startup.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Notify   NotifyConfig
	Actors   ActorCacheConfig
	LogLevel string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	Environment     string
	JWTSigningKey   string
	JWTIssuer       string
	JWTAudience     string
	TokenTTL        time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects Postgres. An empty URL means in-memory stores.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig is only read when REDIS_URL is set.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type KafkaConfig struct {
	Brokers         string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
	Topic           string
}

// NotifyConfig drives the dispatch worker. Transport is one of
// "log", "kafka" or "redis".
type NotifyConfig struct {
	Transport     string
	Interval      time.Duration
	BatchSize     int
	RedisChannel  string
	DrainTimeout  time.Duration
	MetricsPeriod time.Duration
}

type ActorCacheConfig struct {
	Size int
	TTL  time.Duration
}

// FromEnv builds the config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:        envString("FILEGOV_ADDR", ":8080"),
			Environment: envString("FILEGOV_ENV", "development"),
			// Default for development only; override in every deployed environment.
			JWTSigningKey:   envString("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			JWTIssuer:       envString("JWT_ISSUER", "filegov"),
			JWTAudience:     envString("JWT_AUDIENCE", "filegov-console"),
			TokenTTL:        envDuration("TOKEN_TTL", 15*time.Minute),
			RequestTimeout:  envDuration("REQUEST_TIMEOUT", 30*time.Second),
			ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			Acks:            envString("KAFKA_ACKS", "all"),
			Retries:         envInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 30*time.Second),
			Topic:           envString("KAFKA_NOTIFICATION_TOPIC", "filegov.notifications"),
		},
		Notify: NotifyConfig{
			Transport:     envString("NOTIFY_TRANSPORT", "log"),
			Interval:      envDuration("DISPATCH_INTERVAL", time.Second),
			BatchSize:     envInt("DISPATCH_BATCH_SIZE", 100),
			RedisChannel:  envString("NOTIFY_REDIS_CHANNEL", "filegov:notifications"),
			DrainTimeout:  envDuration("DISPATCH_DRAIN_TIMEOUT", 10*time.Second),
			MetricsPeriod: envDuration("DISPATCH_METRICS_PERIOD", 15*time.Second),
		},
		Actors: ActorCacheConfig{
			Size: envInt("ACTOR_CACHE_SIZE", 1024),
			TTL:  envDuration("ACTOR_CACHE_TTL", 30*time.Second),
		},
		LogLevel: envString("LOG_LEVEL", "info"),
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envDuration ignores malformed values and keeps the default.
func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
