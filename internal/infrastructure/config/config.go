package config

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port      string `env:"PORT,      default=8080"`
	Env       string `env:"ENV,       default=development"`
	JWTSecret string `env:"JWT_SECRET"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`

	Mongo   MongoConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Geocode GeocodeConfig
	TextGen TextGenConfig
	Tracker TrackerConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=dispatch_core"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS, default=localhost:9092"`
	GroupID string   `env:"KAFKA_GROUP_ID, default=dispatch-core"`
}

type GeocodeConfig struct {
	// APIKey is the env-level fallback; the settings store wins when it
	// holds a key.
	APIKey   string        `env:"GEOCODING_API_KEY"`
	BaseURL  string        `env:"GEOCODING_BASE_URL"`
	CacheTTL time.Duration `env:"GEOCODE_CACHE_TTL, default=24h"`
}

type TextGenConfig struct {
	APIKey  string `env:"AI_API_KEY"`
	BaseURL string `env:"AI_BASE_URL"`
}

type TrackerConfig struct {
	RefreshInterval time.Duration `env:"TRACKER_REFRESH_INTERVAL, default=30s"`
	// MonotonicGuard drops position samples observed earlier than the
	// stored one. Turn off only for clients with unreliable clocks.
	MonotonicGuard bool `env:"TRACKER_MONOTONIC_GUARD, default=true"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
