package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// KV backends.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Env         string
	Port        string
	CatalogURL  string
	HTTPTimeout time.Duration

	KVBackend   string
	KVFilePath  string
	RedisURL    string
	PostgresDSN string

	CartKey     string
	CartTTL     time.Duration
	Locale      string
	SessionIdle time.Duration

	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads the configuration from the environment. Values in a .env file
// in the working directory are used when the variable is not already set.
func Load() (Config, error) {
	_ = godotenv.Load()

	timeout, err := getDuration("HTTP_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	ttl, err := getDuration("CART_TTL", 0)
	if err != nil {
		return Config{}, err
	}

	idle, err := getDuration("SESSION_IDLE", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "8085"),
		CatalogURL:  getEnv("CATALOG_URL", "http://localhost:3333"),
		HTTPTimeout: timeout,
		KVBackend:   strings.ToLower(getEnv("KV_BACKEND", BackendFile)),
		KVFilePath:  getEnv("KV_FILE_PATH", "cart.json"),
		RedisURL:    os.Getenv("REDIS_URL"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		CartKey:     getEnv("CART_KEY", "@RocketShoes:cart"),
		CartTTL:     ttl,
		Locale:      getEnv("CART_LOCALE", "en"),
		SessionIdle: idle,
		KafkaTopic:  getEnv("KAFKA_TOPIC", "cart.notifications"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.KVBackend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown KV_BACKEND %q", c.KVBackend)
	}
	if c.CatalogURL == "" {
		return fmt.Errorf("CATALOG_URL is required")
	}
	if c.SessionIdle <= 0 {
		return fmt.Errorf("SESSION_IDLE must be positive")
	}
	if c.CartKey == "" {
		return fmt.Errorf("CART_KEY must not be empty")
	}
	return nil
}

// IdleTimeout is how long a session's cart may stay in memory unused. It never
// outlives the stored cart's TTL.
func (c Config) IdleTimeout() time.Duration {
	if c.CartTTL > 0 && c.CartTTL < c.SessionIdle {
		return c.CartTTL
	}
	return c.SessionIdle
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
