package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr            string
	DBPath          string
	LogLevel        string
	APIBase         string
	HTTPTimeout     time.Duration
	FullWindow      time.Duration
	QuickWindow     time.Duration
	QuickCount      int
	BatchSize       int
	TickInterval    time.Duration
	RecheckInterval time.Duration
	WorkerCount     int
	QueueSize       int
	RedisAddr       string
	RedisDB         int
}

// Load reads configuration from a .env file (if present) and environment variables,
// applying sensible defaults when values are missing or invalid.
func Load() Config {
	// Ignore error so the app still starts when .env is absent in production.
	_ = godotenv.Load()

	return Config{
		Addr:            envOr("ADDR", ":8080"),
		DBPath:          envOr("DB_PATH", "file:cfpractice.db"),
		LogLevel:        envOr("LOG_LEVEL", "INFO"),
		APIBase:         envOr("CF_API_BASE", "https://codeforces.com/api"),
		HTTPTimeout:     envDurOr("HTTP_TIMEOUT", 15*time.Second),
		FullWindow:      envDurOr("FULL_WINDOW", 24*time.Hour),
		QuickWindow:     envDurOr("QUICK_WINDOW", 5*time.Minute),
		QuickCount:      envIntOr("QUICK_COUNT", 20),
		BatchSize:       envIntOr("BATCH_SIZE", 3),
		TickInterval:    envDurOr("TICK_INTERVAL", time.Second),
		RecheckInterval: envDurOr("RECHECK_INTERVAL", 5*time.Minute),
		WorkerCount:     envIntOr("WORKER_COUNT", 2),
		QueueSize:       envIntOr("QUEUE_SIZE", 32),
		RedisAddr:       envOr("REDIS_ADDR", ""),
		RedisDB:         envIntOr("REDIS_DB", 0),
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envIntOr(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		log.Printf("invalid value for %s=%q, using default %d", key, v, def)
	}
	return def
}

func envDurOr(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("invalid value for %s=%q, using default %v", key, v, def)
	}
	return def
}
