package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-redis/redis/v8"
)

const defaultRedisAddr = "localhost:6379"

// RedisConfig holds the Redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GetRedisConfig reads the Redis connection from the environment. REDIS_URL
// (redis://[:password@]host[:port][/db]) wins over REDIS_ADDR, REDIS_PASSWORD
// and REDIS_DB. An unparsable REDIS_DB falls back to database 0.
func GetRedisConfig() (RedisConfig, error) {
	if rawURL := os.Getenv("REDIS_URL"); rawURL != "" {
		opts, err := redis.ParseURL(rawURL)
		if err != nil {
			return RedisConfig{}, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		return RedisConfig{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}, nil
	}

	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil && parsed >= 0 {
			db = parsed
		}
	}

	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", defaultRedisAddr),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	}, nil
}

// GetOpenAIKey returns the API key of the roadmap advisor, empty when unset
func GetOpenAIKey() string {
	return os.Getenv("OPENAI_API_KEY")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
