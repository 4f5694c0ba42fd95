// Package config loads and validates environment variables at startup.
// Fail-fast: if a required variable is missing, the process exits.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the crawler service.
type Config struct {
	Port        string
	DatabaseURL string
	RedisURL    string

	// External fetch/proxy service the Fetcher goes through.
	ProxyBaseURL string
	ProxyAPIKey  string

	// LLM providers, tried in order. Comma-separated key lists allow
	// per-provider key rotation on failure.
	AnthropicAPIKeys []string
	AnthropicModel   string
	CohereAPIKeys    []string
	CohereModel      string

	ListingConcurrency int // listing queue workers
	DetailConcurrency  int // detail queue workers
	ScheduleSpec       string

	SeedSourcesPath string // optional YAML bootstrap file
}

// Load reads environment variables and returns a validated Config.
// A .env file is honoured for local development but never required.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}

	port := os.Getenv("CRAWLER_PORT")
	if port == "" {
		port = "8083"
	}

	spec := os.Getenv("CRAWL_SCHEDULE")
	if spec == "" {
		spec = "@every 1h"
	}

	return &Config{
		Port:        port,
		DatabaseURL: dbURL,
		RedisURL:    redisURL,

		ProxyBaseURL: getEnv("FETCH_PROXY_URL", "https://api.scraperproxy.io/fetch"),
		ProxyAPIKey:  os.Getenv("FETCH_PROXY_API_KEY"),

		AnthropicAPIKeys: splitKeys(os.Getenv("ANTHROPIC_API_KEYS")),
		AnthropicModel:   getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		CohereAPIKeys:    splitKeys(os.Getenv("COHERE_API_KEYS")),
		CohereModel:      getEnv("COHERE_MODEL", "command-r-plus"),

		ListingConcurrency: getEnvInt("LISTING_CONCURRENCY", 5),
		DetailConcurrency:  getEnvInt("DETAIL_CONCURRENCY", 10),
		ScheduleSpec:       spec,

		SeedSourcesPath: os.Getenv("SEED_SOURCES_PATH"),
	}, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil && n > 0 {
			return n
		}
		log.Printf("[config] %s=%q is not a positive integer, using %d", key, val, fallback)
	}
	return fallback
}
