package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Narrative providers
const (
	ProviderIONet  = "ionet"
	ProviderClaude = "claude"
	ProviderNone   = "none"
)

// Config holds all application configuration
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	NarrativeProvider string `env:"NARRATIVE_PROVIDER" envDefault:"ionet"`
	IONetAPIKey       string `env:"IONET_API_KEY"`
	IONetBaseURL      string `env:"IONET_BASE_URL" envDefault:"https://api.intelligence.io.solutions/api/v1"`
	IONetModel        string `env:"IONET_MODEL" envDefault:"meta-llama/Llama-3.3-70B-Instruct"`
	ClaudeAPIKey      string `env:"CLAUDE_API_KEY"`
	ClaudeModel       string `env:"CLAUDE_MODEL" envDefault:"claude-3-5-haiku-latest"`
	LLMTimeout        int    `env:"LLM_TIMEOUT" envDefault:"20"` // seconds
	LLMRequestsPerSec int    `env:"LLM_REQUESTS_PER_SEC" envDefault:"2"`
	BreakerFailures   int    `env:"BREAKER_FAILURES" envDefault:"3"`
	BreakerCooldown   int    `env:"BREAKER_COOLDOWN" envDefault:"60"` // seconds

	BaselineCacheSize int    `env:"BASELINE_CACHE_SIZE" envDefault:"4096"`
	BaselineCacheTTL  int    `env:"BASELINE_CACHE_TTL" envDefault:"3600"` // seconds
	RedisAddr         string `env:"REDIS_ADDR"`
	RedisPassword     string `env:"REDIS_PASSWORD"`
	RedisDB           int    `env:"REDIS_DB" envDefault:"0"`

	DBHost     string `env:"DB_HOST"`
	DBPort     string `env:"DB_PORT" envDefault:"5432"`
	DBUser     string `env:"DB_USER"`
	DBPassword string `env:"DB_PASSWORD"`
	DBName     string `env:"DB_NAME"`
	DBSSLMode  string `env:"DB_SSLMODE" envDefault:"disable"`

	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	WatchInterval    int    `env:"WATCH_INTERVAL" envDefault:"15"` // minutes
	WatchCooldown    int    `env:"WATCH_COOLDOWN" envDefault:"60"` // minutes

	ThresholdsFile string `env:"THRESHOLDS_FILE"`
	StrictMetrics  bool   `env:"STRICT_METRICS" envDefault:"true"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")
	cfg.HTTPAddr = getEnvWithDefault("HTTP_ADDR", ":8080")

	cfg.NarrativeProvider = getEnvWithDefault("NARRATIVE_PROVIDER", ProviderIONet)
	cfg.IONetAPIKey = os.Getenv("IONET_API_KEY")
	cfg.IONetBaseURL = getEnvWithDefault("IONET_BASE_URL", "https://api.intelligence.io.solutions/api/v1")
	cfg.IONetModel = getEnvWithDefault("IONET_MODEL", "meta-llama/Llama-3.3-70B-Instruct")
	cfg.ClaudeAPIKey = os.Getenv("CLAUDE_API_KEY")
	cfg.ClaudeModel = getEnvWithDefault("CLAUDE_MODEL", "claude-3-5-haiku-latest")
	cfg.LLMTimeout = clampInt(getEnvIntWithDefault("LLM_TIMEOUT", 20), 10, 30)
	cfg.LLMRequestsPerSec = getEnvIntWithDefault("LLM_REQUESTS_PER_SEC", 2)
	cfg.BreakerFailures = getEnvIntWithDefault("BREAKER_FAILURES", 3)
	cfg.BreakerCooldown = getEnvIntWithDefault("BREAKER_COOLDOWN", 60)

	cfg.BaselineCacheSize = getEnvIntWithDefault("BASELINE_CACHE_SIZE", 4096)
	cfg.BaselineCacheTTL = getEnvIntWithDefault("BASELINE_CACHE_TTL", 3600)
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	cfg.RedisDB = getEnvIntWithDefault("REDIS_DB", 0)

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = os.Getenv("DB_NAME")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.WatchInterval = clampInt(getEnvIntWithDefault("WATCH_INTERVAL", 15), 1, 24*60)
	cfg.WatchCooldown = clampInt(getEnvIntWithDefault("WATCH_COOLDOWN", 60), 1, 7*24*60)

	cfg.ThresholdsFile = os.Getenv("THRESHOLDS_FILE")
	cfg.StrictMetrics = getEnvBoolWithDefault("STRICT_METRICS", true)

	return &cfg, nil
}

// LLMTimeoutDuration is the hard limit of one narrative call.
func (c *Config) LLMTimeoutDuration() time.Duration {
	return time.Duration(c.LLMTimeout) * time.Second
}

// DatabaseEnabled reports whether Postgres settings were provided.
func (c *Config) DatabaseEnabled() bool {
	return c.DBHost != "" && c.DBName != ""
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolWithDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
