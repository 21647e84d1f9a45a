// Package config loads runtime configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"solana-asset-radar/internal/normalize"
)

// Config holds all configuration for the radar.
type Config struct {
	// Solana endpoints
	RPCEndpoint    string
	AltRPCEndpoint string
	WSEndpoint     string

	// External HTTP sources
	ExplorerURLTemplate string // must contain "{address}"
	AggregatorBaseURL   string

	// Watched program IDs
	Programs []string

	// Upstream call behavior
	SourceTimeout  time.Duration
	ResolveBudget  time.Duration
	MaxAttempts    int
	RetryDelay     time.Duration
	RetryMaxDelay  time.Duration
	RetryJitterMax time.Duration
	CooldownBase   time.Duration
	CooldownCap    time.Duration
	HostRPS        float64
	HostBurst      int

	// Scheduling
	MaxConcurrentEnrichments int
	QueueDepth               int
	DedupeTTL                time.Duration
	PollInterval             time.Duration

	// Scoring
	LiquidityThresholdUsd float64
	VolumeThresholdUsd    float64
	MaxAgeMinutes         float64
	RequireFreshMint      bool

	// Optional backing stores
	RedisAddr   string // empty disables the shared dedupe store
	PostgresDSN string // empty disables the record journal

	// Observability
	MetricsAddr string
	LogLevel    string

	// Token metadata lookups during enrichment
	FetchMetadata bool
}

// LoadEnvFile loads a .env file if present. Missing files are not an
// error; variables already set in the environment win.
func LoadEnvFile() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		RPCEndpoint:    getEnv("RPC_ENDPOINT", "https://api.mainnet-beta.solana.com"),
		AltRPCEndpoint: os.Getenv("ALT_RPC_ENDPOINT"),
		WSEndpoint:     getEnv("WS_ENDPOINT", "wss://api.mainnet-beta.solana.com"),

		ExplorerURLTemplate: os.Getenv("EXPLORER_URL_TEMPLATE"),
		AggregatorBaseURL:   getEnv("AGGREGATOR_BASE_URL", "https://api.dexscreener.com"),

		Programs: getEnvList("WATCH_PROGRAMS", []string{
			normalize.RaydiumAMMV4,
			normalize.PumpFun,
		}),

		SourceTimeout:  getEnvDuration("SOURCE_TIMEOUT", 10*time.Second),
		ResolveBudget:  getEnvDuration("RESOLVE_BUDGET", 45*time.Second),
		MaxAttempts:    getEnvInt("MAX_ATTEMPTS", 3),
		RetryDelay:     getEnvDuration("RETRY_DELAY", 500*time.Millisecond),
		RetryMaxDelay:  getEnvDuration("RETRY_MAX_DELAY", 10*time.Second),
		RetryJitterMax: getEnvDuration("RETRY_JITTER_MAX", 500*time.Millisecond),
		CooldownBase:   getEnvDuration("COOLDOWN_BASE", 2*time.Second),
		CooldownCap:    getEnvDuration("COOLDOWN_CAP", 5*time.Minute),
		HostRPS:        getEnvFloat("HOST_RPS", 0),
		HostBurst:      getEnvInt("HOST_BURST", 1),

		MaxConcurrentEnrichments: getEnvInt("MAX_CONCURRENT_ENRICHMENTS", 4),
		QueueDepth:               getEnvInt("QUEUE_DEPTH", 256),
		DedupeTTL:                getEnvDuration("DEDUPE_TTL", 15*time.Minute),
		PollInterval:             getEnvDuration("POLL_INTERVAL", 30*time.Second),

		LiquidityThresholdUsd: getEnvFloat("LIQUIDITY_THRESHOLD_USD", 1000),
		VolumeThresholdUsd:    getEnvFloat("VOLUME_THRESHOLD_USD", 500),
		MaxAgeMinutes:         getEnvFloat("MAX_AGE_MINUTES", 7*24*60),
		RequireFreshMint:      getEnvBool("REQUIRE_FRESH_MINT", true),

		RedisAddr:   os.Getenv("REDIS_ADDR"),
		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		MetricsAddr: getEnv("METRICS_ADDR", ":9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		FetchMetadata: getEnvBool("FETCH_METADATA", true),
	}

	if cfg.ExplorerURLTemplate != "" && !strings.Contains(cfg.ExplorerURLTemplate, "{address}") {
		return nil, fmt.Errorf("EXPLORER_URL_TEMPLATE must contain {address}")
	}
	if cfg.MaxConcurrentEnrichments < 1 {
		return nil, fmt.Errorf("MAX_CONCURRENT_ENRICHMENTS must be positive")
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("MAX_ATTEMPTS must be positive")
	}
	if len(cfg.Programs) == 0 {
		return nil, fmt.Errorf("WATCH_PROGRAMS must not be empty")
	}

	return cfg, nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
