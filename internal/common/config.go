package common

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/tanglebrook/vicinity/internal/interfaces"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Jobs        JobsConfig      `toml:"jobs"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Ranking     RankingConfig   `toml:"ranking"`
	Cache       CacheConfig     `toml:"cache"`
	Enrichment  EnrichConfig    `toml:"enrichment"`
	WebSocket   WebSocketConfig `toml:"websocket"`
	PlacesAPI   PlacesAPIConfig `toml:"places_api"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs
}

// JobsConfig controls search-job lifecycle housekeeping.
type JobsConfig struct {
	TTL           string `toml:"ttl"`            // How long a finished/unclaimed job record lives (default: "30m")
	SweepSchedule string `toml:"sweep_schedule"` // Cron schedule for the expiry sweep (default: "@every 1m")
}

// PipelineConfig controls the search stage pipeline.
type PipelineConfig struct {
	GateMaxAttempts     int    `toml:"gate_max_attempts"`     // Bounded retries for the gate LLM call (default: 3)
	IntentMaxAttempts   int    `toml:"intent_max_attempts"`   // Bounded retries for intent extraction (default: 3)
	RetryBaseBackoff    string `toml:"retry_base_backoff"`    // Base backoff between LLM retries (default: "500ms")
	LLMCallTimeout      string `toml:"llm_call_timeout"`      // Per-call timeout for gate/intent calls (default: "10s")
	MinCategoryResults  int    `toml:"min_category_results"`  // Sample size below which category filtering must not empty the list (default: 3)
	MaxResults          int    `toml:"max_results"`           // Result list cap after ranking (default: 20)
	DefaultRadiusMeters int    `toml:"default_radius_meters"` // Radius when the request carries none (default: 5000)
}

// RankingConfig controls the order-weight resolver.
type RankingConfig struct {
	WeightFloor   float64 `toml:"weight_floor"`   // Per-factor clamp floor after rule deltas (default: 0.02)
	WeightCeiling float64 `toml:"weight_ceiling"` // Per-factor clamp ceiling after rule deltas (default: 0.60)
}

// CacheConfig controls the provider-call cache guard.
type CacheConfig struct {
	KeyedTTL        string `toml:"keyed_ttl"`         // TTL for keyed-mode (specific) queries (default: "6h")
	FreeTextTTL     string `toml:"free_text_ttl"`     // TTL for free-text queries (default: "1h")
	InFlightTTL     string `toml:"in_flight_ttl"`     // TTL of the in-flight dedup marker (default: "15s")
	InFlightPolls   int    `toml:"in_flight_polls"`   // How many times a loser polls for the winner's value (default: 10)
	InFlightBackoff string `toml:"in_flight_backoff"` // Delay between loser polls (default: "250ms")
}

// EnrichConfig controls background place-detail enrichment.
type EnrichConfig struct {
	Enabled     bool   `toml:"enabled"`      // Enable background enrichment (default: true)
	PoolSize    int    `toml:"pool_size"`    // Worker pool size (default: 4)
	TopN        int    `toml:"top_n"`        // How many top-ranked places to enrich per search (default: 5)
	LockTTL     string `toml:"lock_ttl"`     // Per-entity lock TTL (default: "45s")
	DetailsTTL  string `toml:"details_ttl"`  // Cache TTL for fetched details (default: "24h")
	CallTimeout string `toml:"call_timeout"` // Provider call timeout per enrichment (default: "10s")
}

// WebSocketConfig contains configuration for the push channel.
type WebSocketConfig struct {
	HeartbeatInterval string `toml:"heartbeat_interval"` // Keep-alive interval (default: "25s")
	WriteTimeout      string `toml:"write_timeout"`      // Per-message write deadline (default: "10s")
	// Throttle intervals for high-frequency events. Map of event type to duration string.
	// Example: {"job_progress": "500ms"}
	ThrottleIntervals map[string]string `toml:"throttle_intervals"`
}

// PlacesAPIConfig contains Google Places API configuration
type PlacesAPIConfig struct {
	APIKey              string        `toml:"api_key"`                // Google Places API key
	RateLimit           time.Duration `toml:"rate_limit"`             // Minimum time between API requests
	RequestTimeout      time.Duration `toml:"request_timeout"`        // HTTP request timeout
	MaxResultsPerSearch int           `toml:"max_results_per_search"` // Provider limit per request
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key
	Model       string  `toml:"model"`       // Model for extraction calls (default: "gemini-2.0-flash")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "30s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.1)
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key
	Model       string  `toml:"model"`       // Model name (default: "claude-sonnet-4-20250514")
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "30s")
	MaxTokens   int     `toml:"max_tokens"`  // Max response tokens (default: 1024)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.1)
}

// LLMConfig selects and tunes the language-model provider.
type LLMConfig struct {
	DefaultProvider string `toml:"default_provider"` // "gemini" or "claude" (default: "gemini")
}

// NewDefaultConfig returns a Config populated with defaults. File, env and
// CLI values layer on top.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path:           "./data/vicinity",
				ResetOnStartup: false,
			},
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Jobs: JobsConfig{
			TTL:           "30m",
			SweepSchedule: "@every 1m",
		},
		Pipeline: PipelineConfig{
			GateMaxAttempts:     3,
			IntentMaxAttempts:   3,
			RetryBaseBackoff:    "500ms",
			LLMCallTimeout:      "10s",
			MinCategoryResults:  3,
			MaxResults:          20,
			DefaultRadiusMeters: 5000,
		},
		Ranking: RankingConfig{
			WeightFloor:   0.02,
			WeightCeiling: 0.60,
		},
		Cache: CacheConfig{
			KeyedTTL:        "6h",
			FreeTextTTL:     "1h",
			InFlightTTL:     "15s",
			InFlightPolls:   10,
			InFlightBackoff: "250ms",
		},
		Enrichment: EnrichConfig{
			Enabled:     true,
			PoolSize:    4,
			TopN:        5,
			LockTTL:     "45s",
			DetailsTTL:  "24h",
			CallTimeout: "10s",
		},
		WebSocket: WebSocketConfig{
			HeartbeatInterval: "25s",
			WriteTimeout:      "10s",
		},
		PlacesAPI: PlacesAPIConfig{
			RateLimit:           200 * time.Millisecond,
			RequestTimeout:      10 * time.Second,
			MaxResultsPerSearch: 20,
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Timeout:     "30s",
			Temperature: 0.1,
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			Timeout:     "30s",
			MaxTokens:   1024,
			Temperature: 0.1,
		},
		LLM: LLMConfig{
			DefaultProvider: "gemini",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority:
// default -> file1 -> file2 -> ... -> env. Later files override earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("VICINITY_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	if port := os.Getenv("VICINITY_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("VICINITY_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	if badgerPath := os.Getenv("VICINITY_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	if level := os.Getenv("VICINITY_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if output := os.Getenv("VICINITY_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	if key := os.Getenv("VICINITY_PLACES_API_KEY"); key != "" {
		config.PlacesAPI.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		config.Claude.APIKey = key
	}
	if provider := os.Getenv("VICINITY_LLM_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = provider
	}

	if ttl := os.Getenv("VICINITY_JOB_TTL"); ttl != "" {
		if _, err := time.ParseDuration(ttl); err == nil {
			config.Jobs.TTL = ttl
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ResolveAPIKey resolves an API key with KV-first resolution order:
// KV store -> config fallback. Returns an error when neither yields a value.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	if kvStorage != nil {
		if value, err := kvStorage.Get(ctx, name); err == nil && value != "" {
			return value, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key %q not found in KV store or config", name)
}

// JobTTL returns the parsed job TTL, falling back to 30 minutes.
func (c *Config) JobTTL() time.Duration {
	if d, err := time.ParseDuration(c.Jobs.TTL); err == nil && d > 0 {
		return d
	}
	return 30 * time.Minute
}

// ParseDurationOr parses a duration string, returning fallback on failure.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	return fallback
}
