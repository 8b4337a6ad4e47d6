package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the interview gateway service
type Config struct {
	// Server configuration
	Port string `envconfig:"PORT" default:"8080"`

	// Public base URL for this service (e.g. https://xxx.ngrok-free.dev when
	// behind a tunnel). Candidates connect to wss://<this-host>/streams/interview.
	// Optional; if unset, logs ws://localhost:PORT/streams/interview.
	GatewayURL string `envconfig:"GATEWAY_URL" default:""`

	// AI agent service (question generation, answer scoring, verdicts)
	AgentURL     string `envconfig:"AGENT_URL" default:"http://localhost:8000"`
	AgentTimeout int    `envconfig:"AGENT_TIMEOUT" default:"30"` // seconds

	// Recruiting backend (applications, interview records)
	BackendURL     string `envconfig:"BACKEND_URL" default:"http://localhost:5000"`
	BackendTimeout int    `envconfig:"BACKEND_TIMEOUT" default:"15"` // seconds

	// JWT verification for the WebSocket endpoint
	JWTSecret string `envconfig:"JWT_SECRET" required:"true"`

	// Session behavior
	CountdownSeconds   int `envconfig:"COUNTDOWN_SECONDS" default:"3"`
	ListenerRetryDelay int `envconfig:"LISTENER_RETRY_DELAY" default:"1000"` // ms, transient recognition errors

	// Deepgram STT configuration (server-side recognition fallback).
	// Optional: sessions use browser recognition when unset.
	DeepgramAPIKey     string `envconfig:"DEEPGRAM_API_KEY" default:""`
	DeepgramModel      string `envconfig:"DEEPGRAM_MODEL" default:"nova-2"`
	DeepgramLanguage   string `envconfig:"DEEPGRAM_LANGUAGE" default:"en"`
	DeepgramEncoding   string `envconfig:"DEEPGRAM_ENCODING" default:"opus"`
	DeepgramSampleRate int    `envconfig:"DEEPGRAM_SAMPLE_RATE" default:"48000"`

	// Resilience configuration
	CircuitBreakerMaxFailures  int `envconfig:"CIRCUIT_BREAKER_MAX_FAILURES" default:"5"`   // Failures before opening circuit
	CircuitBreakerResetTimeout int `envconfig:"CIRCUIT_BREAKER_RESET_TIMEOUT" default:"30"` // Seconds before attempting recovery
	RetryMaxAttempts           int `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`             // Maximum retry attempts
	RetryInitialBackoff        int `envconfig:"RETRY_INITIAL_BACKOFF" default:"100"`        // Initial backoff in milliseconds
	ReconnectMaxAttempts       int `envconfig:"RECONNECT_MAX_ATTEMPTS" default:"5"`         // Maximum reconnection attempts
	ReconnectBackoff           int `envconfig:"RECONNECT_BACKOFF" default:"1000"`           // Reconnection backoff in milliseconds

	// Observability configuration
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`       // Log level: debug, info, warn, error
	LogPretty      bool   `envconfig:"LOG_PRETTY" default:"false"`     // Pretty print logs (for development)
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"` // Enable Prometheus metrics
}

// Load reads configuration from environment variables.
// It first attempts to load from a .env file if one exists, then from environment.
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	return LoadFromEnv()
}

// LoadFromEnv loads configuration directly from environment variables
// without attempting to load a .env file (useful for containerized deployments)
func LoadFromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AgentURL == "" {
		return nil, fmt.Errorf("AGENT_URL is required")
	}
	if cfg.BackendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL is required")
	}

	return &cfg, nil
}

// GetEnv returns the value of an environment variable or a default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
