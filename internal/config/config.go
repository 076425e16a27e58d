package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port string

	// Auth for the HTTP API
	DocqaAPIKey string

	// Model provider
	LLMProvider    string
	LLMModel       string
	LLMTemperature float64
	LLMMaxTokens   int
	LLMRateLimit   float64 // Calls per second, 0 disables.
	LLMRateBurst   int

	OpenAIAPIKey    string
	OpenAIBaseURL   string
	AnthropicAPIKey string
	GeminiAPIKey    string
	OllamaHost      string

	// Chunking
	ChunkSize           int
	ChunkOverlap        int
	ChunkBoundarySearch int

	// Chunk querying
	MaxConcurrentChunks int
	ChunkMaxAttempts    int

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL    time.Duration
	RedisAddr string

	// PDF
	PDFFallbackPdftotext bool

	// Run history
	HistoryDB string
}

// DefaultModels maps a provider to the model used when LLM_MODEL is unset.
var DefaultModels = map[string]string{
	"openai":    "gpt-3.5-turbo",
	"anthropic": "claude-sonnet-4-5-20250929",
	"gemini":    "gemini-2.5-flash",
	"ollama":    "llama3.1",
}

// LoadEnvFile reads KEY=VALUE pairs from path into the process environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func Load() Config {
	provider := strings.ToLower(envOr("LLM_PROVIDER", "openai"))

	cfg := Config{
		Port: envOr("PORT", "8090"),

		DocqaAPIKey: os.Getenv("DOCQA_API_KEY"),

		LLMProvider:    provider,
		LLMModel:       envOr("LLM_MODEL", DefaultModels[provider]),
		LLMTemperature: envFloat("LLM_TEMPERATURE", 0.5),
		LLMMaxTokens:   envInt("LLM_MAX_TOKENS", 512),
		LLMRateLimit:   envFloat("LLM_RATE_LIMIT", 0),
		LLMRateBurst:   envInt("LLM_RATE_BURST", 1),

		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiAPIKey:    envOr("GEMINI_API_KEY", os.Getenv("GOOGLE_API_KEY")),
		OllamaHost:      envOr("OLLAMA_HOST", "http://localhost:11434"),

		ChunkSize:           envInt("CHUNK_SIZE", 15000),
		ChunkOverlap:        envInt("CHUNK_OVERLAP", 500),
		ChunkBoundarySearch: envInt("CHUNK_BOUNDARY_SEARCH", 1500),

		MaxConcurrentChunks: envInt("MAX_CONCURRENT_CHUNKS", 1),
		ChunkMaxAttempts:    envInt("CHUNK_MAX_ATTEMPTS", 1),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 20),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL:    envDuration("JOB_TTL", 1*time.Hour),
		RedisAddr: os.Getenv("REDIS_ADDR"),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),

		HistoryDB: os.Getenv("HISTORY_DB"),
	}

	// Chunk sizes are left alone so a bad value surfaces as a chunking config error.
	if cfg.LLMMaxTokens <= 0 {
		cfg.LLMMaxTokens = 512
	}
	if cfg.LLMRateBurst <= 0 {
		cfg.LLMRateBurst = 1
	}
	if cfg.MaxConcurrentChunks <= 0 {
		cfg.MaxConcurrentChunks = 1
	}
	if cfg.ChunkMaxAttempts <= 0 {
		cfg.ChunkMaxAttempts = 1
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 20
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks that the selected model provider can be reached.
func (c Config) Validate() error {
	switch c.LLMProvider {
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required")
		}
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			return fmt.Errorf("ANTHROPIC_API_KEY is required")
		}
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required")
		}
	case "ollama":
		if c.OllamaHost == "" {
			return fmt.Errorf("OLLAMA_HOST is required")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}
	if c.LLMModel == "" {
		return fmt.Errorf("LLM_MODEL is required")
	}
	return nil
}

// ValidateServer adds the checks that only matter for the HTTP API.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.DocqaAPIKey == "" {
		return fmt.Errorf("DOCQA_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
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

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
