package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	APIKey string

	// Index cache
	IndexDir string

	// Embeddings
	EmbedProvider  string
	EmbedModel     string
	EmbedDimension int
	EmbedBaseURL   string
	EmbedAPIKey    string

	// Generation
	LLMProvider string
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMTimeout  time.Duration

	// Fragment splitting
	ChunkWindow  int
	ChunkOverlap int

	// Worker pool
	WorkerCount            int
	MaxQueueSize           int
	MaxConcurrentQuestions int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("TEXTQA_API_KEY"),

		IndexDir: envOr("INDEX_DIR", "vector_cache"),

		EmbedProvider:  envOr("EMBED_PROVIDER", "ollama"),
		EmbedModel:     envOr("EMBED_MODEL", "nomic-embed-text"),
		EmbedDimension: envInt("EMBED_DIMENSION", 768),
		EmbedBaseURL:   envOr("EMBED_BASE_URL", "http://localhost:11434"),
		EmbedAPIKey:    os.Getenv("EMBED_API_KEY"),

		LLMProvider: envOr("LLM_PROVIDER", "ollama"),
		LLMModel:    envOr("LLM_MODEL", "llama3.1"),
		LLMAPIKey:   os.Getenv("LLM_API_KEY"),
		LLMBaseURL:  envOr("LLM_BASE_URL", "http://localhost:11434"),
		LLMTimeout:  envDuration("LLM_TIMEOUT", 120*time.Second),

		ChunkWindow:  envInt("CHUNK_WINDOW", 1000),
		ChunkOverlap: envInt("CHUNK_OVERLAP", 200),

		WorkerCount:            envInt("WORKER_COUNT", 2),
		MaxQueueSize:           envInt("MAX_QUEUE_SIZE", 50),
		MaxConcurrentQuestions: envInt("MAX_CONCURRENT_QUESTIONS", 4),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxConcurrentQuestions <= 0 {
		cfg.MaxConcurrentQuestions = 4
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.ChunkWindow <= 0 {
		cfg.ChunkWindow = 1000
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkWindow {
		cfg.ChunkOverlap = 200
	}
	if cfg.EmbedDimension <= 0 {
		cfg.EmbedDimension = 768
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 120 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("TEXTQA_API_KEY is required")
	}
	if c.IndexDir == "" {
		return fmt.Errorf("INDEX_DIR must not be empty")
	}
	switch c.EmbedProvider {
	case "ollama":
	case "openai":
		if c.EmbedAPIKey == "" {
			return fmt.Errorf("EMBED_API_KEY is required for the openai embedding provider")
		}
	default:
		return fmt.Errorf("unknown EMBED_PROVIDER: %q", c.EmbedProvider)
	}
	switch c.LLMProvider {
	case "ollama":
	case "anthropic", "openai":
		if c.LLMAPIKey == "" {
			return fmt.Errorf("LLM_API_KEY is required for the %s provider", c.LLMProvider)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER: %q", c.LLMProvider)
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
