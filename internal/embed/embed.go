package embed

import (
	"context"
	"fmt"
)

// Provider names accepted by New and persisted in Config.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// Embedder converts text into fixed-length vectors. Implementations must be
// deterministic for a given configuration: the same text always yields the
// same vector, otherwise a cached index would drift from its query embedder.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Config() Config
}

// Config is the serializable embedding configuration. It is persisted next to
// each index so future queries re-embed with the exact same model. Secrets
// never travel with it; credentials come from the environment at load time.
type Config struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Dimension int    `json:"dimension"`
	BaseURL   string `json:"base_url,omitempty"`
}

// Credentials holds the runtime secrets an embedder may need.
type Credentials struct {
	APIKey string
}

// ServiceError reports an unreachable or failing embedding service. Callers
// may retry with backoff; an index build aborts without publishing anything.
type ServiceError struct {
	Provider string
	Err      error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("embedding service (%s): %v", e.Provider, e.Err)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// New builds an embedder from configuration.
func New(cfg Config, creds Credentials) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOllama:
		return newOllamaEmbedder(cfg), nil
	case ProviderOpenAI:
		if creds.APIKey == "" {
			return nil, fmt.Errorf("openai embedding provider selected but no API key set")
		}
		return newOpenAIEmbedder(cfg, creds.APIKey), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

// FromConfig reconstructs the query embedder for a loaded index from its
// persisted configuration.
func FromConfig(cfg Config, creds Credentials) (Embedder, error) {
	return New(cfg, creds)
}
