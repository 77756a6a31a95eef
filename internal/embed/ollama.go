package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

type ollamaEmbedder struct {
	cfg    Config
	host   string
	client *http.Client
}

type ollamaRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaResponse struct {
	Embedding []float64 `json:"embedding"`
}

func newOllamaEmbedder(cfg Config) Embedder {
	host := strings.TrimRight(cfg.BaseURL, "/")
	if host == "" {
		host = "http://localhost:11434"
	}
	return &ollamaEmbedder{
		cfg:  cfg,
		host: host,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (e *ollamaEmbedder) Config() Config { return e.cfg }

func (e *ollamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *ollamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, 0, len(texts))
	url := e.host + "/api/embeddings"

	for _, text := range texts {
		reqBody, err := json.Marshal(ollamaRequest{Model: e.cfg.Model, Prompt: text})
		if err != nil {
			return nil, fmt.Errorf("marshal ollama request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
		if err != nil {
			return nil, fmt.Errorf("create ollama request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := e.client.Do(req)
		if err != nil {
			return nil, &ServiceError{Provider: ProviderOllama, Err: err}
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, &ServiceError{
				Provider: ProviderOllama,
				Err:      fmt.Errorf("embeddings API status %d", resp.StatusCode),
			}
		}

		var payload ollamaResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode ollama response: %w", err)
		}
		resp.Body.Close()

		vec := make([]float32, len(payload.Embedding))
		for i, value := range payload.Embedding {
			vec[i] = float32(value)
		}

		if e.cfg.Dimension > 0 && len(vec) != e.cfg.Dimension {
			return nil, fmt.Errorf("ollama embedding dimension mismatch: expected %d, got %d", e.cfg.Dimension, len(vec))
		}

		results = append(results, vec)
	}

	return results, nil
}
