package embed

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

type openAIEmbedder struct {
	cfg    Config
	client *openai.Client
}

func newOpenAIEmbedder(cfg Config, apiKey string) Embedder {
	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &openAIEmbedder{
		cfg:    cfg,
		client: openai.NewClientWithConfig(clientCfg),
	}
}

func (e *openAIEmbedder) Config() Config { return e.cfg }

func (e *openAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *openAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.cfg.Model),
		Input: texts,
	})
	if err != nil {
		return nil, &ServiceError{Provider: ProviderOpenAI, Err: err}
	}

	results := make([][]float32, len(resp.Data))
	for i, datum := range resp.Data {
		if e.cfg.Dimension > 0 && len(datum.Embedding) != e.cfg.Dimension {
			return nil, fmt.Errorf("openai embedding dimension mismatch: expected %d, got %d", e.cfg.Dimension, len(datum.Embedding))
		}
		results[i] = datum.Embedding
	}

	return results, nil
}
