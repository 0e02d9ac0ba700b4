package ai

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-triage/internal/config"
)

// Embedder is the optional embedding capability. Callers must tolerate
// its absence: a nil Embedder means the keyword-only retrieval path is
// in effect.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type openAIEmbedder struct {
	embedder *embeddings.EmbedderImpl
	timeout  time.Duration
}

// NewEmbedder builds the embedding backend from configuration. It
// returns (nil, nil) when no API key is configured, which downgrades
// retrieval to keyword matching.
func NewEmbedder(cfg config.EmbeddingConfig, logger *zap.Logger) (Embedder, error) {
	if cfg.APIKey == "" {
		logger.Warn("no embedding API key configured; running keyword-only retrieval")
		return nil, nil
	}

	opts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, err
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, err
	}

	logger.Info("embedding backend ready", zap.String("model", cfg.Model))
	return &openAIEmbedder{embedder: embedder, timeout: cfg.Timeout()}, nil
}

func (e *openAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.embedder.EmbedQuery(ctx, text)
}

func (e *openAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.embedder.EmbedDocuments(ctx, texts)
}
