package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
)

// EmbedderConfig describes the embeddings endpoint. A non-empty APIVersion
// switches to the Azure deployment URL scheme.
type EmbedderConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	APIVersion string
	Timeout    time.Duration
}

// NewEmbedder 创建 OpenAI 兼容（或 Azure）的向量化组件。
func NewEmbedder(ctx context.Context, cfg EmbedderConfig) (embedding.Embedder, error) {
	if cfg.BaseURL == "" || cfg.Model == "" {
		return nil, fmt.Errorf("embedder configuration incomplete: base url and model are required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.Model,
		ByAzure:    cfg.APIVersion != "",
		APIVersion: cfg.APIVersion,
		Timeout:    timeout,
	})
}
