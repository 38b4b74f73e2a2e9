package cli

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/sirupsen/logrus"

	"github.com/sonrisasaludable/frontdesk/internal/analysis/intent"
	"github.com/sonrisasaludable/frontdesk/internal/config"
	"github.com/sonrisasaludable/frontdesk/internal/knowledge"
	"github.com/sonrisasaludable/frontdesk/internal/logging"
	"github.com/sonrisasaludable/frontdesk/internal/model/clinic"
	"github.com/sonrisasaludable/frontdesk/internal/service/ai"
	"github.com/sonrisasaludable/frontdesk/internal/service/chat"
)

// newChatModel is swapped in tests.
var newChatModel = func(ctx context.Context, cfg config.AIConfig) (model.BaseChatModel, error) {
	return cfg.NewChatModel(ctx)
}

type app struct {
	facts    clinic.Facts
	sessions *chat.Service
	ai       *ai.Service
}

func newApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*app, error) {
	facts, err := clinic.Load(cfg.Assistant.FactsFile)
	if err != nil {
		return nil, fmt.Errorf("load clinic facts: %w", err)
	}

	sessions := chat.NewService(chat.WithExpiry(chat.PolicyFor(cfg.Assistant.SessionIdleTTL)))

	chatModel, err := newChatModel(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	opts := ai.Options{
		Mode:         cfg.Assistant.Mode,
		Facts:        facts,
		JSONOutput:   cfg.AI.JSONOutput,
		HistoryLimit: cfg.Assistant.HistoryLimit,
		Logger:       logging.Component(logger, "ai"),
	}
	if cfg.Assistant.KeywordRouter {
		opts.Router = intent.NewRouter(facts)
	}
	if cfg.Assistant.Mode == config.ModeRAG {
		tool, err := newKnowledgeTool(ctx, cfg.Knowledge, logger)
		if err != nil {
			return nil, err
		}
		opts.Knowledge = tool
	}

	svc, err := ai.NewService(ctx, chatModel, sessions, opts)
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"mode":   cfg.Assistant.Mode,
		"model":  cfg.AI.Model,
		"router": cfg.Assistant.KeywordRouter,
	}).Info("assistant ready")

	return &app{facts: facts, sessions: sessions, ai: svc}, nil
}

func newEmbedder(ctx context.Context, cfg config.KnowledgeConfig) (embedding.Embedder, error) {
	embedder, err := knowledge.NewEmbedder(ctx, knowledge.EmbedderConfig{
		BaseURL:    cfg.BaseURL,
		APIKey:     cfg.APIKey,
		Model:      cfg.EmbeddingModel,
		APIVersion: cfg.APIVersion,
		Timeout:    cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}

func newKnowledgeTool(ctx context.Context, cfg config.KnowledgeConfig, logger *logrus.Logger) (*knowledge.Tool, error) {
	embedder, err := newEmbedder(ctx, cfg)
	if err != nil {
		return nil, err
	}

	retriever, err := knowledge.NewRetriever(knowledge.RetrieverConfig{
		IndexPath:      cfg.IndexPath,
		Embedder:       embedder,
		TopK:           cfg.TopK,
		EmbeddingModel: cfg.EmbeddingModel,
	})
	if err != nil {
		return nil, fmt.Errorf("configure retriever: %w", err)
	}
	return knowledge.NewTool(retriever, cfg.IndexPath, logging.Component(logger, "knowledge")), nil
}
