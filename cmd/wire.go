package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/askdocs/askdocs/internal/assistant"
	"github.com/askdocs/askdocs/internal/config"
	"github.com/askdocs/askdocs/internal/database"
	"github.com/askdocs/askdocs/internal/knowledge"
	"github.com/askdocs/askdocs/internal/llm"
)

// buildAssistant wires the full pipeline from configuration: connection
// pool, migrations, vector store, OpenAI client, assistant. The caller
// must Close the returned pool.
func buildAssistant(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*assistant.Assistant, *pgxpool.Pool, error) {
	dsn, err := cfg.StoreDSN()
	if err != nil {
		return nil, nil, fmt.Errorf("resolving store DSN: %w", err)
	}

	if err := database.Migrate(dsn); err != nil {
		return nil, nil, fmt.Errorf("migrating store: %w", err)
	}

	pool, err := database.Connect(ctx, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to store: %w", err)
	}

	store := knowledge.New(knowledge.NewQueries(pool), logger.With("component", "knowledge"))

	client := llm.New(llm.Config{
		APIKey:          cfg.OpenAIAPIKey,
		CompletionModel: cfg.CompletionModel,
		EmbeddingModel:  cfg.EmbeddingModel,
		Temperature:     cfg.Temperature,
		Logger:          logger.With("component", "llm"),
	})

	a, err := assistant.New(assistant.Config{
		Moderator:        client,
		Embedder:         client,
		Completer:        client,
		Matcher:          store,
		Logger:           logger.With("component", "assistant"),
		DocsBaseURL:      cfg.DocsBaseURL,
		CompletionModel:  cfg.CompletionModel,
		MatchThreshold:   cfg.MatchThreshold,
		MatchCount:       int32(cfg.MatchCount),
		MinContentLength: int32(cfg.MinContentLength),
		ContextBudget:    cfg.ContextBudget,
		EmbedPriorAnswer: cfg.EmbedPriorAnswer,
	})
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("creating assistant: %w", err)
	}

	return a, pool, nil
}
