// Package knowledge provides vector similarity search over pre-embedded
// documentation sections stored in PostgreSQL with pgvector.
//
// Matching goes through the match_page_sections stored procedure so the
// ranking policy (cosine distance, threshold, length floor) lives next to
// the data. The Store never generates embeddings itself; callers pass the
// query vector in.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pgvector/pgvector-go"
)

// Querier is the database dependency of Store. Defined here, by the
// consumer, so tests can substitute a mock for the pgx-backed Queries.
type Querier interface {
	MatchPageSections(ctx context.Context, arg MatchPageSectionsParams) ([]MatchPageSectionsRow, error)
}

// Store performs similarity search over documentation sections.
// Safe for concurrent use.
type Store struct {
	queries Querier
	logger  *slog.Logger
}

// New creates a Store.
//
// Production wiring:
//
//	store := knowledge.New(knowledge.NewQueries(pool), logger)
func New(querier Querier, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{queries: querier, logger: logger}
}

// Match returns the sections most similar to embedding, best first.
// An empty result is not an error here; the caller decides whether "no
// relevant sections" is a user-facing condition.
func (s *Store) Match(ctx context.Context, embedding []float32, opts ...MatchOption) ([]PageSection, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("empty query embedding")
	}

	cfg := buildMatchConfig(opts)

	queryCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
	defer cancel()

	vec := pgvector.NewVector(embedding)
	rows, err := s.queries.MatchPageSections(queryCtx, MatchPageSectionsParams{
		QueryEmbedding:   &vec,
		MatchThreshold:   cfg.threshold,
		MatchCount:       cfg.limit,
		MinContentLength: cfg.minContentLength,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("vector search timeout: %w", err)
		}
		return nil, fmt.Errorf("vector search: %w", err)
	}

	sections := make([]PageSection, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, PageSection{
			ID:         row.ID,
			Heading:    row.Heading.String,
			URL:        row.URL.String,
			Content:    row.Content,
			Similarity: row.Similarity,
		})
	}

	s.logger.Debug("vector match complete",
		"sections", len(sections),
		"threshold", cfg.threshold,
		"limit", cfg.limit)
	return sections, nil
}
