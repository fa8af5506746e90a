package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"
)

// MatchPageSectionsParams are the arguments of the match_page_sections
// stored procedure.
type MatchPageSectionsParams struct {
	QueryEmbedding   *pgvector.Vector
	MatchThreshold   float32
	MatchCount       int32
	MinContentLength int32
}

// MatchPageSectionsRow is one row returned by match_page_sections.
// Heading and URL are nullable in the schema.
type MatchPageSectionsRow struct {
	ID         int64
	Heading    pgtype.Text
	URL        pgtype.Text
	Content    string
	Similarity float32
}

// DBTX is the subset of pgxpool.Pool the queries need.
type DBTX interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Queries executes the store's SQL against a pgx connection pool.
type Queries struct {
	db DBTX
}

// NewQueries creates a Queries instance over db.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

const matchPageSectionsSQL = `
SELECT id, heading, url, content, similarity
FROM match_page_sections($1, $2, $3, $4)
`

// MatchPageSections invokes the similarity-search stored procedure.
// Rows come back ranked by similarity, best first.
func (q *Queries) MatchPageSections(ctx context.Context, arg MatchPageSectionsParams) ([]MatchPageSectionsRow, error) {
	rows, err := q.db.Query(ctx, matchPageSectionsSQL,
		arg.QueryEmbedding,
		arg.MatchThreshold,
		arg.MatchCount,
		arg.MinContentLength,
	)
	if err != nil {
		return nil, fmt.Errorf("querying match_page_sections: %w", err)
	}
	defer rows.Close()

	var result []MatchPageSectionsRow
	for rows.Next() {
		var row MatchPageSectionsRow
		if err := rows.Scan(&row.ID, &row.Heading, &row.URL, &row.Content, &row.Similarity); err != nil {
			return nil, fmt.Errorf("scanning match row: %w", err)
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading match rows: %w", err)
	}

	return result, nil
}
