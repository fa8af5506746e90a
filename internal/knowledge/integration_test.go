//go:build integration

package knowledge_test

import (
	"context"
	"math"
	"testing"

	"github.com/pgvector/pgvector-go"

	"github.com/askdocs/askdocs/internal/knowledge"
	"github.com/askdocs/askdocs/internal/log"
	"github.com/askdocs/askdocs/internal/testutil"
)

const embeddingDim = 1536

// unitVector builds a 1536-dimensional unit vector pointing mostly along
// axis, with a small uniform component so cosine similarities land between
// 0 and 1 rather than exactly on them.
func unitVector(axis int, weight float32) []float32 {
	v := make([]float32, embeddingDim)
	base := float32(0.001)
	var norm float64
	for i := range v {
		v[i] = base
		norm += float64(base) * float64(base)
	}
	norm -= float64(base) * float64(base)
	v[axis] = weight
	norm += float64(weight) * float64(weight)

	scale := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= scale
	}
	return v
}

func insertSection(t *testing.T, db *testutil.TestDB, heading, url, content string, embedding []float32) {
	t.Helper()
	vec := pgvector.NewVector(embedding)
	_, err := db.Pool.Exec(context.Background(),
		`INSERT INTO page_sections (heading, url, content, embedding) VALUES ($1, $2, $3, $4)`,
		heading, url, content, &vec,
	)
	if err != nil {
		t.Fatalf("insert section: %v", err)
	}
}

func TestStoreMatchIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	longContent := "Computation caching stores task outputs and replays them when inputs have not changed, which makes repeat builds fast."
	insertSection(t, db, "Caching", "/concepts/caching", longContent, unitVector(0, 1))
	insertSection(t, db, "Affected", "/concepts/affected", longContent, unitVector(1, 1))
	insertSection(t, db, "Too short", "/short", "tiny", unitVector(0, 1))

	store := knowledge.New(knowledge.NewQueries(db.Pool), log.NewNop())

	// A query along axis 0 should match "Caching" first and skip the
	// short section despite its identical embedding.
	sections, err := store.Match(context.Background(), unitVector(0, 1),
		knowledge.WithThreshold(0.5),
		knowledge.WithMinContentLength(50),
	)
	if err != nil {
		t.Fatalf("Match() error: %v", err)
	}
	if len(sections) == 0 {
		t.Fatal("Match() returned no sections")
	}
	if sections[0].Heading != "Caching" {
		t.Errorf("best match = %q, want Caching", sections[0].Heading)
	}
	for _, s := range sections {
		if s.Heading == "Too short" {
			t.Error("short section cleared the content length floor")
		}
		if s.Similarity <= 0.5 {
			t.Errorf("section %q similarity %.3f at or below threshold", s.Heading, s.Similarity)
		}
	}

	// A high threshold filters the orthogonal section out.
	sections, err = store.Match(context.Background(), unitVector(0, 1),
		knowledge.WithThreshold(0.95),
		knowledge.WithMinContentLength(50),
	)
	if err != nil {
		t.Fatalf("Match() error: %v", err)
	}
	if len(sections) != 1 || sections[0].Heading != "Caching" {
		t.Errorf("high-threshold match = %+v, want only Caching", sections)
	}

	// Limit caps the result count.
	sections, err = store.Match(context.Background(), unitVector(0, 1),
		knowledge.WithThreshold(0.0),
		knowledge.WithLimit(1),
		knowledge.WithMinContentLength(50),
	)
	if err != nil {
		t.Fatalf("Match() error: %v", err)
	}
	if len(sections) != 1 {
		t.Errorf("limited match returned %d sections, want 1", len(sections))
	}
}
