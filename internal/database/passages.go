package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
)

const schemaSQL = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS passages (
	id          UUID PRIMARY KEY,
	seq         BIGINT NOT NULL UNIQUE,
	entity_type TEXT NOT NULL,
	record_id   TEXT NOT NULL,
	content     TEXT NOT NULL,
	embedding   vector(%d) NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// PassageStore is the pgvector backed passage index.
type PassageStore struct {
	db *DB
}

func NewPassageStore(db *DB) *PassageStore {
	return &PassageStore{db: db}
}

func (s *PassageStore) EnsureSchema(ctx context.Context, dimensions int) error {
	if _, err := s.db.Pool.Exec(ctx, fmt.Sprintf(schemaSQL, dimensions)); err != nil {
		return fmt.Errorf("failed to create passages schema: %w", err)
	}
	return nil
}

// Search implements retrieval.Index using cosine distance. Equal distances
// are ordered by seq.
func (s *PassageStore) Search(ctx context.Context, vector []float32, k int) ([]models.ScoredPassage, error) {
	query := `
	SELECT
	  id::text,
	  seq,
	  entity_type,
	  record_id,
	  content,
	  embedding <=> $1 AS distance
	FROM passages
	ORDER BY distance ASC, seq ASC
	LIMIT $2`

	rows, err := s.db.Pool.Query(ctx, query, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("unable to query passages: %w", err)
	}
	defer rows.Close()

	var results []models.ScoredPassage
	for rows.Next() {
		var (
			p          models.Passage
			entityType string
			distance   float64
		)
		if err := rows.Scan(&p.ID, &p.Seq, &entityType, &p.Ref.ID, &p.Text, &distance); err != nil {
			return nil, fmt.Errorf("failed to scan passage: %w", err)
		}
		p.Ref.EntityType = models.EntityType(entityType)

		results = append(results, models.ScoredPassage{
			Passage: p,
			Score:   DistanceToScore(distance),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("passages table is empty")
	}

	return results, nil
}

// ReplaceAll swaps the indexed passages inside one transaction, so readers
// see either the old or the new index.
func (s *PassageStore) ReplaceAll(ctx context.Context, passages []models.Passage) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM passages`); err != nil {
		return fmt.Errorf("failed to clear passages: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range passages {
		batch.Queue(`
			INSERT INTO passages (id, seq, entity_type, record_id, content, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, p.Seq, string(p.Ref.EntityType), p.Ref.ID, p.Text, pgvector.NewVector(p.Embedding))
	}

	results := tx.SendBatch(ctx, batch)
	for i := range passages {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert passage %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (s *PassageStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM passages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count passages: %w", err)
	}
	return n, nil
}

// DistanceToScore converts a cosine distance in [0, 2] into a similarity
// score clamped to [0, 1].
func DistanceToScore(distance float64) float64 {
	score := 1.0 - distance

	if score < 0.0 {
		return 0.0
	}
	if score > 1.0 {
		return 1.0
	}

	return score
}
