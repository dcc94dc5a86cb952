package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/miragelabs/mirage/internal/log"
)

// Store persists style embeddings in Postgres and serves similarity
// search. It exists only when a database is configured; the rest of the
// catalog never touches the network.
type Store struct {
	pool   *pgxpool.Pool
	logger log.Logger
}

// NewStore creates a style store on an existing pool.
func NewStore(pool *pgxpool.Pool, logger log.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Match is one similarity search hit. Score is cosine similarity in
// [0,1], higher is closer.
type Match struct {
	Style
	Score float64 `json:"score"`
}

// Upsert writes one style and its embedding, keyed by family and name.
func (s *Store) Upsert(ctx context.Context, style Style, embedding []float32) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO styles (name, family, description, model, prompt_prefix, tags, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (family, name) DO UPDATE SET
			description = EXCLUDED.description,
			model = EXCLUDED.model,
			prompt_prefix = EXCLUDED.prompt_prefix,
			tags = EXCLUDED.tags,
			embedding = EXCLUDED.embedding,
			updated_at = now()`,
		style.Name, style.Family, style.Description, style.Model, style.PromptPrefix, style.Tags,
		pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("upserting style %s/%s: %w", style.Family, style.Name, err)
	}
	return nil
}

// Search returns the styles closest to embedding, optionally narrowed to
// one family.
func (s *Store) Search(ctx context.Context, embedding []float32, family string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.pool.Query(ctx, `
		SELECT name, family, description, model, prompt_prefix, tags,
		       1 - (embedding <=> $1) AS score
		FROM styles
		WHERE $2 = '' OR family = $2
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(embedding), normalize(family), limit)
	if err != nil {
		return nil, fmt.Errorf("searching styles: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Name, &m.Family, &m.Description, &m.Model, &m.PromptPrefix, &m.Tags, &m.Score); err != nil {
			return nil, fmt.Errorf("scanning style match: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading style matches: %w", err)
	}
	return matches, nil
}

// SyncStyles embeds and upserts every style. Runs from the migrate
// command, never on the serve path.
func (s *Store) SyncStyles(ctx context.Context, styles []Style, embedder Embedder) error {
	for _, style := range styles {
		emb, err := embedder.Embed(ctx, embedText(style))
		if err != nil {
			return fmt.Errorf("embedding style %s/%s: %w", style.Family, style.Name, err)
		}
		if err := s.Upsert(ctx, style, emb); err != nil {
			return err
		}
	}
	s.logger.Info("style embeddings synced", "count", len(styles))
	return nil
}

// embedText flattens a style into the text its embedding represents.
func embedText(s Style) string {
	parts := []string{s.Name, s.Description}
	if len(s.Tags) > 0 {
		parts = append(parts, strings.Join(s.Tags, " "))
	}
	return strings.Join(parts, ". ")
}
