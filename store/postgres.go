package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/rs/zerolog"
)

// PostgresStore is an Indexer backed by a pgvector table. It is the
// alternative to Qdrant for deployments that already run Postgres.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

func NewPostgresStore(ctx context.Context, connStr string, logger zerolog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &PostgresStore{
		pool:   pool,
		logger: logger.With().Str("component", "pgvector").Logger(),
	}, nil
}

func (p *PostgresStore) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}

// EnsureCollection creates the points table for the given vector size. An
// existing table with a different size is dropped first, which discards all
// stored points.
func (p *PostgresStore) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid vector dimension %d", dimension)
	}
	if _, err := p.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("create vector extension: %w", err)
	}

	existing, err := p.tableDimension(ctx)
	if err != nil {
		return err
	}
	if existing == dimension {
		return nil
	}
	if existing != 0 {
		p.logger.Warn().
			Int("have", existing).
			Int("want", dimension).
			Msg("vector size changed, dropping points table")
		if _, err := p.pool.Exec(ctx, "DROP TABLE IF EXISTS points"); err != nil {
			return fmt.Errorf("drop points table: %w", err)
		}
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS points (
		id UUID PRIMARY KEY,
		content TEXT NOT NULL,
		embedding vector(%d)
	);

	CREATE INDEX IF NOT EXISTS idx_points_embedding ON points
	USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	`, dimension)
	if _, err := p.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create points table: %w", err)
	}
	p.logger.Info().Int("size", dimension).Msg("points table initialized")
	return nil
}

// tableDimension reads the vector size of the points table from the catalog,
// or 0 when the table does not exist.
func (p *PostgresStore) tableDimension(ctx context.Context) (int, error) {
	var dim int
	err := p.pool.QueryRow(ctx, `
		SELECT a.atttypmod
		FROM pg_attribute a
		JOIN pg_class c ON c.oid = a.attrelid
		WHERE c.relname = 'points' AND a.attname = 'embedding'
	`).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read points table dimension: %w", err)
	}
	return dim, nil
}

func (p *PostgresStore) Upsert(ctx context.Context, points []Point) error {
	query := `
	INSERT INTO points (id, content, embedding)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET
		content = EXCLUDED.content,
		embedding = EXCLUDED.embedding
	`
	for _, pt := range points {
		vec := pgvector.NewVector(pt.Vector)
		if _, err := p.pool.Exec(ctx, query, pt.ID, pt.Payload, vec); err != nil {
			return fmt.Errorf("upsert point %s: %w", pt.ID, err)
		}
	}
	return nil
}

func (p *PostgresStore) Search(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	vec := pgvector.NewVector(vector)

	query := `
	SELECT content, 1 - (embedding <=> $1) AS score
	FROM points
	WHERE embedding IS NOT NULL
	ORDER BY embedding <=> $1
	LIMIT $2
	`
	rows, err := p.pool.Query(ctx, query, vec, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := make([]Match, 0, limit)
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.Text, &m.Score); err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}
