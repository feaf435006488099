package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Connect opens a pgx connection pool using the provided DSN.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 8
	cfg.MaxConnIdleTime = 5 * time.Minute
	return pgxpool.NewWithConfig(ctx, cfg)
}

// EnsureSchema creates the files and comments tables if needed. Having the
// migration in code keeps the stack self-contained so docker-compose can
// bootstrap everything.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS files (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	object_key TEXT NOT NULL,
	size BIGINT NOT NULL,
	content_type TEXT NOT NULL,
	page_count INT,
	preview TEXT,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS comments (
	id TEXT PRIMARY KEY,
	seq BIGSERIAL,
	file_id TEXT NOT NULL REFERENCES files(id),
	user_name TEXT NOT NULL,
	content TEXT NOT NULL,
	page_number INT,
	x_position DOUBLE PRECISION,
	y_position DOUBLE PRECISION,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_comments_file_order ON comments(file_id, created_at, seq);`
	_, err := pool.Exec(ctx, stmt)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
