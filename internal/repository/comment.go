package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dparedesr/docshare/internal/model"
)

// CommentRepository persists comment rows.
type CommentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository constructs a repository.
func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{pool: pool}
}

// Insert writes a new comment. CreatedAt is assigned here; seq comes from the
// database sequence so ties on created_at keep insertion order.
func (r *CommentRepository) Insert(ctx context.Context, c *model.Comment) error {
	c.CreatedAt = time.Now().UTC()
	row := r.pool.QueryRow(ctx, `
		INSERT INTO comments (id, file_id, user_name, content, page_number, x_position, y_position, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING seq
	`, c.ID, c.FileID, c.UserName, c.Content, c.PageNumber, c.XPosition, c.YPosition, c.CreatedAt)
	if err := row.Scan(&c.Seq); err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// ListByFile returns all comments for a file ordered by ascending created_at,
// with seq breaking ties. No comments is an empty slice, not an error.
func (r *CommentRepository) ListByFile(ctx context.Context, fileID string) ([]model.Comment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, file_id, user_name, content, page_number, x_position, y_position, created_at, seq
		FROM comments WHERE file_id=$1
		ORDER BY created_at ASC, seq ASC
	`, fileID)
	if err != nil {
		return nil, fmt.Errorf("select comments: %w", err)
	}
	defer rows.Close()

	out := make([]model.Comment, 0)
	for rows.Next() {
		var (
			c    model.Comment
			page sql.NullInt32
			x, y sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &c.FileID, &c.UserName, &c.Content, &page, &x, &y, &c.CreatedAt, &c.Seq); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		if page.Valid {
			n := int(page.Int32)
			c.PageNumber = &n
		}
		if x.Valid {
			v := x.Float64
			c.XPosition = &v
		}
		if y.Valid {
			v := y.Float64
			c.YPosition = &v
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}
