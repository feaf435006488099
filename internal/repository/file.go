// Package repository wraps all SQL used by the API server and worker.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dparedesr/docshare/internal/model"
)

// ErrNotFound is returned when a referenced row does not exist.
var ErrNotFound = errors.New("record not found")

// FileRepository persists file metadata rows.
type FileRepository struct {
	pool *pgxpool.Pool
}

// NewFileRepository constructs a repository.
func NewFileRepository(pool *pgxpool.Pool) *FileRepository {
	return &FileRepository{pool: pool}
}

// Create inserts a new file row. CreatedAt is assigned here; the object key
// must already be set by the caller and is never updated afterwards.
func (r *FileRepository) Create(ctx context.Context, rec *model.FileRecord) error {
	rec.CreatedAt = time.Now().UTC()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO files (id, name, object_key, size, content_type, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, rec.ID, rec.Name, rec.ObjectKey, rec.Size, rec.ContentType, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert file: %w", err)
	}
	return nil
}

// Get returns a file row by id, or ErrNotFound.
func (r *FileRepository) Get(ctx context.Context, id string) (*model.FileRecord, error) {
	var (
		rec       model.FileRecord
		pageCount sql.NullInt32
		preview   sql.NullString
	)
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, object_key, size, content_type, page_count, preview, created_at
		FROM files WHERE id=$1
	`, id)
	if err := row.Scan(&rec.ID, &rec.Name, &rec.ObjectKey, &rec.Size, &rec.ContentType, &pageCount, &preview, &rec.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select file: %w", err)
	}
	if pageCount.Valid {
		n := int(pageCount.Int32)
		rec.PageCount = &n
	}
	if preview.Valid {
		rec.Preview = preview.String
	}
	return &rec, nil
}

// SetIndex stores the page count and text preview produced by the background
// indexing worker. The rest of the row stays untouched.
func (r *FileRepository) SetIndex(ctx context.Context, id string, pageCount int, preview string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE files SET page_count=$1, preview=$2 WHERE id=$3
	`, pageCount, preview, id)
	if err != nil {
		return fmt.Errorf("update file index: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
