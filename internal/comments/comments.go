// Package comments manages the comment thread attached to a file. The server
// is the source of order truth at load time; local appends go to the end of
// the sequence because a new comment is always newer than everything loaded
// so far.
package comments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dparedesr/docshare/internal/model"
)

var (
	// ErrValidation rejects empty names or empty content before any write.
	ErrValidation = errors.New("invalid comment")
	// ErrNameNotSet means the session has not established a display name yet.
	ErrNameNotSet = errors.New("display name not set")
)

// Store is the persistence surface the thread manager needs.
type Store interface {
	Insert(ctx context.Context, c *model.Comment) error
	ListByFile(ctx context.Context, fileID string) ([]model.Comment, error)
}

// Service validates and persists comments.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Load returns the thread for a file in ascending created_at order. A file
// with no comments yields an empty slice, not an error.
func (s *Service) Load(ctx context.Context, fileID string) ([]model.Comment, error) {
	list, err := s.store.ListByFile(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("load comments: %w", err)
	}
	return list, nil
}

// Append validates and persists a new comment. Validation failures happen
// before the store is touched, so a rejected comment produces no write.
func (s *Service) Append(ctx context.Context, fileID, userName, content string, pos *model.CommentPosition) (*model.Comment, error) {
	userName = strings.TrimSpace(userName)
	content = strings.TrimSpace(content)
	if userName == "" {
		return nil, fmt.Errorf("%w: empty user name", ErrValidation)
	}
	if content == "" {
		return nil, fmt.Errorf("%w: empty content", ErrValidation)
	}
	if fileID == "" {
		return nil, fmt.Errorf("%w: missing file id", ErrValidation)
	}
	c := &model.Comment{
		ID:       uuid.NewString(),
		FileID:   fileID,
		UserName: userName,
		Content:  content,
	}
	if pos != nil {
		page := pos.Page
		x, y := pos.X, pos.Y
		c.PageNumber = &page
		c.XPosition = &x
		c.YPosition = &y
	}
	if err := s.store.Insert(ctx, c); err != nil {
		return nil, fmt.Errorf("append comment: %w", err)
	}
	return c, nil
}
