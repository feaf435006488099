package model

import "time"

// CommentPosition pins a comment to a spot on a rendered page. The fields are
// stored when supplied but nothing interprets them yet; clients that never
// send positions keep working unchanged.
type CommentPosition struct {
	Page int     `json:"page_number"`
	X    float64 `json:"x_position"`
	Y    float64 `json:"y_position"`
}

// Comment is a row in the comments table. Comments are immutable once
// written. Seq is a server-side insertion counter used only to break
// created_at ties so load order stays stable.
type Comment struct {
	ID         string    `json:"id"`
	FileID     string    `json:"file_id"`
	UserName   string    `json:"user_name"`
	Content    string    `json:"content"`
	PageNumber *int      `json:"page_number,omitempty"`
	XPosition  *float64  `json:"x_position,omitempty"`
	YPosition  *float64  `json:"y_position,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	Seq        int64     `json:"-"`
}
