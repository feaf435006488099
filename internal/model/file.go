// Package model contains the struct definitions shared across packages.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentKind classifies a file by what the viewer can do with it. The
// dispatch happens once, when a document is loaded, rather than scattering
// extension checks through the rendering code.
type DocumentKind string

const (
	KindPDF         DocumentKind = "pdf"
	KindWordDoc     DocumentKind = "word"
	KindUnsupported DocumentKind = "unsupported"
)

// KindForName maps a filename to its DocumentKind by extension,
// case-insensitively.
func KindForName(name string) DocumentKind {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(name), ".")) {
	case "pdf":
		return KindPDF
	case "doc", "docx":
		return KindWordDoc
	default:
		return KindUnsupported
	}
}

// FileRecord is a row in the files table. Name keeps the original filename
// exactly as the user supplied it; ObjectKey is the sanitized storage key and
// is assigned exactly once at creation, never mutated afterwards.
type FileRecord struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ObjectKey   string    `json:"url"`
	Size        int64     `json:"size"`
	ContentType string    `json:"content_type"`
	PageCount   *int      `json:"page_count,omitempty"`
	Preview     string    `json:"preview,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Kind returns the DocumentKind derived from the record's filename.
func (f *FileRecord) Kind() DocumentKind {
	return KindForName(f.Name)
}
