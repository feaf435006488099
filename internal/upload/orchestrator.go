// Package upload turns raw file bytes into a persisted file record: validate,
// write the blob, insert metadata, then hand the document to the background
// indexer. The client-side check is advisory only, so every rule is applied
// again here.
package upload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/dparedesr/docshare/internal/model"
	"github.com/dparedesr/docshare/internal/queue"
	"github.com/dparedesr/docshare/internal/validate"
)

var (
	// ErrStorageWrite means the blob never made it to storage; no file record
	// exists and the upload can be retried from scratch with a fresh key.
	ErrStorageWrite = errors.New("storage write failed")
	// ErrMetadataWrite means the blob was written but the metadata insert
	// failed, leaving an orphaned blob behind. The inconsistency is reported,
	// not silently repaired.
	ErrMetadataWrite = errors.New("metadata write failed")
)

// BlobStore persists the raw bytes.
type BlobStore interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
}

// MetadataStore persists the file record.
type MetadataStore interface {
	Create(ctx context.Context, rec *model.FileRecord) error
}

// Enqueuer schedules background indexing. May be nil when no queue is wired.
type Enqueuer interface {
	EnqueueIndex(ctx context.Context, payload queue.IndexPayload) error
}

// ProgressFunc observes coarse upload progress from 0 to 100. 100 is only
// ever reported after the metadata insert has committed.
type ProgressFunc func(percent int)

// Orchestrator runs the upload flow.
type Orchestrator struct {
	blobs    BlobStore
	meta     MetadataStore
	enqueuer Enqueuer
	maxBytes int64
	now      func() time.Time
}

// New constructs an Orchestrator. enqueuer may be nil.
func New(blobs BlobStore, meta MetadataStore, enqueuer Enqueuer, maxBytes int64) *Orchestrator {
	return &Orchestrator{
		blobs:    blobs,
		meta:     meta,
		enqueuer: enqueuer,
		maxBytes: maxBytes,
		now:      time.Now,
	}
}

// Upload validates the candidate, writes the blob under a collision-free key,
// and inserts the metadata row. The record keeps the original filename; only
// the storage key uses the sanitized form. progress may be nil.
func (o *Orchestrator) Upload(ctx context.Context, data []byte, fileName string, progress ProgressFunc) (*model.FileRecord, error) {
	report := func(p int) {
		if progress != nil {
			progress(p)
		}
	}
	report(0)

	if err := validate.Check(fileName, int64(len(data)), o.maxBytes); err != nil {
		return nil, err
	}

	// The nanosecond prefix keeps unrelated uploads of the same filename from
	// colliding on one key.
	key := fmt.Sprintf("uploads/%d-%s", o.now().UnixNano(), validate.SanitizeName(fileName))
	contentType := contentTypeFor(fileName)

	reader := &progressReader{r: bytes.NewReader(data), total: int64(len(data)), report: report}
	if err := o.blobs.Put(ctx, key, reader, int64(len(data)), contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageWrite, err)
	}

	rec := &model.FileRecord{
		ID:          uuid.NewString(),
		Name:        fileName,
		ObjectKey:   key,
		Size:        int64(len(data)),
		ContentType: contentType,
	}
	if err := o.meta.Create(ctx, rec); err != nil {
		log.Printf("orphaned blob %s: metadata insert failed: %v", key, err)
		return nil, fmt.Errorf("%w: %v", ErrMetadataWrite, err)
	}
	report(100)

	if o.enqueuer != nil && rec.Kind() == model.KindPDF {
		payload := queue.IndexPayload{FileID: rec.ID, ObjectKey: key, FileName: fileName}
		if err := o.enqueuer.EnqueueIndex(ctx, payload); err != nil {
			// Indexing is best effort; the upload itself already succeeded.
			log.Printf("enqueue index for %s: %v", rec.ID, err)
		}
	}
	return rec, nil
}

func contentTypeFor(fileName string) string {
	if ct := mime.TypeByExtension(filepath.Ext(fileName)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// progressReader scales byte transfer to 0-90; the final 10 points are
// reserved for the metadata insert.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 && p.total > 0 {
		p.read += int64(n)
		p.report(int(p.read * 90 / p.total))
	}
	return n, err
}
