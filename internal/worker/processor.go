package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/hibiken/asynq"

	"github.com/dparedesr/docshare/internal/model"
	"github.com/dparedesr/docshare/internal/queue"
	"github.com/dparedesr/docshare/internal/render"
)

// previewRuneLimit caps the stored text preview.
const previewRuneLimit = 2000

// RecordIndexer persists indexing results onto the file row.
type RecordIndexer interface {
	SetIndex(ctx context.Context, id string, pageCount int, preview string) error
}

// BlobSource fetches raw document bytes.
type BlobSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// Processor is plugged into the asynq worker loop. It downloads a freshly
// uploaded PDF and fills in its page count and text preview.
type Processor struct {
	repo     RecordIndexer
	blobs    BlobSource
	renderer render.Renderer
}

// NewProcessor constructs a worker processor.
func NewProcessor(repo RecordIndexer, blobs BlobSource, renderer render.Renderer) *Processor {
	return &Processor{repo: repo, blobs: blobs, renderer: renderer}
}

// Handler registers the index job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.IndexDocumentTask, p.handleIndex)
	return mux
}

func (p *Processor) handleIndex(ctx context.Context, task *asynq.Task) error {
	var payload queue.IndexPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	if model.KindForName(payload.FileName) != model.KindPDF {
		// Only PDFs carry page data; anything else queued here is a no-op.
		return nil
	}
	data, err := p.blobs.Get(ctx, payload.ObjectKey)
	if err != nil {
		return fmt.Errorf("download %s: %w", payload.ObjectKey, err)
	}
	doc, err := p.renderer.Open(data)
	if err != nil {
		return fmt.Errorf("open %s: %w", payload.FileID, err)
	}
	total := doc.PageCount()
	var b strings.Builder
	runes := 0
	for page := 1; page <= total; page++ {
		surface, err := doc.RenderPage(page, 1.0)
		if err != nil {
			return fmt.Errorf("index page %d of %s: %w", page, payload.FileID, err)
		}
		b.WriteString(surface.Text)
		runes += utf8.RuneCountInString(surface.Text)
		if runes >= previewRuneLimit {
			break
		}
	}
	preview := truncateRunes(b.String(), previewRuneLimit)
	if err := p.repo.SetIndex(ctx, payload.FileID, total, preview); err != nil {
		return fmt.Errorf("store index for %s: %w", payload.FileID, err)
	}
	log.Printf("indexed %s: %d pages, %d preview bytes", payload.FileID, total, len(preview))
	return nil
}

// truncateRunes cuts s to at most limit runes without splitting a rune.
func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}
