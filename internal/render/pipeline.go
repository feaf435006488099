package render

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dparedesr/docshare/internal/model"
	"github.com/dparedesr/docshare/internal/repository"
	"github.com/dparedesr/docshare/internal/validate"
)

var (
	// ErrNotFound mirrors the repository sentinel for callers that only
	// import this package.
	ErrNotFound = repository.ErrNotFound
	// ErrSuperseded reports that a newer view replaced this one while it was
	// still rendering; the result has been discarded, not applied.
	ErrSuperseded = errors.New("view superseded")
)

// RecordSource fetches file metadata.
type RecordSource interface {
	Get(ctx context.Context, id string) (*model.FileRecord, error)
}

// BlobSource fetches document bytes and resolves retrieval URLs.
type BlobSource interface {
	Get(ctx context.Context, key string) ([]byte, error)
	PresignGetURL(ctx context.Context, key, fileName string, ttl time.Duration) (string, error)
}

// View is the result of loading one document: either an ordered page
// sequence (PDF) or a download-only affordance (Word documents, which have no
// renderer).
type View struct {
	File        *model.FileRecord  `json:"file"`
	Kind        model.DocumentKind `json:"kind"`
	Pages       []Surface          `json:"pages,omitempty"`
	DownloadURL string             `json:"download_url,omitempty"`
}

// Pipeline loads a document and renders it. Pages render strictly in
// ascending order, one at a time, because they append to a single ordered
// output sequence.
type Pipeline struct {
	records  RecordSource
	blobs    BlobSource
	renderer Renderer
	scale    float64
	ttl      time.Duration
}

// NewPipeline constructs a Pipeline.
func NewPipeline(records RecordSource, blobs BlobSource, renderer Renderer, scale float64, ttl time.Duration) *Pipeline {
	if scale <= 0 {
		scale = 1.0
	}
	return &Pipeline{
		records:  records,
		blobs:    blobs,
		renderer: renderer,
		scale:    scale,
		ttl:      ttl,
	}
}

// Show fetches the record and bytes for fileID and produces a View. Any
// failure aborts the remaining steps and leaves no partial page output.
func (p *Pipeline) Show(ctx context.Context, fileID string) (*View, error) {
	rec, err := p.records.Get(ctx, fileID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch record: %w", err)
	}
	view := &View{File: rec, Kind: rec.Kind()}
	switch view.Kind {
	case model.KindPDF:
		data, err := p.blobs.Get(ctx, rec.ObjectKey)
		if err != nil {
			return nil, fmt.Errorf("fetch blob: %w", err)
		}
		doc, err := p.renderer.Open(data)
		if err != nil {
			return nil, fmt.Errorf("open document: %w", err)
		}
		total := doc.PageCount()
		pages := make([]Surface, 0, total)
		for page := 1; page <= total; page++ {
			surface, err := doc.RenderPage(page, p.scale)
			if err != nil {
				// Drop any partially rendered pages along with the error.
				return nil, fmt.Errorf("render: %w", err)
			}
			pages = append(pages, surface)
		}
		view.Pages = pages
	case model.KindWordDoc:
		url, err := p.blobs.PresignGetURL(ctx, rec.ObjectKey, rec.Name, p.ttl)
		if err != nil {
			return nil, fmt.Errorf("resolve download url: %w", err)
		}
		view.DownloadURL = url
	default:
		return nil, validate.ErrUnsupportedType
	}
	return view, nil
}

// Viewer owns the "currently displayed" view for one viewing session.
// Navigating to a new document while a slow render is still in flight makes
// the old result stale; Viewer discards it instead of applying it.
type Viewer struct {
	pipeline *Pipeline
	gen      atomic.Uint64

	mu      sync.Mutex
	current *View
}

// NewViewer constructs a Viewer over the pipeline.
func NewViewer(pipeline *Pipeline) *Viewer {
	return &Viewer{pipeline: pipeline}
}

// Display renders fileID and installs the result as the current view, unless
// a later Display call started in the meantime, in which case the result is
// dropped and ErrSuperseded returned.
func (v *Viewer) Display(ctx context.Context, fileID string) (*View, error) {
	gen := v.gen.Add(1)
	view, err := v.pipeline.Show(ctx, fileID)
	if err != nil {
		return nil, err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if gen != v.gen.Load() {
		return nil, ErrSuperseded
	}
	v.current = view
	return view, nil
}

// Current returns the view installed by the most recent completed Display.
func (v *Viewer) Current() *View {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.current
}
