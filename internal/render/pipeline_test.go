package render

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dparedesr/docshare/internal/model"
	"github.com/dparedesr/docshare/internal/validate"
)

type fakeRecords struct {
	files map[string]*model.FileRecord
}

func (f *fakeRecords) Get(_ context.Context, id string) (*model.FileRecord, error) {
	rec, ok := f.files[id]
	if !ok {
		return nil, ErrNotFound
	}
	return rec, nil
}

type fakeBlobs struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeBlobs) Get(_ context.Context, key string) ([]byte, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return data, nil
}

func (f *fakeBlobs) PresignGetURL(_ context.Context, key, fileName string, _ time.Duration) (string, error) {
	return "https://blobs.example/" + key + "?name=" + fileName, nil
}

type fakeRenderer struct {
	pages    int
	pageErr  map[int]error
	started  chan string
	blockOn  map[string]chan struct{}
	rendered []string
}

func (f *fakeRenderer) Open(data []byte) (Document, error) {
	return &fakeDoc{renderer: f, doc: string(data)}, nil
}

type fakeDoc struct {
	renderer *fakeRenderer
	doc      string
}

func (d *fakeDoc) PageCount() int { return d.renderer.pages }

func (d *fakeDoc) RenderPage(page int, scale float64) (Surface, error) {
	if d.renderer.started != nil {
		d.renderer.started <- d.doc
	}
	if gate, ok := d.renderer.blockOn[d.doc]; ok {
		<-gate
	}
	if err, ok := d.renderer.pageErr[page]; ok {
		return Surface{}, err
	}
	d.renderer.rendered = append(d.renderer.rendered, fmt.Sprintf("%s:%d", d.doc, page))
	return Surface{Page: page, Scale: scale, Text: fmt.Sprintf("page %d of %s", page, d.doc)}, nil
}

func newPipeline(records *fakeRecords, blobs *fakeBlobs, renderer Renderer) *Pipeline {
	return NewPipeline(records, blobs, renderer, 1.5, time.Minute)
}

func pdfFixture() (*fakeRecords, *fakeBlobs) {
	records := &fakeRecords{files: map[string]*model.FileRecord{
		"f1": {ID: "f1", Name: "report.pdf", ObjectKey: "uploads/1-report.pdf"},
	}}
	blobs := &fakeBlobs{objects: map[string][]byte{
		"uploads/1-report.pdf": []byte("doc1"),
	}}
	return records, blobs
}

func TestShowRendersPDFPagesInOrder(t *testing.T) {
	records, blobs := pdfFixture()
	renderer := &fakeRenderer{pages: 3}
	view, err := newPipeline(records, blobs, renderer).Show(context.Background(), "f1")
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if view.Kind != model.KindPDF {
		t.Fatalf("kind = %v, want pdf", view.Kind)
	}
	if len(view.Pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(view.Pages))
	}
	for i, surface := range view.Pages {
		if surface.Page != i+1 {
			t.Errorf("page %d has number %d", i, surface.Page)
		}
		if surface.Scale != 1.5 {
			t.Errorf("page %d rendered at scale %v", i+1, surface.Scale)
		}
	}
	want := []string{"doc1:1", "doc1:2", "doc1:3"}
	for i, r := range renderer.rendered {
		if r != want[i] {
			t.Fatalf("render order %v, want %v", renderer.rendered, want)
		}
	}
}

func TestShowWordDocIsDownloadOnly(t *testing.T) {
	records := &fakeRecords{files: map[string]*model.FileRecord{
		"f2": {ID: "f2", Name: "notes.docx", ObjectKey: "uploads/2-notes.docx"},
	}}
	blobs := &fakeBlobs{objects: map[string][]byte{}}
	view, err := newPipeline(records, blobs, &fakeRenderer{}).Show(context.Background(), "f2")
	if err != nil {
		t.Fatalf("Show: %v", err)
	}
	if view.Kind != model.KindWordDoc {
		t.Fatalf("kind = %v, want word", view.Kind)
	}
	if len(view.Pages) != 0 {
		t.Fatalf("word docs must not produce pages")
	}
	if view.DownloadURL == "" {
		t.Fatalf("expected a download url")
	}
}

func TestShowUnsupportedExtension(t *testing.T) {
	records := &fakeRecords{files: map[string]*model.FileRecord{
		"f3": {ID: "f3", Name: "clip.mp4", ObjectKey: "uploads/3-clip.mp4"},
	}}
	_, err := newPipeline(records, &fakeBlobs{}, &fakeRenderer{}).Show(context.Background(), "f3")
	if !errors.Is(err, validate.ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestShowMissingRecord(t *testing.T) {
	records := &fakeRecords{files: map[string]*model.FileRecord{}}
	_, err := newPipeline(records, &fakeBlobs{}, &fakeRenderer{}).Show(context.Background(), "nope")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestShowRenderFailureAbortsWithoutPartialOutput(t *testing.T) {
	records, blobs := pdfFixture()
	renderer := &fakeRenderer{pages: 3, pageErr: map[int]error{2: errors.New("decode failed")}}
	view, err := newPipeline(records, blobs, renderer).Show(context.Background(), "f1")
	if err == nil {
		t.Fatalf("expected render failure")
	}
	if view != nil {
		t.Fatalf("failed render must not return a partial view")
	}
}

func TestShowBlobFetchFailure(t *testing.T) {
	records, blobs := pdfFixture()
	blobs.getErr = errors.New("connection reset")
	_, err := newPipeline(records, blobs, &fakeRenderer{pages: 1}).Show(context.Background(), "f1")
	if err == nil {
		t.Fatalf("expected fetch failure")
	}
}

func TestViewerDiscardsStaleRender(t *testing.T) {
	records := &fakeRecords{files: map[string]*model.FileRecord{
		"slow": {ID: "slow", Name: "slow.pdf", ObjectKey: "k-slow"},
		"fast": {ID: "fast", Name: "fast.pdf", ObjectKey: "k-fast"},
	}}
	blobs := &fakeBlobs{objects: map[string][]byte{
		"k-slow": []byte("slow"),
		"k-fast": []byte("fast"),
	}}
	gate := make(chan struct{})
	renderer := &fakeRenderer{
		pages:   1,
		started: make(chan string, 2),
		blockOn: map[string]chan struct{}{"slow": gate},
	}
	viewer := NewViewer(newPipeline(records, blobs, renderer))

	slowRes := make(chan error, 1)
	go func() {
		_, err := viewer.Display(context.Background(), "slow")
		slowRes <- err
	}()
	// Wait for the slow render to be underway before navigating away.
	if doc := <-renderer.started; doc != "slow" {
		t.Fatalf("unexpected first render %q", doc)
	}

	view, err := viewer.Display(context.Background(), "fast")
	<-renderer.started
	if err != nil {
		t.Fatalf("fast Display: %v", err)
	}
	if view.File.ID != "fast" {
		t.Fatalf("current view is %q, want fast", view.File.ID)
	}

	close(gate)
	if err := <-slowRes; !errors.Is(err, ErrSuperseded) {
		t.Fatalf("stale display err = %v, want ErrSuperseded", err)
	}
	if cur := viewer.Current(); cur == nil || cur.File.ID != "fast" {
		t.Fatalf("stale render leaked into the current view")
	}
}
