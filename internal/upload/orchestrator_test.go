package upload

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/dparedesr/docshare/internal/model"
	"github.com/dparedesr/docshare/internal/queue"
	"github.com/dparedesr/docshare/internal/validate"
)

type fakeBlobs struct {
	puts   int
	keys   []string
	data   map[string][]byte
	putErr error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{data: map[string][]byte{}}
}

func (f *fakeBlobs) Put(_ context.Context, key string, reader io.Reader, size int64, _ string) error {
	f.puts++
	if f.putErr != nil {
		return f.putErr
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return err
	}
	f.keys = append(f.keys, key)
	f.data[key] = buf.Bytes()
	return nil
}

type fakeMeta struct {
	creates   int
	records   []*model.FileRecord
	createErr error
}

func (f *fakeMeta) Create(_ context.Context, rec *model.FileRecord) error {
	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	f.records = append(f.records, rec)
	return nil
}

type fakeEnqueuer struct {
	payloads []queue.IndexPayload
	err      error
}

func (f *fakeEnqueuer) EnqueueIndex(_ context.Context, p queue.IndexPayload) error {
	if f.err != nil {
		return f.err
	}
	f.payloads = append(f.payloads, p)
	return nil
}

func newOrchestrator(blobs *fakeBlobs, meta *fakeMeta, enq Enqueuer) *Orchestrator {
	o := New(blobs, meta, enq, validate.DefaultMaxBytes)
	o.now = func() time.Time { return time.Unix(0, 1700000000000000000) }
	return o
}

func TestUploadHappyPath(t *testing.T) {
	blobs := newFakeBlobs()
	meta := &fakeMeta{}
	enq := &fakeEnqueuer{}
	o := newOrchestrator(blobs, meta, enq)

	data := bytes.Repeat([]byte("x"), 3<<20)
	var progress []int
	rec, err := o.Upload(context.Background(), data, "report.PDF", func(p int) { progress = append(progress, p) })
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rec.ID == "" {
		t.Fatalf("expected a server-assigned id")
	}
	if rec.Name != "report.PDF" {
		t.Fatalf("record name %q must keep the original filename", rec.Name)
	}
	if want := "uploads/1700000000000000000-report.PDF"; rec.ObjectKey != want {
		t.Fatalf("object key = %q, want %q", rec.ObjectKey, want)
	}
	if rec.Size != int64(len(data)) {
		t.Fatalf("size = %d, want %d", rec.Size, len(data))
	}
	if !bytes.Equal(blobs.data[rec.ObjectKey], data) {
		t.Fatalf("blob bytes do not round-trip")
	}
	if len(progress) == 0 || progress[len(progress)-1] != 100 {
		t.Fatalf("progress must end at 100, got %v", progress)
	}
	for i := 1; i < len(progress); i++ {
		if progress[i] < progress[i-1] {
			t.Fatalf("progress went backwards: %v", progress)
		}
	}
	if len(enq.payloads) != 1 || enq.payloads[0].FileID != rec.ID {
		t.Fatalf("expected one index job for the upload, got %+v", enq.payloads)
	}
}

func TestUploadSanitizesStorageKeyOnly(t *testing.T) {
	blobs := newFakeBlobs()
	meta := &fakeMeta{}
	o := newOrchestrator(blobs, meta, nil)

	rec, err := o.Upload(context.Background(), []byte("content"), "my report (v2).pdf", nil)
	if err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if rec.Name != "my report (v2).pdf" {
		t.Fatalf("user-facing name was mangled: %q", rec.Name)
	}
	if !strings.HasSuffix(rec.ObjectKey, "-my_report__v2_.pdf") {
		t.Fatalf("object key not sanitized: %q", rec.ObjectKey)
	}
}

func TestUploadRejectsOversizedBeforeAnyWrite(t *testing.T) {
	blobs := newFakeBlobs()
	meta := &fakeMeta{}
	o := newOrchestrator(blobs, meta, nil)

	var maxProgress int
	_, err := o.Upload(context.Background(), bytes.Repeat([]byte("x"), 6<<20), "notes.docx", func(p int) {
		if p > maxProgress {
			maxProgress = p
		}
	})
	if !errors.Is(err, validate.ErrFileTooLarge) {
		t.Fatalf("err = %v, want ErrFileTooLarge", err)
	}
	if blobs.puts != 0 || meta.creates != 0 {
		t.Fatalf("rejected upload must not touch storage")
	}
	if maxProgress >= 100 {
		t.Fatalf("failed upload must never report 100")
	}
}

func TestUploadRejectsUnsupportedType(t *testing.T) {
	blobs := newFakeBlobs()
	o := newOrchestrator(blobs, &fakeMeta{}, nil)
	_, err := o.Upload(context.Background(), []byte("data"), "movie.mp4", nil)
	if !errors.Is(err, validate.ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
	if blobs.puts != 0 {
		t.Fatalf("rejected upload must not touch storage")
	}
}

func TestUploadBlobWriteFailure(t *testing.T) {
	blobs := newFakeBlobs()
	blobs.putErr = errors.New("connection refused")
	meta := &fakeMeta{}
	o := newOrchestrator(blobs, meta, nil)

	_, err := o.Upload(context.Background(), []byte("data"), "report.pdf", nil)
	if !errors.Is(err, ErrStorageWrite) {
		t.Fatalf("err = %v, want ErrStorageWrite", err)
	}
	if meta.creates != 0 {
		t.Fatalf("no file record may exist after a failed blob write")
	}
}

func TestUploadMetadataWriteFailure(t *testing.T) {
	blobs := newFakeBlobs()
	meta := &fakeMeta{createErr: errors.New("deadlock detected")}
	o := newOrchestrator(blobs, meta, nil)

	var maxProgress int
	_, err := o.Upload(context.Background(), []byte("data"), "report.pdf", func(p int) {
		if p > maxProgress {
			maxProgress = p
		}
	})
	if !errors.Is(err, ErrMetadataWrite) {
		t.Fatalf("err = %v, want ErrMetadataWrite", err)
	}
	if maxProgress >= 100 {
		t.Fatalf("progress hit 100 despite the metadata failure")
	}
}

func TestUploadEnqueueFailureDoesNotFailUpload(t *testing.T) {
	o := newOrchestrator(newFakeBlobs(), &fakeMeta{}, &fakeEnqueuer{err: errors.New("redis down")})
	rec, err := o.Upload(context.Background(), []byte("data"), "report.pdf", nil)
	if err != nil {
		t.Fatalf("upload should survive an enqueue failure, got %v", err)
	}
	if rec == nil || rec.ID == "" {
		t.Fatalf("expected a persisted record")
	}
}

func TestUploadSkipsIndexingForWordDocs(t *testing.T) {
	enq := &fakeEnqueuer{}
	o := newOrchestrator(newFakeBlobs(), &fakeMeta{}, enq)
	if _, err := o.Upload(context.Background(), []byte("data"), "letter.docx", nil); err != nil {
		t.Fatalf("Upload: %v", err)
	}
	if len(enq.payloads) != 0 {
		t.Fatalf("word documents must not be queued for PDF indexing")
	}
}
