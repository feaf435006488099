package export

import (
	"bytes"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"github.com/dparedesr/docshare/internal/model"
)

func fixtureComments() []model.Comment {
	t1 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(5 * time.Minute)
	return []model.Comment{
		{UserName: "Alice", Content: "hi", CreatedAt: t1},
		{UserName: "Bob", Content: "yo", CreatedAt: t2},
	}
}

func TestRenderThread(t *testing.T) {
	comments := fixtureComments()
	want := fmt.Sprintf("Alice (%s): hi\n\nBob (%s): yo",
		comments[0].CreatedAt.Local().Format(threadTimeLayout),
		comments[1].CreatedAt.Local().Format(threadTimeLayout))
	if got := RenderThread(comments); got != want {
		t.Fatalf("RenderThread:\ngot  %q\nwant %q", got, want)
	}
}

func TestRenderThreadEmpty(t *testing.T) {
	if got := RenderThread(nil); got != "" {
		t.Fatalf("empty thread should render to empty string, got %q", got)
	}
}

func TestRenderThreadSingle(t *testing.T) {
	c := fixtureComments()[:1]
	got := RenderThread(c)
	if bytes.Contains([]byte(got), []byte("\n")) {
		t.Fatalf("single comment must have no separators: %q", got)
	}
}

func TestArchiveContents(t *testing.T) {
	file := &model.FileRecord{ID: "f1", Name: "report.pdf"}
	fileBytes := []byte("%PDF-1.4 fake body")
	comments := fixtureComments()

	data, err := Archive(file, fileBytes, comments)
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}

	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	entries := map[string][]byte{}
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = content
	}

	if len(entries) != 2 {
		t.Fatalf("archive has %d entries, want 2", len(entries))
	}
	if !bytes.Equal(entries["report.pdf"], fileBytes) {
		t.Fatalf("document entry does not round-trip")
	}
	if got, want := string(entries[commentsEntryName]), RenderThread(comments); got != want {
		t.Fatalf("thread entry:\ngot  %q\nwant %q", got, want)
	}
}
