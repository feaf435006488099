// Package export bundles an already-loaded document and its comment thread
// into downloadable form. Everything here is a pure transformation of
// in-memory state; no network or database access happens during export.
package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/dparedesr/docshare/internal/model"
)

// threadTimeLayout is the human-readable local timestamp used in exported
// comment threads.
const threadTimeLayout = "Jan 2, 2006 3:04 PM"

// commentsEntryName is the thread file inside the archive.
const commentsEntryName = "comments.txt"

// RenderThread flattens the comment sequence into text: one paragraph per
// comment in the given (ascending) order, separated by blank lines.
func RenderThread(comments []model.Comment) string {
	var b strings.Builder
	for i, c := range comments {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s (%s): %s", c.UserName, c.CreatedAt.Local().Format(threadTimeLayout), c.Content)
	}
	return b.String()
}

// Archive produces a zip holding the original file bytes under the original
// filename plus the flattened comment thread. The archive is fully encoded in
// memory before any byte reaches the caller, so an encoding failure delivers
// nothing rather than a truncated file.
func Archive(file *model.FileRecord, fileBytes []byte, comments []model.Comment) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	entry, err := w.Create(file.Name)
	if err != nil {
		return nil, fmt.Errorf("create archive entry: %w", err)
	}
	if _, err := entry.Write(fileBytes); err != nil {
		return nil, fmt.Errorf("write document entry: %w", err)
	}

	thread, err := w.Create(commentsEntryName)
	if err != nil {
		return nil, fmt.Errorf("create thread entry: %w", err)
	}
	if _, err := thread.Write([]byte(RenderThread(comments))); err != nil {
		return nil, fmt.Errorf("write thread entry: %w", err)
	}

	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
