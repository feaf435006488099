// Package render turns a stored document into an ordered sequence of page
// surfaces. The renderer itself is an opaque capability hidden behind an
// interface so the pipeline can be tested without a real PDF engine.
package render

import (
	"bytes"
	"fmt"

	pdf "github.com/ledongthuc/pdf"
)

// Surface is one rendered page. Pages carry their extracted text content and
// the scale they were rendered at; a browser client lays them out in order.
type Surface struct {
	Page  int     `json:"page"`
	Scale float64 `json:"scale"`
	Text  string  `json:"text"`
}

// Renderer opens document bytes and hands back a page-addressable handle.
type Renderer interface {
	Open(data []byte) (Document, error)
}

// Document is an open document handle.
type Document interface {
	PageCount() int
	RenderPage(page int, scale float64) (Surface, error)
}

// PDFRenderer renders PDFs via ledongthuc/pdf.
type PDFRenderer struct{}

// NewPDFRenderer constructs a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Open implements Renderer.
func (r *PDFRenderer) Open(data []byte) (Document, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &pdfDocument{reader: reader}, nil
}

type pdfDocument struct {
	reader *pdf.Reader
}

func (d *pdfDocument) PageCount() int {
	return d.reader.NumPage()
}

func (d *pdfDocument) RenderPage(page int, scale float64) (Surface, error) {
	p := d.reader.Page(page)
	if p.V.IsNull() {
		return Surface{Page: page, Scale: scale}, nil
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return Surface{}, fmt.Errorf("render page %d: %w", page, err)
	}
	return Surface{Page: page, Scale: scale, Text: text}, nil
}
