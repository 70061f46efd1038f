// Package pdfdoc reads source PDFs and writes output PDFs.
//
// Source documents are validated and measured with pdfcpu. Output documents
// are built with fpdf in points with a top-left origin; source pages are
// brought over as gofpdi templates, so they stay vector content.
package pdfdoc

import (
	"fmt"
	"image/color"
)

// Dim is a page size in points.
type Dim struct {
	Width  float64
	Height float64
}

// Source is an opened, read-only source document.
type Source struct {
	data []byte
	dims []Dim
}

// NewSource builds a Source from raw bytes and known page sizes.
func NewSource(data []byte, dims []Dim) *Source {
	return &Source{data: data, dims: dims}
}

// PageCount returns the number of pages.
func (s *Source) PageCount() int { return len(s.dims) }

// PageSize returns the media box size of the 0-based page.
func (s *Source) PageSize(index int) (Dim, error) {
	if index < 0 || index >= len(s.dims) {
		return Dim{}, fmt.Errorf("page %d out of range (document has %d pages)", index+1, len(s.dims))
	}
	return s.dims[index], nil
}

// Bytes returns the raw document.
func (s *Source) Bytes() []byte { return s.data }

// ImageRef identifies an image embedded in an output document.
type ImageRef string

// PageRef identifies a source page embedded as a reusable template.
type PageRef struct {
	ID     int
	Width  float64
	Height float64
}

// Writer opens sources and creates outputs.
type Writer interface {
	OpenSource(data []byte) (*Source, error)
	CreateOutput() Output
}

// Output is a document under construction.
type Output interface {
	// CopyVectorPage appends the source page unchanged at its own size.
	CopyVectorPage(src *Source, index int) error
	EmbedImage(jpeg []byte) (ImageRef, error)
	EmbedVectorPage(src *Source, index int) (PageRef, error)
	AddPage(width, height float64) (Page, error)
	// Err returns the first drawing error recorded so far.
	Err() error
	Serialize() ([]byte, error)
}

// Page is a page of an Output. Drawing errors surface from Serialize and
// from the next Output call.
type Page interface {
	DrawImage(ref ImageRef, x, y, w, h float64)
	DrawEmbeddedPage(ref PageRef, x, y, w, h float64)
	DrawRect(x, y, w, h float64, c color.Color)
}
