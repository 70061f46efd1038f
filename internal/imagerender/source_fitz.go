package imagerender

import (
	"fmt"
	"image"

	fitz "github.com/gen2brain/go-fitz"
)

// pointsPerInch is the PDF user-space resolution; scale 1.0 renders at this DPI.
const pointsPerInch = 72.0

// fitzOpener implements Opener using github.com/gen2brain/go-fitz.
type fitzOpener struct{}

func (fitzOpener) Open(data []byte) (Source, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return fitzSource{doc}, nil
}

// Ensure default opener is set to fitz-based implementation.
func init() {
	setDefaultOpener(fitzOpener{})
}

// Fitz returns the MuPDF-backed opener.
func Fitz() Opener { return fitzOpener{} }

type fitzSource struct{ doc *fitz.Document }

func (s fitzSource) PageCount() int { return s.doc.NumPage() }

func (s fitzSource) Rasterize(index int, scale float64) (image.Image, error) {
	if index < 0 || index >= s.doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", index+1, s.doc.NumPage())
	}
	// go-fitz uses 0-based indexing
	img, err := s.doc.ImageDPI(index, scale*pointsPerInch)
	if err != nil {
		return nil, err
	}
	return img, nil
}

func (s fitzSource) Close() error { return s.doc.Close() }
