// Package imagerender rasterizes source PDF pages.
//
// The rest of the editor only sees the Opener and Source interfaces; the
// default implementation is backed by MuPDF through go-fitz.
package imagerender

import (
	"image"
)

// Source is an opened document that can be rasterized page by page.
type Source interface {
	PageCount() int
	// Rasterize renders the 0-based page at scale (1.0 = 72 DPI).
	Rasterize(index int, scale float64) (image.Image, error)
	Close() error
}

// Opener opens raw document bytes into a Source.
type Opener interface {
	Open(data []byte) (Source, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(data []byte) (Source, error)

func (f OpenerFunc) Open(data []byte) (Source, error) { return f(data) }

// defaultOpener is provided in source_fitz.go using go-fitz.
var defaultOpener Opener

// setDefaultOpener allows swapping the default opener, useful for alternate backends.
func setDefaultOpener(o Opener) { defaultOpener = o }

// Default returns the process-wide opener.
func Default() Opener { return defaultOpener }
