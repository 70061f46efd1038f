// Package compositor tiles 2 to 4 page images onto one raster page.
package compositor

import (
	"bytes"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/layout"
	"github.com/SP007-sun/pdfX/internal/model"
)

const (
	// Supersample scales the canvas above the page size so the later JPEG
	// re-encode inside the PDF loses less detail.
	Supersample = 1.5
	// Quality is the JPEG quality of composed pages.
	Quality = 90

	MinImages = 2
	MaxImages = 4
)

// Compositor renders merged pages. The zero value is not usable; use New.
type Compositor struct {
	supersample float64
	quality     int
	filter      imaging.ResampleFilter
}

// New returns a Compositor with the package defaults.
func New() *Compositor {
	return &Compositor{supersample: Supersample, quality: Quality, filter: imaging.Linear}
}

// Compose draws images into the layout cells of a page of the given size
// filled with bg, inverts the whole canvas once if invert is set and
// returns the JPEG encoding.
func (c *Compositor) Compose(images []model.PageImage, size model.PageSize, bg model.Background, invert bool) ([]byte, error) {
	if len(images) < MinImages || len(images) > MaxImages {
		return nil, errs.New(errs.CompositorPrecondition, "compose needs %d to %d images, got %d", MinImages, MaxImages, len(images))
	}

	pw, ph := size.Dimensions()
	cw := int(math.Round(pw * c.supersample))
	ch := int(math.Round(ph * c.supersample))
	canvas := imaging.New(cw, ch, bg.RGBA())

	rects := layout.Compute(len(images), float64(cw), float64(ch))
	for i, pi := range images {
		src, err := imaging.Decode(bytes.NewReader(pi.Data))
		if err != nil {
			return nil, errs.Wrap(errs.PageRenderFailed, err, "decode image %d", i)
		}
		b := src.Bounds()
		fit := layout.Fit(float64(b.Dx()), float64(b.Dy()), rects[i])
		w, h := atLeastOne(fit.W), atLeastOne(fit.H)
		scaled := imaging.Resize(src, w, h, c.filter)
		canvas = imaging.Paste(canvas, scaled, image.Pt(int(math.Round(fit.X)), int(math.Round(fit.Y))))
	}

	var out image.Image = canvas
	if invert {
		out = Invert(canvas)
	}

	data, err := encode(out, c.quality)
	if err != nil {
		return nil, errs.Wrap(errs.PageRenderFailed, err, "encode composite")
	}
	log.Debug().
		Int("images", len(images)).
		Str("page_size", string(size)).
		Str("background", string(bg)).
		Bool("invert", invert).
		Int("width", cw).
		Int("height", ch).
		Int("jpeg_size", len(data)).
		Msg("composed merged page")
	return data, nil
}

// Compose uses a default Compositor.
func Compose(images []model.PageImage, size model.PageSize, bg model.Background, invert bool) ([]byte, error) {
	return New().Compose(images, size, bg, invert)
}

func atLeastOne(v float64) int {
	n := int(math.Round(v))
	if n < 1 {
		return 1
	}
	return n
}

func encode(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}
