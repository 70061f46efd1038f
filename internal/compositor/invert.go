package compositor

import (
	"bytes"
	"image"

	"github.com/disintegration/imaging"

	"github.com/SP007-sun/pdfX/internal/errs"
)

// Invert maps every color channel v to 255-v and leaves alpha alone.
// This is the only inversion used anywhere; it is pixel-identical to
// painting a full white rectangle over the image in "difference" mode.
func Invert(img image.Image) *image.NRGBA {
	return imaging.Invert(img)
}

// InvertJPEG decodes a JPEG, inverts it and re-encodes it at Quality.
func InvertJPEG(data []byte) ([]byte, error) {
	src, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errs.Wrap(errs.PageRenderFailed, err, "decode image")
	}
	out, err := encode(Invert(src), Quality)
	if err != nil {
		return nil, errs.Wrap(errs.PageRenderFailed, err, "encode inverted image")
	}
	return out, nil
}
