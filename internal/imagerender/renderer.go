package imagerender

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"github.com/SP007-sun/pdfX/internal/model"
)

// ColorMode defines the color mode for rendering
type ColorMode string

const (
	ColorRGB  ColorMode = "rgb"
	ColorGray ColorMode = "gray"
)

// Raster defaults used for the per-page image cache.
const (
	DefaultScale   = 1.5
	DefaultQuality = 80
)

// RenderPageToJPEG rasterizes page index of src and encodes it as JPEG.
func RenderPageToJPEG(src Source, index int, scale float64, quality int, mode ColorMode) (model.PageImage, error) {
	img, err := src.Rasterize(index, scale)
	if err != nil {
		return model.PageImage{}, fmt.Errorf("failed to render page %d: %w", index+1, err)
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	var finalImg image.Image = img
	if mode == ColorGray {
		grayImg := image.NewGray(bounds)
		draw.Draw(grayImg, bounds, img, bounds.Min, draw.Src)
		finalImg = grayImg
	}

	data, err := EncodeJPEG(finalImg, quality)
	if err != nil {
		return model.PageImage{}, err
	}

	log.Debug().
		Int("page", index+1).
		Int("width", width).
		Int("height", height).
		Str("color", string(mode)).
		Int("jpeg_size", len(data)).
		Int("quality", quality).
		Float64("scale", scale).
		Msg("rendered page to JPEG")

	return model.PageImage{Data: data, Width: width, Height: height}, nil
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeToBase64 converts binary data to base64 string
func EncodeToBase64(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeFromBase64 converts base64 string back to binary data
func DecodeFromBase64(b64 string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(b64)
}

// GetImageDimensions extracts dimensions from JPEG bytes
func GetImageDimensions(jpegBytes []byte) (width, height int, err error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(jpegBytes))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode JPEG: %w", err)
	}
	return cfg.Width, cfg.Height, nil
}
