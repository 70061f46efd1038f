// Package model holds the value types shared by the page editor components.
package model

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/SP007-sun/pdfX/internal/errs"
)

// PageImage is a rasterized source page, JPEG encoded.
type PageImage struct {
	Data   []byte
	Width  int
	Height int
}

// PageSize names a target page format for merged pages.
type PageSize string

const (
	A4Portrait      PageSize = "A4_portrait"
	A4Landscape     PageSize = "A4_landscape"
	LetterPortrait  PageSize = "Letter_portrait"
	LetterLandscape PageSize = "Letter_landscape"
)

// Page dimensions in PDF points.
var (
	a4     = [2]float64{595.28, 841.89}
	letter = [2]float64{612, 792}
)

// Dimensions returns the width and height in points.
func (s PageSize) Dimensions() (width, height float64) {
	switch s {
	case A4Landscape:
		return a4[1], a4[0]
	case LetterPortrait:
		return letter[0], letter[1]
	case LetterLandscape:
		return letter[1], letter[0]
	default:
		return a4[0], a4[1]
	}
}

// ParsePageSize accepts the preset names case-insensitively.
func ParsePageSize(s string) (PageSize, error) {
	for _, ps := range []PageSize{A4Portrait, A4Landscape, LetterPortrait, LetterLandscape} {
		if strings.EqualFold(s, string(ps)) {
			return ps, nil
		}
	}
	return "", errs.New(errs.InvalidConfig, "unknown page size %q", s)
}

// Background is the fill color behind merged pages.
type Background string

const (
	White Background = "white"
	Black Background = "black"
)

// RGBA returns the fill color.
func (b Background) RGBA() color.NRGBA {
	if b == Black {
		return color.NRGBA{A: 0xff}
	}
	return color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
}

// ParseBackground accepts "white" or "black".
func ParseBackground(s string) (Background, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(White):
		return White, nil
	case string(Black):
		return Black, nil
	}
	return "", errs.New(errs.InvalidConfig, "unknown background %q", s)
}

// MergeConfig is the user-supplied configuration for a merge.
type MergeConfig struct {
	PageSize   PageSize   `json:"page_size"`
	Background Background `json:"background"`
	Invert     bool       `json:"invert"`
}

// DefaultMergeConfig returns A4 portrait, white, not inverted.
func DefaultMergeConfig() MergeConfig {
	return MergeConfig{PageSize: A4Portrait, Background: White}
}

// Normalize fills empty fields with defaults and validates the rest.
func (c MergeConfig) Normalize() (MergeConfig, error) {
	def := DefaultMergeConfig()
	if c.PageSize == "" {
		c.PageSize = def.PageSize
	}
	if c.Background == "" {
		c.Background = def.Background
	}
	ps, err := ParsePageSize(string(c.PageSize))
	if err != nil {
		return c, err
	}
	bg, err := ParseBackground(string(c.Background))
	if err != nil {
		return c, err
	}
	c.PageSize, c.Background = ps, bg
	return c, nil
}

func (c MergeConfig) String() string {
	return fmt.Sprintf("%s/%s/invert=%t", c.PageSize, c.Background, c.Invert)
}
