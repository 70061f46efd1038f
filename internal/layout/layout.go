// Package layout computes where source pages go on a merged page.
//
// Coordinates have their origin at the top-left corner with y growing
// downward. Both the raster canvas and the PDF writer use that convention,
// so rectangle 0 is the visually topmost cell everywhere.
package layout

// Margin and Gap are in the same units as the page dimensions passed to Compute.
const (
	Margin = 15.0
	Gap    = 10.0
)

// Rect is an axis-aligned rectangle.
type Rect struct {
	X, Y, W, H float64
}

// Right returns X + W.
func (r Rect) Right() float64 { return r.X + r.W }

// Bottom returns Y + H.
func (r Rect) Bottom() float64 { return r.Y + r.H }

// Overlaps reports whether r and o share interior area.
func (r Rect) Overlaps(o Rect) bool {
	return r.X < o.Right() && o.X < r.Right() && r.Y < o.Bottom() && o.Y < r.Bottom()
}

// Compute returns count cells for a page of the given size.
//
// 2 and 3 pages stack vertically at full width, 4 pages form a 2x2 grid in
// reading order. Any other count yields one cell covering the page minus
// margins.
func Compute(count int, pageWidth, pageHeight float64) []Rect {
	m, g := Margin, Gap
	switch count {
	case 2, 3:
		n := float64(count)
		w := pageWidth - 2*m
		h := (pageHeight - 2*m - (n-1)*g) / n
		rects := make([]Rect, count)
		for i := range rects {
			rects[i] = Rect{X: m, Y: m + float64(i)*(h+g), W: w, H: h}
		}
		return rects
	case 4:
		w := (pageWidth - 2*m - g) / 2
		h := (pageHeight - 2*m - g) / 2
		return []Rect{
			{X: m, Y: m, W: w, H: h},
			{X: m + w + g, Y: m, W: w, H: h},
			{X: m, Y: m + h + g, W: w, H: h},
			{X: m + w + g, Y: m + h + g, W: w, H: h},
		}
	default:
		return []Rect{{X: m, Y: m, W: pageWidth - 2*m, H: pageHeight - 2*m}}
	}
}

// Fit scales a srcW x srcH box to fit inside r without cropping or
// stretching and centers it.
func Fit(srcW, srcH float64, r Rect) Rect {
	if srcW <= 0 || srcH <= 0 || r.W <= 0 || r.H <= 0 {
		return Rect{X: r.X, Y: r.Y}
	}
	srcAspect := srcW / srcH
	var w, h float64
	if srcAspect > r.W/r.H {
		w = r.W
		h = w / srcAspect
	} else {
		h = r.H
		w = h * srcAspect
	}
	return Rect{
		X: r.X + (r.W-w)/2,
		Y: r.Y + (r.H-h)/2,
		W: w,
		H: h,
	}
}
