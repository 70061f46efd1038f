package statuscheck

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/pdfdoc"
)

func ok(context.Context) error { return nil }

func TestSummary(t *testing.T) {
	c := New(Options{
		S3:         PingerFunc(func(context.Context) error { return errors.New("access denied") }),
		Rasterizer: PingerFunc(ok),
	})
	s := c.Summary(context.Background())

	if s.Redis.OK || s.Redis.Configured {
		t.Errorf("Redis = %+v, want not configured", s.Redis)
	}
	if s.S3.OK || !s.S3.Configured || s.S3.Message != "access denied" {
		t.Errorf("S3 = %+v", s.S3)
	}
	if !s.MuPDF.OK {
		t.Errorf("MuPDF = %+v, want ok", s.MuPDF)
	}
	if s.Healthy() {
		t.Error("Healthy() = true with a failing configured dependency")
	}
}

func TestHealthyWithoutOptionalDeps(t *testing.T) {
	s := New(Options{Rasterizer: PingerFunc(ok)}).Summary(context.Background())
	if !s.Healthy() {
		t.Errorf("Healthy() = false for %+v", s)
	}
}

func TestTrimError(t *testing.T) {
	long := errors.New(strings.Repeat("x", 200))
	if got := trimError(long); len(got) != 120 {
		t.Errorf("len(trimError()) = %d, want 120", len(got))
	}
	if got := trimError(context.DeadlineExceeded); got != "timeout" {
		t.Errorf("trimError(deadline) = %q, want timeout", got)
	}
}

type fakeSource struct{ pages int }

func (s fakeSource) PageCount() int { return s.pages }
func (s fakeSource) Rasterize(int, float64) (image.Image, error) {
	return image.NewGray(image.Rect(0, 0, 18, 18)), nil
}
func (fakeSource) Close() error { return nil }

func TestRasterCheck(t *testing.T) {
	var got []byte
	open := imagerender.OpenerFunc(func(data []byte) (imagerender.Source, error) {
		got = data
		return fakeSource{pages: 1}, nil
	})
	if err := RasterCheck(open, pdfdoc.NewWriter()).Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if !strings.HasPrefix(string(got), "%PDF-") {
		t.Errorf("check document starts with %q, want a PDF header", got[:min(8, len(got))])
	}

	bad := imagerender.OpenerFunc(func([]byte) (imagerender.Source, error) { return fakeSource{pages: 0}, nil })
	if err := RasterCheck(bad, pdfdoc.NewWriter()).Ping(context.Background()); err == nil {
		t.Error("Ping() with an empty render = nil, want error")
	}
	if err := RasterCheck(nil, pdfdoc.NewWriter()).Ping(context.Background()); err == nil {
		t.Error("Ping() without opener = nil, want error")
	}
}
