package statuscheck

import (
	"context"
	"fmt"

	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/pdfdoc"
)

// RasterCheck returns a Pinger that writes a one page PDF and rasterizes it.
func RasterCheck(open imagerender.Opener, w pdfdoc.Writer) Pinger {
	return PingerFunc(func(ctx context.Context) error {
		if open == nil {
			return fmt.Errorf("no rasterizer configured")
		}
		out := w.CreateOutput()
		if _, err := out.AddPage(72, 72); err != nil {
			return err
		}
		data, err := out.Serialize()
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		src, err := open.Open(data)
		if err != nil {
			return err
		}
		defer src.Close()
		if n := src.PageCount(); n != 1 {
			return fmt.Errorf("rasterized page count = %d", n)
		}
		_, err = src.Rasterize(0, 0.25)
		return err
	})
}
