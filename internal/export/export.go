// Package export materializes an edited page sequence into an output PDF.
//
// Each logical page takes one of four paths:
//
//	Original, global invert off   copied as vector content
//	Original, global invert on    cached raster inverted, embedded full page
//	Merged, effective invert off  source pages embedded as vector templates
//	Merged, effective invert on   composite rebuilt from the cache, inverted
//
// where effective invert = the page's own invert flag XOR the global flag.
package export

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/compositor"
	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/layout"
	"github.com/SP007-sun/pdfX/internal/metrics"
	"github.com/SP007-sun/pdfX/internal/model"
	"github.com/SP007-sun/pdfX/internal/pdfdoc"
)

// Path names how a page was written.
type Path string

const (
	PathVector         Path = "vector"
	PathInvertedRaster Path = "inverted_raster"
	PathMergedVector   Path = "merged_vector"
	PathMergedRaster   Path = "merged_raster"
)

// Pipeline exports document snapshots.
type Pipeline struct {
	writer   pdfdoc.Writer
	composer document.Composer
	progress document.Progress
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithProgress reports (done, total) after each exported page.
func WithProgress(fn document.Progress) Option {
	return func(p *Pipeline) { p.progress = fn }
}

// New returns a Pipeline writing with w and rebuilding inverted merged
// pages with c.
func New(w pdfdoc.Writer, c document.Composer, opts ...Option) *Pipeline {
	p := &Pipeline{writer: w, composer: c}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Export writes snap to a new PDF and returns its bytes. Any failure
// aborts the whole export; there is never partial output. The context is
// checked between pages.
func (p *Pipeline) Export(ctx context.Context, snap document.Snapshot) ([]byte, error) {
	start := time.Now()
	total := len(snap.Pages)
	if total == 0 {
		return nil, errs.New(errs.InvalidConfig, "no pages to export")
	}

	src, err := p.writer.OpenSource(snap.Source)
	if err != nil {
		return nil, errs.Wrap(errs.SourceUnreadable, err, "open source document")
	}
	out := p.writer.CreateOutput()

	for i, page := range snap.Pages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path, err := p.exportPage(out, src, snap, page)
		if err == nil {
			err = out.Err()
		}
		if err != nil {
			log.Error().Err(err).Int("position", i).Str("page_id", string(page.PageID())).Str("path", string(path)).Msg("page export failed")
			return nil, errs.PageFailed(i, err)
		}
		metrics.IncExportPage(string(path))
		log.Debug().Int("position", i).Str("page_id", string(page.PageID())).Str("path", string(path)).Msg("page exported")
		if p.progress != nil {
			p.progress(i+1, total)
		}
	}

	data, err := out.Serialize()
	if err != nil {
		return nil, errs.Wrap(errs.PageRenderFailed, err, "serialize output")
	}
	metrics.ObserveExport(time.Since(start))
	log.Info().Int("pages", total).Int("bytes", len(data)).Bool("global_invert", snap.GlobalInvert).Dur("took", time.Since(start)).Msg("export complete")
	return data, nil
}

func (p *Pipeline) exportPage(out pdfdoc.Output, src *pdfdoc.Source, snap document.Snapshot, page document.Page) (Path, error) {
	switch pg := page.(type) {
	case document.Original:
		if !snap.GlobalInvert {
			return PathVector, out.CopyVectorPage(src, pg.SourceIndex)
		}
		return PathInvertedRaster, p.invertedOriginal(out, src, snap, pg)
	case document.Merged:
		if pg.Invert != snap.GlobalInvert {
			return PathMergedRaster, p.mergedRaster(out, snap, pg)
		}
		return PathMergedVector, p.mergedVector(out, src, pg)
	default:
		panic(fmt.Sprintf("export: unknown page type %T", page))
	}
}

func (p *Pipeline) invertedOriginal(out pdfdoc.Output, src *pdfdoc.Source, snap document.Snapshot, pg document.Original) error {
	img, err := cached(snap, pg.SourceIndex)
	if err != nil {
		return err
	}
	dim, err := src.PageSize(pg.SourceIndex)
	if err != nil {
		return err
	}
	inverted, err := compositor.InvertJPEG(img.Data)
	if err != nil {
		return err
	}
	ref, err := out.EmbedImage(inverted)
	if err != nil {
		return err
	}
	page, err := out.AddPage(dim.Width, dim.Height)
	if err != nil {
		return err
	}
	page.DrawImage(ref, 0, 0, dim.Width, dim.Height)
	return nil
}

func (p *Pipeline) mergedVector(out pdfdoc.Output, src *pdfdoc.Source, pg document.Merged) error {
	if err := checkCount(pg); err != nil {
		return err
	}
	refs := make([]pdfdoc.PageRef, len(pg.SourceIndices))
	for i, idx := range pg.SourceIndices {
		ref, err := out.EmbedVectorPage(src, idx)
		if err != nil {
			return err
		}
		refs[i] = ref
	}

	w, h := pg.Size.Dimensions()
	page, err := out.AddPage(w, h)
	if err != nil {
		return err
	}
	page.DrawRect(0, 0, w, h, pg.Background.RGBA())
	rects := layout.Compute(len(refs), w, h)
	for i, ref := range refs {
		r := layout.Fit(ref.Width, ref.Height, rects[i])
		page.DrawEmbeddedPage(ref, r.X, r.Y, r.W, r.H)
	}
	return nil
}

func (p *Pipeline) mergedRaster(out pdfdoc.Output, snap document.Snapshot, pg document.Merged) error {
	if err := checkCount(pg); err != nil {
		return err
	}
	images := make([]model.PageImage, len(pg.SourceIndices))
	for i, idx := range pg.SourceIndices {
		img, err := cached(snap, idx)
		if err != nil {
			return err
		}
		images[i] = img
	}

	// Rebuild from the page cache, never from pg.Preview. The preview was
	// baked with the page's own invert flag at merge time; reusing it here
	// would invert twice or not at all once the global flag is involved.
	data, err := p.composer.Compose(images, pg.Size, pg.Background, true)
	if err != nil {
		return err
	}
	ref, err := out.EmbedImage(data)
	if err != nil {
		return err
	}
	w, h := pg.Size.Dimensions()
	page, err := out.AddPage(w, h)
	if err != nil {
		return err
	}
	page.DrawRect(0, 0, w, h, pg.Background.RGBA())
	page.DrawImage(ref, 0, 0, w, h)
	return nil
}

func checkCount(pg document.Merged) error {
	if n := len(pg.SourceIndices); n < compositor.MinImages || n > compositor.MaxImages {
		return errs.New(errs.CompositorPrecondition, "merged page %s has %d source pages", pg.ID, n)
	}
	return nil
}

func cached(snap document.Snapshot, sourceIndex int) (model.PageImage, error) {
	if sourceIndex < 0 || sourceIndex >= len(snap.Images) {
		return model.PageImage{}, fmt.Errorf("no cached image for source page %d", sourceIndex)
	}
	return snap.Images[sourceIndex], nil
}

// OutputName returns the result file name for an uploaded file name.
func OutputName(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "document.pdf"
	}
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == "" {
		stem = "document"
	}
	return stem + "_modified.pdf"
}
