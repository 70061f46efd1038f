package document

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/filetype"
	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/metrics"
	"github.com/SP007-sun/pdfX/internal/model"
)

// Composer renders 2 to 4 page images onto one page.
type Composer interface {
	Compose(images []model.PageImage, size model.PageSize, bg model.Background, invert bool) ([]byte, error)
}

// Progress receives (done, total) while pages are processed.
type Progress func(done, total int)

// Options configures a Session.
type Options struct {
	Opener   imagerender.Opener
	Composer Composer
	Scale    float64 // raster scale of the page cache
	Quality  int     // JPEG quality of the page cache
}

// Session is the editing state for one source document. It is safe for
// concurrent use; every operation is atomic with respect to the others.
type Session struct {
	mu sync.Mutex

	opener   imagerender.Opener
	composer Composer
	detector *filetype.Detector
	scale    float64
	quality  int

	source       []byte
	images       []model.PageImage
	pages        []Page
	selected     map[ID]struct{}
	globalInvert bool
	condition    error
}

// NewSession returns an empty session.
func NewSession(opts Options) *Session {
	if opts.Opener == nil {
		opts.Opener = imagerender.Default()
	}
	if opts.Scale <= 0 {
		opts.Scale = imagerender.DefaultScale
	}
	if opts.Quality <= 0 {
		opts.Quality = imagerender.DefaultQuality
	}
	return &Session{
		opener:   opts.Opener,
		composer: opts.Composer,
		detector: filetype.New(),
		scale:    opts.Scale,
		quality:  opts.Quality,
		selected: map[ID]struct{}{},
	}
}

// Load replaces the session contents with data. Every page is rasterized
// once into the page cache and the pages become Original 0..n-1. On error
// the session is left empty.
func (s *Session) Load(data []byte, progress Progress) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetLocked()
	err := s.load(data, progress)
	if err != nil {
		s.resetLocked()
		s.condition = err
	}
	observe("load", err)
	return err
}

func (s *Session) load(data []byte, progress Progress) error {
	if info := s.detector.Detect(data); !info.Supported {
		return errs.New(errs.SourceUnreadable, "not a PDF document (%s)", info.MIMEType)
	}
	src, err := s.opener.Open(data)
	if err != nil {
		return errs.Wrap(errs.SourceUnreadable, err, "open document")
	}
	defer src.Close()

	n := src.PageCount()
	if n <= 0 {
		return errs.New(errs.SourceUnreadable, "document has no pages")
	}
	images := make([]model.PageImage, 0, n)
	pages := make([]Page, 0, n)
	for i := 0; i < n; i++ {
		img, err := imagerender.RenderPageToJPEG(src, i, s.scale, s.quality, imagerender.ColorRGB)
		if err != nil {
			return errs.Wrap(errs.SourceUnreadable, err, "rasterize page %d", i+1)
		}
		images = append(images, img)
		pages = append(pages, Original{ID: OriginalID(i), SourceIndex: i})
		if progress != nil {
			progress(i+1, n)
		}
	}

	s.source = bytes.Clone(data)
	s.images = images
	s.pages = pages
	metrics.AddPagesLoaded(n)
	log.Info().Int("pages", n).Int("bytes", len(data)).Msg("document loaded")
	return nil
}

// Reset discards the loaded document.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resetLocked()
}

func (s *Session) resetLocked() {
	s.source = nil
	s.images = nil
	s.pages = nil
	s.selected = map[ID]struct{}{}
	s.globalInvert = false
	s.condition = nil
}

// Loaded reports whether a document is loaded.
func (s *Session) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.images != nil
}

// Select adds id to the selection. Unknown ids are ignored.
func (s *Session) Select(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) >= 0 {
		s.selected[id] = struct{}{}
	}
}

// Deselect removes id from the selection.
func (s *Session) Deselect(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selected, id)
}

// Toggle flips the selection state of id and reports whether it is now
// selected. Unknown ids are ignored.
func (s *Session) Toggle(id ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return false
	}
	if _, ok := s.selected[id]; ok {
		delete(s.selected, id)
		return false
	}
	s.selected[id] = struct{}{}
	return true
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = map[ID]struct{}{}
}

// Selection returns the selected ids in document order.
func (s *Session) Selection() []ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]ID, 0, len(s.selected))
	for _, p := range s.pages {
		if _, ok := s.selected[p.PageID()]; ok {
			ids = append(ids, p.PageID())
		}
	}
	return ids
}

// Delete removes every selected page and clears the selection. An empty
// selection is a no-op. Source pages are not touched.
func (s *Session) Delete() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.condition = nil

	removed := 0
	kept := s.pages[:0:0]
	for _, p := range s.pages {
		if _, ok := s.selected[p.PageID()]; ok {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	if removed > 0 {
		s.pages = kept
	}
	s.selected = map[ID]struct{}{}
	observe("delete", nil)
	log.Debug().Int("removed", removed).Int("pages", len(s.pages)).Msg("pages deleted")
	return removed
}

// selectedOriginals validates the selection for a merge and returns the
// selected pages in document order.
func (s *Session) selectedOriginals() ([]Original, error) {
	n := len(s.selected)
	if n < 2 || n > 4 {
		return nil, errs.New(errs.SelectionInvalid, "select 2 to 4 pages to merge, %d selected", n)
	}
	originals := make([]Original, 0, n)
	for _, p := range s.pages {
		if _, ok := s.selected[p.PageID()]; !ok {
			continue
		}
		o, ok := p.(Original)
		if !ok {
			return nil, errs.New(errs.SelectionInvalid, "merged pages cannot be merged again")
		}
		originals = append(originals, o)
	}
	return originals, nil
}

// compose renders the selected pages with cfg.
func (s *Session) compose(cfg model.MergeConfig) (model.MergeConfig, []Original, []byte, error) {
	originals, err := s.selectedOriginals()
	if err != nil {
		return cfg, nil, nil, err
	}
	cfg, err = cfg.Normalize()
	if err != nil {
		return cfg, nil, nil, err
	}
	if s.composer == nil {
		return cfg, nil, nil, fmt.Errorf("session has no composer")
	}
	images := make([]model.PageImage, len(originals))
	for i, o := range originals {
		images[i] = s.images[o.SourceIndex]
	}
	preview, err := s.composer.Compose(images, cfg.PageSize, cfg.Background, cfg.Invert)
	if err != nil {
		if errs.KindOf(err) == "" {
			err = errs.Wrap(errs.PageRenderFailed, err, "compose merged page")
		}
		return cfg, nil, nil, err
	}
	return cfg, originals, preview, nil
}

// PreviewMerge renders the composite Merge would produce without changing
// the session.
func (s *Session) PreviewMerge(cfg model.MergeConfig) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.condition = nil

	_, _, preview, err := s.compose(cfg)
	if err != nil {
		s.condition = err
	}
	observe("preview", err)
	return preview, err
}

// Merge replaces the selected Originals with one Merged page at the
// position of the first selected page. The preview is always composed
// from the current selection and cfg. On error nothing changes.
func (s *Session) Merge(cfg model.MergeConfig) (Merged, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.condition = nil

	m, err := s.merge(cfg)
	if err != nil {
		s.condition = err
	}
	observe("merge", err)
	return m.clone(), err
}

func (s *Session) merge(cfg model.MergeConfig) (Merged, error) {
	cfg, originals, preview, err := s.compose(cfg)
	if err != nil {
		return Merged{}, err
	}
	indices := make([]int, len(originals))
	for i, o := range originals {
		indices[i] = o.SourceIndex
	}
	m := Merged{
		ID:            NewMergedID(),
		SourceIndices: indices,
		Preview:       preview,
		Size:          cfg.PageSize,
		Background:    cfg.Background,
		Invert:        cfg.Invert,
	}

	next := make([]Page, 0, len(s.pages)-len(originals)+1)
	placed := false
	for _, p := range s.pages {
		if _, ok := s.selected[p.PageID()]; !ok {
			next = append(next, p)
			continue
		}
		if !placed {
			next = append(next, m)
			placed = true
		}
	}
	s.pages = next
	s.selected = map[ID]struct{}{}
	log.Info().Str("id", string(m.ID)).Ints("sources", indices).Str("config", cfg.String()).Msg("pages merged")
	return m, nil
}

// Demerge replaces the single selected Merged page with its Originals, in
// their stored order, at the same position.
func (s *Session) Demerge() ([]Original, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.condition = nil

	restored, err := s.demerge()
	if err != nil {
		s.condition = err
	}
	observe("demerge", err)
	return restored, err
}

func (s *Session) demerge() ([]Original, error) {
	if len(s.selected) != 1 {
		return nil, errs.New(errs.SelectionInvalid, "select exactly one merged page to demerge, %d selected", len(s.selected))
	}
	pos := -1
	var m Merged
	for i, p := range s.pages {
		if _, ok := s.selected[p.PageID()]; !ok {
			continue
		}
		mp, ok := p.(Merged)
		if !ok {
			return nil, errs.New(errs.SelectionInvalid, "selected page is not a merged page")
		}
		pos, m = i, mp
	}

	restored := make([]Original, len(m.SourceIndices))
	for i, idx := range m.SourceIndices {
		if idx < 0 || idx >= len(s.images) {
			return nil, fmt.Errorf("merged page %s references missing source page %d", m.ID, idx)
		}
		restored[i] = Original{ID: OriginalID(idx), SourceIndex: idx}
	}

	next := make([]Page, 0, len(s.pages)-1+len(restored))
	next = append(next, s.pages[:pos]...)
	for _, o := range restored {
		next = append(next, o)
	}
	next = append(next, s.pages[pos+1:]...)
	s.pages = next
	s.selected = map[ID]struct{}{}
	log.Info().Str("id", string(m.ID)).Ints("sources", m.SourceIndices).Msg("page demerged")
	return restored, nil
}

// SetGlobalInvert sets the export-wide inversion flag.
func (s *Session) SetGlobalInvert(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.globalInvert = v
}

// GlobalInvert returns the export-wide inversion flag.
func (s *Session) GlobalInvert() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalInvert
}

// Pages returns the current page sequence.
func (s *Session) Pages() []Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clonePages(s.pages)
}

// SourcePageCount returns the number of pages in the loaded document.
func (s *Session) SourcePageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.images)
}

// PageImage returns the cached raster of a source page.
func (s *Session) PageImage(sourceIndex int) (model.PageImage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sourceIndex < 0 || sourceIndex >= len(s.images) {
		return model.PageImage{}, errs.New(errs.NotFound, "source page %d not found", sourceIndex)
	}
	return cloneImage(s.images[sourceIndex]), nil
}

// Thumbnail returns the display image of a logical page: the cached raster
// for an Original, the merge-time preview for a Merged page.
func (s *Session) Thumbnail(id ID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return nil, errs.New(errs.NotFound, "page %s not found", id)
	}
	switch p := s.pages[i].(type) {
	case Original:
		return bytes.Clone(s.images[p.SourceIndex].Data), nil
	case Merged:
		return bytes.Clone(p.Preview), nil
	default:
		panic(fmt.Sprintf("document: unknown page type %T", p))
	}
}

// Condition returns the error reported by the last failed operation, or nil.
func (s *Session) Condition() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.condition
}

// Report records the outcome of an operation run outside the session, such
// as an export. A nil err clears the condition.
func (s *Session) Report(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.condition = err
}

// Snapshot is an immutable view of a session for export.
type Snapshot struct {
	Source       []byte
	Images       []model.PageImage
	Pages        []Page
	GlobalInvert bool
}

// Snapshot captures the current state. Later edits do not affect it.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	var images []model.PageImage
	for _, img := range s.images {
		images = append(images, cloneImage(img))
	}
	return Snapshot{
		Source:       bytes.Clone(s.source),
		Images:       images,
		Pages:        clonePages(s.pages),
		GlobalInvert: s.globalInvert,
	}
}

func cloneImage(img model.PageImage) model.PageImage {
	img.Data = bytes.Clone(img.Data)
	return img
}

func (s *Session) indexOf(id ID) int {
	for i, p := range s.pages {
		if p.PageID() == id {
			return i
		}
	}
	return -1
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = string(errs.KindOf(err))
		if result == "" {
			result = "error"
		}
	}
	metrics.ObserveOperation(op, result)
}
