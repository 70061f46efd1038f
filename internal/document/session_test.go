package document

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/model"
)

var pdfBytes = []byte("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n1 0 obj\n<<>>\nendobj\ntrailer\n<<>>\n%%EOF\n")

type fakeSource struct {
	pages int
	fail  int // page index that fails to rasterize, -1 for none
}

func (s fakeSource) PageCount() int { return s.pages }

func (s fakeSource) Rasterize(index int, scale float64) (image.Image, error) {
	if index == s.fail {
		return nil, errors.New("broken page")
	}
	img := image.NewRGBA(image.Rect(0, 0, int(20*scale), int(30*scale)))
	draw.Draw(img, img.Bounds(), &image.Uniform{color.Gray{Y: uint8(index * 40)}}, image.Point{}, draw.Src)
	return img, nil
}

func (s fakeSource) Close() error { return nil }

func opener(pages int) imagerender.Opener {
	return imagerender.OpenerFunc(func(data []byte) (imagerender.Source, error) {
		return fakeSource{pages: pages, fail: -1}, nil
	})
}

type fakeComposer struct {
	calls int
	last  []model.PageImage
	err   error
}

func (c *fakeComposer) Compose(images []model.PageImage, size model.PageSize, bg model.Background, invert bool) ([]byte, error) {
	c.calls++
	c.last = images
	if c.err != nil {
		return nil, c.err
	}
	return []byte("composite:" + string(size) + ":" + string(bg)), nil
}

func newLoaded(t *testing.T, pages int) (*Session, *fakeComposer) {
	t.Helper()
	comp := &fakeComposer{}
	s := NewSession(Options{Opener: opener(pages), Composer: comp})
	if err := s.Load(pdfBytes, nil); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	return s, comp
}

func originals(indices ...int) []Page {
	pages := make([]Page, len(indices))
	for i, idx := range indices {
		pages[i] = Original{ID: OriginalID(idx), SourceIndex: idx}
	}
	return pages
}

func selectAll(s *Session, ids ...ID) {
	for _, id := range ids {
		s.Select(id)
	}
}

func TestLoad(t *testing.T) {
	s := NewSession(Options{Opener: opener(3), Composer: &fakeComposer{}})
	var seen [][2]int
	if err := s.Load(pdfBytes, func(done, total int) { seen = append(seen, [2]int{done, total}) }); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(originals(0, 1, 2), s.Pages()); diff != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][2]int{{1, 3}, {2, 3}, {3, 3}}, seen); diff != "" {
		t.Errorf("progress mismatch (-want +got):\n%s", diff)
	}
	if s.SourcePageCount() != 3 {
		t.Errorf("SourcePageCount() = %d, want 3", s.SourcePageCount())
	}
	img, err := s.PageImage(1)
	if err != nil {
		t.Fatalf("PageImage(1) error = %v", err)
	}
	if img.Width != 30 || img.Height != 45 {
		t.Errorf("PageImage(1) = %dx%d, want 30x45", img.Width, img.Height)
	}
}

func TestLoadRejectsNonPDF(t *testing.T) {
	s := NewSession(Options{Opener: opener(2)})
	err := s.Load([]byte("PK\x03\x04 not a pdf"), nil)
	if !errs.Is(err, errs.SourceUnreadable) {
		t.Fatalf("Load() error = %v, want %s", err, errs.SourceUnreadable)
	}
	if s.Loaded() {
		t.Error("Loaded() = true after failed load")
	}
	if !errs.Is(s.Condition(), errs.SourceUnreadable) {
		t.Errorf("Condition() = %v, want %s", s.Condition(), errs.SourceUnreadable)
	}
}

func TestLoadRasterFailureLeavesSessionEmpty(t *testing.T) {
	s, _ := newLoaded(t, 2)
	s.opener = imagerender.OpenerFunc(func([]byte) (imagerender.Source, error) {
		return fakeSource{pages: 3, fail: 1}, nil
	})
	if err := s.Load(pdfBytes, nil); !errs.Is(err, errs.SourceUnreadable) {
		t.Fatalf("Load() error = %v, want %s", err, errs.SourceUnreadable)
	}
	if len(s.Pages()) != 0 || s.SourcePageCount() != 0 {
		t.Errorf("session not empty after failed load: %d pages", len(s.Pages()))
	}
}

func TestLoadOpenError(t *testing.T) {
	s := NewSession(Options{Opener: imagerender.OpenerFunc(func([]byte) (imagerender.Source, error) {
		return nil, errors.New("xref damaged")
	})})
	if err := s.Load(pdfBytes, nil); !errs.Is(err, errs.SourceUnreadable) {
		t.Errorf("Load() error = %v, want %s", err, errs.SourceUnreadable)
	}
}

func TestMergeKeepsDocumentOrder(t *testing.T) {
	s, comp := newLoaded(t, 3)
	selectAll(s, OriginalID(2), OriginalID(0))

	m, err := s.Merge(model.MergeConfig{})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if diff := cmp.Diff([]int{0, 2}, m.SourceIndices); diff != "" {
		t.Errorf("SourceIndices mismatch (-want +got):\n%s", diff)
	}
	want := []Page{m, Original{ID: OriginalID(1), SourceIndex: 1}}
	if diff := cmp.Diff(want, s.Pages()); diff != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
	}
	if m.Size != model.A4Portrait || m.Background != model.White || m.Invert {
		t.Errorf("merged config = %s, want defaults", m.Config())
	}
	if string(m.Preview) != "composite:A4_portrait:white" {
		t.Errorf("Preview = %q", m.Preview)
	}
	// composer sees the images in document order
	img0, _ := s.PageImage(0)
	img2, _ := s.PageImage(2)
	if diff := cmp.Diff([]model.PageImage{img0, img2}, comp.last); diff != "" {
		t.Errorf("composer images mismatch (-want +got):\n%s", diff)
	}
	if len(s.Selection()) != 0 {
		t.Errorf("Selection() = %v, want empty", s.Selection())
	}
}

func TestMergeAtFirstSelectedPosition(t *testing.T) {
	s, _ := newLoaded(t, 5)
	selectAll(s, OriginalID(3), OriginalID(1), OriginalID(4))
	m, err := s.Merge(model.MergeConfig{PageSize: model.LetterLandscape, Background: model.Black, Invert: true})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	want := []Page{Original{ID: OriginalID(0)}, m, Original{ID: OriginalID(2), SourceIndex: 2}}
	if diff := cmp.Diff(want, s.Pages()); diff != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
	}
	if !m.Invert || m.Size != model.LetterLandscape || m.Background != model.Black {
		t.Errorf("merged config = %s", m.Config())
	}
}

func TestMergeDemergeRoundTrip(t *testing.T) {
	s, _ := newLoaded(t, 4)
	before := s.Pages()
	selectAll(s, OriginalID(1), OriginalID(2), OriginalID(3))
	m, err := s.Merge(model.DefaultMergeConfig())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	s.Select(m.ID)
	restored, err := s.Demerge()
	if err != nil {
		t.Fatalf("Demerge() error = %v", err)
	}
	if diff := cmp.Diff(originals(1, 2, 3), pagesOf(restored)); diff != "" {
		t.Errorf("Demerge() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(before, s.Pages()); diff != "" {
		t.Errorf("Pages() after round trip mismatch (-want +got):\n%s", diff)
	}
}

func pagesOf(list []Original) []Page {
	pages := make([]Page, len(list))
	for i, o := range list {
		pages[i] = o
	}
	return pages
}

func TestMergeRejectsSelection(t *testing.T) {
	tests := []struct {
		name  string
		pages int
		setup func(s *Session)
	}{
		{
			name:  "none",
			pages: 3,
			setup: func(s *Session) {},
		},
		{
			name:  "one",
			pages: 3,
			setup: func(s *Session) { s.Select(OriginalID(0)) },
		},
		{
			name:  "five",
			pages: 5,
			setup: func(s *Session) { selectAll(s, OriginalID(0), OriginalID(1), OriginalID(2), OriginalID(3), OriginalID(4)) },
		},
		{
			name:  "includes merged",
			pages: 4,
			setup: func(s *Session) {
				selectAll(s, OriginalID(0), OriginalID(1))
				m, _ := s.Merge(model.DefaultMergeConfig())
				selectAll(s, m.ID, OriginalID(2))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, comp := newLoaded(t, tt.pages)
			tt.setup(s)
			before, sel, calls := s.Pages(), s.Selection(), comp.calls

			_, err := s.Merge(model.DefaultMergeConfig())
			if !errs.Is(err, errs.SelectionInvalid) {
				t.Fatalf("Merge() error = %v, want %s", err, errs.SelectionInvalid)
			}
			if diff := cmp.Diff(before, s.Pages()); diff != "" {
				t.Errorf("Pages() changed (-before +after):\n%s", diff)
			}
			if diff := cmp.Diff(sel, s.Selection()); diff != "" {
				t.Errorf("Selection() changed (-before +after):\n%s", diff)
			}
			if comp.calls != calls {
				t.Errorf("composer called %d times, want %d", comp.calls, calls)
			}
			if !errs.Is(s.Condition(), errs.SelectionInvalid) {
				t.Errorf("Condition() = %v", s.Condition())
			}
		})
	}
}

func TestMergeInvalidConfig(t *testing.T) {
	s, _ := newLoaded(t, 2)
	selectAll(s, OriginalID(0), OriginalID(1))
	_, err := s.Merge(model.MergeConfig{PageSize: "A3_portrait"})
	if !errs.Is(err, errs.InvalidConfig) {
		t.Fatalf("Merge() error = %v, want %s", err, errs.InvalidConfig)
	}
	if len(s.Pages()) != 2 {
		t.Errorf("len(Pages()) = %d, want 2", len(s.Pages()))
	}
}

func TestMergeSelectionCheckedBeforeConfig(t *testing.T) {
	s, comp := newLoaded(t, 2)
	s.Select(OriginalID(0))
	_, err := s.Merge(model.MergeConfig{PageSize: "A3_portrait"})
	if !errs.Is(err, errs.SelectionInvalid) {
		t.Fatalf("Merge() error = %v, want %s", err, errs.SelectionInvalid)
	}
	if _, err := s.PreviewMerge(model.MergeConfig{Background: "purple"}); !errs.Is(err, errs.SelectionInvalid) {
		t.Errorf("PreviewMerge() error = %v, want %s", err, errs.SelectionInvalid)
	}
	if comp.calls != 0 {
		t.Errorf("composer calls = %d, want 0", comp.calls)
	}
}

func TestMergeCompositorFailure(t *testing.T) {
	s, comp := newLoaded(t, 3)
	comp.err = errors.New("decode failed")
	selectAll(s, OriginalID(0), OriginalID(1))

	_, err := s.Merge(model.DefaultMergeConfig())
	if !errs.Is(err, errs.PageRenderFailed) {
		t.Fatalf("Merge() error = %v, want %s", err, errs.PageRenderFailed)
	}
	if diff := cmp.Diff(originals(0, 1, 2), s.Pages()); diff != "" {
		t.Errorf("Pages() changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]ID{OriginalID(0), OriginalID(1)}, s.Selection()); diff != "" {
		t.Errorf("Selection() changed (-want +got):\n%s", diff)
	}

	// next attempt clears the condition
	comp.err = nil
	if _, err := s.Merge(model.DefaultMergeConfig()); err != nil {
		t.Fatalf("Merge() retry error = %v", err)
	}
	if s.Condition() != nil {
		t.Errorf("Condition() = %v, want nil", s.Condition())
	}
}

func TestPreviewMergeDoesNotMutate(t *testing.T) {
	s, comp := newLoaded(t, 3)
	selectAll(s, OriginalID(0), OriginalID(2))
	preview, err := s.PreviewMerge(model.MergeConfig{Background: model.Black})
	if err != nil {
		t.Fatalf("PreviewMerge() error = %v", err)
	}
	if string(preview) != "composite:A4_portrait:black" {
		t.Errorf("preview = %q", preview)
	}
	if diff := cmp.Diff(originals(0, 1, 2), s.Pages()); diff != "" {
		t.Errorf("Pages() changed (-want +got):\n%s", diff)
	}
	if len(s.Selection()) != 2 {
		t.Errorf("Selection() = %v, want 2 ids", s.Selection())
	}

	// merging after a preview composes again with the current config
	m, err := s.Merge(model.MergeConfig{Background: model.White})
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if comp.calls != 2 || string(m.Preview) != "composite:A4_portrait:white" {
		t.Errorf("calls = %d, preview = %q", comp.calls, m.Preview)
	}
}

func TestDemergeRejectsSelection(t *testing.T) {
	tests := []struct {
		name  string
		setup func(s *Session, merged ID)
	}{
		{name: "none", setup: func(s *Session, merged ID) {}},
		{name: "original", setup: func(s *Session, merged ID) { s.Select(OriginalID(2)) }},
		{name: "two", setup: func(s *Session, merged ID) { selectAll(s, merged, OriginalID(2)) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newLoaded(t, 3)
			selectAll(s, OriginalID(0), OriginalID(1))
			m, err := s.Merge(model.DefaultMergeConfig())
			if err != nil {
				t.Fatalf("Merge() error = %v", err)
			}
			tt.setup(s, m.ID)
			before := s.Pages()

			if _, err := s.Demerge(); !errs.Is(err, errs.SelectionInvalid) {
				t.Fatalf("Demerge() error = %v, want %s", err, errs.SelectionInvalid)
			}
			if diff := cmp.Diff(before, s.Pages()); diff != "" {
				t.Errorf("Pages() changed (-before +after):\n%s", diff)
			}
		})
	}
}

func TestDelete(t *testing.T) {
	s, _ := newLoaded(t, 4)
	if n := s.Delete(); n != 0 {
		t.Errorf("Delete() with empty selection = %d, want 0", n)
	}
	if len(s.Pages()) != 4 {
		t.Fatalf("len(Pages()) = %d, want 4", len(s.Pages()))
	}

	selectAll(s, OriginalID(1), OriginalID(3))
	if n := s.Delete(); n != 2 {
		t.Errorf("Delete() = %d, want 2", n)
	}
	if diff := cmp.Diff(originals(0, 2), s.Pages()); diff != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
	}
	if s.SourcePageCount() != 4 {
		t.Errorf("SourcePageCount() = %d, want 4", s.SourcePageCount())
	}
	if len(s.Selection()) != 0 {
		t.Errorf("Selection() = %v, want empty", s.Selection())
	}
}

func TestDeleteMergedThenOthersKeepIDs(t *testing.T) {
	s, _ := newLoaded(t, 4)
	selectAll(s, OriginalID(0), OriginalID(1))
	m, _ := s.Merge(model.DefaultMergeConfig())
	s.Select(m.ID)
	s.Delete()
	if diff := cmp.Diff(originals(2, 3), s.Pages()); diff != "" {
		t.Errorf("Pages() mismatch (-want +got):\n%s", diff)
	}
}

func TestSelection(t *testing.T) {
	s, _ := newLoaded(t, 3)
	s.Select("page-99")
	if len(s.Selection()) != 0 {
		t.Errorf("unknown id selected: %v", s.Selection())
	}
	if !s.Toggle(OriginalID(2)) {
		t.Error("Toggle() = false, want true")
	}
	s.Select(OriginalID(0))
	if diff := cmp.Diff([]ID{OriginalID(0), OriginalID(2)}, s.Selection()); diff != "" {
		t.Errorf("Selection() mismatch (-want +got):\n%s", diff)
	}
	if s.Toggle(OriginalID(2)) {
		t.Error("Toggle() = true, want false")
	}
	s.Deselect(OriginalID(0))
	if len(s.Selection()) != 0 {
		t.Errorf("Selection() = %v, want empty", s.Selection())
	}
	selectAll(s, OriginalID(0), OriginalID(1))
	s.ClearSelection()
	if len(s.Selection()) != 0 {
		t.Errorf("Selection() after clear = %v", s.Selection())
	}
}

func TestThumbnail(t *testing.T) {
	s, _ := newLoaded(t, 2)
	img, _ := s.PageImage(0)
	got, err := s.Thumbnail(OriginalID(0))
	if err != nil {
		t.Fatalf("Thumbnail() error = %v", err)
	}
	if len(got) != len(img.Data) {
		t.Errorf("Thumbnail() returned %d bytes, want %d", len(got), len(img.Data))
	}

	selectAll(s, OriginalID(0), OriginalID(1))
	m, _ := s.Merge(model.DefaultMergeConfig())
	got, err = s.Thumbnail(m.ID)
	if err != nil || string(got) != string(m.Preview) {
		t.Errorf("Thumbnail(merged) = %q, %v", got, err)
	}
	if _, err := s.Thumbnail(OriginalID(0)); !errs.Is(err, errs.NotFound) {
		t.Errorf("Thumbnail(merged away) error = %v, want %s", err, errs.NotFound)
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s, _ := newLoaded(t, 3)
	s.SetGlobalInvert(true)
	snap := s.Snapshot()

	s.Select(OriginalID(0))
	s.Delete()
	s.SetGlobalInvert(false)

	if len(snap.Pages) != 3 || !snap.GlobalInvert {
		t.Errorf("snapshot changed: %d pages, invert %t", len(snap.Pages), snap.GlobalInvert)
	}
	if len(snap.Images) != 3 || string(snap.Source) != string(pdfBytes) {
		t.Error("snapshot missing source or images")
	}
	if s.GlobalInvert() {
		t.Error("GlobalInvert() = true, want false")
	}
}

func TestReturnedSlicesAreCopies(t *testing.T) {
	s, _ := newLoaded(t, 3)
	selectAll(s, OriginalID(0), OriginalID(2))
	m, err := s.Merge(model.DefaultMergeConfig())
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	want := s.Pages()
	wantImg, _ := s.PageImage(1)
	wantImg = model.PageImage{Data: append([]byte(nil), wantImg.Data...), Width: wantImg.Width, Height: wantImg.Height}

	m.SourceIndices[0] = 1
	m.Preview[0] = 'X'
	got := s.Pages()
	got[0].(Merged).SourceIndices[1] = 1
	got[0].(Merged).Preview[1] = 'X'
	thumb, _ := s.Thumbnail(m.ID)
	thumb[2] = 'X'
	orig, _ := s.Thumbnail(OriginalID(1))
	orig[0] = 0
	img, _ := s.PageImage(1)
	img.Data[1] = 0
	snap := s.Snapshot()
	snap.Images[1].Data[2] = 0
	snap.Pages[0].(Merged).SourceIndices[0] = 1
	snap.Source[0] = 'X'

	if diff := cmp.Diff(want, s.Pages()); diff != "" {
		t.Errorf("Pages() changed through a returned slice (-want +got):\n%s", diff)
	}
	if img, _ := s.PageImage(1); !cmp.Equal(wantImg, img) {
		t.Error("PageImage(1) changed through a returned slice")
	}
	if snap := s.Snapshot(); string(snap.Source) != string(pdfBytes) {
		t.Error("Snapshot().Source changed through a returned slice")
	}
}

func TestReset(t *testing.T) {
	s, _ := newLoaded(t, 2)
	s.SetGlobalInvert(true)
	s.Select(OriginalID(0))
	s.Reset()
	if s.Loaded() || len(s.Pages()) != 0 || len(s.Selection()) != 0 || s.GlobalInvert() {
		t.Error("Reset() left state behind")
	}
}

func TestReport(t *testing.T) {
	s, _ := newLoaded(t, 2)
	s.Report(errs.PageFailed(1, errors.New("boom")))
	if errs.PositionOf(s.Condition()) != 1 {
		t.Errorf("PositionOf(Condition()) = %d, want 1", errs.PositionOf(s.Condition()))
	}
	s.Report(nil)
	if s.Condition() != nil {
		t.Errorf("Condition() = %v, want nil", s.Condition())
	}
}
