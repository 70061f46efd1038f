package cli

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/model"
)

func TestParseOp(t *testing.T) {
	tests := []struct {
		in   string
		want Op
	}{
		{"delete 3", Op{Kind: OpDelete, Positions: []int{3}}},
		{"DELETE 1,3-5", Op{Kind: OpDelete, Positions: []int{1, 3, 4, 5}}},
		{"merge 1,2", Op{Kind: OpMerge, Positions: []int{1, 2}}},
		{"merge 2-4 size=a4_landscape bg=Black invert", Op{
			Kind:      OpMerge,
			Positions: []int{2, 3, 4},
			Config:    model.MergeConfig{PageSize: model.A4Landscape, Background: model.Black, Invert: true},
		}},
		{"demerge 2", Op{Kind: OpDemerge, Positions: []int{2}}},
		{"invert on", Op{Kind: OpInvert, Invert: true}},
		{"invert off", Op{Kind: OpInvert}},
	}
	for _, tt := range tests {
		got, err := ParseOp(tt.in)
		if err != nil {
			t.Errorf("ParseOp(%q) error = %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("ParseOp(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestParseOpErrors(t *testing.T) {
	for _, in := range []string{
		"",
		"rotate 1",
		"delete",
		"delete 0",
		"delete 3-1",
		"delete a",
		"delete 1 size=A4_portrait",
		"merge 1,2 size=A3",
		"merge 1,2 bg=red",
		"merge 1,2 dpi=300",
		"demerge 1,2",
		"invert",
		"invert maybe",
	} {
		_, err := ParseOp(in)
		if !errs.Is(err, errs.InvalidConfig) {
			t.Errorf("ParseOp(%q) error = %v, want INVALID_CONFIG", in, err)
		}
	}
}

func ids(s *document.Session) []document.ID {
	var out []document.ID
	for _, p := range s.Pages() {
		out = append(out, p.PageID())
	}
	return out
}

func mustOp(t *testing.T, s string) Op {
	t.Helper()
	op, err := ParseOp(s)
	if err != nil {
		t.Fatalf("ParseOp(%q) error = %v", s, err)
	}
	return op
}

func TestApply(t *testing.T) {
	s := loadedSession(t, 5)

	if err := mustOp(t, "delete 2").Apply(s); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if diff := cmp.Diff([]document.ID{"page-0", "page-2", "page-3", "page-4"}, ids(s)); diff != "" {
		t.Errorf("after delete (-want +got):\n%s", diff)
	}

	// positions refer to the current order
	if err := mustOp(t, "merge 2,4").Apply(s); err != nil {
		t.Fatalf("merge: %v", err)
	}
	pages := s.Pages()
	m, ok := pages[1].(document.Merged)
	if !ok || len(pages) != 3 {
		t.Fatalf("after merge pages = %v", pages)
	}
	if diff := cmp.Diff([]int{2, 4}, m.SourceIndices); diff != "" {
		t.Errorf("merged sources (-want +got):\n%s", diff)
	}

	if err := mustOp(t, "demerge 1").Apply(s); !errs.Is(err, errs.SelectionInvalid) {
		t.Errorf("demerge of an original error = %v, want SELECTION_INVALID", err)
	}
	if err := mustOp(t, "demerge 2").Apply(s); err != nil {
		t.Fatalf("demerge: %v", err)
	}
	if diff := cmp.Diff([]document.ID{"page-0", "page-2", "page-4", "page-3"}, ids(s)); diff != "" {
		t.Errorf("after demerge (-want +got):\n%s", diff)
	}

	if err := mustOp(t, "delete 9").Apply(s); !errs.Is(err, errs.InvalidConfig) {
		t.Errorf("out of range error = %v, want INVALID_CONFIG", err)
	}
	if err := mustOp(t, "invert on").Apply(s); err != nil || !s.GlobalInvert() {
		t.Errorf("invert on: err = %v, GlobalInvert = %v", err, s.GlobalInvert())
	}
}
