package orchestrator

import (
	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/errs"
	"github.com/SP007-sun/pdfX/internal/model"
)

type pageView struct {
	ID            document.ID      `json:"id"`
	Kind          document.Kind    `json:"kind"`
	SourceIndices []int            `json:"source_indices"`
	Selected      bool             `json:"selected"`
	PageSize      model.PageSize   `json:"page_size,omitempty"`
	Background    model.Background `json:"background,omitempty"`
	Invert        bool             `json:"invert,omitempty"`
}

type conditionView struct {
	Kind     errs.Kind `json:"kind"`
	Message  string    `json:"message"`
	Position *int      `json:"position,omitempty"`
}

type sessionView struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	SourcePages  int            `json:"source_pages"`
	GlobalInvert bool           `json:"global_invert"`
	Pages        []pageView     `json:"pages"`
	Selection    []document.ID  `json:"selection"`
	Condition    *conditionView `json:"condition,omitempty"`
}

func viewOf(e *sessionEntry) sessionView {
	s := e.session
	sel := s.Selection()
	selected := make(map[document.ID]bool, len(sel))
	for _, id := range sel {
		selected[id] = true
	}
	v := sessionView{
		ID:           e.id,
		Name:         e.name,
		SourcePages:  s.SourcePageCount(),
		GlobalInvert: s.GlobalInvert(),
		Pages:        []pageView{},
		Selection:    sel,
	}
	if v.Selection == nil {
		v.Selection = []document.ID{}
	}
	for _, p := range s.Pages() {
		pv := pageView{ID: p.PageID(), Kind: p.Kind(), SourceIndices: document.SourceIndices(p), Selected: selected[p.PageID()]}
		if m, ok := p.(document.Merged); ok {
			pv.PageSize, pv.Background, pv.Invert = m.Size, m.Background, m.Invert
		}
		v.Pages = append(v.Pages, pv)
	}
	if err := s.Condition(); err != nil {
		c := &conditionView{Kind: errs.KindOf(err), Message: err.Error()}
		if pos := errs.PositionOf(err); pos != errs.NoPosition {
			c.Position = &pos
		}
		v.Condition = c
	}
	return v
}
