// Package document is the editable page model.
//
// A Session owns one loaded source document: the immutable per-page image
// cache, the ordered sequence of logical pages and the current selection.
// Logical pages are either Original (one source page as is) or Merged (2 to
// 4 source pages composed onto one page). Merged pages never contain other
// merged pages, so a demerge always restores Originals in one step.
package document

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"

	"github.com/SP007-sun/pdfX/internal/model"
)

// ID identifies a logical page within a session.
type ID string

// OriginalID is the id of the Original page for sourceIndex. It is the same
// every time, so a demerged page comes back with the id it had before.
func OriginalID(sourceIndex int) ID {
	return ID("page-" + strconv.Itoa(sourceIndex))
}

// NewMergedID returns a fresh id for a Merged page. Ids are never reused.
func NewMergedID() ID {
	return ID("merged-" + uuid.NewString())
}

// Kind names the page variant.
type Kind string

const (
	KindOriginal Kind = "original"
	KindMerged   Kind = "merged"
)

// Page is a logical page. It is implemented only by Original and Merged;
// consumers switch on the concrete type.
type Page interface {
	PageID() ID
	Kind() Kind
	sealed()
}

// Original is a source page used as is.
type Original struct {
	ID          ID
	SourceIndex int
}

func (p Original) PageID() ID { return p.ID }
func (p Original) Kind() Kind { return KindOriginal }
func (Original) sealed() {}
func (p Original) String() string { return fmt.Sprintf("original(%d)", p.SourceIndex) }

// Merged is a composite of 2 to 4 source pages. All fields are fixed at
// creation; Invert in particular is never recomputed.
type Merged struct {
	ID            ID
	SourceIndices []int
	// Preview is the composite rendered at merge time. It is for display
	// only and is never reused when exporting.
	Preview    []byte
	Size       model.PageSize
	Background model.Background
	Invert     bool
}

func (p Merged) PageID() ID { return p.ID }
func (p Merged) Kind() Kind { return KindMerged }
func (Merged) sealed() {}
func (p Merged) String() string { return fmt.Sprintf("merged(%v)", p.SourceIndices) }

func (p Merged) clone() Merged {
	p.SourceIndices = slices.Clone(p.SourceIndices)
	p.Preview = bytes.Clone(p.Preview)
	return p
}

// clonePages copies pages so callers cannot reach the session's slices.
func clonePages(pages []Page) []Page {
	if len(pages) == 0 {
		return nil
	}
	out := make([]Page, len(pages))
	for i, p := range pages {
		if m, ok := p.(Merged); ok {
			p = m.clone()
		}
		out[i] = p
	}
	return out
}

// Config returns the merge configuration the page was created with.
func (p Merged) Config() model.MergeConfig {
	return model.MergeConfig{PageSize: p.Size, Background: p.Background, Invert: p.Invert}
}

// SourceIndices returns the source pages a logical page is built from.
func SourceIndices(p Page) []int {
	switch p := p.(type) {
	case Original:
		return []int{p.SourceIndex}
	case Merged:
		return append([]int(nil), p.SourceIndices...)
	default:
		panic(fmt.Sprintf("document: unknown page type %T", p))
	}
}
