package pdfdoc

import (
	"bytes"
	"fmt"
	"image/color"
	"io"

	"codeberg.org/go-pdf/fpdf"
	"codeberg.org/go-pdf/fpdf/contrib/gofpdi"
)

const mediaBox = "/MediaBox"

var jpegOptions = fpdf.ImageOptions{ImageType: "JPG"}

// FPDF is the default Writer.
type FPDF struct{}

// NewWriter returns the default Writer.
func NewWriter() Writer { return FPDF{} }

func (FPDF) OpenSource(data []byte) (*Source, error) { return ReadSource(data) }

func (FPDF) CreateOutput() Output {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: 595.28, Ht: 841.89},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("pdfX", true)
	return &fpdfOutput{
		pdf:     pdf,
		imp:     gofpdi.NewImporter(),
		streams: map[*Source]*io.ReadSeeker{},
	}
}

type fpdfOutput struct {
	pdf     *fpdf.Fpdf
	imp     *gofpdi.Importer
	streams map[*Source]*io.ReadSeeker
	images  int
}

// stream returns one stable reader per source; gofpdi caches its parser
// by the reader's address.
func (o *fpdfOutput) stream(src *Source) *io.ReadSeeker {
	if rs, ok := o.streams[src]; ok {
		return rs
	}
	var rs io.ReadSeeker = bytes.NewReader(src.data)
	o.streams[src] = &rs
	return &rs
}

// importPage turns the importer's panics into errors.
func (o *fpdfOutput) importPage(src *Source, index int) (tpl int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("import page %d: %v", index+1, r)
		}
	}()
	if _, err := src.PageSize(index); err != nil {
		return 0, err
	}
	tpl = o.imp.ImportPageFromStream(o.pdf, o.stream(src), index+1, mediaBox)
	if o.pdf.Err() {
		return 0, o.pdf.Error()
	}
	return tpl, nil
}

func (o *fpdfOutput) CopyVectorPage(src *Source, index int) error {
	dim, err := src.PageSize(index)
	if err != nil {
		return err
	}
	tpl, err := o.importPage(src, index)
	if err != nil {
		return err
	}
	o.pdf.AddPageFormat("P", fpdf.SizeType{Wd: dim.Width, Ht: dim.Height})
	o.imp.UseImportedTemplate(o.pdf, tpl, 0, 0, dim.Width, dim.Height)
	return o.pdf.Error()
}

func (o *fpdfOutput) EmbedImage(data []byte) (ImageRef, error) {
	if err := o.pdf.Error(); err != nil {
		return "", err
	}
	o.images++
	name := fmt.Sprintf("img%d", o.images)
	if info := o.pdf.RegisterImageOptionsReader(name, jpegOptions, bytes.NewReader(data)); info == nil || o.pdf.Err() {
		if err := o.pdf.Error(); err != nil {
			return "", fmt.Errorf("embed image: %w", err)
		}
		return "", fmt.Errorf("embed image: unsupported data")
	}
	return ImageRef(name), nil
}

func (o *fpdfOutput) EmbedVectorPage(src *Source, index int) (PageRef, error) {
	dim, err := src.PageSize(index)
	if err != nil {
		return PageRef{}, err
	}
	tpl, err := o.importPage(src, index)
	if err != nil {
		return PageRef{}, err
	}
	return PageRef{ID: tpl, Width: dim.Width, Height: dim.Height}, nil
}

func (o *fpdfOutput) AddPage(width, height float64) (Page, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid page size %vx%v", width, height)
	}
	o.pdf.AddPageFormat("P", fpdf.SizeType{Wd: width, Ht: height})
	if err := o.pdf.Error(); err != nil {
		return nil, err
	}
	return &fpdfPage{out: o, no: o.pdf.PageNo()}, nil
}

func (o *fpdfOutput) Err() error { return o.pdf.Error() }

func (o *fpdfOutput) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	if err := o.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// fpdfPage draws on the output's current page; fpdf can only draw on the
// page that was added last.
type fpdfPage struct {
	out *fpdfOutput
	no  int
}

func (p *fpdfPage) current() bool {
	if p.out.pdf.PageNo() != p.no {
		p.out.pdf.SetErrorf("draw on page %d after page %d was added", p.no, p.out.pdf.PageNo())
		return false
	}
	return true
}

func (p *fpdfPage) DrawImage(ref ImageRef, x, y, w, h float64) {
	if !p.current() {
		return
	}
	p.out.pdf.ImageOptions(string(ref), x, y, w, h, false, jpegOptions, 0, "")
}

func (p *fpdfPage) DrawEmbeddedPage(ref PageRef, x, y, w, h float64) {
	if !p.current() {
		return
	}
	p.out.imp.UseImportedTemplate(p.out.pdf, ref.ID, x, y, w, h)
}

func (p *fpdfPage) DrawRect(x, y, w, h float64, c color.Color) {
	if !p.current() {
		return
	}
	r, g, b, _ := c.RGBA()
	p.out.pdf.SetFillColor(int(r>>8), int(g>>8), int(b>>8))
	p.out.pdf.Rect(x, y, w, h, "F")
}
