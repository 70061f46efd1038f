package pdfdoc

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/rs/zerolog/log"
)

var disableConfigDir sync.Once

func pdfcpuConf() *model.Configuration {
	// keep pdfcpu from writing a config dir into $HOME
	disableConfigDir.Do(api.DisableConfigDir)
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// ReadSource validates data and reads every page's effective media box.
func ReadSource(data []byte) (*Source, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	ctx, err := api.ReadContext(bytes.NewReader(data), pdfcpuConf())
	if err != nil {
		return nil, fmt.Errorf("pdf read failed: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("pdf validation failed: %w", err)
	}
	n := ctx.PageCount
	if n <= 0 {
		return nil, fmt.Errorf("document has no pages")
	}

	dims := make([]Dim, n)
	for i := range dims {
		d, err := pageDim(ctx, i+1)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i+1, err)
		}
		dims[i] = d
	}
	log.Debug().Int("pages", n).Int("bytes", len(data)).Msg("opened source pdf")
	return &Source{data: data, dims: dims}, nil
}

// pageDim resolves the media box the page declares or inherits from its
// page tree ancestors, rotated as displayed.
func pageDim(ctx *model.Context, pageNr int) (Dim, error) {
	_, _, attrs, err := ctx.PageDict(pageNr, false)
	if err != nil {
		return Dim{}, err
	}
	if attrs == nil || attrs.MediaBox == nil {
		return Dim{}, fmt.Errorf("no media box")
	}
	d := Dim{Width: attrs.MediaBox.Width(), Height: attrs.MediaBox.Height()}
	if attrs.Rotate%180 != 0 {
		d.Width, d.Height = d.Height, d.Width
	}
	if d.Width <= 0 || d.Height <= 0 {
		return Dim{}, fmt.Errorf("invalid media box %vx%v", d.Width, d.Height)
	}
	return d, nil
}
