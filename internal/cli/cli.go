// Package cli implements the pdfx command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SP007-sun/pdfX/internal/compositor"
	"github.com/SP007-sun/pdfX/internal/document"
	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/logger"
	"github.com/SP007-sun/pdfX/internal/pdfdoc"
	"github.com/SP007-sun/pdfX/internal/storage"
)

var version = "dev"

// CLI holds shared state for all commands.
type CLI struct {
	Out      io.Writer
	Opener   imagerender.Opener
	Composer document.Composer
	Writer   pdfdoc.Writer
	Fetcher  *storage.Fetcher
}

// New creates a CLI writing results to out, using MuPDF for rasterization.
func New(out io.Writer) *CLI {
	return &CLI{
		Out:      out,
		Opener:   imagerender.Default(),
		Composer: compositor.New(),
		Writer:   pdfdoc.NewWriter(),
		Fetcher: &storage.Fetcher{
			Password:   os.Getenv("RESULT_ENCRYPTION_PASSWORD"),
			AllowFiles: true,
			AllowHTTP:  true,
		},
	}
}

// SetLogLevel routes logs to stderr at info, or debug when verbose.
func (c *CLI) SetLogLevel(verbose bool) error {
	level := "info"
	if verbose {
		level = "debug"
	}
	return logger.Init(logger.Options{Service: "pdfx-cli", Level: level, Pretty: true, Console: os.Stderr})
}

// RootCommand builds the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "pdfx",
		Short:        "pdfx edits the pages of a PDF",
		Long:         `pdfx deletes, merges and demerges PDF pages and exports the result, keeping untouched pages as vector content.`,
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(c.infoCommand())
	root.AddCommand(c.editCommand())
	root.AddCommand(c.previewCommand())
	return root
}

func (c *CLI) newSession(scale float64, quality int) *document.Session {
	return document.NewSession(document.Options{Opener: c.Opener, Composer: c.Composer, Scale: scale, Quality: quality})
}

// load fetches ref and loads it into a new session.
func (c *CLI) load(ctx context.Context, ref string, scale float64, quality int) (*document.Session, string, error) {
	src, err := c.Fetcher.Fetch(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", ref, err)
	}
	s := c.newSession(scale, quality)
	err = s.Load(src.Data, func(done, total int) {
		log.Debug().Int("page", done).Int("total", total).Msg("rendered page")
	})
	if err != nil {
		return nil, "", err
	}
	return s, src.Name, nil
}
