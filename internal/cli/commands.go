package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/SP007-sun/pdfX/internal/export"
	"github.com/SP007-sun/pdfX/internal/imagerender"
	"github.com/SP007-sun/pdfX/internal/model"
)

func (c *CLI) infoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "info <source>",
		Short: "Print page count and page sizes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInfo(cmd.Context(), args[0])
		},
	}
}

func (c *CLI) runInfo(ctx context.Context, ref string) error {
	src, err := c.Fetcher.Fetch(ctx, ref)
	if err != nil {
		return fmt.Errorf("read %s: %w", ref, err)
	}
	doc, err := c.Writer.OpenSource(src.Data)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "%s: %d pages\n", src.Name, doc.PageCount())
	for i := 0; i < doc.PageCount(); i++ {
		d, err := doc.PageSize(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.Out, "%4d  %.2f x %.2f pt\n", i+1, d.Width, d.Height)
	}
	return nil
}

func (c *CLI) editCommand() *cobra.Command {
	var (
		output  string
		ops     []string
		invert  bool
		scale   float64
		quality int
	)
	cmd := &cobra.Command{
		Use:   "edit <source>",
		Short: "Apply edit steps and export a new PDF",
		Long: `Apply edit steps in order and export the result.

Steps use 1-based positions in the page order at the time the step runs:
  delete 3,5-7
  merge 1,2 size=A4_landscape bg=black invert
  demerge 2
  invert on`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runEdit(cmd.Context(), args[0], output, ops, invert, scale, quality)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default <name>_modified.pdf)")
	cmd.Flags().StringArrayVar(&ops, "op", nil, "edit step, repeatable")
	cmd.Flags().BoolVar(&invert, "invert", false, "invert colors of the whole document")
	cmd.Flags().Float64Var(&scale, "scale", imagerender.DefaultScale, "raster scale for the page cache")
	cmd.Flags().IntVar(&quality, "quality", imagerender.DefaultQuality, "JPEG quality for the page cache")
	return cmd
}

func (c *CLI) runEdit(ctx context.Context, ref, output string, steps []string, invert bool, scale float64, quality int) error {
	parsed := make([]Op, 0, len(steps))
	for _, s := range steps {
		op, err := ParseOp(s)
		if err != nil {
			return fmt.Errorf("--op %q: %w", s, err)
		}
		parsed = append(parsed, op)
	}

	start := time.Now()
	sess, name, err := c.load(ctx, ref, scale, quality)
	if err != nil {
		return err
	}
	log.Info().Str("file", name).Int("pages", sess.SourcePageCount()).Dur("elapsed", time.Since(start)).Msg("document loaded")

	for i, op := range parsed {
		if err := op.Apply(sess); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, op, err)
		}
		log.Debug().Str("step", op.String()).Int("pages", len(sess.Pages())).Msg("applied")
	}
	if invert {
		sess.SetGlobalInvert(true)
	}

	pipe := export.New(c.Writer, c.Composer, export.WithProgress(func(done, total int) {
		log.Debug().Int("page", done).Int("total", total).Msg("exported page")
	}))
	data, err := pipe.Export(ctx, sess.Snapshot())
	if err != nil {
		return err
	}

	if output == "" {
		output = export.OutputName(name)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "wrote %s (%d pages)\n", output, len(sess.Pages()))
	return nil
}

func (c *CLI) previewCommand() *cobra.Command {
	var (
		output string
		pages  string
		size   string
		bg     string
		invert bool
	)
	cmd := &cobra.Command{
		Use:   "preview <source>",
		Short: "Render the composite a merge would produce as JPEG",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := model.MergeConfig{PageSize: model.PageSize(size), Background: model.Background(bg), Invert: invert}
			return c.runPreview(cmd.Context(), args[0], output, pages, cfg)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "preview.jpg", "output JPEG file")
	cmd.Flags().StringVarP(&pages, "pages", "p", "", "1-based pages to merge, e.g. 1,2")
	cmd.Flags().StringVar(&size, "size", string(model.A4Portrait), "page size: A4_portrait, A4_landscape, Letter_portrait, Letter_landscape")
	cmd.Flags().StringVar(&bg, "bg", string(model.White), "background: white or black")
	cmd.Flags().BoolVar(&invert, "invert", false, "invert the composite")
	_ = cmd.MarkFlagRequired("pages")
	return cmd
}

func (c *CLI) runPreview(ctx context.Context, ref, output, pages string, cfg model.MergeConfig) error {
	pos, err := parsePositions(pages)
	if err != nil {
		return err
	}
	sess, _, err := c.load(ctx, ref, imagerender.DefaultScale, imagerender.DefaultQuality)
	if err != nil {
		return err
	}
	all := sess.Pages()
	for _, p := range pos {
		if p > len(all) {
			return fmt.Errorf("page %d out of range, document has %d pages", p, len(all))
		}
		sess.Select(all[p-1].PageID())
	}
	data, err := sess.PreviewMerge(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "wrote %s\n", output)
	return nil
}
