package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/folio/pkg/pipeline"
)

// Result formats.
const (
	formatJSON = "json"
	formatText = "text"
)

// processOpts holds the command-line flags for the process command.
type processOpts struct {
	noCache bool   // disable artifact and PDF caching
	refresh bool   // ignore cached entries but still write them
	archive bool   // upload the xz-compressed LaTeX source next to the PDF
	keep    bool   // keep .tex and .pdf work files
	format  string // result format: json or text
	quiet   bool   // no spinner
}

// processCommand creates the process command, the one-shot form of the
// worker: it runs a single service record through the pipeline.
func (c *CLI) processCommand() *cobra.Command {
	var opts processOpts

	cmd := &cobra.Command{
		Use:   "process <service-id>",
		Short: "Typeset the interior PDF for a service record",
		Long: `Process fetches a service record, finds its manuscript dependency, typesets
the interior and uploads the PDF. The record is marked Complete or Failed.

The result is printed to stdout as JSON (or a summary with --format text). The exit status is 1 when the run fails.`,
		Example: `  folio process recXXXXXXXXXXXXXX
  folio process recXXXXXXXXXXXXXX --refresh --archive-source`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatJSON && opts.format != formatText {
				return fmt.Errorf("invalid format: %s (must be 'json' or 'text')", opts.format)
			}
			return c.runProcess(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass cached artifacts and PDFs")
	cmd.Flags().BoolVar(&opts.archive, "archive-source", false, "upload the LaTeX source (xz) next to the PDF")
	cmd.Flags().BoolVar(&opts.keep, "keep", false, "keep work files")
	cmd.Flags().StringVarP(&opts.format, "format", "f", formatJSON, "result format: json (default), text")
	cmd.Flags().BoolVarP(&opts.quiet, "quiet", "q", false, "no progress spinner")

	return cmd
}

func (c *CLI) runProcess(ctx context.Context, serviceID string, opts processOpts) error {
	runner, err := c.newRunner(ctx, runnerOpts{
		noCache:  opts.noCache,
		refresh:  opts.refresh,
		archive:  opts.archive,
		keep:     opts.keep,
		withData: true,
	})
	if err != nil {
		return err
	}
	defer closeRunner(runner)

	var spinner *Spinner
	if !opts.quiet {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Processing %s...", serviceID))
		spinner.Start()
	}
	result := runner.Process(ctx, serviceID)
	if spinner != nil {
		spinner.Stop()
	}

	if opts.format == formatText {
		printResult(result)
	} else if err := writeResultJSON(os.Stdout, result); err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("processing %s failed: %s", serviceID, result.ErrorCode)
	}
	return nil
}

// writeResultJSON prints the result as indented JSON.
func writeResultJSON(w io.Writer, result *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// printResult prints a human summary of a run to stdout.
func printResult(r *pipeline.Result) {
	if !r.Success {
		printError("%s failed %s", r.ServiceID, StyleDim.Render("("+r.ErrorCode+")"))
		printDetail("%s", r.Error)
		return
	}
	printSuccess("%s complete", r.ServiceID)
	printRunStats(r.PageCount, time.Duration(r.DurationSeconds*float64(time.Second)), r.CacheHit)
	if r.PDFURL != "" {
		printKeyValue("PDF", StyleLink.Render(r.PDFURL))
	}
	if r.SourceKey != "" {
		printKeyValue("Source", r.SourceKey)
	}
	for _, w := range r.Warnings {
		printWarning("%s", w)
	}
	for _, w := range r.PDFWarnings {
		printWarning("%s", w)
	}
}
