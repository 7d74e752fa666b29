package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/folio/pkg/latex"
)

// convertOpts holds the command-line flags for the convert command.
type convertOpts struct {
	output  string       // .tex path; defaults to the input name
	pdf     bool         // typeset and inspect the result
	overlay string       // mark overlay mode: strict or compat
	rules   string       // YAML policy rules override
	noCache bool         // disable the PDF cache
	params  latex.Params // formatting parameters
}

// convertCommand creates the convert command, which runs the pipeline on a
// local manuscript without touching the record or object stores.
func (c *CLI) convertCommand() *cobra.Command {
	var opts convertOpts

	cmd := &cobra.Command{
		Use:   "convert <manuscript.json>",
		Short: "Convert a manuscript to LaTeX (and optionally PDF)",
		Long: `Convert validates a manuscript artifact, evaluates its warnings and writes
the LaTeX document. With --pdf the document is also typeset and the PDF is
checked against the print limits.

Use "-" to read the manuscript from stdin.`,
		Example: `  folio convert manuscript.json
  folio convert manuscript.json --pdf --trim-size 5.5x8.5 --title "The Long Road"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runConvert(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output .tex file (default: <input>.tex)")
	cmd.Flags().BoolVar(&opts.pdf, "pdf", false, "typeset the document to PDF")
	cmd.Flags().StringVar(&opts.overlay, "overlay", "", "mark overlay: strict (default), compat")
	cmd.Flags().StringVar(&opts.rules, "rules", "", "policy rules file (YAML)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the PDF cache")
	cmd.Flags().StringVar(&opts.params.TrimSize, "trim-size", "", "trim size, e.g. 6x9 ("+strings.Join(latex.TrimSizes(), ", ")+")")
	cmd.Flags().StringVar(&opts.params.BookTitle, "title", "", "book title")
	cmd.Flags().StringVar(&opts.params.AuthorName, "author", "", "author name")
	cmd.Flags().StringVar(&opts.params.Font, "font", "", "main font")
	cmd.Flags().StringVar(&opts.params.ChapterStyle, "chapter-style", "", "numbered (default) or unnumbered")
	cmd.Flags().StringVar(&opts.params.Genre, "genre", "", "genre")

	return cmd
}

func (c *CLI) runConvert(ctx context.Context, input string, opts convertOpts) error {
	logger := loggerFromContext(ctx)

	data, err := readInput(input)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, runnerOpts{noCache: opts.noCache, overlay: opts.overlay, rules: opts.rules})
	if err != nil {
		return err
	}
	defer closeRunner(runner)

	params := mergeParams(opts.params, runner.Options.Defaults)

	prog := newProgress(logger)
	conv, err := runner.Converter.Convert(data, params)
	if conv != nil && conv.Decision.Action != "" {
		printDecision(conv.Decision.Action, conv.Decision.Reason, conv.Decision.Degradations)
	}
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Converted %d blocks", len(conv.Document.Content.Blocks)))
	for _, q := range conv.Quality {
		printWarning("%s", q.Message)
	}
	for _, m := range conv.MarkIssues {
		printWarning("%s", m.Error())
	}

	texPath := outputPath(input, opts.output)
	if !opts.pdf {
		if err := os.WriteFile(texPath, []byte(conv.Source), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", texPath, err)
		}
		printSuccess("Wrote LaTeX")
		printFile(texPath)
		printNextStep("Typeset it", "folio convert "+input+" --pdf")
		return nil
	}

	if err := checkToolchain(runner); err != nil {
		return err
	}
	dir, job := filepath.Dir(texPath), strings.TrimSuffix(filepath.Base(texPath), ".tex")

	spinner := newSpinnerWithContext(ctx, "Typesetting...")
	spinner.Start()
	pdfPath, hit, err := runner.Render(ctx, conv.Source, dir, job)
	spinner.Stop()
	if err != nil {
		return err
	}

	report := runner.Inspector.Inspect(ctx, pdfPath)
	printRunStats(report.PageCount, 0, hit)
	for _, w := range report.Warnings {
		printWarning("%s", w)
	}
	if err := report.Err(); err != nil {
		return err
	}
	printSuccess("Typeset interior")
	printFile(texPath)
	printFile(pdfPath)
	return nil
}

// mergeParams fills blank flag values from the configured defaults.
func mergeParams(flags, defaults latex.Params) latex.Params {
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	fill(&flags.TrimSize, defaults.TrimSize)
	fill(&flags.BookTitle, defaults.BookTitle)
	fill(&flags.AuthorName, defaults.AuthorName)
	fill(&flags.Font, defaults.Font)
	fill(&flags.ChapterStyle, defaults.ChapterStyle)
	fill(&flags.Genre, defaults.Genre)
	return flags
}

// readInput reads a file, or stdin for "-".
func readInput(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manuscript: %w", err)
	}
	return data, nil
}

// outputPath returns the .tex path for input: the explicit output when set,
// otherwise the input name with a .tex extension.
func outputPath(input, output string) string {
	if output != "" {
		return output
	}
	if input == "-" {
		return "manuscript.tex"
	}
	return strings.TrimSuffix(input, filepath.Ext(input)) + ".tex"
}
