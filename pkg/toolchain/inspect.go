package toolchain

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	ferrors "github.com/matzehuels/folio/pkg/errors"
)

// Inspector binary.
const pdfinfoBin = "pdfinfo"

// Limits are the print-on-demand bounds a PDF must meet.
type Limits struct {
	MaxSizeMB       float64 `mapstructure:"max_size_mb"`
	MinPages        int     `mapstructure:"min_pages"`
	MaxPages        int     `mapstructure:"max_pages"`
	EnforceMinPages bool    `mapstructure:"enforce_min_pages"`
}

// DefaultLimits returns the standard bounds: 500 MB, 24 to 828 pages, with
// a short book only warned about.
func DefaultLimits() Limits {
	return Limits{MaxSizeMB: 500, MinPages: 24, MaxPages: 828}
}

// Report is the outcome of inspecting a PDF.
type Report struct {
	Valid      bool     `json:"valid"`
	Errors     []string `json:"errors"`
	Warnings   []string `json:"warnings"`
	FileSizeMB float64  `json:"file_size_mb"`
	PageCount  int      `json:"page_count"`
	Version    string   `json:"pdf_version"`
}

// Err returns a QUALITY_GATE error listing the report errors, or nil when
// the report is valid.
func (r Report) Err() error {
	if r.Valid {
		return nil
	}
	return ferrors.New(ferrors.ErrCodeQualityGate, "PDF validation failed: %s", strings.Join(r.Errors, "; "))
}

// Inspector checks a PDF against Limits using pdfinfo.
type Inspector struct {
	Limits Limits
	Logger *log.Logger
	exec   executor
}

// NewInspector creates an Inspector. A nil logger discards output.
func NewInspector(limits Limits, logger *log.Logger) *Inspector {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Inspector{Limits: limits, Logger: logger, exec: defaultExec}
}

// Check reports whether pdfinfo is on PATH.
func (i *Inspector) Check() error {
	if _, err := i.exec.LookPath(pdfinfoBin); err != nil {
		return ferrors.Wrap(ferrors.ErrCodeToolchainFailed, err, "%s not installed", pdfinfoBin)
	}
	return nil
}

// Inspect examines the PDF at path. Problems are collected in the report
// rather than returned; use [Report.Err] to gate on them.
func (i *Inspector) Inspect(ctx context.Context, path string) Report {
	r := Report{Errors: []string{}, Warnings: []string{}}

	st, err := os.Stat(path)
	if err != nil {
		r.Errors = append(r.Errors, fmt.Sprintf("PDF file not found: %s", path))
		return r
	}
	r.FileSizeMB = float64(st.Size()) / (1024 * 1024)
	if r.FileSizeMB > i.Limits.MaxSizeMB {
		r.Errors = append(r.Errors, fmt.Sprintf("File too large: %.2f MB (max %g MB)", r.FileSizeMB, i.Limits.MaxSizeMB))
	}

	out, err := i.exec.Run(ctx, "", pdfinfoBin, path)
	if err != nil {
		i.Logger.Error("pdfinfo failed", "err", err)
		r.Errors = append(r.Errors, fmt.Sprintf("Could not determine page count: %v", err))
		return r
	}

	info := parsePDFInfo(out)
	if info.pages < 0 {
		r.Errors = append(r.Errors, "Could not determine page count: Pages field not found in pdfinfo output")
	} else {
		r.PageCount = info.pages
		switch {
		case r.PageCount < i.Limits.MinPages && i.Limits.EnforceMinPages:
			r.Errors = append(r.Errors, fmt.Sprintf("Page count too low: %d pages (min %d)", r.PageCount, i.Limits.MinPages))
		case r.PageCount < i.Limits.MinPages:
			r.Warnings = append(r.Warnings, fmt.Sprintf("Page count low: %d pages (min %d recommended)", r.PageCount, i.Limits.MinPages))
		}
		if i.Limits.MaxPages > 0 && r.PageCount > i.Limits.MaxPages {
			r.Errors = append(r.Errors, fmt.Sprintf("Page count too high: %d pages (max %d)", r.PageCount, i.Limits.MaxPages))
		}
	}

	r.Version = info.version
	if !strings.HasPrefix(r.Version, "1.") {
		r.Warnings = append(r.Warnings, fmt.Sprintf("PDF version %s may not be compatible with all POD services", r.Version))
	}

	r.Valid = len(r.Errors) == 0
	i.Logger.Debug("PDF inspected", "pages", r.PageCount, "version", r.Version,
		"size_mb", fmt.Sprintf("%.2f", r.FileSizeMB), "valid", r.Valid)
	return r
}

type pdfInfo struct {
	pages   int // -1 when absent
	version string
}

// parsePDFInfo reads the "Pages:" and "PDF version:" lines of pdfinfo output.
func parsePDFInfo(out []byte) pdfInfo {
	info := pdfInfo{pages: -1, version: "unknown"}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		key, val, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		val = strings.TrimSpace(val)
		switch key {
		case "Pages":
			if n, err := strconv.Atoi(val); err == nil {
				info.pages = n
			}
		case "PDF version":
			info.version = val
		}
	}
	return info
}
