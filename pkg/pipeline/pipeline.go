// Package pipeline turns a Services work item into an uploaded interior PDF.
//
// This package implements the complete fetch → convert → typeset → inspect →
// upload flow that is shared by the CLI and the HTTP worker. By centralizing
// this logic, every entry point claims, completes and fails records the same
// way.
//
// # Architecture
//
// A run consists of these stages:
//
//  1. Fetch: Load the service, claim it, resolve the manuscript dependency
//     and the book metadata, and download the artifact
//  2. Convert: Validate against the schema, evaluate the warning policy and
//     assemble the LaTeX document ([Converter])
//  3. Typeset: Run the LaTeX engine (skipped on a PDF cache hit)
//  4. Inspect: Check the PDF against the print limits
//  5. Upload: Store the PDF and record its location on the service
//
// Any failure marks the service Failed and is returned in the [Result].
//
// # Usage
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	runner.Services = store.NewServices(records, logger)
//	runner.Objects = objects
//	result := runner.Process(ctx, "recXXXXXXXXXXXXXX")
//	if !result.Success {
//	    log.Error(result.Error)
//	}
//
// Convert a local manuscript without a record store:
//
//	conv, err := runner.Converter.Convert(data, latex.DefaultParams())
package pipeline

import (
	"os"
	"path/filepath"

	"github.com/matzehuels/folio/pkg/buildinfo"
	"github.com/matzehuels/folio/pkg/cache"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/policy"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// WorkerName identifies this worker in health checks.
	WorkerName = "worker_2_interior_formatter"

	// PDFName and SourceArchiveName are the object names under a service's
	// key prefix.
	PDFName           = "interior.pdf"
	SourceArchiveName = "interior.tex.xz"
)

// ServicePrefix returns the object key prefix for a service.
func ServicePrefix(serviceID string) string {
	return "services/" + serviceID + "/"
}

// DefaultWorkDir returns the directory for per-run work files.
func DefaultWorkDir() string {
	return filepath.Join(os.TempDir(), "folio")
}

// =============================================================================
// Options - Runner Configuration
// =============================================================================

// Options configures a [Runner].
type Options struct {
	// WorkDir holds <run-id>.tex and <run-id>.pdf while a run is active.
	WorkDir string `mapstructure:"work_dir"`

	// WorkerVersion is written to the Worker Version field on claim.
	WorkerVersion string `mapstructure:"worker_version"`

	// PublicBaseURL lets artifact URLs under the object store's public base
	// be read through the object store instead of over HTTP.
	PublicBaseURL string `mapstructure:"public_base_url"`

	// ArchiveSource uploads the final LaTeX source xz-compressed next to
	// the PDF.
	ArchiveSource bool `mapstructure:"archive_source"`

	// KeepWorkFiles skips cleanup of the work directory.
	KeepWorkFiles bool `mapstructure:"keep_work_files"`

	// Refresh bypasses cache reads; results are still written.
	Refresh bool `mapstructure:"refresh"`

	// HashAlgorithm is used for content digests.
	HashAlgorithm cache.Algorithm `mapstructure:"hash_algorithm"`

	// Defaults are merged under the parameters read from Book Metadata.
	Defaults latex.Params `mapstructure:"defaults"`
}

// SetDefaults fills unset options.
func (o *Options) SetDefaults() {
	if o.WorkDir == "" {
		o.WorkDir = DefaultWorkDir()
	}
	if o.WorkerVersion == "" {
		o.WorkerVersion = buildinfo.Version
	}
	if o.HashAlgorithm == "" {
		o.HashAlgorithm = cache.SHA256
	}
	o.Defaults = o.Defaults.WithDefaults()
}

// =============================================================================
// Result
// =============================================================================

// Result is the outcome of one processing run. It is serialized as the
// response body of the HTTP worker and printed by the CLI.
type Result struct {
	Success         bool          `json:"success"`
	ServiceID       string        `json:"service_id"`
	RunID           string        `json:"run_id"`
	PDFURL          string        `json:"pdf_url,omitempty"`
	PDFKey          string        `json:"pdf_key,omitempty"`
	SourceKey       string        `json:"source_key,omitempty"`
	ContentHash     string        `json:"content_hash,omitempty"`
	PageCount       int           `json:"page_count,omitempty"`
	DurationSeconds float64       `json:"duration_seconds"`
	Warnings        []string      `json:"warnings,omitempty"`
	PDFWarnings     []string      `json:"pdf_warnings,omitempty"`
	Decision        policy.Action `json:"decision,omitempty"`
	Error           string        `json:"error,omitempty"`
	ErrorCode       string        `json:"error_code,omitempty"`

	// CacheHit reports whether the PDF came from the cache.
	CacheHit bool `json:"cache_hit,omitempty"`
}
