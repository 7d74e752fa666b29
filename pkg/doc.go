// Package pkg provides the core libraries of Folio, the interior formatter
// that turns structured manuscripts into print-ready book PDFs.
//
// # Overview
//
// A manuscript arrives as a JSON artifact: an ordered list of typed blocks
// with inline marks, plus the analysis warnings the upstream stage recorded.
// Folio validates it, decides from the warnings whether to proceed, degrade
// or fail, renders LaTeX and typesets it with xelatex. The resulting PDF is
// checked against print-on-demand limits before it is uploaded.
//
// # Architecture
//
// The typical data flow through a processing run:
//
//	Service record (record store)
//	         ↓
//	    [store] package (claim, locate the manuscript dependency)
//	         ↓
//	    [objstore] / [cache] (download the manuscript artifact)
//	         ↓
//	    [schema] + [policy] (validate, decide PROCEED / DEGRADE / FAIL)
//	         ↓
//	    [latex] package (mark overlay, block rendering, preamble)
//	         ↓
//	    [toolchain] package (xelatex, pdfinfo quality gate)
//	         ↓
//	    [objstore] upload + [store] completion
//
// [pipeline] wires these stages together and is shared by the CLI and the
// HTTP worker.
//
// # Main Packages
//
// ## Domain
//
// [manuscript] - Block, mark and warning types; JSON decoding and mark
// range checks.
//
// [latex] - Escaping, the inline mark overlay, per-block rendering and the
// document assembler with trim size presets.
//
// [policy] - Warning rules mapping analysis warnings to an action, plus the
// PDF quality thresholds.
//
// [schema] - Embedded JSON Schemas and the validator that checks artifacts
// before they are used.
//
// ## Infrastructure
//
// [store] - Record stores for service records: Airtable, MongoDB, PostgreSQL,
// SQLite and an in-memory store for tests.
//
// [objstore] - Content-addressed artifact storage on R2/S3 or a local
// directory.
//
// [toolchain] - Wrappers around xelatex and pdfinfo.
//
// [cache] - File, Redis and null caches for downloaded artifacts and rendered
// PDFs.
//
// [httputil] - JSON HTTP client with retries.
//
// [errors] - Error codes attached to every failure reported to the record
// store.
//
// [observability] - Hooks for metrics and tracing.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...            # All tests
//	go test -short ./pkg/...     # Skip xelatex and pdfinfo runs
//	go test ./pkg/latex/...      # Specific package
//
// [manuscript]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/manuscript
// [latex]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/latex
// [policy]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/policy
// [schema]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/schema
// [store]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/store
// [objstore]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/objstore
// [toolchain]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/toolchain
// [cache]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/cache
// [httputil]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/httputil
// [errors]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/observability
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/folio/pkg/pipeline
package pkg
