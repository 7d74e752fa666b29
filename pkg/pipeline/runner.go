package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/matzehuels/folio/pkg/cache"
	ferrors "github.com/matzehuels/folio/pkg/errors"
	"github.com/matzehuels/folio/pkg/httputil"
	"github.com/matzehuels/folio/pkg/latex"
	"github.com/matzehuels/folio/pkg/objstore"
	"github.com/matzehuels/folio/pkg/observability"
	"github.com/matzehuels/folio/pkg/store"
	"github.com/matzehuels/folio/pkg/toolchain"
)

// Stage names reported to observability hooks.
const (
	StageFetch    = "fetch"
	StageConvert  = "convert"
	StageTypeset  = "typeset"
	StageInspect  = "inspect"
	StageUpload   = "upload"
	StageComplete = "complete"
)

// Typesetter compiles a LaTeX file to PDF.
type Typesetter interface {
	Typeset(ctx context.Context, texFile, outDir, jobName string) (string, error)
}

// Inspector checks a produced PDF against print limits.
type Inspector interface {
	Inspect(ctx context.Context, path string) toolchain.Report
}

// failTimeout bounds the Failed write after the run's context is done.
const failTimeout = 10 * time.Second

// Runner encapsulates pipeline execution with caching.
// Both CLI and HTTP worker use this to avoid duplicating the run lifecycle.
//
// The Runner is stateless except for its collaborators and cache - it
// doesn't store run results. Multiple goroutines can safely call Process
// on the same Runner; each run gets its own ID and work files.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	Services   *store.Services
	Objects    objstore.Store
	Converter  *Converter
	Typesetter Typesetter
	Inspector  Inspector
	Options    Options

	// download fetches foreign artifact URLs. Replaced in tests.
	download func(ctx context.Context, url string) ([]byte, error)
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
//
// The converter, typesetter and inspector get their defaults; Services and
// Objects must be set before calling Process.
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) (*Runner, error) {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	conv, err := DefaultConverter(logger)
	if err != nil {
		return nil, err
	}
	r := &Runner{
		Cache:      c,
		Keyer:      keyer,
		Logger:     logger,
		Converter:  conv,
		Typesetter: toolchain.NewTypesetter(logger),
		Inspector:  toolchain.NewInspector(toolchain.DefaultLimits(), logger),
		download:   httpDownload,
	}
	r.Options.SetDefaults()
	return r, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// =============================================================================
// Process - Full Service Lifecycle
// =============================================================================

// run carries the state of one Process call.
type run struct {
	id        string
	serviceID string
	started   time.Time
	logger    *log.Logger
	result    *Result
	files     []string

	// noRecord is set when the service record does not exist, so there is
	// nothing to mark Failed.
	noRecord bool
}

// Process converts the manuscript of a Services record into an interior PDF,
// uploads it and marks the record Complete. On any fatal error the record is
// marked Failed and the result carries the error and its code; Process
// itself never returns an error.
func (r *Runner) Process(ctx context.Context, serviceID string) *Result {
	rn := &run{
		id:        uuid.NewString(),
		serviceID: serviceID,
		started:   time.Now(),
	}
	rn.logger = r.Logger.With("run_id", rn.id, "service", serviceID)
	rn.result = &Result{ServiceID: serviceID, RunID: rn.id}
	rn.logger.Info("starting run")

	err := r.process(ctx, rn)
	if !r.Options.KeepWorkFiles {
		r.cleanup(rn)
	}
	rn.result.DurationSeconds = time.Since(rn.started).Seconds()
	observability.Pipeline().OnRunComplete(ctx, serviceID, rn.result.PageCount, time.Since(rn.started), err)

	if err != nil {
		r.fail(ctx, rn, err)
		return rn.result
	}
	rn.result.Success = true
	rn.logger.Info("run complete", "pages", rn.result.PageCount, "url", rn.result.PDFURL,
		"duration", time.Since(rn.started).Round(time.Millisecond))
	return rn.result
}

func (r *Runner) process(ctx context.Context, rn *run) error {
	if r.Services == nil || r.Objects == nil {
		return ferrors.New(ferrors.ErrCodeInvalidConfig, "runner has no record store or object store")
	}
	if err := ferrors.ValidateServiceID(rn.serviceID); err != nil {
		return err
	}
	opts := r.Options
	opts.SetDefaults()

	// Stage 1: Fetch
	var (
		data   []byte
		params latex.Params
	)
	err := r.stage(ctx, rn, StageFetch, func() error {
		service, err := r.Services.Service(ctx, rn.serviceID)
		if store.IsNotFound(err) {
			rn.noRecord = true
			return ferrors.New(ferrors.ErrCodeInputAbsent, "Service %s not found", rn.serviceID)
		}
		if err != nil {
			return ferrors.Wrap(ferrors.ErrCodeStorage, err, "fetch service %s", rn.serviceID)
		}

		if err := r.Services.Claim(ctx, rn.serviceID, opts.WorkerVersion); err != nil {
			rn.logger.Warn("could not claim service", "err", err)
		} else {
			rn.logger.Info("claimed service", "status", store.StatusProcessing)
		}

		url, ok, err := r.Services.ManuscriptArtifactURL(ctx, service)
		if err != nil {
			return ferrors.Wrap(ferrors.ErrCodeStorage, err, "resolve dependencies")
		}
		if !ok {
			return ferrors.New(ferrors.ErrCodeInputAbsent, "Could not find manuscript artifact from %s dependency", store.ManuscriptProcessing)
		}
		rn.logger.Info("found manuscript artifact", "url", url)

		params = r.params(ctx, service, opts.Defaults)
		rn.logger.Debug("formatting parameters", "trim_size", params.TrimSize, "title", params.BookTitle)

		data, err = r.fetchArtifact(ctx, url, opts)
		return err
	})
	if err != nil {
		return err
	}

	// Stage 2: Convert
	var conv *Conversion
	err = r.stage(ctx, rn, StageConvert, func() error {
		var err error
		conv, err = r.Converter.Convert(data, params)
		if conv != nil && conv.Decision.Action != "" {
			rn.result.Decision = conv.Decision.Action
			observability.Pipeline().OnDecision(ctx, rn.serviceID, string(conv.Decision.Action), len(conv.Decision.Degradations))
		}
		return err
	})
	if err != nil {
		return err
	}
	rn.result.Warnings = conv.Decision.Degradations

	// Stage 3: Typeset
	var pdfPath string
	err = r.stage(ctx, rn, StageTypeset, func() error {
		var err error
		pdfPath, rn.result.CacheHit, err = r.Render(ctx, conv.Source, opts.WorkDir, rn.id)
		rn.files = append(rn.files,
			filepath.Join(opts.WorkDir, rn.id+".tex"),
			filepath.Join(opts.WorkDir, rn.id+".pdf"))
		return err
	})
	if err != nil {
		return err
	}

	// Stage 4: Inspect
	err = r.stage(ctx, rn, StageInspect, func() error {
		report := r.Inspector.Inspect(ctx, pdfPath)
		rn.result.PageCount = report.PageCount
		rn.result.PDFWarnings = report.Warnings
		for _, w := range report.Warnings {
			rn.logger.Warn("PDF check", "warning", w)
		}
		return report.Err()
	})
	if err != nil {
		return err
	}

	// Stage 5: Upload
	err = r.stage(ctx, rn, StageUpload, func() error {
		pdf, err := os.ReadFile(pdfPath)
		if err != nil {
			return ferrors.Wrap(ferrors.ErrCodeInternal, err, "read PDF")
		}
		key := ServicePrefix(rn.serviceID) + PDFName
		obj, err := r.Objects.Put(ctx, key, pdf, objstore.ContentTypePDF)
		if err != nil {
			return ferrors.Wrap(ferrors.ErrCodeStorage, err, "upload PDF")
		}
		rn.result.PDFKey = obj.Key
		rn.result.PDFURL = obj.URL
		rn.result.ContentHash = obj.Hash
		rn.logger.Info("PDF uploaded", "key", obj.Key, "bytes", obj.Size, "hash", obj.Hash)

		if opts.ArchiveSource {
			if err := r.archiveSource(ctx, rn, conv.Source); err != nil {
				rn.logger.Warn("could not archive LaTeX source", "err", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Stage 6: Complete
	return r.stage(ctx, rn, StageComplete, func() error {
		notes := store.RunNotes{
			PageCount:       rn.result.PageCount,
			DurationSeconds: time.Since(rn.started).Seconds(),
			Degradations:    conv.Decision.Degradations,
		}
		if err := r.Services.Complete(ctx, rn.serviceID, rn.result.PDFURL, rn.result.PDFKey, notes); err != nil {
			return ferrors.Wrap(ferrors.ErrCodeStorage, err, "mark service complete")
		}
		rn.logger.Info("service updated", "status", store.StatusComplete)
		return nil
	})
}

// stage runs fn between observability hooks.
func (r *Runner) stage(ctx context.Context, rn *run, name string, fn func() error) error {
	hooks := observability.Pipeline()
	hooks.OnStageStart(ctx, rn.serviceID, name)
	start := time.Now()
	err := fn()
	hooks.OnStageComplete(ctx, rn.serviceID, name, time.Since(start), err)
	if err == nil {
		rn.logger.Debug("stage complete", "stage", name, "duration", time.Since(start).Round(time.Millisecond))
	}
	return err
}

// params builds formatting parameters from the linked Book Metadata,
// falling back to defaults for any missing link or blank field.
func (r *Runner) params(ctx context.Context, service store.Record, defaults latex.Params) latex.Params {
	p := defaults
	meta, ok := r.Services.BookMetadata(ctx, service)
	if !ok {
		return p
	}
	if meta.TrimSize != "" {
		p.TrimSize = meta.TrimSize
	}
	if meta.AuthorName != "" {
		p.AuthorName = meta.AuthorName
	}
	if meta.BookTitle != "" {
		p.BookTitle = meta.BookTitle
	}
	return p
}

// fetchArtifact loads the manuscript at ref through the artifact cache,
// reading from the object store when ref lies under its public base.
func (r *Runner) fetchArtifact(ctx context.Context, ref string, opts Options) ([]byte, error) {
	key := r.Keyer.ArtifactKey(ref)
	c := cache.Instrument(r.Cache, "artifact")
	if !opts.Refresh {
		if data, hit, err := c.Get(ctx, key); err == nil && hit {
			r.Logger.Debug("artifact cache hit", "ref", ref)
			return data, nil
		}
	}

	var (
		data []byte
		err  error
	)
	if objKey, ok := objstore.KeyFromRef(opts.PublicBaseURL, ref); ok {
		data, err = r.Objects.Get(ctx, objKey)
	} else {
		if verr := ferrors.ValidateURL(ref); verr != nil {
			return nil, ferrors.Wrap(ferrors.ErrCodeInvalidInput, verr, "Invalid artifact URL %s", ref)
		}
		data, err = r.download(ctx, ref)
	}
	if errors.Is(err, objstore.ErrNotFound) || errors.Is(err, httputil.ErrNotFound) {
		return nil, ferrors.Wrap(ferrors.ErrCodeInputAbsent, err, "Could not download artifact from %s", ref)
	}
	if err != nil {
		return nil, ferrors.Wrap(ferrors.ErrCodeNetwork, err, "Could not download artifact from %s", ref)
	}

	_ = c.Set(ctx, key, data, cache.TTLArtifact)
	return data, nil
}

func httpDownload(ctx context.Context, url string) ([]byte, error) {
	var raw json.RawMessage
	if err := httputil.NewClient(url, nil).Get(ctx, "", &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Render writes source to <workDir>/<jobName>.tex and produces
// <workDir>/<jobName>.pdf, serving the PDF from the cache when the same
// source was typeset before. It reports whether the cache was hit.
func (r *Runner) Render(ctx context.Context, source, workDir, jobName string) (string, bool, error) {
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return "", false, ferrors.Wrap(ferrors.ErrCodeInternal, err, "create work directory")
	}
	texPath := filepath.Join(workDir, jobName+".tex")
	pdfPath := filepath.Join(workDir, jobName+".pdf")
	if err := os.WriteFile(texPath, []byte(source), 0o644); err != nil {
		return "", false, ferrors.Wrap(ferrors.ErrCodeInternal, err, "write LaTeX source")
	}

	digest := cache.Digest(r.Options.HashAlgorithm, []byte(source))
	key := r.Keyer.PDFKey(digest, r.pdfKeyOpts())
	c := cache.Instrument(r.Cache, "pdf")

	if !r.Options.Refresh {
		if pdf, hit, err := c.Get(ctx, key); err == nil && hit {
			if err := os.WriteFile(pdfPath, pdf, 0o644); err == nil {
				r.Logger.Debug("PDF cache hit", "digest", digest)
				return pdfPath, true, nil
			}
		}
	}

	out, err := r.Typesetter.Typeset(ctx, texPath, workDir, jobName)
	if err != nil {
		return "", false, err
	}
	if pdf, err := os.ReadFile(out); err == nil {
		_ = c.Set(ctx, key, pdf, cache.TTLPDF)
	}
	return out, false, nil
}

func (r *Runner) pdfKeyOpts() cache.PDFKeyOpts {
	if ts, ok := r.Typesetter.(*toolchain.Typesetter); ok {
		return cache.PDFKeyOpts{Engine: ts.Engine, Passes: ts.Passes}
	}
	return cache.PDFKeyOpts{}
}

// archiveSource uploads the xz-compressed LaTeX source.
func (r *Runner) archiveSource(ctx context.Context, rn *run, source string) error {
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return err
	}
	if _, err := w.Write([]byte(source)); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	obj, err := r.Objects.Put(ctx, ServicePrefix(rn.serviceID)+SourceArchiveName, buf.Bytes(), objstore.ContentTypeXZ)
	if err != nil {
		return err
	}
	rn.result.SourceKey = obj.Key
	rn.logger.Debug("LaTeX source archived", "key", obj.Key, "bytes", obj.Size)
	return nil
}

// fail records err on the result and marks the service Failed. The write is
// attempted even when ctx is already cancelled, and skipped when the service
// record does not exist.
func (r *Runner) fail(ctx context.Context, rn *run, err error) {
	msg := failureMessage(err)
	rn.result.Success = false
	rn.result.Error = msg
	rn.result.ErrorCode = string(ferrors.CodeOr(err, ferrors.ErrCodeInternal))
	rn.logger.Error("run failed", "code", rn.result.ErrorCode, "err", msg)

	if r.Services == nil || rn.noRecord || ferrors.ValidateServiceID(rn.serviceID) != nil {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failTimeout)
	defer cancel()
	if ferr := r.Services.Fail(wctx, rn.serviceID, msg); ferr != nil {
		rn.logger.Error("could not mark service failed", "err", ferr)
		return
	}
	rn.logger.Info("service updated", "status", store.StatusFailed)
}

func (r *Runner) cleanup(rn *run) {
	for _, f := range rn.files {
		if err := os.Remove(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			rn.logger.Debug("could not remove work file", "path", f, "err", err)
		}
	}
}

// failureMessage renders err for the Error Log field: the message and its
// cause, without the code prefix.
func failureMessage(err error) string {
	var e *ferrors.Error
	if errors.As(err, &e) {
		if e.Cause != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Cause)
		}
		return e.Message
	}
	return err.Error()
}
