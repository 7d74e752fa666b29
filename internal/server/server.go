// Package server exposes the pipeline as an HTTP worker.
//
// Routes:
//
//	GET  /health   liveness and version
//	POST /process  {"service_id": "rec..."} → pipeline result
//
// /process runs synchronously: the response is sent when the run has
// finished, with 200 on success and 500 on failure. The body is the
// pipeline result in both cases.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/folio/pkg/buildinfo"
	"github.com/matzehuels/folio/pkg/pipeline"
)

// maxBodyBytes bounds /process request bodies.
const maxBodyBytes = 64 << 10

// Processor runs one service through the pipeline.
type Processor interface {
	Process(ctx context.Context, serviceID string) *pipeline.Result
}

// Options configures a [Server].
type Options struct {
	// Version is reported by /health. Defaults to buildinfo.Version.
	Version string

	// MaxConcurrent bounds simultaneous runs; excess requests get 503.
	// Zero means no limit.
	MaxConcurrent int
}

// Server routes HTTP requests to a Processor.
type Server struct {
	proc    Processor
	logger  *log.Logger
	version string
	slots   chan struct{}
	router  chi.Router
}

// New creates a server. A nil logger discards output.
func New(proc Processor, logger *log.Logger, opts Options) *Server {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if opts.Version == "" {
		opts.Version = buildinfo.Version
	}
	s := &Server{proc: proc, logger: logger, version: opts.Version}
	if opts.MaxConcurrent > 0 {
		s.slots = make(chan struct{}, opts.MaxConcurrent)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/process", s.handleProcess)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down,
// giving in-flight runs up to shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string, shutdownTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr, "version", s.version)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "timeout", shutdownTimeout)
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "healthy",
		Service: pipeline.WorkerName,
		Version: s.version,
	})
}

type processRequest struct {
	ServiceID string `json:"service_id"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid JSON body: " + err.Error()})
		return
	}
	if strings.TrimSpace(req.ServiceID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing service_id in request body"})
		return
	}

	if s.slots != nil {
		select {
		case s.slots <- struct{}{}:
			defer func() { <-s.slots }()
		default:
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Worker busy, retry later"})
			return
		}
	}

	s.logger.Info("processing service", "service", req.ServiceID, "request_id", middleware.GetReqID(r.Context()))
	res := s.proc.Process(r.Context(), req.ServiceID)

	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, res)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// logRequests logs one line per request with status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start).Round(time.Millisecond),
				"request_id", middleware.GetReqID(r.Context()))
		}()
		next.ServeHTTP(ww, r)
	})
}
