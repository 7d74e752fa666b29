package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// Table names.
const (
	TableServices     = "Services"
	TableServiceTypes = "Service Types"
	TableProjects     = "Projects"
	TableBookMetadata = "Book Metadata"
)

// Field names on the Services table.
const (
	FieldStatus        = "Status"
	FieldStartedAt     = "Started At"
	FieldFinishedAt    = "Finished At"
	FieldWorkerVersion = "Worker Version"
	FieldArtifactURL   = "Artifact URL"
	FieldArtifactKey   = "Artifact Key"
	FieldArtifactType  = "Artifact Type"
	FieldOperatorNotes = "Operator Notes"
	FieldErrorLog      = "Error Log"
	FieldDependencies  = "Dependencies"
	FieldServiceType   = "Service Type"
	FieldProject       = "Project"

	// Service Types
	FieldServiceName = "Service Name"

	// Projects
	FieldBookMetadata = "Book Metadata"

	// Book Metadata
	FieldTrimSize   = "Trim Size"
	FieldAuthorName = "Author Name"
	FieldBookTitle  = "Book Title"

	legacyStatusField = "Statuses"
)

// Status values.
const (
	StatusProcessing = "Processing"
	StatusComplete   = "Complete"
	StatusFailed     = "Failed"
)

const (
	// ManuscriptProcessing is the service type that produces manuscript artifacts.
	ManuscriptProcessing = "Manuscript Processing"

	// ArtifactTypeInteriorPDF is written to Artifact Type on completion.
	ArtifactTypeInteriorPDF = "interior_pdf"
)

// Timestamp formats t the way the record store expects (ISO 8601, UTC offset).
func Timestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000000-07:00")
}

// ClaimFields marks a service as being processed.
func ClaimFields(now time.Time, workerVersion string) Fields {
	return Fields{
		FieldStatus:        StatusProcessing,
		FieldStartedAt:     Timestamp(now),
		FieldWorkerVersion: workerVersion,
	}
}

// RunNotes is the metadata stored in Operator Notes on completion.
type RunNotes struct {
	PageCount       int      `json:"page_count"`
	DurationSeconds float64  `json:"duration_seconds"`
	Degradations    []string `json:"degradations"`
}

// String renders notes as "Interior PDF: " followed by indented JSON.
func (n RunNotes) String() string {
	data, err := json.MarshalIndent(n, "", "  ")
	if err != nil {
		return "Interior PDF: {}"
	}
	return "Interior PDF: " + string(data)
}

// CompleteFields marks a service as complete and records its output.
func CompleteFields(now time.Time, artifactURL, artifactKey string, notes RunNotes) Fields {
	return Fields{
		FieldStatus:        StatusComplete,
		FieldFinishedAt:    Timestamp(now),
		FieldArtifactURL:   artifactURL,
		FieldArtifactKey:   artifactKey,
		FieldArtifactType:  ArtifactTypeInteriorPDF,
		FieldOperatorNotes: notes.String(),
	}
}

// FailFields marks a service as failed with the given message.
func FailFields(now time.Time, message string) Fields {
	return Fields{
		FieldStatus:     StatusFailed,
		FieldFinishedAt: Timestamp(now),
		FieldErrorLog:   message,
	}
}

// =============================================================================
// Services - Lookups Over the Link Graph
// =============================================================================

// BookMetadata holds the formatting fields of a Book Metadata record.
// Empty strings mean the field was not set.
type BookMetadata struct {
	ID         string
	TrimSize   string
	AuthorName string
	BookTitle  string
}

// Services wraps a Store with the lookups a worker needs.
type Services struct {
	Store  Store
	Logger *log.Logger
}

// NewServices creates a Services helper. A nil logger discards output.
func NewServices(s Store, logger *log.Logger) *Services {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Services{Store: s, Logger: logger}
}

// Service fetches a Services record.
func (s *Services) Service(ctx context.Context, id string) (Record, error) {
	return s.Store.Get(ctx, TableServices, id)
}

// Claim sets Status to Processing.
func (s *Services) Claim(ctx context.Context, id, workerVersion string) error {
	return s.update(ctx, id, ClaimFields(time.Now(), workerVersion))
}

// Complete sets Status to Complete and stores the artifact location.
func (s *Services) Complete(ctx context.Context, id, url, key string, notes RunNotes) error {
	return s.update(ctx, id, CompleteFields(time.Now(), url, key, notes))
}

// Fail sets Status to Failed and stores message in Error Log.
func (s *Services) Fail(ctx context.Context, id, message string) error {
	return s.update(ctx, id, FailFields(time.Now(), message))
}

func (s *Services) update(ctx context.Context, id string, fields Fields) error {
	if err := s.Store.Update(ctx, TableServices, id, fields); err != nil {
		return fmt.Errorf("update service %s: %w", id, err)
	}
	s.Logger.Debug("updated service", "id", id, "status", fields[FieldStatus])
	return nil
}

// ManuscriptArtifactURL walks the service's dependencies in order and
// returns the Artifact URL of the first one whose service type is
// Manuscript Processing. Dependencies that cannot be fetched are skipped.
// Returns ok=false if none qualifies.
func (s *Services) ManuscriptArtifactURL(ctx context.Context, service Record) (string, bool, error) {
	deps := service.Fields.Links(FieldDependencies)
	if len(deps) == 0 {
		s.Logger.Warn("service has no dependencies", "id", service.ID)
		return "", false, nil
	}
	for _, depID := range deps {
		dep, err := s.Store.Get(ctx, TableServices, depID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", false, ctxErr
			}
			s.Logger.Warn("could not fetch dependency", "id", depID, "err", err)
			continue
		}
		typeID, ok := dep.Fields.FirstLink(FieldServiceType)
		if !ok {
			continue
		}
		st, err := s.Store.Get(ctx, TableServiceTypes, typeID)
		if err != nil {
			s.Logger.Debug("could not fetch service type", "id", typeID, "err", err)
			continue
		}
		name := st.Fields.String(FieldServiceName)
		s.Logger.Debug("checking dependency", "id", depID, "service_type", name)
		if name != ManuscriptProcessing {
			continue
		}
		if url := dep.Fields.String(FieldArtifactURL); url != "" {
			return url, true, nil
		}
		s.Logger.Warn("manuscript dependency has no artifact URL", "id", depID)
	}
	return "", false, nil
}

// BookMetadata follows Service → Project → Book Metadata. A missing link at
// any step returns ok=false; the caller falls back to defaults.
func (s *Services) BookMetadata(ctx context.Context, service Record) (BookMetadata, bool) {
	projectID, ok := service.Fields.FirstLink(FieldProject)
	if !ok {
		s.Logger.Warn("no project linked to service, using defaults", "id", service.ID)
		return BookMetadata{}, false
	}
	project, err := s.Store.Get(ctx, TableProjects, projectID)
	if err != nil {
		s.Logger.Warn("could not fetch project, using defaults", "id", projectID, "err", err)
		return BookMetadata{}, false
	}
	metaID, ok := project.Fields.FirstLink(FieldBookMetadata)
	if !ok {
		s.Logger.Warn("no book metadata linked to project, using defaults", "id", projectID)
		return BookMetadata{}, false
	}
	meta, err := s.Store.Get(ctx, TableBookMetadata, metaID)
	if err != nil {
		s.Logger.Warn("could not fetch book metadata, using defaults", "id", metaID, "err", err)
		return BookMetadata{}, false
	}
	return BookMetadata{
		ID:         meta.ID,
		TrimSize:   meta.Fields.String(FieldTrimSize),
		AuthorName: meta.Fields.String(FieldAuthorName),
		BookTitle:  meta.Fields.String(FieldBookTitle),
	}, true
}

// IsNotFound reports whether err means the record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
