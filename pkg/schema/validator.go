package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	ferrors "github.com/matzehuels/folio/pkg/errors"
)

// FieldError is one validation failure. Path is a dotted instance path such
// as "content.blocks.0.type", or "root" for the document itself.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Result is the outcome of validating one document.
type Result struct {
	Valid  bool         `json:"valid"`
	Errors []FieldError `json:"errors"`
}

// maxSummaryErrors bounds how many failures Summary spells out.
const maxSummaryErrors = 5

// Summary renders the result as a short human-readable report.
func (r Result) Summary() string {
	if r.Valid {
		return "valid"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d validation error(s)", len(r.Errors))
	for i, e := range r.Errors {
		if i == maxSummaryErrors {
			fmt.Fprintf(&b, "; ... and %d more", len(r.Errors)-maxSummaryErrors)
			break
		}
		fmt.Fprintf(&b, "; %s: %s", e.Path, e.Message)
	}
	return b.String()
}

// Err returns nil for a valid result and a SCHEMA_INVALID error otherwise.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return ferrors.New(ferrors.ErrCodeSchemaInvalid, "%s", r.Summary())
}

func invalid(path, format string, args ...any) Result {
	return Result{Errors: []FieldError{{Path: path, Message: fmt.Sprintf(format, args...)}}}
}

// Validator checks artifacts against the schemas of a [Registry].
type Validator struct {
	registry *Registry
}

// NewValidator creates a validator backed by registry.
func NewValidator(registry *Registry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks that doc carries an artifact type and schema version, that
// both equal the expected values when those are not empty, and that doc
// conforms to the registered schema for its type and version.
//
// Every failure, including a missing schema, is reported in the same
// FieldError shape.
func (v *Validator) Validate(doc map[string]any, expectedType, expectedVersion string) Result {
	artifactType, ok := tagValue(doc, "artifact_type")
	if !ok {
		return invalid("artifact_type", "Missing required field 'artifact_type'")
	}
	version, ok := tagValue(doc, "schema_version")
	if !ok {
		return invalid("schema_version", "Missing required field 'schema_version'")
	}
	if expectedType != "" && artifactType != expectedType {
		return invalid("artifact_type", "Expected artifact_type '%s', got '%s'", expectedType, artifactType)
	}
	if expectedVersion != "" && version != expectedVersion {
		return invalid("schema_version", "Expected schema_version '%s', got '%s'", expectedVersion, version)
	}

	s, err := v.registry.Get(artifactType, version)
	if err != nil {
		return invalid("schema", "Schema not found: %v", err)
	}

	if err := s.Validate(map[string]any(doc)); err != nil {
		var ve *jsonschema.ValidationError
		if !errors.As(err, &ve) {
			return invalid("root", "%v", err)
		}
		return Result{Errors: leafErrors(ve)}
	}
	return Result{Valid: true, Errors: []FieldError{}}
}

// ValidateJSON decodes data and validates it. Malformed JSON is reported at
// the root path.
func (v *Validator) ValidateJSON(data []byte, expectedType, expectedVersion string) Result {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return invalid("root", "invalid JSON: %v", err)
	}
	return v.Validate(doc, expectedType, expectedVersion)
}

// tagValue reads a string tag. Absent, null or empty values count as missing;
// other scalar types are stringified so the mismatch check reports them.
func tagValue(doc map[string]any, field string) (string, bool) {
	raw, ok := doc[field]
	if !ok || raw == nil {
		return "", false
	}
	if s, isString := raw.(string); isString {
		return s, s != ""
	}
	return fmt.Sprint(raw), true
}

// leafErrors flattens a validation error tree into its leaf failures,
// ordered by instance path.
func leafErrors(ve *jsonschema.ValidationError) []FieldError {
	var out []FieldError
	var walk func(e *jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			out = append(out, FieldError{Path: dottedPath(e.InstanceLocation), Message: e.Message})
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	slices.SortStableFunc(out, func(a, b FieldError) int {
		return strings.Compare(a.Path, b.Path)
	})
	return slices.CompactFunc(out, func(a, b FieldError) bool { return a == b })
}

// dottedPath converts a JSON pointer ("/content/blocks/0") to dotted form.
func dottedPath(pointer string) string {
	pointer = strings.TrimPrefix(pointer, "/")
	if pointer == "" {
		return "root"
	}
	parts := strings.Split(pointer, "/")
	for i, p := range parts {
		p = strings.ReplaceAll(p, "~1", "/")
		parts[i] = strings.ReplaceAll(p, "~0", "~")
	}
	return strings.Join(parts, ".")
}
