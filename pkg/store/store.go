// Package store reads and updates work-item records.
//
// Records are addressed by table and ID and carry a free-form field map,
// mirroring the shape of the Airtable base that drives the worker:
//
//	Services       the work items (one per processing job)
//	Service Types  named kinds of service ("Manuscript Processing", ...)
//	Projects       groups services and links to book metadata
//	Book Metadata  trim size, author and title for a book
//
// Several backends implement [Store]: an in-memory map for tests and local
// runs, the Airtable REST API, MongoDB, PostgreSQL (JSONB) and SQLite.
// Use [Open] to construct one from [Options].
package store

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrLegacyField is returned when an update names the legacy plural
	// "Statuses" field. Only "Status" is written.
	ErrLegacyField = errors.New("legacy field not writable")
)

// Fields is a record's field map.
type Fields map[string]any

// Record is a single row of a table.
type Record struct {
	ID     string
	Fields Fields
}

// Store reads and updates records.
type Store interface {
	// Get returns the record or ErrNotFound.
	Get(ctx context.Context, table, id string) (Record, error)

	// Update merges fields into an existing record. Fields not named are
	// left untouched. Returns ErrNotFound if the record does not exist.
	Update(ctx context.Context, table, id string, fields Fields) error

	Close() error
}

// Putter is implemented by backends that can create records directly.
// The Airtable backend does not; records there are created by operators.
type Putter interface {
	Put(ctx context.Context, table string, rec Record) error
}

// CheckFields rejects updates that would write non-canonical fields.
func CheckFields(fields Fields) error {
	if _, ok := fields[legacyStatusField]; ok {
		return fmt.Errorf("%w: %q", ErrLegacyField, legacyStatusField)
	}
	return nil
}

// String returns the field as a string, or "" when absent or not a string.
func (f Fields) String(key string) string {
	s, _ := f[key].(string)
	return s
}

// Links returns a linked-record field as a list of record IDs.
// Airtable returns links as JSON arrays; a bare string is treated as a
// single link.
func (f Fields) Links(key string) []string {
	switch v := f[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, x := range v {
			if s, ok := x.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// FirstLink returns the first linked ID, if any.
func (f Fields) FirstLink(key string) (string, bool) {
	links := f.Links(key)
	if len(links) == 0 {
		return "", false
	}
	return links[0], true
}

// Clone returns a shallow copy of the field map.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	return maps.Clone(f)
}
