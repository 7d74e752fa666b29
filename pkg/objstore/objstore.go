// Package objstore uploads and downloads artifacts by key.
//
// Two backends implement [Store]:
//   - [S3Store] talks to any S3-compatible service; [NewR2] points it at
//     Cloudflare R2
//   - [LocalStore] keeps objects under a directory (CLI and tests)
//
// Every uploaded object is hashed; [Object.Hash] is "<alg>:<hex>".
package objstore

import (
	"context"
	"errors"
	"strings"

	"github.com/matzehuels/folio/pkg/cache"
)

// Content types used by the worker.
const (
	ContentTypePDF  = "application/pdf"
	ContentTypeJSON = "application/json"
	ContentTypeXZ   = "application/x-xz"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("object not found")

// Object describes an uploaded object.
type Object struct {
	Key  string `json:"key"`
	URL  string `json:"url"`
	Hash string `json:"hash"`
	Size int    `json:"size"`
}

// Store uploads, downloads and addresses objects.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) (Object, error)

	// URL returns an address a reader can fetch key from: the public URL
	// when a public base is configured, otherwise a presigned or local URL.
	URL(ctx context.Context, key string) (string, error)
}

// PutJSON uploads v in canonical form (sorted keys, compact) so that equal
// values always produce equal hashes.
func PutJSON(ctx context.Context, s Store, key string, v any) (Object, error) {
	data, err := cache.CanonicalJSON(v)
	if err != nil {
		return Object{}, err
	}
	return s.Put(ctx, key, data, ContentTypeJSON)
}

// KeyFromRef converts a reference into an object key. A reference under
// publicBase has the base stripped; anything else that is not an absolute
// URL is returned as-is. ok is false for foreign URLs.
func KeyFromRef(publicBase, ref string) (string, bool) {
	if publicBase != "" {
		base := strings.TrimRight(publicBase, "/") + "/"
		if key, found := strings.CutPrefix(ref, base); found {
			return key, key != ""
		}
	}
	if strings.Contains(ref, "://") {
		return "", false
	}
	key := strings.TrimLeft(ref, "/")
	return key, key != ""
}

// PublicURL joins base and key. Empty base yields "".
func PublicURL(base, key string) string {
	if base == "" {
		return ""
	}
	return strings.TrimRight(base, "/") + "/" + key
}
