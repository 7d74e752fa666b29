// Package cache stores downloaded artifacts and rendered PDFs between runs.
//
// All backends implement [Cache], a byte-oriented key/value store with TTLs:
//   - [NullCache] disables caching
//   - [FileCache] stores entries under a local directory (CLI use)
//   - [RedisCache] shares entries between worker instances
//
// Keys are produced by a [Keyer] so every caller derives the same key for the
// same input. Rendered PDFs are keyed by the digest of the final LaTeX
// source, which makes a retried run with unchanged input skip the typesetter.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store.
type Cache interface {
	// Get returns the stored value and whether it was found.
	// Expired entries are reported as misses.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A ttl of zero means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the backend.
	Close() error
}

// Default time-to-live values per entry kind.
const (
	TTLArtifact = 24 * time.Hour
	TTLPDF      = 7 * 24 * time.Hour
)

// Keyer derives cache keys.
type Keyer interface {
	// ArtifactKey keys a downloaded artifact by its reference (URL or
	// object key).
	ArtifactKey(ref string) string

	// PDFKey keys a rendered PDF by the digest of its LaTeX source and the
	// typesetting options that affect the output.
	PDFKey(sourceDigest string, opts PDFKeyOpts) string
}

// PDFKeyOpts are the typesetting options that change the rendered PDF.
type PDFKeyOpts struct {
	Engine string `json:"engine"`
	Passes int    `json:"passes"`
}

// DefaultKeyer is the standard [Keyer].
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// ArtifactKey returns "artifact:<sha256(ref)>".
func (DefaultKeyer) ArtifactKey(ref string) string {
	return hashKey("artifact", ref)
}

// PDFKey returns "pdf:<sha256(digest, opts)>".
func (DefaultKeyer) PDFKey(sourceDigest string, opts PDFKeyOpts) string {
	return hashKey("pdf", sourceDigest, opts)
}
