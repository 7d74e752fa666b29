package cache

// ScopedKeyer wraps a Keyer with a prefix so several deployments can share
// one Redis instance without colliding.
//
// Example usage:
//
//	staging := NewScopedKeyer(NewDefaultKeyer(), "folio:staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer with a prefix.
// The prefix is prepended to all generated keys.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// ArtifactKey generates a prefixed key for downloaded artifacts.
func (k *ScopedKeyer) ArtifactKey(ref string) string {
	return k.prefix + k.inner.ArtifactKey(ref)
}

// PDFKey generates a prefixed key for rendered PDFs.
func (k *ScopedKeyer) PDFKey(sourceDigest string, opts PDFKeyOpts) string {
	return k.prefix + k.inner.PDFKey(sourceDigest, opts)
}
