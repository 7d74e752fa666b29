package objstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"

	"github.com/matzehuels/folio/pkg/cache"
	ferrors "github.com/matzehuels/folio/pkg/errors"
)

// LocalStore keeps objects as files under a root directory.
type LocalStore struct {
	root          string
	publicBaseURL string
	alg           cache.Algorithm
}

// NewLocal creates a store rooted at dir, creating it if needed.
// publicBaseURL may be empty, in which case URLs are file:// URLs.
func NewLocal(dir, publicBaseURL string, alg cache.Algorithm) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if alg == "" {
		alg = cache.SHA256
	}
	return &LocalStore{root: abs, publicBaseURL: publicBaseURL, alg: alg}, nil
}

// Root returns the store's directory.
func (l *LocalStore) Root() string { return l.root }

func (l *LocalStore) path(key string) (string, error) {
	if err := ferrors.ValidatePath(key); err != nil || !fs.ValidPath(key) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

// Get implements Store.
func (l *LocalStore) Get(_ context.Context, key string) ([]byte, error) {
	p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, err
}

// Put implements Store. contentType is not recorded.
func (l *LocalStore) Put(ctx context.Context, key string, data []byte, _ string) (Object, error) {
	p, err := l.path(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return Object{}, err
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return Object{}, err
	}
	u, _ := l.URL(ctx, key)
	return Object{Key: key, URL: u, Hash: cache.Digest(l.alg, data), Size: len(data)}, nil
}

// URL implements Store.
func (l *LocalStore) URL(_ context.Context, key string) (string, error) {
	if l.publicBaseURL != "" {
		return PublicURL(l.publicBaseURL, key), nil
	}
	p, err := l.path(key)
	if err != nil {
		return "", err
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(p)}).String(), nil
}
