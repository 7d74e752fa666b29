package objstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/matzehuels/folio/pkg/cache"
)

// DefaultPresignExpiry is how long presigned URLs remain valid.
const DefaultPresignExpiry = 24 * time.Hour

// S3Options configures an [S3Store].
type S3Options struct {
	Endpoint        string // host[:port], no scheme
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	Insecure        bool

	// PublicBaseURL, when set, is used to build object URLs. Otherwise URLs
	// are presigned for PresignExpiry.
	PublicBaseURL string
	PresignExpiry time.Duration

	// HashAlgorithm selects the object digest. Defaults to sha256.
	HashAlgorithm cache.Algorithm
}

// S3Store stores objects in an S3-compatible bucket.
type S3Store struct {
	client *minio.Client
	opts   S3Options
}

// R2Endpoint returns the S3 API host for a Cloudflare account.
func R2Endpoint(accountID string) string {
	return accountID + ".r2.cloudflarestorage.com"
}

// NewR2 creates a store for a Cloudflare R2 bucket.
func NewR2(accountID, accessKeyID, secretAccessKey, bucket, publicBaseURL string) (*S3Store, error) {
	if accountID == "" {
		return nil, fmt.Errorf("r2: account ID not set")
	}
	return NewS3(S3Options{
		Endpoint:        R2Endpoint(accountID),
		AccessKeyID:     accessKeyID,
		SecretAccessKey: secretAccessKey,
		Bucket:          bucket,
		Region:          "auto",
		PublicBaseURL:   publicBaseURL,
	})
}

// NewS3 creates a store for an S3-compatible endpoint.
func NewS3(opts S3Options) (*S3Store, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3: bucket not set")
	}
	if opts.PresignExpiry <= 0 {
		opts.PresignExpiry = DefaultPresignExpiry
	}
	if opts.HashAlgorithm == "" {
		opts.HashAlgorithm = cache.SHA256
	}
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: !opts.Insecure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return &S3Store{client: client, opts: opts}, nil
}

// Get implements Store.
func (s *S3Store) Get(ctx context.Context, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.opts.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError(key, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError(key, err)
	}
	return data, nil
}

// Put implements Store. The digest and upload time are stored as object
// metadata.
func (s *S3Store) Put(ctx context.Context, key string, data []byte, contentType string) (Object, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	hash := cache.Digest(s.opts.HashAlgorithm, data)
	_, err := s.client.PutObject(ctx, s.opts.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
		UserMetadata: map[string]string{
			"artifact-hash": hash,
			"uploaded-at":   time.Now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return Object{}, fmt.Errorf("upload %s: %w", key, err)
	}
	u, err := s.URL(ctx, key)
	if err != nil {
		return Object{}, err
	}
	return Object{Key: key, URL: u, Hash: hash, Size: len(data)}, nil
}

// URL implements Store.
func (s *S3Store) URL(ctx context.Context, key string) (string, error) {
	if s.opts.PublicBaseURL != "" {
		return PublicURL(s.opts.PublicBaseURL, key), nil
	}
	u, err := s.client.PresignedGetObject(ctx, s.opts.Bucket, key, s.opts.PresignExpiry, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}
	return u.String(), nil
}

// PublicBaseURL returns the configured public base, if any.
func (s *S3Store) PublicBaseURL() string { return s.opts.PublicBaseURL }

func (s *S3Store) mapError(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchObject":
		return fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fmt.Errorf("download %s: %w", key, err)
}
