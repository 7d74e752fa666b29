package objstore

import (
	"fmt"

	"github.com/matzehuels/folio/pkg/cache"
)

// Backend names accepted by [Open].
const (
	BackendR2    = "r2"
	BackendS3    = "s3"
	BackendLocal = "local"
)

// Options selects and configures a backend.
type Options struct {
	Backend string `mapstructure:"backend"`

	// Bucket credentials (r2, s3).
	AccountID       string `mapstructure:"account_id"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Insecure        bool   `mapstructure:"insecure"`

	// Dir is the root of the local backend.
	Dir string `mapstructure:"dir"`

	PublicBaseURL string          `mapstructure:"public_base_url"`
	HashAlgorithm cache.Algorithm `mapstructure:"hash_algorithm"`
}

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendLocal, BackendR2, BackendS3}
}

// Open constructs the backend named by opts.Backend. An empty name selects R2.
func Open(opts Options) (Store, error) {
	alg, err := cache.ParseAlgorithm(string(opts.HashAlgorithm))
	if err != nil {
		return nil, err
	}
	switch opts.Backend {
	case "", BackendR2:
		if opts.AccountID == "" {
			return nil, fmt.Errorf("r2: account ID not set")
		}
		return NewS3(S3Options{
			Endpoint:        R2Endpoint(opts.AccountID),
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Bucket:          opts.Bucket,
			Region:          "auto",
			PublicBaseURL:   opts.PublicBaseURL,
			HashAlgorithm:   alg,
		})
	case BackendS3:
		if opts.Endpoint == "" {
			return nil, fmt.Errorf("s3: endpoint not set")
		}
		return NewS3(S3Options{
			Endpoint:        opts.Endpoint,
			AccessKeyID:     opts.AccessKeyID,
			SecretAccessKey: opts.SecretAccessKey,
			Bucket:          opts.Bucket,
			Region:          opts.Region,
			Insecure:        opts.Insecure,
			PublicBaseURL:   opts.PublicBaseURL,
			HashAlgorithm:   alg,
		})
	case BackendLocal:
		if opts.Dir == "" {
			return nil, fmt.Errorf("local: dir not set")
		}
		return NewLocal(opts.Dir, opts.PublicBaseURL, alg)
	default:
		return nil, fmt.Errorf("unknown object store backend %q (want one of %v)", opts.Backend, Backends())
	}
}
