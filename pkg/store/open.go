package store

import (
	"context"
	"fmt"
)

// Backend names accepted by [Open].
const (
	BackendMemory   = "memory"
	BackendAirtable = "airtable"
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Options selects and configures a backend.
type Options struct {
	Backend string `mapstructure:"backend"`

	// DSN is the connection string (postgres, mongo) or file path (sqlite).
	DSN string `mapstructure:"dsn"`

	// Database is the MongoDB database name.
	Database string `mapstructure:"database"`

	// Airtable settings.
	AirtableToken  string `mapstructure:"airtable_token"`
	AirtableBaseID string `mapstructure:"airtable_base_id"`
	AirtableURL    string `mapstructure:"airtable_url"`
}

// Backends lists the supported backend names.
func Backends() []string {
	return []string{BackendAirtable, BackendMemory, BackendMongo, BackendPostgres, BackendSQLite}
}

// Open constructs the backend named by opts.Backend. An empty name selects
// Airtable.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", BackendAirtable:
		return NewAirtableStore(opts.AirtableURL, opts.AirtableBaseID, opts.AirtableToken)
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendMongo:
		if opts.DSN == "" {
			return nil, fmt.Errorf("store %s: dsn not set", opts.Backend)
		}
		return NewMongoStore(ctx, opts.DSN, opts.Database)
	case BackendPostgres:
		if opts.DSN == "" {
			return nil, fmt.Errorf("store %s: dsn not set", opts.Backend)
		}
		return NewPostgresStore(ctx, opts.DSN)
	case BackendSQLite:
		if opts.DSN == "" {
			return nil, fmt.Errorf("store %s: dsn not set", opts.Backend)
		}
		return NewSQLiteStore(opts.DSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want one of %v)", opts.Backend, Backends())
	}
}
