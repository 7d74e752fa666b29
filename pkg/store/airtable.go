package store

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/matzehuels/folio/pkg/httputil"
)

// DefaultAirtableURL is the Airtable REST API root.
const DefaultAirtableURL = "https://api.airtable.com/v0"

// AirtableStore reads and updates records through the Airtable REST API.
type AirtableStore struct {
	client *httputil.Client
}

type airtableRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// NewAirtableStore creates a store for the given base. apiURL may be empty
// to use [DefaultAirtableURL].
func NewAirtableStore(apiURL, baseID, token string) (*AirtableStore, error) {
	if token == "" {
		return nil, errors.New("airtable token not set")
	}
	if baseID == "" {
		return nil, errors.New("airtable base ID not set")
	}
	if apiURL == "" {
		apiURL = DefaultAirtableURL
	}
	base := strings.TrimRight(apiURL, "/") + "/" + url.PathEscape(baseID)
	return &AirtableStore{
		client: httputil.NewClient(base, map[string]string{
			"Authorization": "Bearer " + token,
		}),
	}, nil
}

// NewAirtableStoreWithClient uses an existing HTTP client rooted at the base URL.
func NewAirtableStoreWithClient(c *httputil.Client) *AirtableStore {
	return &AirtableStore{client: c}
}

func recordPath(table, id string) string {
	return "/" + url.PathEscape(table) + "/" + url.PathEscape(id)
}

// Get implements Store.
func (a *AirtableStore) Get(ctx context.Context, table, id string) (Record, error) {
	var rec airtableRecord
	if err := a.client.Get(ctx, recordPath(table, id), &rec); err != nil {
		return Record{}, mapHTTPError(err)
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	return Record{ID: rec.ID, Fields: rec.Fields}, nil
}

// Update implements Store. Airtable's PATCH merges fields.
func (a *AirtableStore) Update(ctx context.Context, table, id string, fields Fields) error {
	if err := CheckFields(fields); err != nil {
		return err
	}
	body := map[string]any{"fields": map[string]any(fields)}
	if err := a.client.Patch(ctx, recordPath(table, id), body, nil); err != nil {
		return mapHTTPError(err)
	}
	return nil
}

// Close implements Store.
func (a *AirtableStore) Close() error { return nil }

func mapHTTPError(err error) error {
	if errors.Is(err, httputil.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("airtable: %w", err)
}
