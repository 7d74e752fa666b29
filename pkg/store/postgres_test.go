package store

import (
	"context"
	"errors"
	"os"
	"testing"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("FOLIO_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("FOLIO_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgresStore(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Put(ctx, TableServices, Record{ID: "recPG", Fields: Fields{"Status": "Queued", "Project": []any{"recP"}}}); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(ctx, TableServices, "recPG", ClaimFields(fixedNow, "1.1.0")); err != nil {
		t.Fatal(err)
	}
	rec, err := s.Get(ctx, TableServices, "recPG")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Fields.String(FieldStatus) != StatusProcessing || len(rec.Fields.Links("Project")) != 1 {
		t.Errorf("record = %+v", rec)
	}
	if err := s.Update(ctx, TableServices, "recNope", Fields{"Status": "x"}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update(missing) = %v", err)
	}
}
