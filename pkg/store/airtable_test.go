package store

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestAirtable(t *testing.T, handler http.HandlerFunc) *AirtableStore {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	s, err := NewAirtableStore(srv.URL+"/v0", "appTEST", "tok")
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestAirtableGet(t *testing.T) {
	s := newTestAirtable(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			t.Errorf("Authorization = %q", r.Header.Get("Authorization"))
		}
		if r.URL.EscapedPath() != "/v0/appTEST/Service%20Types/recT" {
			t.Errorf("path = %q", r.URL.EscapedPath())
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "recT",
			"fields": map[string]any{"Service Name": "Manuscript Processing"},
		})
	})

	rec, err := s.Get(context.Background(), TableServiceTypes, "recT")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.ID != "recT" || rec.Fields.String(FieldServiceName) != ManuscriptProcessing {
		t.Errorf("Get() = %+v", rec)
	}
}

func TestAirtableGetNotFound(t *testing.T) {
	s := newTestAirtable(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if _, err := s.Get(context.Background(), TableServices, "recX"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestAirtableUpdate(t *testing.T) {
	var body struct {
		Fields map[string]any `json:"fields"`
	}
	s := newTestAirtable(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s, want PATCH", r.Method)
		}
		data, _ := io.ReadAll(r.Body)
		json.Unmarshal(data, &body)
		w.Write([]byte(`{"id":"rec1","fields":{}}`))
	})

	if err := s.Update(context.Background(), TableServices, "rec1", Fields{FieldStatus: StatusComplete}); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if body.Fields[FieldStatus] != StatusComplete {
		t.Errorf("sent fields = %v", body.Fields)
	}
}

func TestAirtableUpdateRejectsLegacyField(t *testing.T) {
	called := false
	s := newTestAirtable(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	err := s.Update(context.Background(), TableServices, "rec1", Fields{"Statuses": "Complete"})
	if !errors.Is(err, ErrLegacyField) {
		t.Errorf("Update() = %v, want ErrLegacyField", err)
	}
	if called {
		t.Error("rejected update should not reach the API")
	}
}

func TestNewAirtableStoreRequiresCredentials(t *testing.T) {
	if _, err := NewAirtableStore("", "app", ""); err == nil {
		t.Error("missing token should fail")
	}
	if _, err := NewAirtableStore("", "", "tok"); err == nil {
		t.Error("missing base ID should fail")
	}
}
