package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/folio/pkg/pipeline"
)

type fakeProcessor struct {
	mu    sync.Mutex
	calls []string
	fn    func(id string) *pipeline.Result
}

func (f *fakeProcessor) Process(_ context.Context, id string) *pipeline.Result {
	f.mu.Lock()
	f.calls = append(f.calls, id)
	f.mu.Unlock()
	if f.fn != nil {
		return f.fn(id)
	}
	return &pipeline.Result{Success: true, ServiceID: id, PageCount: 200}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := New(&fakeProcessor{}, nil, Options{Version: "1.1.0"})

	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got healthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	want := healthResponse{Status: "healthy", Service: "worker_2_interior_formatter", Version: "1.1.0"}
	if got != want {
		t.Errorf("health = %+v, want %+v", got, want)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestProcess(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		result     *pipeline.Result
		wantStatus int
		wantCalled bool
		wantError  string
	}{
		{
			name:       "success",
			body:       `{"service_id": "recAAA"}`,
			wantStatus: http.StatusOK,
			wantCalled: true,
		},
		{
			name:       "pipeline failure",
			body:       `{"service_id": "recAAA"}`,
			result:     &pipeline.Result{ServiceID: "recAAA", Error: "Images not supported in MVP", ErrorCode: "POLICY_FAIL"},
			wantStatus: http.StatusInternalServerError,
			wantCalled: true,
			wantError:  "Images not supported in MVP",
		},
		{
			name:       "missing service_id",
			body:       `{"other": 1}`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing service_id in request body",
		},
		{
			name:       "empty body",
			body:       "",
			wantStatus: http.StatusBadRequest,
			wantError:  "Missing service_id",
		},
		{
			name:       "malformed json",
			body:       `{"service_id":`,
			wantStatus: http.StatusBadRequest,
			wantError:  "Invalid JSON body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{}
			if tt.result != nil {
				p.fn = func(string) *pipeline.Result { return tt.result }
			}
			s := New(p, nil, Options{})

			rec := do(t, s, http.MethodPost, "/process", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body)
			}
			if called := len(p.calls) > 0; called != tt.wantCalled {
				t.Errorf("processor called = %v, want %v", called, tt.wantCalled)
			}

			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("response is not JSON: %v", err)
			}
			if tt.wantStatus == http.StatusOK && body["success"] != true {
				t.Errorf("success = %v", body["success"])
			}
			if tt.wantError != "" {
				msg, _ := body["error"].(string)
				if !strings.Contains(msg, tt.wantError) {
					t.Errorf("error = %q, want %q", msg, tt.wantError)
				}
			}
		})
	}
}

func TestProcessMethodNotAllowed(t *testing.T) {
	s := New(&fakeProcessor{}, nil, Options{})
	if rec := do(t, s, http.MethodGet, "/process", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /process status = %d", rec.Code)
	}
}

func TestProcessBusy(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	p := &fakeProcessor{fn: func(id string) *pipeline.Result {
		close(started)
		<-release
		return &pipeline.Result{Success: true, ServiceID: id}
	}}
	s := New(p, nil, Options{MaxConcurrent: 1})

	done := make(chan int)
	go func() {
		done <- do(t, s, http.MethodPost, "/process", `{"service_id": "recA"}`).Code
	}()
	<-started

	if rec := do(t, s, http.MethodPost, "/process", `{"service_id": "recB"}`); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("second request status = %d, want 503", rec.Code)
	}
	close(release)
	if code := <-done; code != http.StatusOK {
		t.Errorf("first request status = %d", code)
	}
}

func TestRecoversFromPanic(t *testing.T) {
	p := &fakeProcessor{fn: func(string) *pipeline.Result { panic("boom") }}
	s := New(p, nil, Options{})

	if rec := do(t, s, http.MethodPost, "/process", `{"service_id": "recA"}`); rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s := New(&fakeProcessor{}, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- s.ListenAndServe(ctx, "127.0.0.1:0", time.Second) }()
	cancel()
	if err := <-errc; err != nil {
		t.Errorf("ListenAndServe() = %v", err)
	}
}
