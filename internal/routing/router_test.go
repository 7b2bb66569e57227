package routing

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	c, err := NewClassifier(testAllowlist(), "server")
	if err != nil {
		t.Fatalf("NewClassifier: %v", err)
	}
	return NewRouter(c)
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodPost, "/api/hub/authorize", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/hub/authorize", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouterUnknownPath(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hub/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["code"] != "not_found" {
		t.Fatalf("code = %v, want not_found", body["code"])
	}
}

func TestRouterMethodNotAllowed(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodPost, "/api/hub/settle", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hub/settle", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestRouterRecoversPanics(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)
	r.Handle(RouteClassPublicAPI, http.MethodGet, "/api/hub/boom", http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hub/boom", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
