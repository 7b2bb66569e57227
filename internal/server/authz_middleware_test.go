package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openmutual/hub/internal/routing"
)

type stubAuthorizer struct {
	allowed  bool
	enforced bool
	err      error
}

func (a stubAuthorizer) Authorize(string, string, string, string) (bool, bool, error) {
	return a.allowed, a.enforced, a.err
}

func mustTestClassifier(t *testing.T) *routing.Classifier {
	t.Helper()

	c, err := routing.NewClassifier(routing.Allowlist{Version: 1, Entrypoints: map[string]routing.Entrypoint{
		"server": {Routes: []routing.Route{
			{Path: "/health", Methods: []string{"GET"}, RouteClass: "ops"},
			{Path: "/api/hub/authorize", Methods: []string{"POST"}, RouteClass: "public_api"},
		}},
	}}, "server")
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestWithAuthz_HealthBypassesChecks(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := withAuthz(mustTestClassifier(t), stubAuthorizer{allowed: false, enforced: true}, next)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestWithAuthz_SkipsRoutesWithoutRequirement(t *testing.T) {
	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})
	h := withAuthz(mustTestClassifier(t), stubAuthorizer{allowed: false, enforced: true}, next)

	req := httptest.NewRequest(http.MethodGet, "/api/hub/unmapped", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !nextCalled {
		t.Fatalf("status=%d next=%v", rec.Code, nextCalled)
	}
}

func TestWithAuthz_EnforcedDenyIs403(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := withActor(withAuthz(mustTestClassifier(t), stubAuthorizer{allowed: false, enforced: true}, next))

	req := httptest.NewRequest(http.MethodPost, "/api/hub/authorize", nil)
	req.Header.Set("X-Actor-Role", "tenant-viewer")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestWithAuthz_ShadowDenyStillPasses(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := withActor(withAuthz(mustTestClassifier(t), stubAuthorizer{allowed: false, enforced: false}, next))

	req := httptest.NewRequest(http.MethodPost, "/api/hub/authorize", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestWithAuthz_AuthorizerErrorIs500(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	h := withActor(withAuthz(mustTestClassifier(t), stubAuthorizer{err: http.ErrAbortHandler}, next))

	req := httptest.NewRequest(http.MethodPost, "/api/hub/authorize", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestAuthzRequirementForRoute(t *testing.T) {
	t.Parallel()

	cases := []struct {
		method string
		path   string
		object string
		action string
		ok     bool
	}{
		{http.MethodPost, "/api/hub/authorize", "hub.authorize", "write", true},
		{http.MethodGet, "/api/hub/authorize", "", "", false},
		{http.MethodPost, "/api/hub/settle", "hub.settle", "write", true},
		{http.MethodPost, "/api/hub/tenants", "hub.tenant", "write", true},
		{http.MethodGet, "/api/hub/tenants", "hub.views", "read", true},
		{http.MethodPost, "/api/hub/tenants:pause", "hub.tenant", "admin", true},
		{http.MethodPost, "/api/hub/tenants:operator-role", "hub.tenant", "admin", true},
		{http.MethodPost, "/api/hub/deposits", "hub.funding", "write", true},
		{http.MethodPost, "/api/hub/fund/donations", "hub.funding", "write", true},
		{http.MethodGet, "/api/hub/rules", "hub.rules", "read", true},
		{http.MethodPut, "/api/hub/rules", "hub.rules", "write", true},
		{http.MethodPost, "/api/hub/rules:batch", "hub.rules", "write", true},
		{http.MethodPost, "/api/hub/rules:clear", "hub.rules", "write", true},
		{http.MethodPut, "/api/hub/caps", "hub.caps", "write", true},
		{http.MethodPut, "/api/hub/budgets", "hub.budgets", "write", true},
		{http.MethodPost, "/api/hub/budgets:epoch-start", "hub.budgets", "write", true},
		{http.MethodGet, "/api/hub/bounty/config", "hub.bounty", "read", true},
		{http.MethodPut, "/api/hub/bounty/config", "hub.bounty", "admin", true},
		{http.MethodGet, "/api/hub/bounty/account", "hub.views", "read", true},
		{http.MethodGet, "/api/hub/financials", "hub.views", "read", true},
		{http.MethodGet, "/api/hub/fund", "hub.views", "read", true},
		{http.MethodGet, "/api/hub/grace-status", "hub.views", "read", true},
		{http.MethodGet, "/api/hub/receipts", "hub.views", "read", true},
		{http.MethodGet, "/api/hub/nope", "", "", false},
	}
	for _, tc := range cases {
		object, action, ok := authzRequirementForRoute(tc.method, tc.path)
		if object != tc.object || action != tc.action || ok != tc.ok {
			t.Fatalf("%s %s: got (%q, %q, %v), want (%q, %q, %v)",
				tc.method, tc.path, object, action, ok, tc.object, tc.action, tc.ok)
		}
	}
}
