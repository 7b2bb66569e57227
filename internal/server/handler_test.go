package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/openmutual/hub/modules/hub/infrastructure/persistence"
)

func setTestAllowlistPath(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	allowlistPath := filepath.Clean(filepath.Join(wd, "..", "..", "config", "routing", "allowlist.yaml"))
	if err := os.Setenv("ALLOWLIST_PATH", allowlistPath); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Unsetenv("ALLOWLIST_PATH") })
}

func newHubTestHandler(t *testing.T) (http.Handler, *persistence.HubMemoryStore) {
	t.Helper()
	setTestAllowlistPath(t)

	store := persistence.NewHubMemoryStore()
	h, err := NewHandlerWithOptions(HandlerOptions{
		Store:      store,
		Authorizer: stubAuthorizer{allowed: true, enforced: true},
	})
	if err != nil {
		t.Fatal(err)
	}
	return h, store
}

func doJSON(t *testing.T, h http.Handler, method, path, role string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if role != "" {
		req.Header.Set("X-Actor-Role", role)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHandler_Health(t *testing.T) {
	h, _ := newHubTestHandler(t)

	for _, path := range []string{"/health", "/healthz"} {
		rec := doJSON(t, h, http.MethodGet, path, "", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status=%d", path, rec.Code)
		}
	}
}

func TestHandler_UnknownRouteEnvelope(t *testing.T) {
	h, _ := newHubTestHandler(t)

	rec := doJSON(t, h, http.MethodGet, "/api/hub/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d", rec.Code)
	}
	var env struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &env)
	if env.Code != "not_found" {
		t.Fatalf("code = %q", env.Code)
	}
}

func TestHandler_AuthorizeSettleFlow(t *testing.T) {
	h, _ := newHubTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/hub/tenants", "", map[string]string{
		"tenant_id":     "acme",
		"admin_role":    "tenant-admin",
		"operator_role": "tenant-operator",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/hub/deposits", "", map[string]any{
		"tenant_id": "acme", "amount": 1000,
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("deposit status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPut, "/api/hub/rules", "tenant-admin", map[string]any{
		"tenant_id": "acme",
		"rule":      map[string]any{"target": "inference", "selector": "gpt-large", "allowed": true},
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("set rule status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/api/hub/authorize", "tenant-operator", map[string]any{
		"tenant_id":   "acme",
		"subject_key": "team-a",
		"target":      "inference",
		"selector":    "gpt-large",
		"max_cost":    100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("authorize status=%d body=%s", rec.Code, rec.Body.String())
	}
	var auth authorizeResponseAPI
	decodeBody(t, rec, &auth)
	if !auth.Reserved || auth.OpID == "" || auth.MaxCost != 100 {
		t.Fatalf("authorize response = %+v", auth)
	}

	rec = doJSON(t, h, http.MethodPost, "/api/hub/settle", "tenant-operator", map[string]any{
		"op_id": auth.OpID, "actual_cost": 80, "outcome": "success",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("settle status=%d body=%s", rec.Code, rec.Body.String())
	}
	var rcpt receiptAPI
	decodeBody(t, rec, &rcpt)
	if rcpt.OpID != auth.OpID || rcpt.ActualCost != 80 {
		t.Fatalf("receipt = %+v", rcpt)
	}
	if rcpt.FromDeposits+rcpt.FromSolidarity != 80 {
		t.Fatalf("split does not cover cost: %+v", rcpt)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/hub/financials?tenant_id=acme", "tenant-viewer", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("financials status=%d body=%s", rec.Code, rec.Body.String())
	}
	var fin financialsAPI
	decodeBody(t, rec, &fin)
	if fin.Deposited != 1000 || fin.Available != fin.Deposited-fin.Spent {
		t.Fatalf("financials = %+v", fin)
	}

	rec = doJSON(t, h, http.MethodGet, "/api/hub/receipts?op_id="+auth.OpID, "tenant-viewer", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt fetch status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestHandler_AuthorizeRejectionPayload(t *testing.T) {
	h, _ := newHubTestHandler(t)

	rec := doJSON(t, h, http.MethodPost, "/api/hub/tenants", "", map[string]string{
		"tenant_id": "acme", "admin_role": "tenant-admin",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status=%d", rec.Code)
	}

	// No rule configured, so admission default-denies.
	rec = doJSON(t, h, http.MethodPost, "/api/hub/authorize", "tenant-operator", map[string]any{
		"tenant_id":   "acme",
		"subject_key": "team-a",
		"target":      "inference",
		"selector":    "gpt-large",
		"max_cost":    100,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("authorize status=%d body=%s", rec.Code, rec.Body.String())
	}
	var auth authorizeResponseAPI
	decodeBody(t, rec, &auth)
	if auth.Reserved || auth.RejectionCode != "HUB_RULE_DENIED" {
		t.Fatalf("authorize response = %+v", auth)
	}
}

func TestHandler_ServiceErrorMapping(t *testing.T) {
	h, _ := newHubTestHandler(t)

	// Unknown tenant on authorize is 404 with the stable code.
	rec := doJSON(t, h, http.MethodPost, "/api/hub/authorize", "tenant-operator", map[string]any{
		"tenant_id":   "ghost",
		"subject_key": "team-a",
		"target":      "inference",
		"selector":    "gpt-large",
		"max_cost":    100,
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var env struct {
		Code string `json:"code"`
	}
	decodeBody(t, rec, &env)
	if env.Code != "HUB_TENANT_NOT_FOUND" {
		t.Fatalf("code = %q", env.Code)
	}

	// Unknown reservation on settle is a consistency fault, 409.
	rec = doJSON(t, h, http.MethodPost, "/api/hub/settle", "tenant-operator", map[string]any{
		"op_id": "no-such-op", "actual_cost": 1, "outcome": "success",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &env)
	if env.Code != "HUB_CONTEXT_UNKNOWN" {
		t.Fatalf("code = %q", env.Code)
	}
}

func TestHandler_InvalidJSONIs422(t *testing.T) {
	h, _ := newHubTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/hub/authorize", bytes.NewBufferString("{nope"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestHandler_ForbiddenWhenAuthzDenies(t *testing.T) {
	setTestAllowlistPath(t)

	h, err := NewHandlerWithOptions(HandlerOptions{
		Store:      persistence.NewHubMemoryStore(),
		Authorizer: stubAuthorizer{allowed: false, enforced: true},
	})
	if err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, h, http.MethodPost, "/api/hub/authorize", "tenant-viewer", map[string]any{
		"tenant_id": "acme",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}
