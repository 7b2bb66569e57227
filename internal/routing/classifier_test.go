package routing

import "testing"

func testAllowlist() Allowlist {
	return Allowlist{
		Version: 1,
		Entrypoints: map[string]Entrypoint{
			"server": {Routes: []Route{
				{Path: "/health", Methods: []string{"GET"}, RouteClass: "ops"},
				{Path: "/api/hub/authorize", Methods: []string{"POST"}, RouteClass: "public_api"},
				{Path: "/api/hub/tenants/{tenant}/financials", Methods: []string{"GET"}, RouteClass: "public_api"},
			}},
			"governance": {Routes: []Route{
				{Path: "/governance/grace-config", Methods: []string{"PUT"}, RouteClass: "governance_api"},
			}},
		},
	}
}

func TestNewClassifier_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewClassifier(testAllowlist(), "missing"); err == nil {
		t.Fatal("expected missing entrypoint error")
	}
	if _, err := NewClassifier(Allowlist{Version: 1, Entrypoints: map[string]Entrypoint{"server": {}}}, "server"); err == nil {
		t.Fatal("expected empty routes error")
	}
	bad := Allowlist{Version: 1, Entrypoints: map[string]Entrypoint{
		"server": {Routes: []Route{{Path: "", RouteClass: "ops"}}},
	}}
	if _, err := NewClassifier(bad, "server"); err == nil {
		t.Fatal("expected invalid route error")
	}
}

func TestClassify_ExactAndPattern(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(testAllowlist(), "server")
	if err != nil {
		t.Fatal(err)
	}

	if rc := c.Classify("/health"); rc != RouteClassOps {
		t.Fatalf("rc=%q", rc)
	}
	if rc := c.Classify("/api/hub/authorize"); rc != RouteClassPublicAPI {
		t.Fatalf("rc=%q", rc)
	}
	if rc := c.Classify("/api/hub/tenants/acme/financials"); rc != RouteClassPublicAPI {
		t.Fatalf("rc=%q", rc)
	}
}

func TestClassify_Defaults(t *testing.T) {
	t.Parallel()

	c, err := NewClassifier(testAllowlist(), "server")
	if err != nil {
		t.Fatal(err)
	}

	if rc := c.Classify("/governance/fee-bps"); rc != RouteClassGovernanceAPI {
		t.Fatalf("rc=%q", rc)
	}
	if rc := c.Classify("/healthz"); rc != RouteClassOps {
		t.Fatalf("rc=%q", rc)
	}
	if rc := c.Classify("/_dev/dump"); rc != RouteClassDevOnly {
		t.Fatalf("rc=%q", rc)
	}
	if rc := c.Classify("/anything-else"); rc != RouteClassPublicAPI {
		t.Fatalf("rc=%q", rc)
	}
}
