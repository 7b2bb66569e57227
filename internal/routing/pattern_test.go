package routing

import "testing"

func TestParsePathPattern(t *testing.T) {
	t.Parallel()

	if _, ok := parsePathPattern("/api/hub/authorize"); ok {
		t.Fatal("plain paths must not parse as patterns")
	}
	if _, ok := parsePathPattern("api/{x}"); ok {
		t.Fatal("patterns must start with /")
	}
	if _, ok := parsePathPattern("/api/{}"); ok {
		t.Fatal("empty param must not parse")
	}
	if _, ok := parsePathPattern("/api/x{y}"); ok {
		t.Fatal("partial param segment must not parse")
	}
	if _, ok := parsePathPattern("/api/hub/tenants/{tenant}/budget"); !ok {
		t.Fatal("expected pattern to parse")
	}
}

func TestPathPatternMatch(t *testing.T) {
	t.Parallel()

	p, ok := parsePathPattern("/api/hub/tenants/{tenant}/budget")
	if !ok {
		t.Fatal("pattern must parse")
	}

	if !p.Match("/api/hub/tenants/acme/budget") {
		t.Fatal("expected match")
	}
	if p.Match("/api/hub/tenants/acme/rules") {
		t.Fatal("tail mismatch must not match")
	}
	if p.Match("/api/hub/tenants/budget") {
		t.Fatal("short path must not match")
	}
	if p.Match("/api/hub/tenants//budget") {
		t.Fatal("empty segment must not match")
	}
}
