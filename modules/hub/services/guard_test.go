package services

import "testing"

func TestEvalGuardAllows(t *testing.T) {
	t.Parallel()

	opCtx := guardContext("inference", "gpt-large", "team-a", 500, "relay-1")
	if !evalGuard(`op.target == "inference"`, opCtx) {
		t.Fatal("expected guard to allow")
	}
	if !evalGuard(`op.selector.startsWith("gpt")`, opCtx) {
		t.Fatal("expected prefix guard to allow")
	}
}

func TestEvalGuardDenies(t *testing.T) {
	t.Parallel()

	opCtx := guardContext("inference", "gpt-large", "team-a", 500, "")
	if evalGuard(`op.relay_operator != ""`, opCtx) {
		t.Fatal("expected guard to deny empty relay")
	}
}

func TestEvalGuardCompileErrorDenies(t *testing.T) {
	t.Parallel()

	opCtx := guardContext("inference", "gpt-large", "team-a", 500, "relay-1")
	if evalGuard(`op.target ==`, opCtx) {
		t.Fatal("unparseable guard must deny")
	}
}

func TestEvalGuardNonBoolDenies(t *testing.T) {
	t.Parallel()

	opCtx := guardContext("inference", "gpt-large", "team-a", 500, "relay-1")
	if evalGuard(`op.target`, opCtx) {
		t.Fatal("non-bool guard must deny")
	}
}

func TestEvalGuardMissingKeyDenies(t *testing.T) {
	t.Parallel()

	if evalGuard(`op.nope == "x"`, map[string]string{"target": "inference"}) {
		t.Fatal("missing key must deny")
	}
}

func TestCompileGuardCaches(t *testing.T) {
	t.Parallel()

	const expr = `op.max_cost == "500"`
	p1, err := compileGuard(expr)
	if err != nil {
		t.Fatalf("compileGuard: %v", err)
	}
	p2, err := compileGuard(expr)
	if err != nil {
		t.Fatalf("compileGuard second call: %v", err)
	}
	if p1 != p2 {
		t.Fatal("expected cached program to be reused")
	}
}

func TestGuardContextKeys(t *testing.T) {
	t.Parallel()

	got := guardContext("inference", "gpt-large", "team-a", 500, "relay-1")
	want := map[string]string{
		"target":         "inference",
		"selector":       "gpt-large",
		"subject_key":    "team-a",
		"max_cost":       "500",
		"relay_operator": "relay-1",
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("guardContext[%q] = %q, want %q", k, got[k], v)
		}
	}
}
