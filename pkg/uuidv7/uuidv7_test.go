package uuidv7

import (
	"crypto/rand"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewVersionAndVariant(t *testing.T) {
	u, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if u.Version() != 7 {
		t.Fatalf("version = %d, want 7", u.Version())
	}
	if u.Variant() != uuid.RFC4122 {
		t.Fatalf("variant = %v, want RFC4122", u.Variant())
	}
}

func TestNewStringParses(t *testing.T) {
	got, err := NewString()
	if err != nil {
		t.Fatalf("NewString: %v", err)
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Fatalf("Parse(%q): %v", got, err)
	}
}

func TestTimeOrdering(t *testing.T) {
	a, err := New()
	if err != nil {
		t.Fatal(err)
	}
	b, err := New()
	if err != nil {
		t.Fatal(err)
	}
	// Timestamp bits are non-decreasing across successive calls.
	if b.Time() < a.Time() {
		t.Fatalf("ordering violated: %s before %s", b, a)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestNewPropagatesEntropyError(t *testing.T) {
	orig := rand.Reader
	rand.Reader = failingReader{}
	defer func() { rand.Reader = orig }()

	if _, err := New(); err == nil {
		t.Fatal("expected error from failing reader")
	}
	if _, err := NewString(); err == nil {
		t.Fatal("expected error from failing reader")
	}
}
