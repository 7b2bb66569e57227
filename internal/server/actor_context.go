package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/openmutual/hub/pkg/authz"
)

// Principal is the caller identity for one request. The hub trusts the
// fronting relay to authenticate callers and forward their identity in
// headers; role checks against tenant records happen in the service layer.
type Principal struct {
	ID   string
	Role string
}

type principalContextKey struct{}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

func currentPrincipal(ctx context.Context) (Principal, bool) {
	v := ctx.Value(principalContextKey{})
	if v == nil {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok
}

func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := strings.TrimSpace(strings.ToLower(r.Header.Get("X-Actor-Role")))
		if role == "" {
			role = authz.RoleAnonymous
		}
		p := Principal{
			ID:   strings.TrimSpace(r.Header.Get("X-Actor-Id")),
			Role: role,
		}
		next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
	})
}

func actorRole(r *http.Request) string {
	if p, ok := currentPrincipal(r.Context()); ok {
		return p.Role
	}
	return authz.RoleAnonymous
}
