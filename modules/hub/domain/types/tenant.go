package types

import "time"

// Tenant is one registered organization. Existence is permanent: tenants are
// never deleted, only paused or banned from the solidarity fund.
type Tenant struct {
	ID                   string
	AdminRole            string
	OperatorRole         string
	Paused               bool
	RegisteredAt         time.Time
	BannedFromSolidarity bool
}

// IsAdminRole reports whether roleSlug is entitled to admin-level mutations.
func (t Tenant) IsAdminRole(roleSlug string) bool {
	return roleSlug != "" && roleSlug == t.AdminRole
}

// IsOperatorRole reports whether roleSlug may use the operator surface
// (rules, caps, budgets). The admin role is always an operator.
func (t Tenant) IsOperatorRole(roleSlug string) bool {
	if t.IsAdminRole(roleSlug) {
		return true
	}
	return roleSlug != "" && roleSlug == t.OperatorRole
}
