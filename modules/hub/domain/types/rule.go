package types

// Rule is one admission entry keyed by (tenant, target, selector).
// Absence of a rule means the call is denied (default-deny).
type Rule struct {
	Target   string
	Selector string
	Allowed  bool
	CostHint uint32
	// GuardExpr is an optional CEL expression over the operation context.
	// When set, the rule only allows calls for which the guard evaluates
	// to true. Empty means no guard.
	GuardExpr string
}

// Caps holds per-tenant ceilings. A zero field means no limit for that
// field only.
type Caps struct {
	MaxUnitPrice    int64
	MaxComputeCost  int64
	MaxStorageCost  int64
	MaxTransferCost int64
}

// SubPhaseCosts is the proposed per-phase breakdown checked against Caps.
type SubPhaseCosts struct {
	Compute  int64
	Storage  int64
	Transfer int64
}
