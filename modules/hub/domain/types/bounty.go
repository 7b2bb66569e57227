package types

// BountyConfig is the per-tenant relay incentive setting. The engine is
// funded separately from the tenant ledger and pays out best-effort.
type BountyConfig struct {
	Enabled   bool
	MaxPerOp  int64
	PctCapBps int64
}

// BountyAccount holds the separately funded balance the engine pays from.
type BountyAccount struct {
	Balance int64
}
