package types

import "time"

// OrgFinancials is the per-tenant ledger. Invariants: TotalDeposited is
// monotonically non-decreasing and Spent never exceeds Deposited.
type OrgFinancials struct {
	Deposited                int64
	TotalDeposited           int64
	Spent                    int64
	SolidarityUsedThisPeriod int64
	PeriodStart              time.Time
}

// Available is the deposit headroom still spendable.
func (f OrgFinancials) Available() int64 {
	return f.Deposited - f.Spent
}

// SolidarityFund is the single shared pool. Balance must never go negative.
type SolidarityFund struct {
	Balance           int64
	ActiveTenantCount int64
	FeeBps            int64
}

// FeeBpsMax caps the solidarity fee at 10%.
const FeeBpsMax = 1000

// GracePeriodConfig holds the global onboarding parameters.
type GracePeriodConfig struct {
	GraceDays           int
	MaxSpendDuringGrace int64
	MinDepositRequired  int64
}

// SolidarityPeriod is the rolling window over which per-tenant solidarity
// usage is tracked before resetting.
const SolidarityPeriod = 90 * 24 * time.Hour
