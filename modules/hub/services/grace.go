package services

import (
	"time"

	"github.com/openmutual/hub/modules/hub/domain/types"
)

// inGraceWindow reports whether the tenant is still inside its onboarding
// window as of now.
func inGraceWindow(t types.Tenant, cfg types.GracePeriodConfig, now time.Time) bool {
	if cfg.GraceDays <= 0 {
		return false
	}
	return now.Before(t.RegisteredAt.Add(time.Duration(cfg.GraceDays) * 24 * time.Hour))
}

// rollSolidarityPeriod applies any elapsed whole 90-day periods, resetting
// per-period solidarity usage. Reports whether the window moved.
func rollSolidarityPeriod(f *types.OrgFinancials, now time.Time) bool {
	if f.PeriodStart.IsZero() {
		return false
	}
	elapsed := now.Sub(f.PeriodStart)
	if elapsed < types.SolidarityPeriod {
		return false
	}
	n := elapsed / types.SolidarityPeriod
	f.PeriodStart = f.PeriodStart.Add(n * types.SolidarityPeriod)
	f.SolidarityUsedThisPeriod = 0
	return true
}

// solidarityHeadroom is the additional solidarity draw the tenant may still
// make this period, before capping by the fund balance. Banned tenants get
// zero. During grace the ceiling is the absolute grace spend limit; after
// grace it is the tiered match allowance, available only once the deposit
// balance meets the minimum.
func solidarityHeadroom(t types.Tenant, f types.OrgFinancials, cfg types.GracePeriodConfig, now time.Time) int64 {
	if t.BannedFromSolidarity {
		return 0
	}
	var ceiling int64
	if inGraceWindow(t, cfg, now) {
		ceiling = cfg.MaxSpendDuringGrace
	} else {
		available := f.Available()
		if available < cfg.MinDepositRequired {
			return 0
		}
		ceiling = MatchAllowance(available, cfg.MinDepositRequired)
	}
	headroom := ceiling - f.SolidarityUsedThisPeriod
	if headroom < 0 {
		return 0
	}
	return headroom
}
