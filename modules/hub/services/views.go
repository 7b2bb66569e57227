package services

import (
	"context"
	"time"

	"github.com/openmutual/hub/modules/hub/domain/types"
)

// GraceStatus is the read-only onboarding snapshot for one tenant.
type GraceStatus struct {
	InGrace             bool
	RemainingGraceSpend int64
	Tier                int
	MatchAllowance      int64
	PeriodStart         time.Time
	SolidarityUsed      int64
}

func (s *HubService) GetTenant(ctx context.Context, tenantID string) (types.Tenant, error) {
	tenant, ok, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return types.Tenant{}, err
	}
	if !ok {
		return types.Tenant{}, newValidationError(errTenantNotFound, "tenant not registered")
	}
	return tenant, nil
}

func (s *HubService) GetFinancials(ctx context.Context, tenantID string) (types.OrgFinancials, error) {
	if _, ok, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return types.OrgFinancials{}, err
	} else if !ok {
		return types.OrgFinancials{}, newValidationError(errTenantNotFound, "tenant not registered")
	}
	return s.store.GetFinancials(ctx, tenantID)
}

func (s *HubService) GetBudget(ctx context.Context, tenantID string, subjectKey string) (types.Budget, bool, error) {
	return s.store.GetBudget(ctx, tenantID, subjectKey)
}

func (s *HubService) GetRule(ctx context.Context, tenantID string, target string, selector string) (types.Rule, bool, error) {
	return s.store.GetRule(ctx, tenantID, target, selector)
}

func (s *HubService) GetCaps(ctx context.Context, tenantID string) (types.Caps, error) {
	return s.store.GetCaps(ctx, tenantID)
}

func (s *HubService) GetBountyConfig(ctx context.Context, tenantID string) (types.BountyConfig, error) {
	return s.store.GetBountyConfig(ctx, tenantID)
}

func (s *HubService) GetBountyAccount(ctx context.Context, tenantID string) (types.BountyAccount, error) {
	return s.store.GetBountyAccount(ctx, tenantID)
}

func (s *HubService) GetFundSnapshot(ctx context.Context) (types.SolidarityFund, error) {
	s.fundMu.Lock()
	defer s.fundMu.Unlock()
	return s.store.GetFund(ctx)
}

func (s *HubService) GetGraceConfig(ctx context.Context) (types.GracePeriodConfig, error) {
	return s.store.GetGraceConfig(ctx)
}

func (s *HubService) GetReceipt(ctx context.Context, opID string) (types.SettlementReceipt, bool, error) {
	return s.store.GetReceipt(ctx, opID)
}

// GetGraceStatus reports the in-grace flag, the remaining grace spend, the
// current subsidy tier, and the current match allowance as of now.
func (s *HubService) GetGraceStatus(ctx context.Context, tenantID string) (GraceStatus, error) {
	tenant, ok, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return GraceStatus{}, err
	}
	if !ok {
		return GraceStatus{}, newValidationError(errTenantNotFound, "tenant not registered")
	}

	fin, err := s.store.GetFinancials(ctx, tenantID)
	if err != nil {
		return GraceStatus{}, err
	}
	cfg, err := s.store.GetGraceConfig(ctx)
	if err != nil {
		return GraceStatus{}, err
	}

	now := s.now()
	rollSolidarityPeriod(&fin, now)

	st := GraceStatus{
		InGrace:        inGraceWindow(tenant, cfg, now),
		Tier:           MatchTier(fin.Available(), cfg.MinDepositRequired),
		MatchAllowance: MatchAllowance(fin.Available(), cfg.MinDepositRequired),
		PeriodStart:    fin.PeriodStart,
		SolidarityUsed: fin.SolidarityUsedThisPeriod,
	}
	if st.InGrace {
		remaining := cfg.MaxSpendDuringGrace - fin.SolidarityUsedThisPeriod
		if remaining < 0 {
			remaining = 0
		}
		st.RemainingGraceSpend = remaining
	}
	return st, nil
}
