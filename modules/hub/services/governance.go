package services

import (
	"context"
	"strings"

	"github.com/openmutual/hub/modules/hub/domain/types"
)

// Governance mutators. Authority is enforced at the transport: these are
// only reachable through the governance binary, never through any tenant
// admin surface.

func (s *HubService) SetGracePeriodConfig(ctx context.Context, cfg types.GracePeriodConfig) error {
	if cfg.GraceDays < 0 || cfg.GraceDays > 365 {
		return newValidationError(errGraceConfigInvalid, "grace days out of range")
	}
	if cfg.MaxSpendDuringGrace < 0 || cfg.MaxSpendDuringGrace > amountMax {
		return newValidationError(errGraceConfigInvalid, "max spend during grace invalid")
	}
	if cfg.MinDepositRequired < 0 || cfg.MinDepositRequired > amountMax {
		return newValidationError(errGraceConfigInvalid, "min deposit required invalid")
	}
	return s.store.PutGraceConfig(ctx, cfg)
}

func (s *HubService) SetBanFromSolidarity(ctx context.Context, tenantID string, banned bool) error {
	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, ok, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return err
	} else if !ok {
		return newValidationError(errTenantNotFound, "tenant not registered")
	}
	return s.store.SetBanFromSolidarity(ctx, tenantID, banned)
}

func (s *HubService) SetSolidarityFeeBps(ctx context.Context, feeBps int64) error {
	if feeBps < 0 || feeBps > types.FeeBpsMax {
		return newValidationError(errFeeBpsInvalid, "fee bps out of range")
	}

	s.fundMu.Lock()
	defer s.fundMu.Unlock()
	fund, err := s.store.GetFund(ctx)
	if err != nil {
		return err
	}
	fund.FeeBps = feeBps
	return s.store.PutFund(ctx, fund)
}

// FundBounty credits a tenant's separately funded bounty balance.
func (s *HubService) FundBounty(ctx context.Context, tenantID string, amount int64) error {
	if amount <= 0 || amount > amountMax {
		return newValidationError(errBountyFundsInvalid, "amount invalid")
	}
	tenantID = strings.TrimSpace(strings.ToLower(tenantID))

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, ok, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return err
	} else if !ok {
		return newValidationError(errTenantNotFound, "tenant not registered")
	}
	return s.store.AddBountyFunds(ctx, tenantID, amount)
}
