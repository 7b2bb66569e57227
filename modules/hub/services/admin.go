package services

import (
	"context"
	"strings"
	"time"

	"github.com/openmutual/hub/modules/hub/domain/types"
)

const ruleBatchMax = 100

// RegisterTenant creates a tenant once. The admin role is required; the
// operator role is an optional delegate for the rule/cap/budget surface.
func (s *HubService) RegisterTenant(ctx context.Context, tenantID string, adminRole string, operatorRole string) error {
	tenantID = strings.TrimSpace(strings.ToLower(tenantID))
	if !tenantIDPattern.MatchString(tenantID) {
		return newValidationError(errTenantIDInvalid, "tenant id invalid")
	}
	adminRole = strings.TrimSpace(adminRole)
	if adminRole == "" {
		return newValidationError(errAdminRoleRequired, "admin role required")
	}
	operatorRole = strings.TrimSpace(operatorRole)

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, ok, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return err
	} else if ok {
		return newValidationError(errTenantExists, "tenant already registered")
	}

	now := s.now()
	t := types.Tenant{
		ID:           tenantID,
		AdminRole:    adminRole,
		OperatorRole: operatorRole,
		RegisteredAt: now,
	}
	if err := s.store.CreateTenant(ctx, t); err != nil {
		return err
	}
	if err := s.store.PutFinancials(ctx, tenantID, types.OrgFinancials{PeriodStart: now}); err != nil {
		return err
	}

	s.fundMu.Lock()
	defer s.fundMu.Unlock()
	fund, err := s.store.GetFund(ctx)
	if err != nil {
		return err
	}
	fund.ActiveTenantCount++
	return s.store.PutFund(ctx, fund)
}

// Deposit credits a tenant's reserve. Permissionless: anyone may fund any
// tenant. Crossing the minimum-deposit threshold from below restarts the
// solidarity period.
func (s *HubService) Deposit(ctx context.Context, tenantID string, amount int64) error {
	if amount <= 0 || amount > amountMax {
		return newValidationError(errAmountInvalid, "amount invalid")
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, ok, err := s.store.GetTenant(ctx, tenantID); err != nil {
		return err
	} else if !ok {
		return newValidationError(errTenantNotFound, "tenant not registered")
	}

	fin, err := s.store.GetFinancials(ctx, tenantID)
	if err != nil {
		return err
	}
	cfg, err := s.store.GetGraceConfig(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	rollSolidarityPeriod(&fin, now)

	before := fin.Available()
	fin.Deposited += amount
	fin.TotalDeposited += amount
	if cfg.MinDepositRequired > 0 && before < cfg.MinDepositRequired && fin.Available() >= cfg.MinDepositRequired {
		fin.PeriodStart = now
		fin.SolidarityUsedThisPeriod = 0
	}

	return s.store.PutFinancials(ctx, tenantID, fin)
}

// DonateToFund credits the shared solidarity pool. Permissionless.
func (s *HubService) DonateToFund(ctx context.Context, amount int64) error {
	if amount <= 0 || amount > amountMax {
		return newValidationError(errAmountInvalid, "amount invalid")
	}

	s.fundMu.Lock()
	defer s.fundMu.Unlock()
	fund, err := s.store.GetFund(ctx)
	if err != nil {
		return err
	}
	fund.Balance += amount
	return s.store.PutFund(ctx, fund)
}

// requireOperator loads the tenant and checks the acting role against the
// admin-or-operator surface.
func (s *HubService) requireOperator(ctx context.Context, tenantID string, actorRole string) (types.Tenant, error) {
	tenant, ok, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return types.Tenant{}, err
	}
	if !ok {
		return types.Tenant{}, newValidationError(errTenantNotFound, "tenant not registered")
	}
	if !tenant.IsOperatorRole(strings.TrimSpace(actorRole)) {
		return types.Tenant{}, newValidationError(errActorForbidden, "actor role not entitled")
	}
	return tenant, nil
}

// requireAdmin is the stricter gate for admin-only mutations.
func (s *HubService) requireAdmin(ctx context.Context, tenantID string, actorRole string) (types.Tenant, error) {
	tenant, ok, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return types.Tenant{}, err
	}
	if !ok {
		return types.Tenant{}, newValidationError(errTenantNotFound, "tenant not registered")
	}
	if !tenant.IsAdminRole(strings.TrimSpace(actorRole)) {
		return types.Tenant{}, newValidationError(errActorForbidden, "actor role not entitled")
	}
	return tenant, nil
}

func validateRule(rule types.Rule) (types.Rule, error) {
	rule.Target = strings.TrimSpace(rule.Target)
	rule.Selector = strings.TrimSpace(rule.Selector)
	rule.GuardExpr = strings.TrimSpace(rule.GuardExpr)
	if rule.Target == "" {
		return types.Rule{}, newValidationError(errTargetRequired, "target required")
	}
	if rule.Selector == "" {
		return types.Rule{}, newValidationError(errSelectorRequired, "selector required")
	}
	if rule.GuardExpr != "" {
		if _, err := compileGuard(rule.GuardExpr); err != nil {
			return types.Rule{}, newValidationError(errGuardExprInvalid, "guard expression invalid")
		}
	}
	return rule, nil
}

func (s *HubService) SetRule(ctx context.Context, tenantID string, actorRole string, rule types.Rule) error {
	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireOperator(ctx, tenantID, actorRole); err != nil {
		return err
	}
	rule, err := validateRule(rule)
	if err != nil {
		return err
	}
	return s.store.UpsertRule(ctx, tenantID, rule)
}

func (s *HubService) SetRulesBatch(ctx context.Context, tenantID string, actorRole string, rules []types.Rule) error {
	if len(rules) == 0 {
		return newValidationError(errTargetRequired, "at least one rule required")
	}
	if len(rules) > ruleBatchMax {
		return newValidationError(errRuleBatchTooLarge, "too many rules in one batch")
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireOperator(ctx, tenantID, actorRole); err != nil {
		return err
	}
	validated := make([]types.Rule, 0, len(rules))
	for _, rule := range rules {
		r, err := validateRule(rule)
		if err != nil {
			return err
		}
		validated = append(validated, r)
	}
	for _, rule := range validated {
		if err := s.store.UpsertRule(ctx, tenantID, rule); err != nil {
			return err
		}
	}
	return nil
}

func (s *HubService) ClearRule(ctx context.Context, tenantID string, actorRole string, target string, selector string) error {
	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireOperator(ctx, tenantID, actorRole); err != nil {
		return err
	}
	target = strings.TrimSpace(target)
	selector = strings.TrimSpace(selector)
	if target == "" {
		return newValidationError(errTargetRequired, "target required")
	}
	if selector == "" {
		return newValidationError(errSelectorRequired, "selector required")
	}
	return s.store.DeleteRule(ctx, tenantID, target, selector)
}

// SetBudget creates or replaces a per-subject budget. Changing the epoch
// length resets usage and restarts the window.
func (s *HubService) SetBudget(ctx context.Context, tenantID string, actorRole string, subjectKey string, capPerEpoch int64, epochLength time.Duration) error {
	subjectKey = strings.TrimSpace(subjectKey)
	if subjectKey == "" || len(subjectKey) > subjectKeyMaxLen {
		return newValidationError(errSubjectKeyInvalid, "subject key invalid")
	}
	if capPerEpoch < 0 || capPerEpoch > amountMax {
		return newValidationError(errBudgetCapInvalid, "budget cap invalid")
	}
	if epochLength < types.EpochLengthMin || epochLength > types.EpochLengthMax {
		return newValidationError(errEpochLengthInvalid, "epoch length out of bounds")
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireOperator(ctx, tenantID, actorRole); err != nil {
		return err
	}

	now := s.now()
	budget, ok, err := s.store.GetBudget(ctx, tenantID, subjectKey)
	if err != nil {
		return err
	}
	if !ok {
		budget = types.Budget{SubjectKey: subjectKey, EpochStart: now}
	}
	if budget.EpochLength != epochLength {
		budget.UsedInEpoch = 0
		budget.EpochStart = now
	}
	budget.CapPerEpoch = capPerEpoch
	budget.EpochLength = epochLength
	return s.store.PutBudget(ctx, tenantID, budget)
}

func (s *HubService) SetEpochStart(ctx context.Context, tenantID string, actorRole string, subjectKey string, start time.Time) error {
	subjectKey = strings.TrimSpace(subjectKey)
	if subjectKey == "" {
		return newValidationError(errSubjectKeyInvalid, "subject key invalid")
	}
	if start.IsZero() {
		return newValidationError(errEpochStartInvalid, "epoch start invalid")
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireOperator(ctx, tenantID, actorRole); err != nil {
		return err
	}

	budget, ok, err := s.store.GetBudget(ctx, tenantID, subjectKey)
	if err != nil {
		return err
	}
	if !ok {
		return newValidationError(errSubjectKeyInvalid, "no budget for subject")
	}
	budget.EpochStart = start
	budget.UsedInEpoch = 0
	return s.store.PutBudget(ctx, tenantID, budget)
}

func (s *HubService) SetCaps(ctx context.Context, tenantID string, actorRole string, caps types.Caps) error {
	if caps.MaxUnitPrice < 0 || caps.MaxComputeCost < 0 || caps.MaxStorageCost < 0 || caps.MaxTransferCost < 0 {
		return newValidationError(errCapsInvalid, "caps must be non-negative")
	}
	if caps.MaxUnitPrice > amountMax || caps.MaxComputeCost > amountMax || caps.MaxStorageCost > amountMax || caps.MaxTransferCost > amountMax {
		return newValidationError(errCapsInvalid, "caps out of range")
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireOperator(ctx, tenantID, actorRole); err != nil {
		return err
	}
	return s.store.SetCaps(ctx, tenantID, caps)
}

func (s *HubService) SetPause(ctx context.Context, tenantID string, actorRole string, paused bool) error {
	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireAdmin(ctx, tenantID, actorRole); err != nil {
		return err
	}
	return s.store.SetPause(ctx, tenantID, paused)
}

func (s *HubService) SetOperatorRole(ctx context.Context, tenantID string, actorRole string, operatorRole string) error {
	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireAdmin(ctx, tenantID, actorRole); err != nil {
		return err
	}
	return s.store.SetOperatorRole(ctx, tenantID, strings.TrimSpace(operatorRole))
}

func (s *HubService) SetBountyConfig(ctx context.Context, tenantID string, actorRole string, cfg types.BountyConfig) error {
	if cfg.MaxPerOp < 0 || cfg.MaxPerOp > amountMax {
		return newValidationError(errBountyConfigInvalid, "max per op invalid")
	}
	if cfg.PctCapBps < 0 || cfg.PctCapBps > 10000 {
		return newValidationError(errBountyConfigInvalid, "pct cap bps invalid")
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	if _, err := s.requireAdmin(ctx, tenantID, actorRole); err != nil {
		return err
	}
	return s.store.SetBountyConfig(ctx, tenantID, cfg)
}
