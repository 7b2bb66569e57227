package services

import (
	"context"
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/openmutual/hub/modules/hub/domain/ports"
	"github.com/openmutual/hub/modules/hub/domain/types"
	"github.com/openmutual/hub/pkg/uuidv7"
)

var newUUID = uuidv7.NewString

var tenantIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

const subjectKeyMaxLen = 128

// reservationTTL bounds how long an authorized-but-unsettled context is
// kept before the purge sweep may drop it.
const reservationTTL = 24 * time.Hour

// HubService orchestrates the two-phase authorize/settle protocol over a
// HubStore. Authorize and Settle are serialized per tenant; the solidarity
// fund, being the only cross-tenant state, is additionally guarded by its
// own mutex. The bounty payment runs strictly after all ledger locks are
// released.
type HubService struct {
	store  ports.HubStore
	bounty *bountyEngine
	now    func() time.Time

	fundMu      sync.Mutex
	tenantLocks sync.Map // tenantID -> *sync.Mutex
}

func NewHubService(store ports.HubStore) *HubService {
	return &HubService{
		store:  store,
		bounty: &bountyEngine{store: store},
		now:    time.Now,
	}
}

func (s *HubService) lockTenant(tenantID string) func() {
	v, _ := s.tenantLocks.LoadOrStore(tenantID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// AuthorizeRequest describes one unit of metered work before it runs.
// MaxCost is the worst-case cost bound; the actual cost is only known at
// settle time.
type AuthorizeRequest struct {
	SubjectKey    string
	Target        string
	Selector      string
	MaxCost       int64
	UnitPrice     int64
	SubPhaseCosts types.SubPhaseCosts
	RelayOperator string
}

// Authorize runs the admission pipeline: tenant status, rule table, caps,
// budget reserve, and funding eligibility. On success it persists and
// returns a single-use reservation context. The only write it may perform
// besides the reservation itself is a lazy budget-epoch or solidarity-period
// roll.
func (s *HubService) Authorize(ctx context.Context, tenantID string, req AuthorizeRequest) (AuthorizeResult, error) {
	tenantID = strings.TrimSpace(strings.ToLower(tenantID))
	if !tenantIDPattern.MatchString(tenantID) {
		return AuthorizeResult{}, newValidationError(errTenantIDInvalid, "tenant id invalid")
	}
	subjectKey := strings.TrimSpace(req.SubjectKey)
	if subjectKey == "" || len(subjectKey) > subjectKeyMaxLen {
		return AuthorizeResult{}, newValidationError(errSubjectKeyInvalid, "subject key invalid")
	}
	target := strings.TrimSpace(req.Target)
	if target == "" {
		return AuthorizeResult{}, newValidationError(errTargetRequired, "target required")
	}
	selector := strings.TrimSpace(req.Selector)
	if selector == "" {
		return AuthorizeResult{}, newValidationError(errSelectorRequired, "selector required")
	}
	if req.MaxCost <= 0 || req.MaxCost > amountMax {
		return AuthorizeResult{}, newValidationError(errMaxCostInvalid, "max cost invalid")
	}

	unlock := s.lockTenant(tenantID)
	defer unlock()

	now := s.now()

	tenant, ok, err := s.store.GetTenant(ctx, tenantID)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if !ok {
		return AuthorizeResult{}, newValidationError(errTenantNotFound, "tenant not registered")
	}
	if tenant.Paused {
		return rejected(RejectionPolicy, errTenantPaused), nil
	}

	// Rule table: default-deny.
	rule, ok, err := s.store.GetRule(ctx, tenantID, target, selector)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if !ok || !rule.Allowed {
		return rejected(RejectionPolicy, errRuleDenied), nil
	}
	if rule.GuardExpr != "" {
		opCtx := guardContext(target, selector, subjectKey, req.MaxCost, req.RelayOperator)
		if !evalGuard(rule.GuardExpr, opCtx) {
			return rejected(RejectionPolicy, errRuleGuardDenied), nil
		}
	}

	caps, err := s.store.GetCaps(ctx, tenantID)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if !capsAllow(caps, req.UnitPrice, req.SubPhaseCosts) {
		return rejected(RejectionPolicy, errCapExceeded), nil
	}

	// Budget reserve: roll the epoch if due and check headroom, but do not
	// commit usage yet. Usage is committed at settle with the actual cost.
	var epochSnapshot time.Time
	budget, hasBudget, err := s.store.GetBudget(ctx, tenantID, subjectKey)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if hasBudget {
		rolled := budget.Roll(now)
		if budget.UsedInEpoch+req.MaxCost > budget.CapPerEpoch {
			return rejected(RejectionQuota, errBudgetExceeded), nil
		}
		if rolled {
			if err := s.store.PutBudget(ctx, tenantID, budget); err != nil {
				return AuthorizeResult{}, err
			}
		}
		epochSnapshot = budget.EpochStart
	}

	fin, err := s.store.GetFinancials(ctx, tenantID)
	if err != nil {
		return AuthorizeResult{}, err
	}
	if rollSolidarityPeriod(&fin, now) {
		if err := s.store.PutFinancials(ctx, tenantID, fin); err != nil {
			return AuthorizeResult{}, err
		}
	}

	cfg, err := s.store.GetGraceConfig(ctx)
	if err != nil {
		return AuthorizeResult{}, err
	}

	s.fundMu.Lock()
	fund, err := s.store.GetFund(ctx)
	s.fundMu.Unlock()
	if err != nil {
		return AuthorizeResult{}, err
	}

	available := fin.Available()
	headroom := min(solidarityHeadroom(tenant, fin, cfg, now), fund.Balance)
	inGrace := inGraceWindow(tenant, cfg, now)

	if available+headroom < req.MaxCost {
		switch {
		case available == 0 && headroom == 0:
			return rejected(RejectionQuota, errInsufficientFunds), nil
		case inGrace && !tenant.BannedFromSolidarity:
			return rejected(RejectionQuota, errGraceSpendExceeded), nil
		default:
			return rejected(RejectionQuota, errSolidarityAllowanceExceeded), nil
		}
	}

	opID, err := newUUID()
	if err != nil {
		return AuthorizeResult{}, err
	}
	rc := types.ReservationContext{
		OpID:               opID,
		TenantID:           tenantID,
		SubjectKey:         subjectKey,
		Target:             target,
		Selector:           selector,
		MaxCost:            req.MaxCost,
		EpochStartSnapshot: epochSnapshot,
		RelayOperator:      strings.TrimSpace(req.RelayOperator),
		InGrace:            inGrace,
		CreatedAt:          now,
	}
	if err := s.store.PutReservation(ctx, rc); err != nil {
		return AuthorizeResult{}, err
	}

	return AuthorizeResult{Reserved: true, Reservation: rc}, nil
}

func capsAllow(caps types.Caps, unitPrice int64, sub types.SubPhaseCosts) bool {
	if caps.MaxUnitPrice > 0 && unitPrice > caps.MaxUnitPrice {
		return false
	}
	if caps.MaxComputeCost > 0 && sub.Compute > caps.MaxComputeCost {
		return false
	}
	if caps.MaxStorageCost > 0 && sub.Storage > caps.MaxStorageCost {
		return false
	}
	if caps.MaxTransferCost > 0 && sub.Transfer > caps.MaxTransferCost {
		return false
	}
	return true
}

// SettleRequest finalizes one reservation with the measured actual cost.
type SettleRequest struct {
	OpID       string
	ActualCost int64
	Outcome    types.Outcome
}

// Settle consumes the reservation context, commits budget usage, splits the
// actual cost between deposits and the solidarity fund, collects the fund
// fee, and applies everything as one atomic write. The bounty payment is
// attempted only afterwards, outside every ledger lock, and its failure
// never fails the settlement.
func (s *HubService) Settle(ctx context.Context, req SettleRequest) (types.SettlementReceipt, error) {
	opID := strings.TrimSpace(req.OpID)
	if opID == "" {
		return types.SettlementReceipt{}, newConsistencyFault(faultContextUnknown, "empty op id")
	}
	if req.ActualCost < 0 || req.ActualCost > amountMax {
		return types.SettlementReceipt{}, newValidationError(errActualCostInvalid, "actual cost invalid")
	}
	if req.Outcome != types.OutcomeSuccess && req.Outcome != types.OutcomeFailed {
		return types.SettlementReceipt{}, newValidationError(errOutcomeInvalid, "outcome invalid")
	}

	rc, ok, err := s.store.ConsumeReservation(ctx, opID)
	if err != nil {
		return types.SettlementReceipt{}, err
	}
	if !ok {
		log.Printf("hub: consistency fault op=%s: context unknown or already consumed", opID)
		return types.SettlementReceipt{}, newConsistencyFault(faultContextUnknown, "reservation context unknown or already consumed")
	}
	if req.ActualCost > rc.MaxCost {
		log.Printf("hub: consistency fault op=%s: actual cost %d exceeds reserved %d", opID, req.ActualCost, rc.MaxCost)
		return types.SettlementReceipt{}, newConsistencyFault(faultCostExceedsReserve, "actual cost exceeds reserved maximum")
	}

	receipt, err := s.settleLocked(ctx, rc, req)
	if err != nil {
		return types.SettlementReceipt{}, err
	}

	if req.Outcome == types.OutcomeSuccess {
		receipt.BountyPaid = s.payBountyAfterCommit(ctx, rc, req.ActualCost)
	}
	return receipt, nil
}

// settleLocked applies the balance-mutating half of Settle under the tenant
// and fund locks. The bounty payment happens after it returns, so nothing
// here ever re-enters the ledger.
func (s *HubService) settleLocked(ctx context.Context, rc types.ReservationContext, req SettleRequest) (types.SettlementReceipt, error) {
	opID := rc.OpID

	unlock := s.lockTenant(rc.TenantID)
	defer unlock()

	now := s.now()

	tenant, ok, err := s.store.GetTenant(ctx, rc.TenantID)
	if err != nil {
		return types.SettlementReceipt{}, err
	}
	if !ok {
		return types.SettlementReceipt{}, newConsistencyFault(faultContextUnknown, "tenant missing for reservation")
	}

	fin, err := s.store.GetFinancials(ctx, rc.TenantID)
	if err != nil {
		return types.SettlementReceipt{}, err
	}
	rollSolidarityPeriod(&fin, now)

	cfg, err := s.store.GetGraceConfig(ctx)
	if err != nil {
		return types.SettlementReceipt{}, err
	}

	s.fundMu.Lock()
	defer s.fundMu.Unlock()

	fund, err := s.store.GetFund(ctx)
	if err != nil {
		return types.SettlementReceipt{}, err
	}

	headroom := min(solidarityHeadroom(tenant, fin, cfg, now), fund.Balance)
	split := computeSplit(req.ActualCost, fin.Available(), headroom, rc.InGrace)
	if split.Shortfall > 0 {
		log.Printf("hub: consistency fault op=%s tenant=%s: settlement shortfall %d", opID, rc.TenantID, split.Shortfall)
		return types.SettlementReceipt{}, newConsistencyFault(faultSettlementShort, "deposit and solidarity draw cannot cover actual cost")
	}

	fin.Spent += split.FromDeposits
	fin.SolidarityUsedThisPeriod += split.FromSolidarity
	fund.Balance -= split.FromSolidarity

	// The fee is overhead on top of the apportioned cost, charged against
	// remaining deposit headroom rather than double-drawn from the pools.
	fee := min(solidarityFee(req.ActualCost, fund.FeeBps), fin.Available())
	fin.Spent += fee
	fund.Balance += fee

	// Commit budget usage with the actual cost. If the epoch rolled between
	// authorize and settle the usage lands in the new epoch; the old epoch
	// never sees it.
	var budgetRow *types.Budget
	budget, hasBudget, err := s.store.GetBudget(ctx, rc.TenantID, rc.SubjectKey)
	if err != nil {
		return types.SettlementReceipt{}, err
	}
	if hasBudget {
		budget.Roll(now)
		if !budget.EpochStart.Equal(rc.EpochStartSnapshot) {
			log.Printf("hub: epoch rolled between authorize and settle op=%s tenant=%s subject=%s", opID, rc.TenantID, rc.SubjectKey)
		}
		budget.UsedInEpoch += req.ActualCost
		budgetRow = &budget
	}

	receiptID, err := newUUID()
	if err != nil {
		return types.SettlementReceipt{}, err
	}
	receipt := types.SettlementReceipt{
		ReceiptID:      receiptID,
		OpID:           opID,
		TenantID:       rc.TenantID,
		SubjectKey:     rc.SubjectKey,
		ActualCost:     req.ActualCost,
		FromDeposits:   split.FromDeposits,
		FromSolidarity: split.FromSolidarity,
		FeeCollected:   fee,
		Outcome:        req.Outcome,
		SettledAt:      now,
	}

	delta := ports.SettlementDelta{
		TenantID:   rc.TenantID,
		Financials: fin,
		Fund:       fund,
		Budget:     budgetRow,
		Receipt:    receipt,
	}
	if err := s.store.ApplySettlement(ctx, delta); err != nil {
		return types.SettlementReceipt{}, err
	}

	log.Printf("hub: settle op=%s tenant=%s cost=%d deposits=%d solidarity=%d fee=%d outcome=%s",
		opID, rc.TenantID, req.ActualCost, split.FromDeposits, split.FromSolidarity, fee, req.Outcome)

	return receipt, nil
}

// payBountyAfterCommit runs the best-effort relay incentive strictly after
// the settlement commit, with no ledger lock held.
func (s *HubService) payBountyAfterCommit(ctx context.Context, rc types.ReservationContext, actualCost int64) int64 {
	paid := s.bounty.pay(ctx, rc.TenantID, rc.RelayOperator, actualCost)
	if paid > 0 {
		if err := s.store.RecordBountyPaid(ctx, rc.OpID, paid); err != nil {
			log.Printf("hub: bounty receipt update failed op=%s: %v", rc.OpID, err)
		}
	}
	return paid
}

// PurgeExpiredReservations drops reservation contexts that were authorized
// but never settled within the TTL.
func (s *HubService) PurgeExpiredReservations(ctx context.Context) (int, error) {
	return s.store.PurgeExpiredReservations(ctx, s.now().Add(-reservationTTL))
}
