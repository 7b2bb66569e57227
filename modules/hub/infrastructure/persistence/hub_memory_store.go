package persistence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/openmutual/hub/modules/hub/domain/ports"
	"github.com/openmutual/hub/modules/hub/domain/types"
)

type ruleKey struct {
	Target   string
	Selector string
}

// HubMemoryStore is the in-process twin of HubPGStore. It backs the server
// when no database is configured and every service-level test.
type HubMemoryStore struct {
	mu sync.Mutex

	tenants      map[string]types.Tenant
	rules        map[string]map[ruleKey]types.Rule
	caps         map[string]types.Caps
	budgets      map[string]map[string]types.Budget
	financials   map[string]types.OrgFinancials
	fund         types.SolidarityFund
	graceConfig  types.GracePeriodConfig
	reservations map[string]types.ReservationContext
	receipts     map[string]types.SettlementReceipt
	bountyCfgs   map[string]types.BountyConfig
	bountyAccts  map[string]types.BountyAccount
}

func NewHubMemoryStore() *HubMemoryStore {
	return &HubMemoryStore{
		tenants:      make(map[string]types.Tenant),
		rules:        make(map[string]map[ruleKey]types.Rule),
		caps:         make(map[string]types.Caps),
		budgets:      make(map[string]map[string]types.Budget),
		financials:   make(map[string]types.OrgFinancials),
		reservations: make(map[string]types.ReservationContext),
		receipts:     make(map[string]types.SettlementReceipt),
		bountyCfgs:   make(map[string]types.BountyConfig),
		bountyAccts:  make(map[string]types.BountyAccount),
	}
}

var _ ports.HubStore = (*HubMemoryStore)(nil)

func (s *HubMemoryStore) CreateTenant(_ context.Context, t types.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[t.ID]; ok {
		return errors.New("tenant already exists")
	}
	s.tenants[t.ID] = t
	return nil
}

func (s *HubMemoryStore) GetTenant(_ context.Context, tenantID string) (types.Tenant, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	return t, ok, nil
}

func (s *HubMemoryStore) SetPause(_ context.Context, tenantID string, paused bool) error {
	return s.mutateTenant(tenantID, func(t *types.Tenant) { t.Paused = paused })
}

func (s *HubMemoryStore) SetOperatorRole(_ context.Context, tenantID string, operatorRole string) error {
	return s.mutateTenant(tenantID, func(t *types.Tenant) { t.OperatorRole = operatorRole })
}

func (s *HubMemoryStore) SetBanFromSolidarity(_ context.Context, tenantID string, banned bool) error {
	return s.mutateTenant(tenantID, func(t *types.Tenant) { t.BannedFromSolidarity = banned })
}

func (s *HubMemoryStore) mutateTenant(tenantID string, fn func(*types.Tenant)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[tenantID]
	if !ok {
		return errors.New("tenant not found")
	}
	fn(&t)
	s.tenants[tenantID] = t
	return nil
}

func (s *HubMemoryStore) UpsertRule(_ context.Context, tenantID string, rule types.Rule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rules[tenantID] == nil {
		s.rules[tenantID] = make(map[ruleKey]types.Rule)
	}
	s.rules[tenantID][ruleKey{Target: rule.Target, Selector: rule.Selector}] = rule
	return nil
}

func (s *HubMemoryStore) DeleteRule(_ context.Context, tenantID string, target string, selector string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rules[tenantID], ruleKey{Target: target, Selector: selector})
	return nil
}

func (s *HubMemoryStore) GetRule(_ context.Context, tenantID string, target string, selector string) (types.Rule, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rule, ok := s.rules[tenantID][ruleKey{Target: target, Selector: selector}]
	return rule, ok, nil
}

func (s *HubMemoryStore) SetCaps(_ context.Context, tenantID string, caps types.Caps) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.caps[tenantID] = caps
	return nil
}

func (s *HubMemoryStore) GetCaps(_ context.Context, tenantID string) (types.Caps, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps[tenantID], nil
}

func (s *HubMemoryStore) GetBudget(_ context.Context, tenantID string, subjectKey string) (types.Budget, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[tenantID][subjectKey]
	return b, ok, nil
}

func (s *HubMemoryStore) PutBudget(_ context.Context, tenantID string, budget types.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.budgets[tenantID] == nil {
		s.budgets[tenantID] = make(map[string]types.Budget)
	}
	s.budgets[tenantID][budget.SubjectKey] = budget
	return nil
}

func (s *HubMemoryStore) GetFinancials(_ context.Context, tenantID string) (types.OrgFinancials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.financials[tenantID], nil
}

func (s *HubMemoryStore) PutFinancials(_ context.Context, tenantID string, f types.OrgFinancials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.financials[tenantID] = f
	return nil
}

func (s *HubMemoryStore) GetFund(_ context.Context) (types.SolidarityFund, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fund, nil
}

func (s *HubMemoryStore) PutFund(_ context.Context, fund types.SolidarityFund) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fund = fund
	return nil
}

func (s *HubMemoryStore) GetGraceConfig(_ context.Context) (types.GracePeriodConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graceConfig, nil
}

func (s *HubMemoryStore) PutGraceConfig(_ context.Context, cfg types.GracePeriodConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graceConfig = cfg
	return nil
}

func (s *HubMemoryStore) PutReservation(_ context.Context, rc types.ReservationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reservations[rc.OpID]; ok {
		return errors.New("reservation already exists")
	}
	s.reservations[rc.OpID] = rc
	return nil
}

func (s *HubMemoryStore) ConsumeReservation(_ context.Context, opID string) (types.ReservationContext, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rc, ok := s.reservations[opID]
	if !ok {
		return types.ReservationContext{}, false, nil
	}
	delete(s.reservations, opID)
	return rc, true, nil
}

func (s *HubMemoryStore) PurgeExpiredReservations(_ context.Context, olderThan time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for opID, rc := range s.reservations {
		if rc.CreatedAt.Before(olderThan) {
			delete(s.reservations, opID)
			n++
		}
	}
	return n, nil
}

func (s *HubMemoryStore) GetBountyConfig(_ context.Context, tenantID string) (types.BountyConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bountyCfgs[tenantID], nil
}

func (s *HubMemoryStore) SetBountyConfig(_ context.Context, tenantID string, cfg types.BountyConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bountyCfgs[tenantID] = cfg
	return nil
}

func (s *HubMemoryStore) GetBountyAccount(_ context.Context, tenantID string) (types.BountyAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bountyAccts[tenantID], nil
}

func (s *HubMemoryStore) AddBountyFunds(_ context.Context, tenantID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct := s.bountyAccts[tenantID]
	if acct.Balance+amount < 0 {
		return errors.New("bounty balance would go negative")
	}
	acct.Balance += amount
	s.bountyAccts[tenantID] = acct
	return nil
}

func (s *HubMemoryStore) ApplySettlement(_ context.Context, delta ports.SettlementDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tenants[delta.TenantID]; !ok {
		return errors.New("tenant not found")
	}
	if _, ok := s.receipts[delta.Receipt.OpID]; ok {
		return errors.New("receipt already exists for op")
	}
	s.financials[delta.TenantID] = delta.Financials
	s.fund = delta.Fund
	if delta.Budget != nil {
		if s.budgets[delta.TenantID] == nil {
			s.budgets[delta.TenantID] = make(map[string]types.Budget)
		}
		s.budgets[delta.TenantID][delta.Budget.SubjectKey] = *delta.Budget
	}
	s.receipts[delta.Receipt.OpID] = delta.Receipt
	return nil
}

func (s *HubMemoryStore) GetReceipt(_ context.Context, opID string) (types.SettlementReceipt, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[opID]
	return r, ok, nil
}

func (s *HubMemoryStore) RecordBountyPaid(_ context.Context, opID string, amount int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.receipts[opID]
	if !ok {
		return errors.New("receipt not found")
	}
	r.BountyPaid = amount
	s.receipts[opID] = r
	return nil
}
