package ports

import (
	"context"
	"time"

	"github.com/openmutual/hub/modules/hub/domain/types"
)

// SettlementDelta is the full set of ledger writes for one settle call,
// expressed as post-state rows. Stores must apply it atomically: either
// every row lands or none does.
type SettlementDelta struct {
	TenantID   string
	Financials types.OrgFinancials
	Fund       types.SolidarityFund
	// Budget is nil when the subject has no configured budget.
	Budget  *types.Budget
	Receipt types.SettlementReceipt
}

type TenantStore interface {
	CreateTenant(ctx context.Context, t types.Tenant) error
	GetTenant(ctx context.Context, tenantID string) (types.Tenant, bool, error)
	SetPause(ctx context.Context, tenantID string, paused bool) error
	SetOperatorRole(ctx context.Context, tenantID string, operatorRole string) error
	SetBanFromSolidarity(ctx context.Context, tenantID string, banned bool) error
}

type RuleStore interface {
	UpsertRule(ctx context.Context, tenantID string, rule types.Rule) error
	DeleteRule(ctx context.Context, tenantID string, target string, selector string) error
	GetRule(ctx context.Context, tenantID string, target string, selector string) (types.Rule, bool, error)
}

type CapsStore interface {
	SetCaps(ctx context.Context, tenantID string, caps types.Caps) error
	GetCaps(ctx context.Context, tenantID string) (types.Caps, error)
}

type BudgetStore interface {
	GetBudget(ctx context.Context, tenantID string, subjectKey string) (types.Budget, bool, error)
	PutBudget(ctx context.Context, tenantID string, budget types.Budget) error
}

type FinancialsStore interface {
	GetFinancials(ctx context.Context, tenantID string) (types.OrgFinancials, error)
	PutFinancials(ctx context.Context, tenantID string, f types.OrgFinancials) error
}

type FundStore interface {
	GetFund(ctx context.Context) (types.SolidarityFund, error)
	PutFund(ctx context.Context, fund types.SolidarityFund) error
	GetGraceConfig(ctx context.Context) (types.GracePeriodConfig, error)
	PutGraceConfig(ctx context.Context, cfg types.GracePeriodConfig) error
}

type ReservationStore interface {
	PutReservation(ctx context.Context, rc types.ReservationContext) error
	// ConsumeReservation removes and returns the context for opID. The
	// second return is false when the context is unknown or already
	// consumed.
	ConsumeReservation(ctx context.Context, opID string) (types.ReservationContext, bool, error)
	PurgeExpiredReservations(ctx context.Context, olderThan time.Time) (int, error)
}

type BountyStore interface {
	GetBountyConfig(ctx context.Context, tenantID string) (types.BountyConfig, error)
	SetBountyConfig(ctx context.Context, tenantID string, cfg types.BountyConfig) error
	GetBountyAccount(ctx context.Context, tenantID string) (types.BountyAccount, error)
	// AddBountyFunds credits (amount > 0) or debits (amount < 0) the
	// separately funded bounty balance. Debits below zero must fail.
	AddBountyFunds(ctx context.Context, tenantID string, amount int64) error
}

type SettlementStore interface {
	ApplySettlement(ctx context.Context, delta SettlementDelta) error
	GetReceipt(ctx context.Context, opID string) (types.SettlementReceipt, bool, error)
	// RecordBountyPaid annotates an already-persisted receipt with the
	// best-effort bounty amount paid after commit.
	RecordBountyPaid(ctx context.Context, opID string, amount int64) error
}

// HubStore is the full persistence surface the Hub service runs on.
type HubStore interface {
	TenantStore
	RuleStore
	CapsStore
	BudgetStore
	FinancialsStore
	FundStore
	ReservationStore
	BountyStore
	SettlementStore
}
