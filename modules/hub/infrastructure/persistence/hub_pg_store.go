package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/openmutual/hub/modules/hub/domain/ports"
	"github.com/openmutual/hub/modules/hub/domain/types"
)

type pgBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// HubPGStore persists the hub ledger in Postgres. Every call runs in its
// own transaction with app.current_tenant set for row-level policies;
// ApplySettlement writes all of its rows in one transaction.
type HubPGStore struct {
	pool pgBeginner
}

func NewHubPGStore(pool pgBeginner) *HubPGStore {
	return &HubPGStore{pool: pool}
}

var _ ports.HubStore = (*HubPGStore)(nil)

// globalTenant scopes rows that belong to no tenant (fund, grace config).
const globalTenant = "00000000-global"

func (s *HubPGStore) withTx(ctx context.Context, tenantID string, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(context.Background()) }()

	if _, err := tx.Exec(ctx, `SELECT set_config('app.current_tenant', $1, true);`, tenantID); err != nil {
		return err
	}

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *HubPGStore) CreateTenant(ctx context.Context, t types.Tenant) error {
	return s.withTx(ctx, t.ID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO hub.tenants (tenant_id, admin_role, operator_role, paused, registered_at, banned_from_solidarity)
VALUES ($1, $2, $3, $4, $5, $6);
`, t.ID, t.AdminRole, t.OperatorRole, t.Paused, t.RegisteredAt, t.BannedFromSolidarity)
		return err
	})
}

func (s *HubPGStore) GetTenant(ctx context.Context, tenantID string) (types.Tenant, bool, error) {
	var t types.Tenant
	found := false
	err := s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT tenant_id, admin_role, operator_role, paused, registered_at, banned_from_solidarity
FROM hub.tenants
WHERE tenant_id = $1;
`, tenantID)
		err := row.Scan(&t.ID, &t.AdminRole, &t.OperatorRole, &t.Paused, &t.RegisteredAt, &t.BannedFromSolidarity)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return t, found, err
}

func (s *HubPGStore) SetPause(ctx context.Context, tenantID string, paused bool) error {
	return s.updateTenantField(ctx, tenantID, `UPDATE hub.tenants SET paused = $2 WHERE tenant_id = $1;`, paused)
}

func (s *HubPGStore) SetOperatorRole(ctx context.Context, tenantID string, operatorRole string) error {
	return s.updateTenantField(ctx, tenantID, `UPDATE hub.tenants SET operator_role = $2 WHERE tenant_id = $1;`, operatorRole)
}

func (s *HubPGStore) SetBanFromSolidarity(ctx context.Context, tenantID string, banned bool) error {
	return s.updateTenantField(ctx, tenantID, `UPDATE hub.tenants SET banned_from_solidarity = $2 WHERE tenant_id = $1;`, banned)
}

func (s *HubPGStore) updateTenantField(ctx context.Context, tenantID string, sql string, value any) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, sql, tenantID, value)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errors.New("tenant not found")
		}
		return nil
	})
}

func (s *HubPGStore) UpsertRule(ctx context.Context, tenantID string, rule types.Rule) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO hub.rules (tenant_id, target, selector, allowed, cost_hint, guard_expr)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id, target, selector)
DO UPDATE SET allowed = EXCLUDED.allowed, cost_hint = EXCLUDED.cost_hint, guard_expr = EXCLUDED.guard_expr;
`, tenantID, rule.Target, rule.Selector, rule.Allowed, int64(rule.CostHint), rule.GuardExpr)
		return err
	})
}

func (s *HubPGStore) DeleteRule(ctx context.Context, tenantID string, target string, selector string) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
DELETE FROM hub.rules WHERE tenant_id = $1 AND target = $2 AND selector = $3;
`, tenantID, target, selector)
		return err
	})
}

func (s *HubPGStore) GetRule(ctx context.Context, tenantID string, target string, selector string) (types.Rule, bool, error) {
	var rule types.Rule
	var costHint int64
	found := false
	err := s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT target, selector, allowed, cost_hint, guard_expr
FROM hub.rules
WHERE tenant_id = $1 AND target = $2 AND selector = $3;
`, tenantID, target, selector)
		err := row.Scan(&rule.Target, &rule.Selector, &rule.Allowed, &costHint, &rule.GuardExpr)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		rule.CostHint = uint32(costHint)
		found = true
		return nil
	})
	return rule, found, err
}

func (s *HubPGStore) SetCaps(ctx context.Context, tenantID string, caps types.Caps) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO hub.caps (tenant_id, max_unit_price, max_compute_cost, max_storage_cost, max_transfer_cost)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (tenant_id)
DO UPDATE SET max_unit_price = EXCLUDED.max_unit_price,
              max_compute_cost = EXCLUDED.max_compute_cost,
              max_storage_cost = EXCLUDED.max_storage_cost,
              max_transfer_cost = EXCLUDED.max_transfer_cost;
`, tenantID, caps.MaxUnitPrice, caps.MaxComputeCost, caps.MaxStorageCost, caps.MaxTransferCost)
		return err
	})
}

func (s *HubPGStore) GetCaps(ctx context.Context, tenantID string) (types.Caps, error) {
	var caps types.Caps
	err := s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT max_unit_price, max_compute_cost, max_storage_cost, max_transfer_cost
FROM hub.caps
WHERE tenant_id = $1;
`, tenantID)
		err := row.Scan(&caps.MaxUnitPrice, &caps.MaxComputeCost, &caps.MaxStorageCost, &caps.MaxTransferCost)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return caps, err
}

func (s *HubPGStore) GetBudget(ctx context.Context, tenantID string, subjectKey string) (types.Budget, bool, error) {
	var b types.Budget
	var epochSeconds int64
	found := false
	err := s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT subject_key, cap_per_epoch, used_in_epoch, epoch_length_seconds, epoch_start
FROM hub.budgets
WHERE tenant_id = $1 AND subject_key = $2;
`, tenantID, subjectKey)
		err := row.Scan(&b.SubjectKey, &b.CapPerEpoch, &b.UsedInEpoch, &epochSeconds, &b.EpochStart)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		b.EpochLength = time.Duration(epochSeconds) * time.Second
		found = true
		return nil
	})
	return b, found, err
}

func (s *HubPGStore) PutBudget(ctx context.Context, tenantID string, budget types.Budget) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		return putBudgetTx(ctx, tx, tenantID, budget)
	})
}

func putBudgetTx(ctx context.Context, tx pgx.Tx, tenantID string, budget types.Budget) error {
	_, err := tx.Exec(ctx, `
INSERT INTO hub.budgets (tenant_id, subject_key, cap_per_epoch, used_in_epoch, epoch_length_seconds, epoch_start)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id, subject_key)
DO UPDATE SET cap_per_epoch = EXCLUDED.cap_per_epoch,
              used_in_epoch = EXCLUDED.used_in_epoch,
              epoch_length_seconds = EXCLUDED.epoch_length_seconds,
              epoch_start = EXCLUDED.epoch_start;
`, tenantID, budget.SubjectKey, budget.CapPerEpoch, budget.UsedInEpoch, int64(budget.EpochLength/time.Second), budget.EpochStart)
	return err
}

func (s *HubPGStore) GetFinancials(ctx context.Context, tenantID string) (types.OrgFinancials, error) {
	var f types.OrgFinancials
	err := s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT deposited, total_deposited, spent, solidarity_used_this_period, period_start
FROM hub.org_financials
WHERE tenant_id = $1;
`, tenantID)
		err := row.Scan(&f.Deposited, &f.TotalDeposited, &f.Spent, &f.SolidarityUsedThisPeriod, &f.PeriodStart)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return f, err
}

func (s *HubPGStore) PutFinancials(ctx context.Context, tenantID string, f types.OrgFinancials) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		return putFinancialsTx(ctx, tx, tenantID, f)
	})
}

func putFinancialsTx(ctx context.Context, tx pgx.Tx, tenantID string, f types.OrgFinancials) error {
	_, err := tx.Exec(ctx, `
INSERT INTO hub.org_financials (tenant_id, deposited, total_deposited, spent, solidarity_used_this_period, period_start)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (tenant_id)
DO UPDATE SET deposited = EXCLUDED.deposited,
              total_deposited = EXCLUDED.total_deposited,
              spent = EXCLUDED.spent,
              solidarity_used_this_period = EXCLUDED.solidarity_used_this_period,
              period_start = EXCLUDED.period_start;
`, tenantID, f.Deposited, f.TotalDeposited, f.Spent, f.SolidarityUsedThisPeriod, f.PeriodStart)
	return err
}

func (s *HubPGStore) GetFund(ctx context.Context) (types.SolidarityFund, error) {
	var fund types.SolidarityFund
	err := s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT balance, active_tenant_count, fee_bps FROM hub.solidarity_fund WHERE singleton = true;
`)
		err := row.Scan(&fund.Balance, &fund.ActiveTenantCount, &fund.FeeBps)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return fund, err
}

func (s *HubPGStore) PutFund(ctx context.Context, fund types.SolidarityFund) error {
	return s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		return putFundTx(ctx, tx, fund)
	})
}

func putFundTx(ctx context.Context, tx pgx.Tx, fund types.SolidarityFund) error {
	_, err := tx.Exec(ctx, `
INSERT INTO hub.solidarity_fund (singleton, balance, active_tenant_count, fee_bps)
VALUES (true, $1, $2, $3)
ON CONFLICT (singleton)
DO UPDATE SET balance = EXCLUDED.balance,
              active_tenant_count = EXCLUDED.active_tenant_count,
              fee_bps = EXCLUDED.fee_bps;
`, fund.Balance, fund.ActiveTenantCount, fund.FeeBps)
	return err
}

func (s *HubPGStore) GetGraceConfig(ctx context.Context) (types.GracePeriodConfig, error) {
	var cfg types.GracePeriodConfig
	err := s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT grace_days, max_spend_during_grace, min_deposit_required FROM hub.grace_config WHERE singleton = true;
`)
		err := row.Scan(&cfg.GraceDays, &cfg.MaxSpendDuringGrace, &cfg.MinDepositRequired)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return cfg, err
}

func (s *HubPGStore) PutGraceConfig(ctx context.Context, cfg types.GracePeriodConfig) error {
	return s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO hub.grace_config (singleton, grace_days, max_spend_during_grace, min_deposit_required)
VALUES (true, $1, $2, $3)
ON CONFLICT (singleton)
DO UPDATE SET grace_days = EXCLUDED.grace_days,
              max_spend_during_grace = EXCLUDED.max_spend_during_grace,
              min_deposit_required = EXCLUDED.min_deposit_required;
`, cfg.GraceDays, cfg.MaxSpendDuringGrace, cfg.MinDepositRequired)
		return err
	})
}

func (s *HubPGStore) PutReservation(ctx context.Context, rc types.ReservationContext) error {
	return s.withTx(ctx, rc.TenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO hub.reservations (op_id, tenant_id, subject_key, target, selector, max_cost, epoch_start_snapshot, relay_operator, in_grace, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`, rc.OpID, rc.TenantID, rc.SubjectKey, rc.Target, rc.Selector, rc.MaxCost, rc.EpochStartSnapshot, rc.RelayOperator, rc.InGrace, rc.CreatedAt)
		return err
	})
}

func (s *HubPGStore) ConsumeReservation(ctx context.Context, opID string) (types.ReservationContext, bool, error) {
	var rc types.ReservationContext
	found := false
	err := s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
DELETE FROM hub.reservations
WHERE op_id = $1
RETURNING op_id, tenant_id, subject_key, target, selector, max_cost, epoch_start_snapshot, relay_operator, in_grace, created_at;
`, opID)
		err := row.Scan(&rc.OpID, &rc.TenantID, &rc.SubjectKey, &rc.Target, &rc.Selector, &rc.MaxCost, &rc.EpochStartSnapshot, &rc.RelayOperator, &rc.InGrace, &rc.CreatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	return rc, found, err
}

func (s *HubPGStore) PurgeExpiredReservations(ctx context.Context, olderThan time.Time) (int, error) {
	n := 0
	err := s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `DELETE FROM hub.reservations WHERE created_at < $1;`, olderThan)
		if err != nil {
			return err
		}
		n = int(tag.RowsAffected())
		return nil
	})
	return n, err
}

func (s *HubPGStore) GetBountyConfig(ctx context.Context, tenantID string) (types.BountyConfig, error) {
	var cfg types.BountyConfig
	err := s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT enabled, max_per_op, pct_cap_bps FROM hub.bounty_configs WHERE tenant_id = $1;
`, tenantID)
		err := row.Scan(&cfg.Enabled, &cfg.MaxPerOp, &cfg.PctCapBps)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return cfg, err
}

func (s *HubPGStore) SetBountyConfig(ctx context.Context, tenantID string, cfg types.BountyConfig) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
INSERT INTO hub.bounty_configs (tenant_id, enabled, max_per_op, pct_cap_bps)
VALUES ($1, $2, $3, $4)
ON CONFLICT (tenant_id)
DO UPDATE SET enabled = EXCLUDED.enabled,
              max_per_op = EXCLUDED.max_per_op,
              pct_cap_bps = EXCLUDED.pct_cap_bps;
`, tenantID, cfg.Enabled, cfg.MaxPerOp, cfg.PctCapBps)
		return err
	})
}

func (s *HubPGStore) GetBountyAccount(ctx context.Context, tenantID string) (types.BountyAccount, error) {
	var acct types.BountyAccount
	err := s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT balance FROM hub.bounty_accounts WHERE tenant_id = $1;`, tenantID)
		err := row.Scan(&acct.Balance)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	})
	return acct, err
}

func (s *HubPGStore) AddBountyFunds(ctx context.Context, tenantID string, amount int64) error {
	return s.withTx(ctx, tenantID, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
INSERT INTO hub.bounty_accounts (tenant_id, balance)
VALUES ($1, $2)
ON CONFLICT (tenant_id)
DO UPDATE SET balance = hub.bounty_accounts.balance + EXCLUDED.balance
RETURNING balance;
`, tenantID, amount)
		var balance int64
		if err := row.Scan(&balance); err != nil {
			return err
		}
		if balance < 0 {
			return errors.New("bounty balance would go negative")
		}
		return nil
	})
}

func (s *HubPGStore) ApplySettlement(ctx context.Context, delta ports.SettlementDelta) error {
	return s.withTx(ctx, delta.TenantID, func(tx pgx.Tx) error {
		if err := putFinancialsTx(ctx, tx, delta.TenantID, delta.Financials); err != nil {
			return err
		}
		if err := putFundTx(ctx, tx, delta.Fund); err != nil {
			return err
		}
		if delta.Budget != nil {
			if err := putBudgetTx(ctx, tx, delta.TenantID, *delta.Budget); err != nil {
				return err
			}
		}
		r := delta.Receipt
		_, err := tx.Exec(ctx, `
INSERT INTO hub.receipts (receipt_id, op_id, tenant_id, subject_key, actual_cost, from_deposits, from_solidarity, fee_collected, bounty_paid, outcome, settled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`, r.ReceiptID, r.OpID, r.TenantID, r.SubjectKey, r.ActualCost, r.FromDeposits, r.FromSolidarity, r.FeeCollected, r.BountyPaid, string(r.Outcome), r.SettledAt)
		return err
	})
}

func (s *HubPGStore) GetReceipt(ctx context.Context, opID string) (types.SettlementReceipt, bool, error) {
	var r types.SettlementReceipt
	var outcome string
	found := false
	err := s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
SELECT receipt_id, op_id, tenant_id, subject_key, actual_cost, from_deposits, from_solidarity, fee_collected, bounty_paid, outcome, settled_at
FROM hub.receipts
WHERE op_id = $1;
`, opID)
		err := row.Scan(&r.ReceiptID, &r.OpID, &r.TenantID, &r.SubjectKey, &r.ActualCost, &r.FromDeposits, &r.FromSolidarity, &r.FeeCollected, &r.BountyPaid, &outcome, &r.SettledAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		r.Outcome = types.Outcome(outcome)
		found = true
		return nil
	})
	return r, found, err
}

func (s *HubPGStore) RecordBountyPaid(ctx context.Context, opID string, amount int64) error {
	return s.withTx(ctx, globalTenant, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE hub.receipts SET bounty_paid = $2 WHERE op_id = $1;`, opID, amount)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return errors.New("receipt not found")
		}
		return nil
	})
}
