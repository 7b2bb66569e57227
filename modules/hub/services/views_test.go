package services

import (
	"context"
	"testing"
	"time"

	"github.com/openmutual/hub/modules/hub/domain/types"
)

func TestGetGraceStatusDuringGrace(t *testing.T) {
	svc, _, _ := newTestHub(t)
	ctx := context.Background()

	rc := mustAuthorize(t, svc, authReq(300))
	if _, err := svc.Settle(ctx, SettleRequest{OpID: rc.OpID, ActualCost: 300, Outcome: types.OutcomeSuccess}); err != nil {
		t.Fatalf("Settle: %v", err)
	}

	st, err := svc.GetGraceStatus(ctx, testTenant)
	if err != nil {
		t.Fatalf("GetGraceStatus: %v", err)
	}
	if !st.InGrace {
		t.Fatal("expected in grace")
	}
	if st.RemainingGraceSpend != 700 {
		t.Fatalf("RemainingGraceSpend = %d, want 700", st.RemainingGraceSpend)
	}
	if st.SolidarityUsed != 300 {
		t.Fatalf("SolidarityUsed = %d, want 300", st.SolidarityUsed)
	}
}

func TestGetGraceStatusAfterGrace(t *testing.T) {
	svc, _, clock := newTestHub(t)
	ctx := context.Background()

	clock.advance(8 * 24 * time.Hour)
	if err := svc.Deposit(ctx, testTenant, 600); err != nil {
		t.Fatalf("Deposit: %v", err)
	}

	st, err := svc.GetGraceStatus(ctx, testTenant)
	if err != nil {
		t.Fatalf("GetGraceStatus: %v", err)
	}
	if st.InGrace {
		t.Fatal("expected grace over")
	}
	if st.Tier != 2 {
		t.Fatalf("Tier = %d, want 2", st.Tier)
	}
	if st.MatchAllowance != 900 {
		t.Fatalf("MatchAllowance = %d, want 900", st.MatchAllowance)
	}
}

func TestGetGraceStatusUnknownTenant(t *testing.T) {
	svc, _, _ := newTestHub(t)

	_, err := svc.GetGraceStatus(context.Background(), "ghost-org")
	assertValidation(t, err, "HUB_TENANT_NOT_FOUND")
}

func TestGetReceiptMissing(t *testing.T) {
	svc, _, _ := newTestHub(t)

	_, found, err := svc.GetReceipt(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetReceipt: %v", err)
	}
	if found {
		t.Fatal("unexpected receipt")
	}
}

func TestGetFundSnapshot(t *testing.T) {
	svc, _, _ := newTestHub(t)
	ctx := context.Background()

	fund, err := svc.GetFundSnapshot(ctx)
	if err != nil {
		t.Fatalf("GetFundSnapshot: %v", err)
	}
	if fund.Balance != 1_000_000 {
		t.Fatalf("fund balance = %d, want 1000000", fund.Balance)
	}
	if fund.ActiveTenantCount != 1 {
		t.Fatalf("active tenants = %d, want 1", fund.ActiveTenantCount)
	}
}
