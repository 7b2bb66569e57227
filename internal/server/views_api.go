package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/openmutual/hub/internal/routing"
	hubservices "github.com/openmutual/hub/modules/hub/services"
)

func queryTenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := strings.TrimSpace(r.URL.Query().Get("tenant_id"))
	if tenantID == "" {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusBadRequest, "invalid_tenant_id", "tenant_id required")
		return "", false
	}
	return tenantID, true
}

type tenantAPI struct {
	ID                   string    `json:"tenant_id"`
	AdminRole            string    `json:"admin_role"`
	OperatorRole         string    `json:"operator_role"`
	Paused               bool      `json:"paused"`
	RegisteredAt         time.Time `json:"registered_at"`
	BannedFromSolidarity bool      `json:"banned_from_solidarity"`
}

func handleGetTenantAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	t, err := svc.GetTenant(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantAPI{
		ID:                   t.ID,
		AdminRole:            t.AdminRole,
		OperatorRole:         t.OperatorRole,
		Paused:               t.Paused,
		RegisteredAt:         t.RegisteredAt,
		BannedFromSolidarity: t.BannedFromSolidarity,
	})
}

type financialsAPI struct {
	Deposited                int64     `json:"deposited"`
	TotalDeposited           int64     `json:"total_deposited"`
	Spent                    int64     `json:"spent"`
	Available                int64     `json:"available"`
	SolidarityUsedThisPeriod int64     `json:"solidarity_used_this_period"`
	PeriodStart              time.Time `json:"period_start"`
}

func handleGetFinancialsAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	f, err := svc.GetFinancials(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, financialsAPI{
		Deposited:                f.Deposited,
		TotalDeposited:           f.TotalDeposited,
		Spent:                    f.Spent,
		Available:                f.Available(),
		SolidarityUsedThisPeriod: f.SolidarityUsedThisPeriod,
		PeriodStart:              f.PeriodStart,
	})
}

type budgetAPI struct {
	SubjectKey         string    `json:"subject_key"`
	CapPerEpoch        int64     `json:"cap_per_epoch"`
	UsedInEpoch        int64     `json:"used_in_epoch"`
	EpochLengthSeconds int64     `json:"epoch_length_seconds"`
	EpochStart         time.Time `json:"epoch_start"`
}

func handleGetBudgetAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	subjectKey := strings.TrimSpace(r.URL.Query().Get("subject_key"))
	if subjectKey == "" {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusBadRequest, "invalid_subject_key", "subject_key required")
		return
	}
	b, found, err := svc.GetBudget(r.Context(), tenantID, subjectKey)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	if !found {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusNotFound, "budget_not_found", "budget not found")
		return
	}
	writeJSON(w, http.StatusOK, budgetAPI{
		SubjectKey:         b.SubjectKey,
		CapPerEpoch:        b.CapPerEpoch,
		UsedInEpoch:        b.UsedInEpoch,
		EpochLengthSeconds: int64(b.EpochLength / time.Second),
		EpochStart:         b.EpochStart,
	})
}

func handleGetRuleAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	target := strings.TrimSpace(r.URL.Query().Get("target"))
	selector := strings.TrimSpace(r.URL.Query().Get("selector"))
	if target == "" {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusBadRequest, "invalid_target", "target required")
		return
	}
	rule, found, err := svc.GetRule(r.Context(), tenantID, target, selector)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	if !found {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusNotFound, "rule_not_found", "rule not found")
		return
	}
	writeJSON(w, http.StatusOK, ruleAPI{
		Target:    rule.Target,
		Selector:  rule.Selector,
		Allowed:   rule.Allowed,
		CostHint:  rule.CostHint,
		GuardExpr: rule.GuardExpr,
	})
}

func handleGetCapsAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	caps, err := svc.GetCaps(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, capsAPI{
		MaxUnitPrice:    caps.MaxUnitPrice,
		MaxComputeCost:  caps.MaxComputeCost,
		MaxStorageCost:  caps.MaxStorageCost,
		MaxTransferCost: caps.MaxTransferCost,
	})
}

func handleGetBountyConfigAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	cfg, err := svc.GetBountyConfig(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, bountyConfigAPI{
		Enabled:   cfg.Enabled,
		MaxPerOp:  cfg.MaxPerOp,
		PctCapBps: cfg.PctCapBps,
	})
}

func handleGetBountyAccountAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	acct, err := svc.GetBountyAccount(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": acct.Balance})
}

type fundAPI struct {
	Balance           int64 `json:"balance"`
	ActiveTenantCount int64 `json:"active_tenant_count"`
	FeeBps            int64 `json:"fee_bps"`
}

func handleGetFundAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	fund, err := svc.GetFundSnapshot(r.Context())
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, fundAPI{
		Balance:           fund.Balance,
		ActiveTenantCount: fund.ActiveTenantCount,
		FeeBps:            fund.FeeBps,
	})
}

type graceConfigAPI struct {
	GraceDays           int   `json:"grace_days"`
	MaxSpendDuringGrace int64 `json:"max_spend_during_grace"`
	MinDepositRequired  int64 `json:"min_deposit_required"`
}

func handleGetGraceConfigAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	cfg, err := svc.GetGraceConfig(r.Context())
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, graceConfigAPI{
		GraceDays:           cfg.GraceDays,
		MaxSpendDuringGrace: cfg.MaxSpendDuringGrace,
		MinDepositRequired:  cfg.MinDepositRequired,
	})
}

type graceStatusAPI struct {
	InGrace             bool      `json:"in_grace"`
	RemainingGraceSpend int64     `json:"remaining_grace_spend"`
	Tier                int       `json:"tier"`
	MatchAllowance      int64     `json:"match_allowance"`
	PeriodStart         time.Time `json:"period_start"`
	SolidarityUsed      int64     `json:"solidarity_used"`
}

func handleGetGraceStatusAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	tenantID, ok := queryTenantID(w, r)
	if !ok {
		return
	}
	st, err := svc.GetGraceStatus(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, graceStatusAPI{
		InGrace:             st.InGrace,
		RemainingGraceSpend: st.RemainingGraceSpend,
		Tier:                st.Tier,
		MatchAllowance:      st.MatchAllowance,
		PeriodStart:         st.PeriodStart,
		SolidarityUsed:      st.SolidarityUsed,
	})
}

func handleGetReceiptAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	opID := strings.TrimSpace(r.URL.Query().Get("op_id"))
	if opID == "" {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusBadRequest, "invalid_op_id", "op_id required")
		return
	}
	rcpt, found, err := svc.GetReceipt(r.Context(), opID)
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	if !found {
		routing.WriteError(w, r, routing.RouteClassPublicAPI, http.StatusNotFound, "receipt_not_found", "receipt not found")
		return
	}
	writeJSON(w, http.StatusOK, receiptToAPI(rcpt))
}
