package server

import (
	"net/http"
	"time"

	"github.com/openmutual/hub/internal/routing"
	"github.com/openmutual/hub/modules/hub/domain/types"
	hubservices "github.com/openmutual/hub/modules/hub/services"
)

type registerTenantRequestAPI struct {
	TenantID     string `json:"tenant_id"`
	AdminRole    string `json:"admin_role"`
	OperatorRole string `json:"operator_role"`
}

func handleRegisterTenantAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req registerTenantRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.RegisterTenant(r.Context(), req.TenantID, req.AdminRole, req.OperatorRole); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"tenant_id": req.TenantID})
}

type depositRequestAPI struct {
	TenantID string `json:"tenant_id"`
	Amount   int64  `json:"amount"`
}

func handleDepositAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req depositRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.Deposit(r.Context(), req.TenantID, req.Amount); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleDonateAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.DonateToFund(r.Context(), req.Amount); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type ruleAPI struct {
	Target    string `json:"target"`
	Selector  string `json:"selector"`
	Allowed   bool   `json:"allowed"`
	CostHint  uint32 `json:"cost_hint"`
	GuardExpr string `json:"guard_expr,omitempty"`
}

func ruleFromAPI(in ruleAPI) types.Rule {
	return types.Rule{
		Target:    in.Target,
		Selector:  in.Selector,
		Allowed:   in.Allowed,
		CostHint:  in.CostHint,
		GuardExpr: in.GuardExpr,
	}
}

type setRuleRequestAPI struct {
	TenantID string  `json:"tenant_id"`
	Rule     ruleAPI `json:"rule"`
}

func handleSetRuleAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setRuleRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.SetRule(r.Context(), req.TenantID, actorRole(r), ruleFromAPI(req.Rule)); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setRulesBatchRequestAPI struct {
	TenantID string    `json:"tenant_id"`
	Rules    []ruleAPI `json:"rules"`
}

func handleSetRulesBatchAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setRulesBatchRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	rules := make([]types.Rule, 0, len(req.Rules))
	for _, in := range req.Rules {
		rules = append(rules, ruleFromAPI(in))
	}
	if err := svc.SetRulesBatch(r.Context(), req.TenantID, actorRole(r), rules); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type clearRuleRequestAPI struct {
	TenantID string `json:"tenant_id"`
	Target   string `json:"target"`
	Selector string `json:"selector"`
}

func handleClearRuleAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req clearRuleRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.ClearRule(r.Context(), req.TenantID, actorRole(r), req.Target, req.Selector); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setBudgetRequestAPI struct {
	TenantID           string `json:"tenant_id"`
	SubjectKey         string `json:"subject_key"`
	CapPerEpoch        int64  `json:"cap_per_epoch"`
	EpochLengthSeconds int64  `json:"epoch_length_seconds"`
}

func handleSetBudgetAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setBudgetRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	epochLength := time.Duration(req.EpochLengthSeconds) * time.Second
	if err := svc.SetBudget(r.Context(), req.TenantID, actorRole(r), req.SubjectKey, req.CapPerEpoch, epochLength); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setEpochStartRequestAPI struct {
	TenantID   string    `json:"tenant_id"`
	SubjectKey string    `json:"subject_key"`
	Start      time.Time `json:"start"`
}

func handleSetEpochStartAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setEpochStartRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.SetEpochStart(r.Context(), req.TenantID, actorRole(r), req.SubjectKey, req.Start); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type capsAPI struct {
	MaxUnitPrice    int64 `json:"max_unit_price"`
	MaxComputeCost  int64 `json:"max_compute_cost"`
	MaxStorageCost  int64 `json:"max_storage_cost"`
	MaxTransferCost int64 `json:"max_transfer_cost"`
}

type setCapsRequestAPI struct {
	TenantID string  `json:"tenant_id"`
	Caps     capsAPI `json:"caps"`
}

func handleSetCapsAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setCapsRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	caps := types.Caps{
		MaxUnitPrice:    req.Caps.MaxUnitPrice,
		MaxComputeCost:  req.Caps.MaxComputeCost,
		MaxStorageCost:  req.Caps.MaxStorageCost,
		MaxTransferCost: req.Caps.MaxTransferCost,
	}
	if err := svc.SetCaps(r.Context(), req.TenantID, actorRole(r), caps); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setPauseRequestAPI struct {
	TenantID string `json:"tenant_id"`
	Paused   bool   `json:"paused"`
}

func handleSetPauseAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setPauseRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.SetPause(r.Context(), req.TenantID, actorRole(r), req.Paused); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setOperatorRoleRequestAPI struct {
	TenantID     string `json:"tenant_id"`
	OperatorRole string `json:"operator_role"`
}

func handleSetOperatorRoleAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setOperatorRoleRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	if err := svc.SetOperatorRole(r.Context(), req.TenantID, actorRole(r), req.OperatorRole); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type bountyConfigAPI struct {
	Enabled   bool  `json:"enabled"`
	MaxPerOp  int64 `json:"max_per_op"`
	PctCapBps int64 `json:"pct_cap_bps"`
}

type setBountyConfigRequestAPI struct {
	TenantID string          `json:"tenant_id"`
	Config   bountyConfigAPI `json:"config"`
}

func handleSetBountyConfigAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req setBountyConfigRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}
	cfg := types.BountyConfig{
		Enabled:   req.Config.Enabled,
		MaxPerOp:  req.Config.MaxPerOp,
		PctCapBps: req.Config.PctCapBps,
	}
	if err := svc.SetBountyConfig(r.Context(), req.TenantID, actorRole(r), cfg); err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
