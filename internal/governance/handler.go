package governance

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openmutual/hub/internal/routing"
	"github.com/openmutual/hub/modules/hub/domain/ports"
	"github.com/openmutual/hub/modules/hub/domain/types"
	"github.com/openmutual/hub/modules/hub/infrastructure/persistence"
	hubservices "github.com/openmutual/hub/modules/hub/services"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

type HandlerOptions struct {
	Store ports.HubStore
}

func NewHandlerWithOptions(opts HandlerOptions) (http.Handler, error) {
	allowlistPath := os.Getenv("ALLOWLIST_PATH")
	if allowlistPath == "" {
		p, err := defaultAllowlistPath()
		if err != nil {
			return nil, err
		}
		allowlistPath = p
	}

	a, err := routing.LoadAllowlist(allowlistPath)
	if err != nil {
		return nil, err
	}

	classifier, err := routing.NewClassifier(a, "governance")
	if err != nil {
		return nil, err
	}

	store := opts.Store
	if store == nil {
		if os.Getenv("HUB_STORE") == "memory" {
			store = persistence.NewHubMemoryStore()
		} else {
			pool, err := pgxpool.New(context.Background(), dbDSNFromEnv())
			if err != nil {
				return nil, err
			}
			store = persistence.NewHubPGStore(pool)
		}
	}

	svc := hubservices.NewHubService(store)
	router := routing.NewRouter(classifier)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))

	router.Handle(routing.RouteClassGovernanceAPI, http.MethodGet, "/governance/grace-config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg, err := svc.GetGraceConfig(r.Context())
		if err != nil {
			writeGovernanceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, graceConfigAPI{
			GraceDays:           cfg.GraceDays,
			MaxSpendDuringGrace: cfg.MaxSpendDuringGrace,
			MinDepositRequired:  cfg.MinDepositRequired,
		})
	}))
	router.Handle(routing.RouteClassGovernanceAPI, http.MethodPut, "/governance/grace-config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req graceConfigAPI
		if !decodeJSON(w, r, &req) {
			return
		}
		err := svc.SetGracePeriodConfig(r.Context(), types.GracePeriodConfig{
			GraceDays:           req.GraceDays,
			MaxSpendDuringGrace: req.MaxSpendDuringGrace,
			MinDepositRequired:  req.MinDepositRequired,
		})
		if err != nil {
			writeGovernanceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	router.Handle(routing.RouteClassGovernanceAPI, http.MethodPost, "/governance/tenants:ban", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TenantID string `json:"tenant_id"`
			Banned   bool   `json:"banned"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.SetBanFromSolidarity(r.Context(), req.TenantID, req.Banned); err != nil {
			writeGovernanceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	router.Handle(routing.RouteClassGovernanceAPI, http.MethodPut, "/governance/fee-bps", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			FeeBps int64 `json:"fee_bps"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.SetSolidarityFeeBps(r.Context(), req.FeeBps); err != nil {
			writeGovernanceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	router.Handle(routing.RouteClassGovernanceAPI, http.MethodPost, "/governance/bounty:fund", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TenantID string `json:"tenant_id"`
			Amount   int64  `json:"amount"`
		}
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := svc.FundBounty(r.Context(), req.TenantID, req.Amount); err != nil {
			writeGovernanceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	router.Handle(routing.RouteClassGovernanceAPI, http.MethodGet, "/governance/fund", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fund, err := svc.GetFundSnapshot(r.Context())
		if err != nil {
			writeGovernanceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{
			"balance":             fund.Balance,
			"active_tenant_count": fund.ActiveTenantCount,
			"fee_bps":             fund.FeeBps,
		})
	}))

	return withBasicAuth(router), nil
}

type graceConfigAPI struct {
	GraceDays           int   `json:"grace_days"`
	MaxSpendDuringGrace int64 `json:"max_spend_during_grace"`
	MinDepositRequired  int64 `json:"min_deposit_required"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		routing.WriteError(w, r, routing.RouteClassGovernanceAPI, http.StatusUnprocessableEntity, "invalid_json", "invalid json")
		return false
	}
	return true
}

func writeGovernanceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *hubservices.ValidationError
	if errors.As(err, &ve) {
		status := http.StatusUnprocessableEntity
		if ve.Code == "HUB_TENANT_NOT_FOUND" {
			status = http.StatusNotFound
		}
		routing.WriteError(w, r, routing.RouteClassGovernanceAPI, status, ve.Code, ve.Error())
		return
	}
	routing.WriteError(w, r, routing.RouteClassGovernanceAPI, http.StatusInternalServerError, "internal_error", "internal error")
}

func MustNewHandler() http.Handler {
	h, err := NewHandler()
	if err != nil {
		panic(errors.New("governance: failed to build handler: " + err.Error()))
	}
	return h
}

func defaultAllowlistPath() (string, error) {
	path := "config/routing/allowlist.yaml"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("governance: allowlist not found")
}
