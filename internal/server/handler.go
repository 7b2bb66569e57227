package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openmutual/hub/internal/routing"
	"github.com/openmutual/hub/modules/hub/domain/ports"
	"github.com/openmutual/hub/modules/hub/infrastructure/persistence"
	hubservices "github.com/openmutual/hub/modules/hub/services"
)

func NewHandler() (http.Handler, error) {
	return NewHandlerWithOptions(HandlerOptions{})
}

type HandlerOptions struct {
	Store       ports.HubStore
	Authorizer  authorizer
	SeedTenants bool

	// PurgeInterval enables the expired-reservation sweeper when positive.
	PurgeInterval time.Duration
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

	classifier, err := routing.NewClassifier(a, "server")
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

	if opts.SeedTenants {
		tenants, err := loadSeedTenants()
		if err != nil {
			return nil, err
		}
		seedTenants(context.Background(), svc, tenants)
	}

	if opts.PurgeInterval > 0 {
		go runReservationPurger(context.Background(), svc, opts.PurgeInterval)
	}

	auth := opts.Authorizer
	if auth == nil {
		a, err := loadAuthorizer()
		if err != nil {
			return nil, err
		}
		auth = a
	}

	router := routing.NewRouter(classifier)

	router.Handle(routing.RouteClassOps, http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))
	router.Handle(routing.RouteClassOps, http.MethodGet, "/healthz", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/authorize", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleAuthorizeAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/settle", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSettleAPI(w, r, svc)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/tenants", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleRegisterTenantAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/tenants", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetTenantAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/tenants:pause", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetPauseAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/tenants:operator-role", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetOperatorRoleAPI(w, r, svc)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/deposits", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDepositAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/fund/donations", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleDonateAPI(w, r, svc)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/rules", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetRuleAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/hub/rules", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetRuleAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/rules:batch", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetRulesBatchAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/rules:clear", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleClearRuleAPI(w, r, svc)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/caps", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetCapsAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/hub/caps", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetCapsAPI(w, r, svc)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/budgets", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetBudgetAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/hub/budgets", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetBudgetAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPost, "/api/hub/budgets:epoch-start", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetEpochStartAPI(w, r, svc)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/bounty/config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetBountyConfigAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodPut, "/api/hub/bounty/config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleSetBountyConfigAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/bounty/account", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetBountyAccountAPI(w, r, svc)
	}))

	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/financials", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetFinancialsAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/fund", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetFundAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/grace-config", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetGraceConfigAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/grace-status", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetGraceStatusAPI(w, r, svc)
	}))
	router.Handle(routing.RouteClassPublicAPI, http.MethodGet, "/api/hub/receipts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handleGetReceiptAPI(w, r, svc)
	}))

	return withActor(withAuthz(classifier, auth, router)), nil
}

func MustNewHandler() http.Handler {
	h, err := NewHandler()
	if err != nil {
		panic(errors.New("server: failed to build handler: " + err.Error()))
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
	return "", errors.New("server: allowlist not found")
}
