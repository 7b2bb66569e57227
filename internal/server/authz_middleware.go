package server

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/openmutual/hub/internal/routing"
	"github.com/openmutual/hub/pkg/authz"
)

func loadAuthorizer() (*authz.Authorizer, error) {
	modelPath := os.Getenv("AUTHZ_MODEL_PATH")
	if modelPath == "" {
		p, err := defaultAuthzModelPath()
		if err != nil {
			return nil, err
		}
		modelPath = p
	}

	policyPath := os.Getenv("AUTHZ_POLICY_PATH")
	if policyPath == "" {
		p, err := defaultAuthzPolicyPath()
		if err != nil {
			return nil, err
		}
		policyPath = p
	}

	mode, err := authz.ModeFromEnv()
	if err != nil {
		return nil, err
	}

	return authz.NewAuthorizer(modelPath, policyPath, mode)
}

func defaultAuthzModelPath() (string, error) {
	path := "config/access/model.conf"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: authz model not found")
}

func defaultAuthzPolicyPath() (string, error) {
	path := "config/access/policy.csv"
	for i := 0; i < 8; i++ {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		path = filepath.Join("..", path)
	}
	return "", errors.New("server: authz policy not found")
}

type authorizer interface {
	Authorize(subject string, domain string, object string, action string) (allowed bool, enforced bool, err error)
}

func withAuthz(classifier *routing.Classifier, a authorizer, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		rc := routing.RouteClassPublicAPI
		if classifier != nil {
			rc = classifier.Classify(path)
		}

		if path == "/health" || path == "/healthz" {
			next.ServeHTTP(w, r)
			return
		}

		object, action, shouldCheck := authzRequirementForRoute(r.Method, path)
		if !shouldCheck {
			next.ServeHTTP(w, r)
			return
		}

		subject := authz.SubjectFromRoleSlug(actorRole(r))
		allowed, enforced, err := a.Authorize(subject, authz.DomainGlobal, object, action)
		if err != nil {
			routing.WriteError(w, r, rc, http.StatusInternalServerError, "authz_error", "authz error")
			return
		}
		if enforced && !allowed {
			routing.WriteError(w, r, rc, http.StatusForbidden, "forbidden", "forbidden")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func authzRequirementForRoute(method string, path string) (object string, action string, ok bool) {
	switch path {
	case "/api/hub/authorize":
		if method == http.MethodPost {
			return authz.ObjectHubAuthorize, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/settle":
		if method == http.MethodPost {
			return authz.ObjectHubSettle, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/tenants":
		if method == http.MethodPost {
			return authz.ObjectHubTenant, authz.ActionWrite, true
		}
		if method == http.MethodGet {
			return authz.ObjectHubViews, authz.ActionRead, true
		}
		return "", "", false
	case "/api/hub/tenants:pause", "/api/hub/tenants:operator-role":
		if method == http.MethodPost {
			return authz.ObjectHubTenant, authz.ActionAdmin, true
		}
		return "", "", false
	case "/api/hub/deposits", "/api/hub/fund/donations":
		if method == http.MethodPost {
			return authz.ObjectHubFunding, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/rules":
		if method == http.MethodGet {
			return authz.ObjectHubRules, authz.ActionRead, true
		}
		if method == http.MethodPut {
			return authz.ObjectHubRules, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/rules:batch", "/api/hub/rules:clear":
		if method == http.MethodPost {
			return authz.ObjectHubRules, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/caps":
		if method == http.MethodGet {
			return authz.ObjectHubCaps, authz.ActionRead, true
		}
		if method == http.MethodPut {
			return authz.ObjectHubCaps, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/budgets":
		if method == http.MethodGet {
			return authz.ObjectHubBudgets, authz.ActionRead, true
		}
		if method == http.MethodPut {
			return authz.ObjectHubBudgets, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/budgets:epoch-start":
		if method == http.MethodPost {
			return authz.ObjectHubBudgets, authz.ActionWrite, true
		}
		return "", "", false
	case "/api/hub/bounty/config":
		if method == http.MethodGet {
			return authz.ObjectHubBounty, authz.ActionRead, true
		}
		if method == http.MethodPut {
			return authz.ObjectHubBounty, authz.ActionAdmin, true
		}
		return "", "", false
	case "/api/hub/bounty/account", "/api/hub/financials", "/api/hub/fund",
		"/api/hub/grace-config", "/api/hub/grace-status", "/api/hub/receipts":
		if method == http.MethodGet {
			return authz.ObjectHubViews, authz.ActionRead, true
		}
		return "", "", false
	default:
		return "", "", false
	}
}
