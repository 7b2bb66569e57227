package authz

const (
	RoleTenantAdmin    = "tenant-admin"
	RoleTenantOperator = "tenant-operator"
	RoleTenantViewer   = "tenant-viewer"
	RoleAnonymous      = "anonymous"
	RoleGovernance     = "governance"
)

const (
	ActionRead  = "read"
	ActionWrite = "write"
	ActionAdmin = "admin"
)

const DomainGlobal = "global"

const (
	ObjectHubAuthorize  = "hub.authorize"
	ObjectHubSettle     = "hub.settle"
	ObjectHubFunding    = "hub.funding"
	ObjectHubRules      = "hub.rules"
	ObjectHubCaps       = "hub.caps"
	ObjectHubBudgets    = "hub.budgets"
	ObjectHubTenant     = "hub.tenant"
	ObjectHubBounty     = "hub.bounty"
	ObjectHubViews      = "hub.views"
	ObjectHubGovernance = "hub.governance"
)
