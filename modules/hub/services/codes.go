package services

// Rejection codes surfaced on tagged authorize results. Policy rejections
// are recoverable by changing the request; quota rejections by waiting for
// a window to roll or depositing funds.
const (
	errTenantPaused                = "HUB_TENANT_PAUSED"
	errRuleDenied                  = "HUB_RULE_DENIED"
	errRuleGuardDenied             = "HUB_RULE_GUARD_DENIED"
	errCapExceeded                 = "HUB_CAP_EXCEEDED"
	errBudgetExceeded              = "HUB_BUDGET_EXCEEDED"
	errGraceSpendExceeded          = "HUB_GRACE_SPEND_EXCEEDED"
	errSolidarityAllowanceExceeded = "HUB_SOLIDARITY_ALLOWANCE_EXCEEDED"
	errInsufficientFunds           = "HUB_INSUFFICIENT_FUNDS"
)

// Consistency fault codes. These indicate a sequencing or programming
// error, never a recoverable caller mistake.
const (
	faultContextUnknown     = "HUB_CONTEXT_UNKNOWN"
	faultCostExceedsReserve = "HUB_COST_EXCEEDS_RESERVED"
	faultSettlementShort    = "HUB_SETTLEMENT_SHORTFALL"
)

// Validation codes for admin and config mutators.
const (
	errTenantNotFound       = "HUB_TENANT_NOT_FOUND"
	errTenantExists         = "HUB_TENANT_ALREADY_REGISTERED"
	errTenantIDInvalid      = "HUB_TENANT_ID_INVALID"
	errAdminRoleRequired    = "HUB_ADMIN_ROLE_REQUIRED"
	errActorForbidden       = "HUB_ACTOR_FORBIDDEN"
	errSubjectKeyInvalid    = "HUB_SUBJECT_KEY_INVALID"
	errTargetRequired       = "HUB_TARGET_REQUIRED"
	errSelectorRequired     = "HUB_SELECTOR_REQUIRED"
	errAmountInvalid        = "HUB_AMOUNT_INVALID"
	errEpochLengthInvalid   = "HUB_EPOCH_LENGTH_INVALID"
	errFeeBpsInvalid        = "HUB_FEE_BPS_INVALID"
	errGuardExprInvalid     = "HUB_GUARD_EXPR_INVALID"
	errRuleBatchTooLarge    = "HUB_RULE_BATCH_TOO_LARGE"
	errBountyConfigInvalid  = "HUB_BOUNTY_CONFIG_INVALID"
	errGraceConfigInvalid   = "HUB_GRACE_CONFIG_INVALID"
	errBountyFundsInvalid   = "HUB_BOUNTY_FUNDS_INVALID"
	errOutcomeInvalid       = "HUB_OUTCOME_INVALID"
	errMaxCostInvalid       = "HUB_MAX_COST_INVALID"
	errActualCostInvalid    = "HUB_ACTUAL_COST_INVALID"
	errEpochStartInvalid    = "HUB_EPOCH_START_INVALID"
	errCapsInvalid          = "HUB_CAPS_INVALID"
	errBudgetCapInvalid     = "HUB_BUDGET_CAP_INVALID"
	errOperatorRoleInvalid  = "HUB_OPERATOR_ROLE_INVALID"
	errRelayOperatorInvalid = "HUB_RELAY_OPERATOR_INVALID"
)

// amountMax bounds every configured cap, balance and cost so that split and
// fee arithmetic stays far from int64 overflow.
const amountMax = int64(1) << 53
