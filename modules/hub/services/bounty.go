package services

import (
	"context"
	"log"

	"github.com/openmutual/hub/modules/hub/domain/ports"
)

// bountyEngine pays the relay incentive after a successful settlement. It
// draws on a separately funded balance and never propagates failure into
// the settlement that triggered it. It must not call back into the Hub.
type bountyEngine struct {
	store ports.BountyStore
}

// pay attempts the relay incentive and returns the amount actually paid.
// Zero with no error means the engine is disabled, the operator is empty,
// or no funds remain.
func (e *bountyEngine) pay(ctx context.Context, tenantID string, relayOperator string, actualCost int64) int64 {
	if relayOperator == "" || actualCost <= 0 {
		return 0
	}

	cfg, err := e.store.GetBountyConfig(ctx, tenantID)
	if err != nil {
		log.Printf("hub: bounty payment failed tenant=%s relay=%s: %v", tenantID, relayOperator, err)
		return 0
	}
	if !cfg.Enabled {
		return 0
	}

	amount := actualCost * cfg.PctCapBps / 10000
	if cfg.MaxPerOp > 0 && amount > cfg.MaxPerOp {
		amount = cfg.MaxPerOp
	}
	if amount <= 0 {
		return 0
	}

	account, err := e.store.GetBountyAccount(ctx, tenantID)
	if err != nil {
		log.Printf("hub: bounty payment failed tenant=%s relay=%s: %v", tenantID, relayOperator, err)
		return 0
	}
	if amount > account.Balance {
		amount = account.Balance
	}
	if amount <= 0 {
		return 0
	}

	if err := e.store.AddBountyFunds(ctx, tenantID, -amount); err != nil {
		log.Printf("hub: bounty payment failed tenant=%s relay=%s amount=%d: %v", tenantID, relayOperator, amount, err)
		return 0
	}

	log.Printf("hub: bounty paid tenant=%s relay=%s amount=%d", tenantID, relayOperator, amount)
	return amount
}
