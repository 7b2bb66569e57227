package types

import "time"

// ReservationContext binds a successful Authorize to its eventual Settle.
// It is consumed exactly once; settling an unknown or already-consumed
// context is a consistency fault.
type ReservationContext struct {
	OpID               string
	TenantID           string
	SubjectKey         string
	Target             string
	Selector           string
	MaxCost            int64
	EpochStartSnapshot time.Time
	RelayOperator      string
	InGrace            bool
	CreatedAt          time.Time
}

// Outcome tags how the metered work finished. Cost is charged either way;
// only the bounty depends on success.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailed  Outcome = "failed"
)

// SettlementReceipt records the final split of one settled operation.
type SettlementReceipt struct {
	ReceiptID      string
	OpID           string
	TenantID       string
	SubjectKey     string
	ActualCost     int64
	FromDeposits   int64
	FromSolidarity int64
	FeeCollected   int64
	BountyPaid     int64
	Outcome        Outcome
	SettledAt      time.Time
}
