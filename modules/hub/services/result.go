package services

import "github.com/openmutual/hub/modules/hub/domain/types"

// RejectionClass separates recoverable rejections into the two families
// callers react to differently.
type RejectionClass string

const (
	RejectionPolicy RejectionClass = "policy_rejected"
	RejectionQuota  RejectionClass = "quota_rejected"
)

// AuthorizeResult is the tagged outcome of Authorize. Exactly one of
// Reserved or a rejection is set; infrastructure failures travel on the
// error return instead.
type AuthorizeResult struct {
	Reserved       bool
	Reservation    types.ReservationContext
	RejectionClass RejectionClass
	RejectionCode  string
}

func rejected(class RejectionClass, code string) AuthorizeResult {
	return AuthorizeResult{RejectionClass: class, RejectionCode: code}
}

// ConsistencyFaultError marks a settle call that violated sequencing
// (unknown context, double settle, cost above reservation, or a split
// shortfall). No ledger writes happen when one is returned.
type ConsistencyFaultError struct {
	Code string
	msg  string
}

func (e *ConsistencyFaultError) Error() string { return e.Code + ": " + e.msg }

func newConsistencyFault(code string, msg string) error {
	return &ConsistencyFaultError{Code: code, msg: msg}
}

// ValidationError rejects an admin or config mutation before any state
// change, carrying the specific named condition.
type ValidationError struct {
	Code string
	msg  string
}

func (e *ValidationError) Error() string { return e.Code + ": " + e.msg }

func newValidationError(code string, msg string) error {
	return &ValidationError{Code: code, msg: msg}
}
