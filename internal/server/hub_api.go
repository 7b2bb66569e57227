package server

import (
	"net/http"
	"time"

	"github.com/openmutual/hub/internal/routing"
	"github.com/openmutual/hub/modules/hub/domain/types"
	hubservices "github.com/openmutual/hub/modules/hub/services"
)

type authorizeRequestAPI struct {
	TenantID      string `json:"tenant_id"`
	SubjectKey    string `json:"subject_key"`
	Target        string `json:"target"`
	Selector      string `json:"selector"`
	MaxCost       int64  `json:"max_cost"`
	UnitPrice     int64  `json:"unit_price"`
	ComputeCost   int64  `json:"compute_cost"`
	StorageCost   int64  `json:"storage_cost"`
	TransferCost  int64  `json:"transfer_cost"`
	RelayOperator string `json:"relay_operator"`
}

type authorizeResponseAPI struct {
	Reserved       bool   `json:"reserved"`
	OpID           string `json:"op_id,omitempty"`
	MaxCost        int64  `json:"max_cost,omitempty"`
	InGrace        bool   `json:"in_grace,omitempty"`
	RejectionClass string `json:"rejection_class,omitempty"`
	RejectionCode  string `json:"rejection_code,omitempty"`
}

func handleAuthorizeAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req authorizeRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}

	result, err := svc.Authorize(r.Context(), req.TenantID, hubservices.AuthorizeRequest{
		SubjectKey: req.SubjectKey,
		Target:     req.Target,
		Selector:   req.Selector,
		MaxCost:    req.MaxCost,
		UnitPrice:  req.UnitPrice,
		SubPhaseCosts: types.SubPhaseCosts{
			Compute:  req.ComputeCost,
			Storage:  req.StorageCost,
			Transfer: req.TransferCost,
		},
		RelayOperator: req.RelayOperator,
	})
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}

	if !result.Reserved {
		writeJSON(w, http.StatusOK, authorizeResponseAPI{
			Reserved:       false,
			RejectionClass: string(result.RejectionClass),
			RejectionCode:  result.RejectionCode,
		})
		return
	}
	writeJSON(w, http.StatusOK, authorizeResponseAPI{
		Reserved: true,
		OpID:     result.Reservation.OpID,
		MaxCost:  result.Reservation.MaxCost,
		InGrace:  result.Reservation.InGrace,
	})
}

type settleRequestAPI struct {
	OpID       string `json:"op_id"`
	ActualCost int64  `json:"actual_cost"`
	Outcome    string `json:"outcome"`
}

type receiptAPI struct {
	ReceiptID      string    `json:"receipt_id"`
	OpID           string    `json:"op_id"`
	TenantID       string    `json:"tenant_id"`
	SubjectKey     string    `json:"subject_key"`
	ActualCost     int64     `json:"actual_cost"`
	FromDeposits   int64     `json:"from_deposits"`
	FromSolidarity int64     `json:"from_solidarity"`
	FeeCollected   int64     `json:"fee_collected"`
	BountyPaid     int64     `json:"bounty_paid"`
	Outcome        string    `json:"outcome"`
	SettledAt      time.Time `json:"settled_at"`
}

func receiptToAPI(rcpt types.SettlementReceipt) receiptAPI {
	return receiptAPI{
		ReceiptID:      rcpt.ReceiptID,
		OpID:           rcpt.OpID,
		TenantID:       rcpt.TenantID,
		SubjectKey:     rcpt.SubjectKey,
		ActualCost:     rcpt.ActualCost,
		FromDeposits:   rcpt.FromDeposits,
		FromSolidarity: rcpt.FromSolidarity,
		FeeCollected:   rcpt.FeeCollected,
		BountyPaid:     rcpt.BountyPaid,
		Outcome:        string(rcpt.Outcome),
		SettledAt:      rcpt.SettledAt,
	}
}

func handleSettleAPI(w http.ResponseWriter, r *http.Request, svc *hubservices.HubService) {
	var req settleRequestAPI
	if !decodeJSON(w, r, routing.RouteClassPublicAPI, &req) {
		return
	}

	rcpt, err := svc.Settle(r.Context(), hubservices.SettleRequest{
		OpID:       req.OpID,
		ActualCost: req.ActualCost,
		Outcome:    types.Outcome(req.Outcome),
	})
	if err != nil {
		writeServiceError(w, r, routing.RouteClassPublicAPI, err)
		return
	}
	writeJSON(w, http.StatusOK, receiptToAPI(rcpt))
}
